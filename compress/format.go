// Package compress detects and transparently applies the wrapper
// compression format found on a ramdisk cpio stream. Detection and
// application are collaborators to the cpio codec: the codec decides
// when to call them, this package only knows how.
package compress

import "bytes"

// Format identifies a compression wrapper by its magic bytes.
type Format int

const (
	NONE Format = iota
	GZIP
	ZOPFLI
	XZ
	LZMA
	BZIP2
	LZ4
	LZ4_LEGACY
)

const (
	gzip1Magic   = "\x1f\x8b"
	gzip2Magic   = "\x1f\x9e"
	xzMagic      = "\xfd7zXZ"
	bzipMagic    = "BZh"
	lz4LegMagic  = "\x02\x21\x4c\x18"
	lz4v1Magic   = "\x03\x21\x4c\x18"
	lz4v2Magic   = "\x04\x22\x4d\x18"
)

func hasMagic(buf []byte, magic string) bool {
	return len(buf) >= len(magic) && bytes.Equal(buf[:len(magic)], []byte(magic))
}

// Detect inspects the leading bytes of buf and reports the compression
// wrapper format in use, or NONE if buf looks like an uncompressed
// cpio stream (or is too short to tell).
func Detect(buf []byte) Format {
	switch {
	case hasMagic(buf, gzip1Magic), hasMagic(buf, gzip2Magic):
		return GZIP
	case hasMagic(buf, xzMagic):
		return XZ
	case hasMagic(buf, bzipMagic):
		return BZIP2
	case hasMagic(buf, lz4v1Magic), hasMagic(buf, lz4v2Magic):
		return LZ4
	case hasMagic(buf, lz4LegMagic):
		return LZ4_LEGACY
	case len(buf) >= 13 && bytes.Equal([]byte("\x5d\x00\x00"), buf[:3]) && (buf[12] == 0xff || buf[12] == 0x00):
		return LZMA
	default:
		return NONE
	}
}

// Rewrap returns the format that should be used to re-encode a stream
// detected as f. A stream detected as plain GZIP is always rewrapped
// with the Zopfli encoder on the way back out, matching the archive
// producer's own convention: Zopfli output carries the same gzip magic
// bytes gzip.NewReader already accepts, so decode never changes, but
// re-encode gets a smaller, exhaustively searched deflate stream.
func Rewrap(f Format) Format {
	if f == GZIP {
		return ZOPFLI
	}
	return f
}

// Name returns a lowercase human-readable name for f, as used in
// diagnostics.
func Name(f Format) string {
	switch f {
	case GZIP:
		return "gzip"
	case ZOPFLI:
		return "zopfli"
	case XZ:
		return "xz"
	case LZMA:
		return "lzma"
	case BZIP2:
		return "bzip2"
	case LZ4:
		return "lz4"
	case LZ4_LEGACY:
		return "lz4_legacy"
	default:
		return "raw"
	}
}
