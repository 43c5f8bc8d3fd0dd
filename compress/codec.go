package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/foobaz/go-zopfli/zopfli"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Decompress strips the wrapper compression identified by f from data,
// returning the raw cpio stream. NONE returns data unchanged.
func Decompress(f Format, data []byte) ([]byte, error) {
	switch f {
	case NONE:
		return data, nil
	case GZIP, ZOPFLI:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("compress: gzip: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case XZ:
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("compress: xz: %w", err)
		}
		return io.ReadAll(r)
	case BZIP2:
		r, err := bzip2.NewReader(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("compress: bzip2: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case LZ4, LZ4_LEGACY:
		r := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("compress: unsupported format %q", Name(f))
	}
}

// Compress wraps data in the compression format f, the reverse of
// Decompress. NONE returns data unchanged. LZ4_LEGACY is written in the
// standard LZ4 frame format, not the legacy framing.
func Compress(f Format, data []byte) ([]byte, error) {
	switch f {
	case NONE:
		return data, nil
	case GZIP:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compress: gzip: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress: gzip: %w", err)
		}
		return buf.Bytes(), nil
	case ZOPFLI:
		var buf bytes.Buffer
		opts := zopfli.DefaultOptions()
		if err := zopfli.GzipCompress(&opts, data, &buf); err != nil {
			return nil, fmt.Errorf("compress: zopfli: %w", err)
		}
		return buf.Bytes(), nil
	case XZ:
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("compress: xz: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compress: xz: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress: xz: %w", err)
		}
		return buf.Bytes(), nil
	case BZIP2:
		var buf bytes.Buffer
		w, err := bzip2.NewWriter(&buf, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: bzip2: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compress: bzip2: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress: bzip2: %w", err)
		}
		return buf.Bytes(), nil
	case LZ4, LZ4_LEGACY:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("compress: unsupported format %q", Name(f))
	}
}
