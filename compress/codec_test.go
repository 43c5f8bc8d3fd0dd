package compress_test

import (
	"bytes"
	"testing"

	"ramdiskpatch/compress"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want compress.Format
	}{
		{"gzip", []byte("\x1f\x8b\x08\x00\x00\x00\x00\x00"), compress.GZIP},
		{"xz", []byte("\xfd7zXZ\x00"), compress.XZ},
		{"bzip2", []byte("BZh9"), compress.BZIP2},
		{"lz4", []byte("\x04\x22\x4d\x18"), compress.LZ4},
		{"lz4 legacy", []byte("\x02\x21\x4c\x18"), compress.LZ4_LEGACY},
		{"raw cpio", []byte("070701" + "00000000"), compress.NONE},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := compress.Detect(c.buf); got != c.want {
				t.Fatalf("Detect(%s) = %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestGzipRoundTrip(t *testing.T) {
	data := []byte("070701" + "some pretend cpio bytes")

	packed, err := compress.Compress(compress.GZIP, data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if compress.Detect(packed) != compress.GZIP {
		t.Fatalf("compressed stream not detected as gzip")
	}

	unpacked, err := compress.Decompress(compress.GZIP, packed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(unpacked, data) {
		t.Fatalf("round trip mismatch: got %q want %q", unpacked, data)
	}
}

func TestXzRoundTrip(t *testing.T) {
	data := []byte("070701" + "another pretend cpio stream")

	packed, err := compress.Compress(compress.XZ, data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	unpacked, err := compress.Decompress(compress.XZ, packed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(unpacked, data) {
		t.Fatalf("round trip mismatch: got %q want %q", unpacked, data)
	}
}

func TestRewrap(t *testing.T) {
	if got := compress.Rewrap(compress.GZIP); got != compress.ZOPFLI {
		t.Fatalf("Rewrap(GZIP) = %v, want ZOPFLI", got)
	}
	if got := compress.Rewrap(compress.XZ); got != compress.XZ {
		t.Fatalf("Rewrap(XZ) = %v, want XZ unchanged", got)
	}
}

func TestNoneIsIdentity(t *testing.T) {
	data := []byte("070701raw")
	packed, _ := compress.Compress(compress.NONE, data)
	if !bytes.Equal(packed, data) {
		t.Fatalf("Compress(NONE) mutated data")
	}
	unpacked, _ := compress.Decompress(compress.NONE, data)
	if !bytes.Equal(unpacked, data) {
		t.Fatalf("Decompress(NONE) mutated data")
	}
}
