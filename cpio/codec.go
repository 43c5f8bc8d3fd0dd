package cpio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"

	"ramdiskpatch/compress"
)

// header is the on-wire layout of a new-ASCII ("070701") cpio record.
// After the 6-byte magic, every field is an 8-byte ASCII hex string; the struct exists purely
// to size and name the fields, values are always read/written as text.
type header struct {
	Magic     [6]byte
	Ino       [8]byte
	Mode      [8]byte
	Uid       [8]byte
	Gid       [8]byte
	Nlink     [8]byte
	Mtime     [8]byte
	Filesize  [8]byte
	Devmajor  [8]byte
	Devminor  [8]byte
	Rdevmajor [8]byte
	Rdevminor [8]byte
	Namesize  [8]byte
	Check     [8]byte
}

const newAsciiMagic = "070701"
const trailerName = "TRAILER!!!"

func x8u(x []byte) (uint32, error) {
	if len(x) != 8 {
		return 0, errors.New("cpio: bad header field length")
	}
	v, err := strconv.ParseUint(string(x), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("cpio: bad header field %q: %w", x, err)
	}
	return uint32(v), nil
}

func align4(x uint64) uint64 { return (x + 3) &^ 3 }

func normPath(p string) string {
	return strings.TrimLeft(path.Clean(p), "/")
}

// Archive pairs a Store with the compression wrapper it was loaded
// under, so Dump can re-apply the same wrapper it found on Load.
type Archive struct {
	Store *Store
	Wrap  compress.Format
}

// NewArchive returns an empty, uncompressed Archive.
func NewArchive() *Archive {
	return &Archive{Store: NewStore()}
}

// Load reads a possibly-compressed cpio stream from path. A missing
// file is not an error: Load returns an empty, uncompressed Archive,
// matching the codec contract that callers treat a missing input
// archive as an empty store.
func Load(src string) (*Archive, error) {
	f, err := os.Open(src)
	if errors.Is(err, os.ErrNotExist) {
		return NewArchive(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return NewArchive(), nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("cpio: mmap %s: %w", src, err)
	}
	defer m.Unmap()

	fmt.Fprintf(os.Stderr, "Loading cpio: [%s] (%s)\n", src, humanize.Bytes(uint64(info.Size())))

	wrap := compress.Detect(m)
	raw, err := compress.Decompress(wrap, m)
	if err != nil {
		return nil, err
	}

	store, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return &Archive{Store: store, Wrap: wrap}, nil
}

// decode parses a raw, uncompressed new-ASCII cpio stream into a Store.
func decode(data []byte) (*Store, error) {
	store := NewStore()
	hdrSize := uint64(binary.Size(header{}))
	pos := uint64(0)

	for pos < uint64(len(data)) {
		if pos+hdrSize > uint64(len(data)) {
			return nil, errors.New("cpio: truncated header")
		}
		var hdr header
		if err := binary.Read(bytes.NewReader(data[pos:pos+hdrSize]), binary.LittleEndian, &hdr); err != nil {
			return nil, fmt.Errorf("cpio: %w", err)
		}
		if !bytes.Equal(hdr.Magic[:], []byte(newAsciiMagic)) {
			return nil, errors.New("cpio: invalid magic, only new-ASCII (070701) archives are supported")
		}
		pos += hdrSize

		nameSize, err := x8u(hdr.Namesize[:])
		if err != nil {
			return nil, err
		}
		if pos+uint64(nameSize) > uint64(len(data)) {
			return nil, errors.New("cpio: truncated name")
		}
		name := strings.TrimRight(string(data[pos:pos+uint64(nameSize)]), "\x00")
		pos = align4(pos + uint64(nameSize))

		if name == "." || name == ".." {
			continue
		}
		if name == trailerName {
			break
		}

		fileSize, err := x8u(hdr.Filesize[:])
		if err != nil {
			return nil, err
		}
		xx8u := func(x [8]byte) uint32 { v, _ := x8u(x[:]); return v }

		if pos+uint64(fileSize) > uint64(len(data)) {
			return nil, errors.New("cpio: truncated file data")
		}
		var fileData []byte
		if fileSize > 0 {
			fileData = make([]byte, fileSize)
			copy(fileData, data[pos:pos+uint64(fileSize)])
		}

		store.Put(name, &Entry{
			Mode:      xx8u(hdr.Mode),
			Uid:       xx8u(hdr.Uid),
			Gid:       xx8u(hdr.Gid),
			Nlink:     xx8u(hdr.Nlink),
			Ino:       xx8u(hdr.Ino),
			Devmajor:  xx8u(hdr.Devmajor),
			Devminor:  xx8u(hdr.Devminor),
			Rdevmajor: xx8u(hdr.Rdevmajor),
			Rdevminor: xx8u(hdr.Rdevminor),
			Data:      fileData,
		})

		pos += uint64(fileSize)
		pos = align4(pos)
	}
	return store, nil
}

// encode serializes store's entries, in lexicographic path order, into
// a raw new-ASCII cpio stream terminated by TRAILER!!!.
func encode(store *Store) []byte {
	var buf bytes.Buffer

	writeRecord := func(name string, e *Entry) {
		hdr := fmt.Sprintf(
			"070701%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x",
			e.Ino, e.Mode, e.Uid, e.Gid, e.Nlink, 0,
			len(e.Data), e.Devmajor, e.Devminor, e.Rdevmajor, e.Rdevminor,
			len(name)+1, 0,
		)
		buf.WriteString(hdr)
		buf.WriteString(name)
		buf.WriteByte(0)
		padTo4(&buf)
		buf.Write(e.Data)
		padTo4(&buf)
	}

	for _, name := range store.Snapshot() {
		e, _ := store.Get(name)
		writeRecord(name, e)
	}

	writeRecord(trailerName, &Entry{Mode: 0, Nlink: 1})
	padTo4(&buf)
	return buf.Bytes()
}

func padTo4(buf *bytes.Buffer) {
	n := align4(uint64(buf.Len())) - uint64(buf.Len())
	for i := uint64(0); i < n; i++ {
		buf.WriteByte(0)
	}
}

// Dump serializes the archive back to path, re-applying whatever
// compression wrapper was detected on Load (NONE if the archive was
// never loaded from a compressed stream). It writes to a temp file and
// renames over path so a failure never leaves a truncated archive.
func (a *Archive) Dump(dest string) error {
	raw := encode(a.Store)

	wrap := compress.Rewrap(a.Wrap)
	out, err := compress.Compress(wrap, raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Dumping cpio [%s] (%s, %s)\n", dest, compress.Name(wrap), humanize.Bytes(uint64(len(out))))

	dir := path.Dir(dest)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "cpio-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
