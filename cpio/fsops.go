package cpio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"

	"ramdiskpatch/internal/stub"
)

// Mkdir inserts a directory entry at dir with the given permission
// mode, overwriting anything already there.
func Mkdir(store *Store, mode uint32, dir string) {
	store.Put(normPath(dir), &Entry{Mode: mode | S_IFDIR})
	fmt.Fprintf(os.Stderr, "Create directory [%s] (%04o)\n", dir, mode)
}

// Ln inserts a symlink entry at link pointing to target, overwriting
// anything already there.
func Ln(store *Store, target, link string) {
	data := normPath(target)
	if strings.HasPrefix(target, "/") {
		data = "/" + data
	}
	store.Put(normPath(link), &Entry{Mode: S_IFLNK, Data: []byte(data)})
	fmt.Fprintf(os.Stderr, "Create symlink [%s] -> [%s]\n", link, target)
}

// Add inserts a regular file, symlink, or device node at entryPath,
// with its payload/target read from the host path file, and mode as
// its low permission bits. It overwrites anything already at
// entryPath.
func Add(store *Store, mode uint32, entryPath, file string) error {
	if strings.HasSuffix(entryPath, "/") {
		return errors.New("cpio: add: path cannot end with /")
	}

	info, err := os.Lstat(file)
	if err != nil {
		return err
	}

	var (
		data                 []byte
		rdevmajor, rdevminor uint32
	)

	switch {
	case info.Mode().IsRegular():
		data, err = os.ReadFile(file)
		if err != nil {
			return err
		}
		mode |= S_IFREG
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(file)
		if err != nil {
			return err
		}
		data = []byte(target)
		mode |= S_IFLNK
	case info.Mode()&(os.ModeDevice|os.ModeCharDevice) != 0:
		if runtime.GOOS == "windows" {
			return errors.New("cpio: add: device nodes unsupported on windows")
		}
		var st stub.Stat_t
		if err := stub.Stat(file, &st); err != nil {
			return err
		}
		rdev := uint64(st.Rdev)
		rdevmajor = stub.Major(rdev)
		rdevminor = stub.Minor(rdev)
		if info.Mode()&os.ModeCharDevice != 0 {
			mode |= S_IFCHR
		} else {
			mode |= S_IFBLK
		}
	default:
		return fmt.Errorf("cpio: add: unsupported file type for %s", file)
	}

	store.Put(normPath(entryPath), &Entry{
		Mode:      mode,
		Rdevmajor: rdevmajor,
		Rdevminor: rdevminor,
		Data:      data,
	})
	fmt.Fprintf(os.Stderr, "Add file [%s] (%04o)\n", entryPath, mode)
	return nil
}

func extractEntry(e *Entry, out string) error {
	if dir := path.Dir(out); dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
	}

	mode := os.FileMode(e.Mode & 0o777)
	switch e.Mode & S_IFMT {
	case S_IFDIR:
		return os.Mkdir(out, mode)
	case S_IFREG:
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := f.Chmod(mode); err != nil {
			return err
		}
		_, err = f.Write(e.Data)
		return err
	case S_IFLNK:
		target := string(bytes.TrimRight(e.Data, "\x00"))
		return os.Symlink(target, out)
	case S_IFBLK, S_IFCHR:
		if runtime.GOOS == "windows" {
			return nil
		}
		dev := stub.Mkdev(e.Rdevmajor, e.Rdevminor)
		return stub.Mknod(out, uint32(mode), int(dev))
	default:
		return fmt.Errorf("cpio: extract: unknown entry type for mode %#o", e.Mode)
	}
}

// ExtractOne extracts the single entry at entryPath to the host path
// out.
func ExtractOne(store *Store, entryPath, out string) error {
	p := normPath(entryPath)
	e, ok := store.Get(p)
	if !ok {
		return fmt.Errorf("cpio: extract: no such entry %s", entryPath)
	}
	fmt.Fprintf(os.Stderr, "Extracting entry [%s] to [%s]\n", entryPath, out)
	return extractEntry(e, out)
}

// ExtractAll extracts every entry to dir, relative paths preserved.
func ExtractAll(store *Store, dir string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if dir != "." && dir != "" {
		if err := os.Chdir(dir); err != nil {
			return err
		}
		defer os.Chdir(cwd)
	}

	for _, p := range store.Snapshot() {
		e, _ := store.Get(p)
		fmt.Fprintf(os.Stderr, "Extracting entry [%s] to [%s]\n", p, p)
		if err := extractEntry(e, p); err != nil {
			return err
		}
	}
	return nil
}
