// Package cpio implements an in-memory model of a new-ASCII cpio archive
// and the ramdisk-patching operations built on top of it.
package cpio

import (
	"sort"
	"strings"
)

// Mode bits interpreted by the core; the rest of a 32-bit cpio mode field
// is preserved verbatim but not inspected.
const (
	S_IFMT  = 0170000
	S_IFREG = 0100000
	S_IFDIR = 0040000
	S_IFLNK = 0120000
	S_IFBLK = 0060000
	S_IFCHR = 0020000
)

// Entry is a single archive member. Uid, Gid, Nlink, Ino, Devmajor,
// Devminor, Rdevmajor and Rdevminor round-trip through the codec
// verbatim; the core never interprets them.
type Entry struct {
	Mode      uint32
	Uid       uint32
	Gid       uint32
	Nlink     uint32
	Ino       uint32
	Devmajor  uint32
	Devminor  uint32
	Rdevmajor uint32
	Rdevminor uint32
	Data      []byte
}

// IsDir reports whether the entry's mode marks it as a directory.
func (e *Entry) IsDir() bool { return e.Mode&S_IFMT == S_IFDIR }

// IsRegular reports whether the entry's mode marks it as a regular file.
func (e *Entry) IsRegular() bool { return e.Mode&S_IFMT == S_IFREG }

// IsSymlink reports whether the entry's mode marks it as a symlink.
func (e *Entry) IsSymlink() bool { return e.Mode&S_IFMT == S_IFLNK }

// Store is an ordered mapping from archive path to Entry. Paths are
// slash-separated, carry no leading slash, and are compared byte-wise.
// Iteration is always in lexicographic path order, which is both the
// encode order and the merge order Backup relies on.
type Store struct {
	entries map[string]*Entry
	sorted  []string // kept sorted at all times
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

func (s *Store) insertSorted(path string) {
	i := sort.SearchStrings(s.sorted, path)
	s.sorted = append(s.sorted, "")
	copy(s.sorted[i+1:], s.sorted[i:])
	s.sorted[i] = path
}

func (s *Store) removeSorted(path string) {
	i := sort.SearchStrings(s.sorted, path)
	if i < len(s.sorted) && s.sorted[i] == path {
		s.sorted = append(s.sorted[:i], s.sorted[i+1:]...)
	}
}

// Insert adds entry under path. It fails if path is already present;
// callers must Remove first, or use Move which handles the swap.
func (s *Store) Insert(path string, e *Entry) error {
	if _, exists := s.entries[path]; exists {
		return &PathExistsError{Path: path}
	}
	s.entries[path] = e
	s.insertSorted(path)
	return nil
}

// Put inserts entry under path, silently overwriting anything already
// there. Used internally for operations that mean "occupy this slot
// regardless of history" (mkdir, ln, add).
func (s *Store) Put(path string, e *Entry) {
	if _, exists := s.entries[path]; !exists {
		s.insertSorted(path)
	}
	s.entries[path] = e
}

// Remove deletes path. It is a no-op if path is absent. When recursive
// is true, every entry whose path equals path or begins with path+"/"
// is removed.
func (s *Store) Remove(path string, recursive bool) {
	if _, exists := s.entries[path]; exists {
		delete(s.entries, path)
		s.removeSorted(path)
	}
	if !recursive {
		return
	}
	prefix := path + "/"
	for _, p := range s.Snapshot() {
		if strings.HasPrefix(p, prefix) {
			delete(s.entries, p)
			s.removeSorted(p)
		}
	}
}

// RemoveAny deletes path if it is present. It is equivalent to
// Remove(path, false) but reads better at call sites that only care
// about a single sentinel.
func (s *Store) RemoveAny(path string) { s.Remove(path, false) }

// Move renames src to dst, transferring ownership of the entry. If dst
// already exists it is overwritten. It is a no-op if src is absent.
func (s *Store) Move(src, dst string) {
	e, ok := s.entries[src]
	if !ok {
		return
	}
	delete(s.entries, src)
	s.removeSorted(src)
	s.Put(dst, e)
}

// Exists reports whether path is present.
func (s *Store) Exists(path string) bool {
	_, ok := s.entries[path]
	return ok
}

// Get returns the entry at path, if present.
func (s *Store) Get(path string) (*Entry, bool) {
	e, ok := s.entries[path]
	return e, ok
}

// Len returns the number of entries in the store.
func (s *Store) Len() int { return len(s.entries) }

// Clear removes every entry.
func (s *Store) Clear() {
	s.entries = make(map[string]*Entry)
	s.sorted = nil
}

// Snapshot returns a lexicographically sorted copy of every path
// currently in the store. Operations that need "advance cursor, then
// maybe delete the previous position" semantics (Patch) or a two-store
// merge-walk (Backup) iterate over a Snapshot so live mutation never
// invalidates an in-progress range.
func (s *Store) Snapshot() []string {
	out := make([]string, len(s.sorted))
	copy(out, s.sorted)
	return out
}

// Merge moves every entry from other into s. On a key collision the
// incoming entry (from other) wins. After Merge, other is empty.
func (s *Store) Merge(other *Store) {
	for _, path := range other.Snapshot() {
		e := other.entries[path]
		delete(other.entries, path)
		s.Put(path, e)
	}
	other.sorted = nil
}

// PathExistsError reports that Insert was called with a path already
// present in the store.
type PathExistsError struct{ Path string }

func (e *PathExistsError) Error() string {
	return "cpio: path already exists: " + e.Path
}
