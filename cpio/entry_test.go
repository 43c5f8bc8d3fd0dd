package cpio_test

import (
	"testing"

	"ramdiskpatch/cpio"
)

func regEntry(data string) *cpio.Entry {
	return &cpio.Entry{Mode: cpio.S_IFREG, Data: []byte(data)}
}

func TestInsertRejectsDuplicate(t *testing.T) {
	s := cpio.NewStore()
	if err := s.Insert("a", regEntry("1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.Insert("a", regEntry("2")); err == nil {
		t.Fatal("expected error inserting over an existing path")
	}
}

func TestRemoveRecursivePrefixBoundary(t *testing.T) {
	s := cpio.NewStore()
	s.Put("sbin", &cpio.Entry{Mode: cpio.S_IFDIR})
	s.Put("sbin/su", regEntry("x"))
	s.Put("sbinny", regEntry("y"))

	s.Remove("sbin", true)

	if s.Exists("sbin") || s.Exists("sbin/su") {
		t.Fatal("expected sbin and sbin/su removed")
	}
	if !s.Exists("sbinny") {
		t.Fatal("expected sbinny (no / boundary) to survive")
	}
}

func TestRemoveNonRecursiveNoOpIfAbsent(t *testing.T) {
	s := cpio.NewStore()
	s.Remove("nope", false) // must not panic
	if s.Len() != 0 {
		t.Fatal("expected empty store to remain empty")
	}
}

func TestMoveOverwritesDestination(t *testing.T) {
	s := cpio.NewStore()
	s.Put("a", regEntry("A"))
	s.Put("b", regEntry("B"))

	s.Move("a", "b")

	if s.Exists("a") {
		t.Fatal("expected a to be gone after move")
	}
	e, ok := s.Get("b")
	if !ok || string(e.Data) != "A" {
		t.Fatalf("expected b to hold moved data, got %+v", e)
	}
}

func TestSnapshotIsLexicographic(t *testing.T) {
	s := cpio.NewStore()
	for _, p := range []string{"c", "a", "b", "a/z", "a/a"} {
		s.Put(p, regEntry(p))
	}
	got := s.Snapshot()
	want := []string{"a", "a/a", "a/z", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestMergeIncomingWins(t *testing.T) {
	dst := cpio.NewStore()
	dst.Put("a", regEntry("dst"))

	src := cpio.NewStore()
	src.Put("a", regEntry("src"))
	src.Put("b", regEntry("src-b"))

	dst.Merge(src)

	e, _ := dst.Get("a")
	if string(e.Data) != "src" {
		t.Fatalf("expected incoming entry to win, got %q", e.Data)
	}
	if !dst.Exists("b") {
		t.Fatal("expected b merged in")
	}
	if src.Len() != 0 {
		t.Fatal("expected src emptied after merge")
	}
}
