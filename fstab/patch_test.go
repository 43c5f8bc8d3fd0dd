package fstab_test

import (
	"bytes"
	"testing"

	"ramdiskpatch/fstab"
)

func TestPatchVerity(t *testing.T) {
	tdata := []byte("/dev 0 ext4 ro,verify=1,barrier=1 0 0\n")
	want := []byte("/dev 0 ext4 ro,barrier=1 0 0\n")

	got := fstab.PatchVerity(tdata)
	if !bytes.Equal(got, want) {
		t.Fatalf("PatchVerity:\n got: %s\nwant: %s", got, want)
	}
}

func TestPatchEncryption(t *testing.T) {
	tdata := []byte(`
# 123456
aa      aaaa          aaaaa
bb bbbb bbbbb misc,forceencrypt=footer,whatever,blabla
`)

	want := []byte(`
# 123456
aa      aaaa          aaaaa
bb bbbb bbbbb misc,whatever,blabla
`)

	got := fstab.PatchEncryption(tdata)
	if bytes.Equal(got, tdata) {
		t.Fatal("expected data to change")
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("PatchEncryption:\n got: %s\nwant: %s", got, want)
	}
}

func TestPatchIsIdempotent(t *testing.T) {
	tdata := []byte("/dev 0 ext4 ro,verify=1,forceencrypt=sw 0 0\n")

	once := fstab.PatchEncryption(fstab.PatchVerity(tdata))
	twice := fstab.PatchEncryption(fstab.PatchVerity(once))

	if !bytes.Equal(once, twice) {
		t.Fatalf("patch not idempotent:\nonce:  %s\ntwice: %s", once, twice)
	}
}

func TestPatchShortLinesUntouched(t *testing.T) {
	tdata := []byte("too short\n#comment line\n\n")
	got := fstab.PatchVerity(tdata)
	if !bytes.Equal(got, tdata) {
		t.Fatalf("expected short/comment/blank lines untouched, got: %s", got)
	}
}
