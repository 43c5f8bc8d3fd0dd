package cpio

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"ramdiskpatch/fstab"
)

// Test result bits, exposed as the process exit code of the CLI's
// "test" command.
const (
	MagiskPatched   = 1 << 0
	UnsupportedCpio = 1 << 1
	SonyInit        = 1 << 2
)

var unsupportedMarkers = []string{
	"sbin/launch_daemonsu.sh",
	"sbin/su",
	"init.xposed.rc",
	"boot/sbin/launch_daemonsu.sh",
}

var magiskMarkers = []string{
	".backup/.magisk",
	"init.magisk.rc",
	"overlay/init.magisk.rc",
}

func checkEnvTrue(name string) bool {
	return os.Getenv(name) == "true"
}

func isFstabCandidate(path string, e *Entry) bool {
	return e.IsRegular() &&
		!strings.HasPrefix(path, ".backup") &&
		!strings.Contains(path, "twrp") &&
		!strings.Contains(path, "recovery") &&
		strings.Contains(path, "fstab")
}

// Patch rewrites fstab entries and removes verity key material in
// place, gated by the KEEPVERITY and KEEPFORCEENCRYPT environment
// variables (byte-exact "true" disables the corresponding rewrite).
func Patch(store *Store) {
	keepVerity := checkEnvTrue("KEEPVERITY")
	keepForceEncrypt := checkEnvTrue("KEEPFORCEENCRYPT")
	fmt.Fprintf(os.Stderr, "Patch with flag KEEPVERITY=[%v] KEEPFORCEENCRYPT=[%v]\n", keepVerity, keepForceEncrypt)

	if keepVerity && keepForceEncrypt {
		return
	}

	for _, p := range store.Snapshot() {
		e, ok := store.Get(p)
		if !ok {
			continue // removed earlier in this same pass
		}

		candidate := isFstabCandidate(p, e)

		if !keepVerity {
			if candidate {
				fmt.Fprintf(os.Stderr, "Found fstab file [%s]\n", p)
				e.Data = fstab.PatchVerity(e.Data)
			} else if p == "verity_key" {
				store.RemoveAny(p)
				continue
			}
		}
		if !keepForceEncrypt && candidate {
			e.Data = fstab.PatchEncryption(e.Data)
		}
	}
}

// Test classifies store as unpatched, already-patched, unsupported, or
// Sony-variant, returning the bitmask described in the command
// dispatcher's "test" entry. If UnsupportedCpio matches, it is
// returned alone: the check short-circuits before the other bits are
// considered.
func Test(store *Store) int {
	for _, marker := range unsupportedMarkers {
		if store.Exists(marker) {
			return UnsupportedCpio
		}
	}

	ret := 0
	for _, marker := range magiskMarkers {
		if store.Exists(marker) {
			ret |= MagiskPatched
			break
		}
	}
	if store.Exists("init.real") {
		ret |= SonyInit
	}
	return ret
}

// Backup diffs store against the reference archive loaded from
// origPath (treated as empty if unreadable) and records a byte-exact
// diff under .backup/ so Restore can undo everything. Ownership of
// diffed entries moves from the reference store into store; no data
// buffer is copied.
func Backup(store *Store, origPath string) error {
	orig := NewStore()
	if f, err := os.Open(origPath); err == nil {
		f.Close()
		ref, err := Load(origPath)
		if err != nil {
			return err
		}
		orig = ref.Store
	}

	orig.Remove(".backup", true)
	store.Remove(".backup", true)

	staging := NewStore()
	staging.Put(".backup", &Entry{Mode: S_IFDIR})

	var rmList bytes.Buffer

	lhs := orig.Snapshot()
	rhs := store.Snapshot()
	i, j := 0, 0

	for i < len(lhs) || j < len(rhs) {
		switch {
		case i < len(lhs) && (j >= len(rhs) || lhs[i] < rhs[j]):
			// Missing in the new archive: back it up.
			p := lhs[i]
			e, _ := orig.Get(p)
			fmt.Fprintf(os.Stderr, "Backup missing entry: [%s] -> [.backup/%s]\n", p, p)
			staging.Put(".backup/"+p, e)
			i++
		case j < len(rhs) && (i >= len(lhs) || rhs[j] < lhs[i]):
			// New in the current archive: record for removal on restore.
			p := rhs[j]
			fmt.Fprintf(os.Stderr, "Record new entry: [%s] -> [.backup/.rmlist]\n", p)
			rmList.WriteString(p)
			rmList.WriteByte(0)
			j++
		default:
			// Same path on both sides: compare contents.
			p := lhs[i]
			oe, _ := orig.Get(p)
			ce, _ := store.Get(p)
			if !bytes.Equal(oe.Data, ce.Data) {
				fmt.Fprintf(os.Stderr, "Backup mismatch entry: [%s] -> [.backup/%s]\n", p, p)
				staging.Put(".backup/"+p, oe)
			}
			i++
			j++
		}
	}

	if rmList.Len() > 0 {
		staging.Put(".backup/.rmlist", &Entry{Mode: S_IFREG, Data: rmList.Bytes()})
	}

	if staging.Len() > 1 {
		store.Merge(staging)
	}
	return nil
}

// Restore undoes a Backup, returning store to the state recorded under
// .backup/. If the archive was produced by a buggy tool version that
// wrote only the .backup and .backup/.magisk sentinels with no rmlist
// or backed-up files, store is cleared entirely.
func Restore(store *Store) {
	hasBackupDir := store.Exists(".backup")
	hasMagisk := store.Exists(".backup/.magisk")
	hasRmList := store.Exists(".backup/.rmlist")

	var others []string
	for _, p := range store.Snapshot() {
		if p == ".backup" || p == ".backup/.magisk" || p == ".backup/.rmlist" {
			continue
		}
		if strings.HasPrefix(p, ".backup/") {
			others = append(others, p)
		}
	}

	if hasBackupDir && hasMagisk && !hasRmList && len(others) == 0 {
		fmt.Fprintln(os.Stderr, "Remove all in ramdisk")
		store.Clear()
		return
	}

	store.RemoveAny(".backup")
	store.RemoveAny(".backup/.magisk")

	if hasRmList {
		if e, ok := store.Get(".backup/.rmlist"); ok {
			for _, name := range splitNulTerminated(e.Data) {
				store.Remove(name, false)
			}
		}
		store.RemoveAny(".backup/.rmlist")
	}

	for _, p := range others {
		tail := strings.TrimPrefix(p, ".backup/")
		store.Move(p, tail)
	}
}

// splitNulTerminated splits a NUL-terminated sequence of path strings
// (.backup/.rmlist's payload). A trailing separator after the final
// entry is optional; both forms parse to the same list.
func splitNulTerminated(data []byte) []string {
	var out []string
	for _, part := range bytes.Split(data, []byte{0}) {
		if len(part) == 0 {
			continue
		}
		out = append(out, string(part))
	}
	return out
}
