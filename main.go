// Command ramdiskpatch mutates a boot ramdisk cpio archive in place:
// stripping verity/forceencrypt fstab flags, classifying an archive's
// patch state, and recording/undoing a reversible backup of everything
// it changes.
package main

import (
	"fmt"
	"os"

	"ramdiskpatch/cpio"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(os.Stderr, cpio.Usage)
		return 1
	}

	archivePath := args[0]
	cmds := args[1:]

	archive, err := cpio.Load(archivePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ramdiskpatch: %v\n", err)
		return 1
	}

	outcome := cpio.Dispatch(archive.Store, cmds)

	if outcome.Write {
		if err := archive.Dump(archivePath); err != nil {
			fmt.Fprintf(os.Stderr, "ramdiskpatch: %v\n", err)
			return 1
		}
	}
	return outcome.Code
}
