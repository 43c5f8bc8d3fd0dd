// Package fstab rewrites mount-option strings inside fstab file blobs.
package fstab

import (
	"bytes"
	"fmt"
	"os"
)

var (
	verityPatterns = [][]byte{
		[]byte("verifyatboot"),
		[]byte("verify"),
		[]byte("avb_keys"),
		[]byte("avb"),
		[]byte("support_scfs"),
		[]byte("fsverity"),
	}

	encryptionPatterns = [][]byte{
		[]byte("forceencrypt"),
		[]byte("forcefdeorfbe"),
		[]byte("fileencryption"),
	}
)

// PatchVerity removes dm-verity related mount options from every fstab record.
func PatchVerity(fstabContent []byte) []byte {
	return patchFstab(fstabContent, verityPatterns)
}

// PatchEncryption removes forceencrypt/forcefdeorfbe/fileencryption mount
// options so the device boots without a forced-encryption fstab flag; no
// replacement option is written in their place.
func PatchEncryption(fstabContent []byte) []byte {
	return patchFstab(fstabContent, encryptionPatterns)
}

func patchFstab(fstabContent []byte, patterns [][]byte) []byte {
	lines := bytes.Split(fstabContent, []byte{'\n'})
	result := make([][]byte, 0, len(lines))

	for _, line := range lines {
		if len(line) == 0 || line[0] == '#' {
			result = append(result, line)
			continue
		}

		fields := bytes.Fields(line)
		if len(fields) < 4 {
			result = append(result, line)
			continue
		}

		flags := bytes.Split(fields[3], []byte{','})
		newFlags := make([][]byte, 0, len(flags))

		for _, flag := range flags {
			removed := false
			for _, pattern := range patterns {
				if bytes.HasPrefix(flag, pattern) {
					fmt.Fprintf(os.Stderr, "Remove pattern [%s]\n", flag)
					removed = true
					break
				}
			}
			if !removed {
				newFlags = append(newFlags, flag)
			}
		}

		newLine := bytes.Join([][]byte{
			bytes.Join(fields[:3], []byte{' '}),
			bytes.Join(newFlags, []byte{','}),
		}, []byte{' '})

		if len(fields) > 4 {
			newLine = append(newLine, ' ')
			newLine = append(newLine, bytes.Join(fields[4:], []byte{' '})...)
		}

		result = append(result, newLine)
	}

	return bytes.Join(result, []byte{'\n'})
}
