package cpio

import (
	"strconv"
	"strings"
)

// Usage is the dispatcher's help text, printed by the CLI when invoked
// with no commands or an explicit -h/--help.
const Usage = `Usage: ramdiskpatch <incpio> [commands...]

Do cpio commands to <incpio> (modifications are done in-place).
Each command is a single argument; add quotes for each command.

Supported commands:
  exists ENTRY
    Return 0 if ENTRY exists, else return 1
  rm [-r] ENTRY
    Remove ENTRY, specify [-r] to remove recursively
  mkdir MODE ENTRY
    Create directory ENTRY with permissions MODE
  ln TARGET ENTRY
    Create a symlink to TARGET with the name ENTRY
  mv SOURCE DEST
    Move SOURCE to DEST
  add MODE ENTRY INFILE
    Add INFILE as ENTRY with permissions MODE; replaces ENTRY if it exists
  extract [ENTRY OUT]
    Extract ENTRY to OUT, or extract all entries to the current directory
  test
    Test the ramdisk's patch status. Return value is a bitmask:
    1:patched  2:unsupported  4:sony-init
  patch
    Apply ramdisk patches. Configure with env vars KEEPVERITY KEEPFORCEENCRYPT
  backup ORIG
    Record a diff against ORIG under .backup/ so restore can undo it
  restore
    Undo everything recorded by a prior backup
`

// Outcome is the result of running a command sequence: the process
// should exit with Code, writing the archive back first iff Write.
type Outcome struct {
	Code  int
	Write bool
}

// tokenize splits a command string on ASCII spaces into at most 6
// tokens, collapsing runs of spaces. A first token starting with "#"
// marks the whole command as a comment and yields no tokens.
func tokenize(cmd string) []string {
	var tokens []string
	for _, tok := range strings.Split(cmd, " ") {
		if tok == "" {
			continue
		}
		if len(tokens) == 0 && strings.HasPrefix(tok, "#") {
			return nil
		}
		tokens = append(tokens, tok)
		if len(tokens) == 6 {
			break
		}
	}
	return tokens
}

// Dispatch runs each command string against store in order and reports
// how the caller should finish: which exit code to use, and whether
// the archive should be serialized back to disk before exiting.
//
// Malformed commands, a failing "backup" or "add", and "extract" halt
// processing immediately without running any later command in cmds;
// "test" and "exists" halt with their own status code. Every other
// recognized command mutates store and processing continues to the
// next command string.
func Dispatch(store *Store, cmds []string) Outcome {
	for _, cmd := range cmds {
		tok := tokenize(cmd)
		if len(tok) == 0 {
			continue
		}

		switch {
		case tok[0] == "test" && len(tok) == 1:
			return Outcome{Code: Test(store), Write: false}

		case tok[0] == "restore" && len(tok) == 1:
			Restore(store)

		case tok[0] == "patch" && len(tok) == 1:
			Patch(store)

		case tok[0] == "exists" && len(tok) == 2:
			code := 1
			if store.Exists(tok[1]) {
				code = 0
			}
			return Outcome{Code: code, Write: false}

		case tok[0] == "backup" && len(tok) == 2:
			if err := Backup(store, tok[1]); err != nil {
				return Outcome{Code: 1, Write: false}
			}

		case tok[0] == "rm" && (len(tok) == 2 || len(tok) == 3):
			recursive := len(tok) == 3 && tok[1] == "-r"
			if len(tok) == 3 && !recursive {
				return Outcome{Code: 1, Write: false}
			}
			path := tok[1]
			if recursive {
				path = tok[2]
			}
			store.Remove(normPath(path), recursive)

		case tok[0] == "mv" && len(tok) == 3:
			store.Move(normPath(tok[1]), normPath(tok[2]))

		case tok[0] == "extract" && len(tok) == 1:
			ExtractAll(store, ".")
			return Outcome{Code: 0, Write: false}

		case tok[0] == "extract" && len(tok) == 3:
			code := 0
			if err := ExtractOne(store, tok[1], tok[2]); err != nil {
				code = 1
			}
			return Outcome{Code: code, Write: false}

		case tok[0] == "mkdir" && len(tok) == 3:
			mode, err := strconv.ParseUint(tok[1], 8, 32)
			if err != nil {
				return Outcome{Code: 1, Write: false}
			}
			Mkdir(store, uint32(mode), tok[2])

		case tok[0] == "ln" && len(tok) == 3:
			Ln(store, tok[1], tok[2])

		case tok[0] == "add" && len(tok) == 4:
			mode, err := strconv.ParseUint(tok[1], 8, 32)
			if err != nil {
				return Outcome{Code: 1, Write: false}
			}
			if err := Add(store, uint32(mode), tok[2], tok[3]); err != nil {
				return Outcome{Code: 1, Write: false}
			}

		default:
			return Outcome{Code: 1, Write: false}
		}
	}

	return Outcome{Code: 0, Write: true}
}
