// Package shellopts holds the shell's mode and `set` option flags: a
// single per-session value mutated only by the mode and set built-ins,
// and read by the executor.
package shellopts

import "fmt"

// Mode selects which command vocabulary the registry resolves
// against.
type Mode int

const (
	Native Mode = iota
	POSIX
	Bash
)

func (m Mode) String() string {
	switch m {
	case Native:
		return "razzshell"
	case POSIX:
		return "posix"
	case Bash:
		return "bash"
	}
	return "unknown"
}

// ParseMode maps a user-facing mode name to a Mode, as accepted by the
// `mode` built-in.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "razzshell", "native":
		return Native, nil
	case "posix":
		return POSIX, nil
	case "bash":
		return Bash, nil
	}
	return Native, fmt.Errorf("mode: unknown mode %q", s)
}

// Options is the shell's mutable configuration. All booleans default
// off. It is threaded by reference through the executor rather than
// kept as package-level global mutable state.
type Options struct {
	Mode Mode

	ErrExit  bool // set -e
	PipeFail bool // set -o pipefail
	NoUnset  bool // set -u
	Verbose  bool // set -v
	XTrace   bool // set -x
}

// New returns Options in their documented default state: Native mode,
// every flag off.
func New() *Options {
	return &Options{Mode: Native}
}

// Apply parses a `set` built-in argument list and mutates o in place.
// Recognized forms: -e -u -v -x (enable), +e +u +v +x (disable),
// -o pipefail / +o pipefail.
func (o *Options) Apply(args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) < 2 || (arg[0] != '-' && arg[0] != '+') {
			return fmt.Errorf("set: invalid argument %q", arg)
		}
		enable := arg[0] == '-'
		flag := arg[1:]

		if flag == "o" {
			i++
			if i >= len(args) {
				return fmt.Errorf("set: -o requires an option name")
			}
			switch args[i] {
			case "pipefail":
				o.PipeFail = enable
			default:
				return fmt.Errorf("set: unknown option name %q", args[i])
			}
			continue
		}

		for _, c := range flag {
			switch c {
			case 'e':
				o.ErrExit = enable
			case 'u':
				o.NoUnset = enable
			case 'v':
				o.Verbose = enable
			case 'x':
				o.XTrace = enable
			default:
				return fmt.Errorf("set: unknown flag -%c", c)
			}
		}
	}
	return nil
}
