//go:build !unix

package builtin

import "fmt"

// Non-Unix platforms have no process signal model compatible with the
// job table, so terminate is unsupported there.
func terminatePID(pid int) error {
	return fmt.Errorf("kill is not supported on this platform")
}
