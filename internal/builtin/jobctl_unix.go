//go:build unix

package builtin

import "golang.org/x/sys/unix"

// terminatePID sends SIGTERM to a single pid.
func terminatePID(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}
