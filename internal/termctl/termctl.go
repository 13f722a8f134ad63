// Package termctl owns the controlling terminal's process group and
// installs the shell's signal handlers.
//
// The invariant it exists to uphold: at every quiescent point between
// commands, the terminal's foreground process group equals the
// shell's own process group.
package termctl

import "os"

// Supervisor owns the terminal handoff protocol. Construct one with
// New at shell startup, call Start once the shell is ready to run its
// REPL loop, and Shutdown before exit.
type Supervisor struct {
	impl supervisorImpl
}

// New returns a Supervisor bound to the given terminal file (typically
// os.Stdin). On non-Unix platforms, or when the fd is not a terminal,
// Foreground and ReclaimShell do nothing and no terminal mode is saved
// or restored: a non-interactive run need not own a tty. Start still
// installs the signal handlers, and on Unix still makes the shell its
// own process-group leader.
func New(tty *os.File) *Supervisor {
	return &Supervisor{impl: newSupervisorImpl(tty)}
}

// Start sets the shell's own process group, takes foreground ownership
// of the terminal, saves the current terminal mode, and installs the
// shell's signal handlers. SIGINT is delivered to sigInt; SIGTSTP,
// SIGTTOU, and SIGQUIT are ignored in the shell process itself.
func (s *Supervisor) Start(sigInt func()) error { return s.impl.start(sigInt) }

// Shutdown stops the signal handlers and restores the terminal mode
// saved by Start, best effort. It does not hand the foreground process
// group back to whatever owned it before Start.
func (s *Supervisor) Shutdown() { s.impl.shutdown() }

// Foreground transfers terminal ownership to pgid.
func (s *Supervisor) Foreground(pgid int) error { return s.impl.foreground(pgid) }

// ReclaimShell re-asserts the shell's own process group as the
// terminal's foreground group. Every executor code path that hands
// the terminal to a child must call this on every return, including
// early returns.
func (s *Supervisor) ReclaimShell() error { return s.impl.reclaimShell() }

// ShellPGID reports the shell's own process group id, used by tests
// asserting the tcgetpgrp(0)==getpgrp() invariant.
func (s *Supervisor) ShellPGID() int { return s.impl.shellPGID() }

// ForegroundPGID reports the terminal's current foreground process
// group id.
func (s *Supervisor) ForegroundPGID() (int, error) { return s.impl.foregroundPGID() }

type supervisorImpl interface {
	start(sigInt func()) error
	shutdown()
	foreground(pgid int) error
	reclaimShell() error
	shellPGID() int
	foregroundPGID() (int, error)
}
