//go:build unix

package termctl

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

func newSupervisorImpl(tty *os.File) supervisorImpl {
	return &unixSupervisor{tty: tty}
}

// unixSupervisor implements the supervisor protocol using
// golang.org/x/sys/unix for process-group/terminal-ownership
// primitives and golang.org/x/term for terminal-mode save/restore.
// signal.Notify's channel delivers signals to a normal goroutine, so
// no state is ever touched from an async-signal-unsafe handler.
type unixSupervisor struct {
	tty    *os.File
	isTTY  bool
	saved  *term.State
	sigCh  chan os.Signal
	stopCh chan struct{}
}

func (s *unixSupervisor) start(sigInt func()) error {
	fd := int(s.tty.Fd())
	s.isTTY = term.IsTerminal(fd)

	if err := unix.Setpgid(0, 0); err != nil && err != unix.EPERM {
		return err
	}

	if s.isTTY {
		if err := s.reclaimShell(); err != nil {
			return err
		}
		if st, err := term.GetState(fd); err == nil {
			s.saved = st
		}
	}

	s.sigCh = make(chan os.Signal, 16)
	s.stopCh = make(chan struct{})
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTSTP, syscall.SIGTTOU, syscall.SIGQUIT)
	go func() {
		for {
			select {
			case sig := <-s.sigCh:
				switch sig {
				case syscall.SIGINT:
					if sigInt != nil {
						sigInt()
					}
				case syscall.SIGTSTP, syscall.SIGTTOU, syscall.SIGQUIT:
					// Ignored in the shell itself; children restore
					// default dispositions between fork and exec.
				}
			case <-s.stopCh:
				return
			}
		}
	}()
	return nil
}

func (s *unixSupervisor) shutdown() {
	if s.stopCh != nil {
		close(s.stopCh)
		signal.Stop(s.sigCh)
	}
	if s.isTTY && s.saved != nil {
		_ = term.Restore(int(s.tty.Fd()), s.saved)
	}
}

func (s *unixSupervisor) foreground(pgid int) error {
	if !s.isTTY {
		return nil
	}
	return unix.IoctlSetInt(int(s.tty.Fd()), unix.TIOCSPGRP, pgid)
}

func (s *unixSupervisor) reclaimShell() error {
	if !s.isTTY {
		return nil
	}
	return s.foreground(s.shellPGID())
}

func (s *unixSupervisor) shellPGID() int {
	pgid, _ := unix.Getpgid(0)
	return pgid
}

func (s *unixSupervisor) foregroundPGID() (int, error) {
	if !s.isTTY {
		return s.shellPGID(), nil
	}
	return unix.IoctlGetInt(int(s.tty.Fd()), unix.TIOCGPGRP)
}
