//go:build !unix

package termctl

import (
	"os"
	"os/signal"
	"syscall"
)

// noopSupervisor is used on platforms without POSIX process groups.
// SIGINT is still wired up so the REPL can clear its input line
// interactively.
type noopSupervisor struct {
	sigCh  chan os.Signal
	stopCh chan struct{}
}

func newSupervisorImpl(tty *os.File) supervisorImpl { return &noopSupervisor{} }

func (s *noopSupervisor) start(sigInt func()) error {
	s.sigCh = make(chan os.Signal, 16)
	s.stopCh = make(chan struct{})
	signal.Notify(s.sigCh, syscall.SIGINT)
	go func() {
		for {
			select {
			case <-s.sigCh:
				if sigInt != nil {
					sigInt()
				}
			case <-s.stopCh:
				return
			}
		}
	}()
	return nil
}

func (s *noopSupervisor) shutdown() {
	if s.stopCh != nil {
		close(s.stopCh)
		signal.Stop(s.sigCh)
	}
}

func (s *noopSupervisor) foreground(pgid int) error    { return nil }
func (s *noopSupervisor) reclaimShell() error          { return nil }
func (s *noopSupervisor) shellPGID() int               { return os.Getpid() }
func (s *noopSupervisor) foregroundPGID() (int, error) { return os.Getpid(), nil }
