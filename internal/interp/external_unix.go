//go:build unix

package interp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/razzshell/razzshell/internal/ast"
)

// runExternalForeground forks a new process group for argv, sets up
// redirections in the child, execs the binary, hands the terminal to
// the new group for the duration, and unconditionally reclaims it
// afterward. The wait itself happens on the job's watcher goroutine
// with WUNTRACED, so a SIGTSTP'd child parks in the job table as
// Stopped instead of wedging the shell.
func (r *Runner) runExternalForeground(ctx context.Context, path string, argv []string, env map[string]string, redirs []*ast.Redirect, cmdText string) int {
	fds, toClose, err := r.openRedirects(redirs, savedFDs{stdin: r.Stdin, stdout: r.Stdout, stderr: r.Stderr})
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 1
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    envSlice(env),
		Dir:    r.Dir,
		Stdin:  fds.stdin,
		Stdout: fds.stdout,
		Stderr: fds.stderr,
		SysProcAttr: &syscall.SysProcAttr{
			Setpgid: true, // new process group, this child becomes its leader
		},
	}

	if startErr := cmd.Start(); startErr != nil {
		closeAll(toClose)
		return reportStartError(r, argv[0], startErr)
	}

	pgid := cmd.Process.Pid
	job := r.Jobs.Add(pgid, cmdText, false)
	go r.watchExternalJob(job, pgid, toClose)

	_ = r.Term.Foreground(pgid)
	state, status := r.Jobs.WaitNotRunning(job)
	_ = r.Term.ReclaimShell()

	if state == JobStopped {
		r.errf("[%d]  Stopped\t%s\n", job.ID, cmdText)
	}
	return status
}

// runExternalBackground forks a new process group for argv, records a
// job, and returns 0 immediately without waiting; the job's watcher
// goroutine reaps it and queues the completion notice the REPL prints
// before its next prompt.
func (r *Runner) runExternalBackground(path string, argv []string, env map[string]string, redirs []*ast.Redirect, cmdText string) int {
	fds, toClose, err := r.openRedirects(redirs, savedFDs{stdin: r.Stdin, stdout: r.Stdout, stderr: r.Stderr})
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 1
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    envSlice(env),
		Dir:    r.Dir,
		Stdin:  fds.stdin,
		Stdout: fds.stdout,
		Stderr: fds.stderr,
		SysProcAttr: &syscall.SysProcAttr{
			Setpgid: true,
		},
	}

	if startErr := cmd.Start(); startErr != nil {
		closeAll(toClose)
		return reportStartError(r, argv[0], startErr)
	}

	job := r.Jobs.Add(cmd.Process.Pid, cmdText, true)
	go r.watchExternalJob(job, cmd.Process.Pid, toClose)
	return 0
}

// watchExternalJob is the single wait(2) owner for one external job.
// It loops on waitpid with WUNTRACED: a stop parks the job as Stopped
// with status 128+stopsig and keeps watching for the eventual
// SIGCONT-then-exit; termination reaps the job.
func (r *Runner) watchExternalJob(job *Job, pid int, toClose []*os.File) {
	for {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || wpid != pid {
			closeAll(toClose)
			r.Jobs.Finish(job.ID, 1)
			return
		}
		switch {
		case ws.Stopped():
			r.Jobs.SetStopped(job.ID, 128+int(ws.StopSignal()))
		case ws.Signaled():
			closeAll(toClose)
			r.Jobs.Finish(job.ID, 128+int(ws.Signal()))
			return
		case ws.Exited():
			closeAll(toClose)
			r.Jobs.Finish(job.ID, ws.ExitStatus())
			return
		}
	}
}

// ForegroundJob implements `fg`: resume the job's process group with
// SIGCONT, hand it the terminal, wait until it stops again or
// terminates, and reclaim the terminal.
func (r *Runner) ForegroundJob(id int) (int, error) {
	j, ok := r.Jobs.Get(id)
	if !ok {
		return 1, fmt.Errorf("no such job %d", id)
	}
	if j.PGID != 0 {
		if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
			return 1, err
		}
		r.Jobs.SetState(id, JobRunning)
		_ = r.Term.Foreground(j.PGID)
	}
	state, status := r.Jobs.WaitNotRunning(j)
	if j.PGID != 0 {
		_ = r.Term.ReclaimShell()
	}
	if state == JobStopped {
		r.errf("[%d]  Stopped\t%s\n", j.ID, j.CommandText)
	}
	return status, nil
}

// ResumeJob implements `bg`: SIGCONT the job's process group and mark
// it Running without taking the terminal. The job's watcher keeps
// owning the eventual reap.
func (r *Runner) ResumeJob(id int) error {
	j, ok := r.Jobs.Get(id)
	if !ok {
		return fmt.Errorf("no such job %d", id)
	}
	if j.PGID == 0 {
		return fmt.Errorf("job %d has no process group to resume", id)
	}
	if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
		return err
	}
	r.Jobs.SetState(id, JobRunning)
	return nil
}

func reportStartError(r *Runner, name string, err error) int {
	if os.IsPermission(err) {
		r.errf("%s: permission denied\n", name)
		return 126
	}
	r.errf("%s: %s\n", name, err)
	return 127
}

// exitStatusFromWait converts a completed exec.Cmd's result into the
// usual 128+signo convention for signal-induced termination. Used by
// pipeline stages, which are waited through exec.Cmd rather than a
// watcher.
func exitStatusFromWait(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState == nil {
		return 1
	}
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return cmd.ProcessState.ExitCode()
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
