//go:build !unix

package interp

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/razzshell/razzshell/internal/ast"
)

// On non-Unix platforms there is no POSIX process-group/job-control
// model; external commands still run, just without process-group or
// terminal-ownership semantics.
func (r *Runner) runExternalForeground(ctx context.Context, path string, argv []string, env map[string]string, redirs []*ast.Redirect, cmdText string) int {
	fds, toClose, err := r.openRedirects(redirs, savedFDs{stdin: r.Stdin, stdout: r.Stdout, stderr: r.Stderr})
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 1
	}
	defer closeAll(toClose)

	cmd := &exec.Cmd{Path: path, Args: argv, Env: envSlice(env), Dir: r.Dir, Stdin: fds.stdin, Stdout: fds.stdout, Stderr: fds.stderr}
	if startErr := cmd.Start(); startErr != nil {
		return reportStartError(r, argv[0], startErr)
	}
	job := r.Jobs.Add(cmd.Process.Pid, cmdText, false)
	waitErr := cmd.Wait()
	status := exitStatusFromWait(cmd, waitErr)
	r.Jobs.Finish(job.ID, status)
	return status
}

func (r *Runner) runExternalBackground(path string, argv []string, env map[string]string, redirs []*ast.Redirect, cmdText string) int {
	fds, toClose, err := r.openRedirects(redirs, savedFDs{stdin: r.Stdin, stdout: r.Stdout, stderr: r.Stderr})
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 1
	}
	cmd := &exec.Cmd{Path: path, Args: argv, Env: envSlice(env), Dir: r.Dir, Stdin: fds.stdin, Stdout: fds.stdout, Stderr: fds.stderr}
	if startErr := cmd.Start(); startErr != nil {
		closeAll(toClose)
		return reportStartError(r, argv[0], startErr)
	}
	job := r.Jobs.Add(cmd.Process.Pid, cmdText, true)
	go func() {
		waitErr := cmd.Wait()
		closeAll(toClose)
		r.Jobs.Finish(job.ID, exitStatusFromWait(cmd, waitErr))
	}()
	return 0
}

// ForegroundJob can only wait for the job to finish here; stopped
// jobs never occur without SIGTSTP delivery.
func (r *Runner) ForegroundJob(id int) (int, error) {
	j, ok := r.Jobs.Get(id)
	if !ok {
		return 1, fmt.Errorf("no such job %d", id)
	}
	_, status := r.Jobs.WaitNotRunning(j)
	return status, nil
}

func (r *Runner) ResumeJob(id int) error {
	return fmt.Errorf("job control is not supported on this platform")
}

// exitStatusFromWait has no signal-termination convention to honor on
// non-Unix platforms; it just reports the process's exit code.
func exitStatusFromWait(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState == nil {
		return 1
	}
	return cmd.ProcessState.ExitCode()
}

func reportStartError(r *Runner, name string, err error) int {
	if os.IsPermission(err) {
		r.errf("%s: permission denied\n", name)
		return 126
	}
	r.errf("%s: %s\n", name, err)
	return 127
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
