package interp

import (
	"context"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/razzshell/razzshell/internal/ast"
	"github.com/razzshell/razzshell/internal/registry"
)

// stageHandle is what one pipeline stage needs to start: either an
// *exec.Cmd (external) or an in-process thunk (builtin/alias/plugin/
// subshell) that reports its exit status on completion.
type stageHandle struct {
	extCmd  *exec.Cmd  // non-nil for an external stage
	toClose []*os.File // redirect-opened files to close once extCmd exits
	done    chan int   // in-process stage result, non-nil when extCmd is nil
}

// execPipeline wires n-1 pipes connecting n stages, forked left to
// right, the first stage's PID becoming the process-group leader that
// later stages join before exec; the parent closes its copies of
// every pipe fd and waits on all stages concurrently (one goroutine
// per stage, not in spawn order), aggregating statuses only after all
// waits complete.
func (r *Runner) execPipeline(ctx context.Context, p *ast.Pipeline) int {
	n := len(p.Stages)
	pipes := make([]*os.File, 0, 2*(n-1)) // readEnd0, writeEnd0, readEnd1, writeEnd1, ...
	readEnds := make([]*os.File, n-1)
	writeEnds := make([]*os.File, n-1)
	for i := 0; i < n-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			r.errf("razzshell: pipe: %s\n", err)
			closeAll(pipes)
			return 1
		}
		readEnds[i], writeEnds[i] = pr, pw
		pipes = append(pipes, pr, pw)
	}

	background := isPipelineBackground(p)

	handles := make([]*stageHandle, n)
	var pgid int
	var toCloseAfterStart []*os.File

	for i, stage := range p.Stages {
		var in, out *os.File
		if i > 0 {
			in = readEnds[i-1]
		} else {
			in = r.Stdin
		}
		if i < n-1 {
			out = writeEnds[i]
		} else {
			out = r.Stdout
		}

		h, err := r.startPipelineStage(ctx, stage, in, out, &pgid)
		if err != nil {
			r.errf("razzshell: %s\n", err)
			// Kill and reap everything spawned so far and bail.
			for _, hh := range handles {
				if hh != nil && hh.extCmd != nil && hh.extCmd.Process != nil {
					hh.extCmd.Process.Kill()
					go hh.extCmd.Wait()
				}
			}
			closeAll(pipes)
			return 1
		}
		handles[i] = h

		// External stages receive dup'd descriptors at exec time, so
		// the parent closes its own copies of that stage's pipe ends
		// once the child is running. In-process stages share the
		// parent's descriptors outright; their stage goroutine owns
		// and closes them on completion instead.
		if h.extCmd != nil {
			if i > 0 {
				toCloseAfterStart = append(toCloseAfterStart, readEnds[i-1])
			}
			if i < n-1 {
				toCloseAfterStart = append(toCloseAfterStart, writeEnds[i])
			}
		}
	}
	closeAll(toCloseAfterStart)

	var job *Job
	if pgid != 0 {
		job = r.Jobs.Add(pgid, pipelineText(p), background)
	}

	if background {
		go func() {
			statuses := r.waitPipeline(handles)
			if job != nil {
				r.Jobs.Finish(job.ID, aggregateStatus(statuses, r.Opts.PipeFail))
			}
		}()
		return 0
	}

	if pgid != 0 {
		_ = r.Term.Foreground(pgid)
	}
	statuses := r.waitPipeline(handles)
	if pgid != 0 {
		_ = r.Term.ReclaimShell()
	}
	status := aggregateStatus(statuses, r.Opts.PipeFail)
	if p.Negated {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	if job != nil {
		r.Jobs.Finish(job.ID, status)
	}

	return status
}

// isPipelineBackground reports whether the parser marked the last
// stage backgrounded, the convention this implementation uses to mean
// "the whole pipeline runs in the background" (see DESIGN.md).
func isPipelineBackground(p *ast.Pipeline) bool {
	if len(p.Stages) == 0 {
		return false
	}
	if cmd, ok := p.Stages[len(p.Stages)-1].(*ast.Command); ok {
		return cmd.Background
	}
	return false
}

func pipelineText(p *ast.Pipeline) string {
	s := ""
	for i, stage := range p.Stages {
		if i > 0 {
			s += " | "
		}
		if cmd, ok := stage.(*ast.Command); ok {
			s += joinArgv(cmd.Argv)
		} else {
			s += "(...)"
		}
	}
	return s
}

// startPipelineStage spawns one stage. External commands are real
// forked OS processes joined into the pipeline's process group;
// built-ins, aliases, plugins, and subshells have no OS process of
// their own, so they run on a goroutine against the same stdio files,
// which still gives them correct pipe plumbing even though they can't
// contribute to job-control signal delivery (documented in
// DESIGN.md).
func (r *Runner) startPipelineStage(ctx context.Context, stage ast.Stage, in, out *os.File, pgid *int) (*stageHandle, error) {
	// Pipe ends handed to an in-process stage are the parent's own
	// descriptors; the stage goroutine closes them when it finishes so
	// its neighbors observe EOF.
	var pipeEnds []*os.File
	if in != r.Stdin {
		pipeEnds = append(pipeEnds, in)
	}
	if out != r.Stdout {
		pipeEnds = append(pipeEnds, out)
	}

	if sub, ok := stage.(*ast.Subshell); ok {
		stdio := savedFDs{stdin: in, stdout: out, stderr: r.Stderr}
		return r.startInProcessStage(stdio, pipeEnds, func(clone *Runner) int {
			return clone.execNode(ctx, sub.Body)
		}), nil
	}

	cmd, ok := stage.(*ast.Command)
	if !ok {
		stdio := savedFDs{stdin: in, stdout: out, stderr: r.Stderr}
		return r.startInProcessStage(stdio, pipeEnds, func(clone *Runner) int {
			return 2
		}), nil
	}

	assigns, err := r.expandAssignments(ctx, cmd.Assignments)
	if err != nil {
		return nil, err
	}
	env := r.overlayEnv(assigns)
	argv, err := r.expandWords(ctx, cmd.Argv, env)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		stdio := savedFDs{stdin: in, stdout: out, stderr: r.Stderr}
		return r.startInProcessStage(stdio, pipeEnds, func(clone *Runner) int { return 0 }), nil
	}

	res := r.Reg.Resolve(argv[0])
	if res.Kind == registry.IsAlias {
		argv = append([]string{res.Expanded}, argv[1:]...)
		res = r.Reg.Resolve(firstWord(res.Expanded))
		if res.Kind == registry.IsAlias {
			// Non-recursive: one expansion only.
			res = registry.Resolution{Kind: registry.None}
		}
	}

	fds, toClose, err := r.openRedirects(cmd.Redirs, savedFDs{stdin: in, stdout: out, stderr: r.Stderr})
	if err != nil {
		return nil, err
	}

	switch res.Kind {
	case registry.IsExternal:
		sysAttr := &syscall.SysProcAttr{Setpgid: true}
		if *pgid != 0 {
			sysAttr.Pgid = *pgid
		}
		ec := &exec.Cmd{
			Path: res.Path, Args: argv, Env: envSlice(env), Dir: r.Dir,
			Stdin: fds.stdin, Stdout: fds.stdout, Stderr: fds.stderr,
			SysProcAttr: sysAttr,
		}
		if err := ec.Start(); err != nil {
			closeAll(toClose)
			return nil, err
		}
		if *pgid == 0 {
			*pgid = ec.Process.Pid
		}
		return &stageHandle{extCmd: ec, toClose: toClose}, nil
	case registry.IsBuiltin:
		return r.startInProcessStage(fds, append(pipeEnds, toClose...), func(clone *Runner) int {
			fn := res.Builtin.Handler.(BuiltinFunc)
			return fn(ctx, clone, argv)
		}), nil
	case registry.IsPlugin:
		return r.startInProcessStage(fds, append(pipeEnds, toClose...), func(clone *Runner) int {
			code, perr := res.Plugin.Handler(ctx, argv, clone.Stdin, clone.Stdout, clone.Stderr)
			if perr != nil {
				clone.errf("%s: %s\n", argv[0], perr)
				return 1
			}
			return code
		}), nil
	default:
		return r.startInProcessStage(fds, append(pipeEnds, toClose...), func(clone *Runner) int {
			clone.errf("%s: command not found\n", argv[0])
			return 127
		}), nil
	}
}

// startInProcessStage clones the runner, points the clone's stdio at
// the stage's resolved descriptors, and runs fn on a goroutine,
// delivering its result on the returned handle's done channel. Every
// file in closeAfter (the stage's pipe ends plus any redirect-opened
// files) is closed once fn returns.
func (r *Runner) startInProcessStage(stdio savedFDs, closeAfter []*os.File, fn func(*Runner) int) *stageHandle {
	clone := r.clone()
	clone.Stdin, clone.Stdout, clone.Stderr = stdio.stdin, stdio.stdout, stdio.stderr

	done := make(chan int, 1)
	go func() {
		status := fn(clone)
		closeAll(closeAfter)
		done <- status
	}()
	return &stageHandle{done: done}
}

// waitPipeline waits on every stage concurrently, one goroutine per
// stage, so the waits do not happen in spawn order; it returns once
// all of them have finished, with their exit statuses in stage order.
func (r *Runner) waitPipeline(handles []*stageHandle) []int {
	statuses := make([]int, len(handles))
	var g errgroup.Group
	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			if h.extCmd != nil {
				waitErr := h.extCmd.Wait()
				closeAll(h.toClose)
				statuses[i] = exitStatusFromWait(h.extCmd, waitErr)
			} else {
				statuses[i] = <-h.done
			}
			return nil
		})
	}
	g.Wait()
	return statuses
}

// aggregateStatus implements the pipefail rule: with pipefail, the
// last non-zero component's status, else zero; without it, only the
// final component's status counts.
func aggregateStatus(statuses []int, pipefail bool) int {
	if len(statuses) == 0 {
		return 0
	}
	if !pipefail {
		return statuses[len(statuses)-1]
	}
	for i := len(statuses) - 1; i >= 0; i-- {
		if statuses[i] != 0 {
			return statuses[i]
		}
	}
	return 0
}
