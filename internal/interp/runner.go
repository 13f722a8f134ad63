// Package interp implements the RazzShell execution engine: it walks
// the AST produced by the parser, manages pipes, redirections,
// process groups and signals, and maintains the job table.
package interp

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/razzshell/razzshell/internal/ast"
	"github.com/razzshell/razzshell/internal/history"
	"github.com/razzshell/razzshell/internal/registry"
	"github.com/razzshell/razzshell/internal/shellopts"
	"github.com/razzshell/razzshell/internal/termctl"
)

// BuiltinFunc is the concrete signature every built-in handler
// implements. ctx carries cancellation; rt is the running Runner so a
// built-in can read/mutate shell state (jobs, aliases, options, env).
// Returns the command's exit status.
type BuiltinFunc func(ctx context.Context, rt *Runner, args []string) int

// Runner walks an AST and realizes it against OS process primitives.
// One Runner is constructed per shell session and reused across every
// line the REPL hands it.
type Runner struct {
	Opts *shellopts.Options
	Reg  *registry.Registry
	Jobs *JobTable
	Term *termctl.Supervisor
	Hist *history.Ring

	Dir string
	Env map[string]string

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// ShellPath is $0 / $SHELL, used by the builtin environment setup.
	ShellPath string

	exited   bool
	exitCode int

	lastStatus int

	// fdStack is the save/restore stack for in-process builtin
	// redirections: the executor saves the affected descriptors before
	// opening the targets and restores them when the built-in returns.
	fdStack []savedFDs
}

type savedFDs struct {
	stdin, stdout, stderr *os.File
}

// New builds a Runner wired to the process's real stdio and a fresh
// copy of the OS environment.
func New(opts *shellopts.Options, reg *registry.Registry, jobs *JobTable, term *termctl.Supervisor, hist *history.Ring) *Runner {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	dir, _ := os.Getwd()
	return &Runner{
		Opts:   opts,
		Reg:    reg,
		Jobs:   jobs,
		Term:   term,
		Hist:   hist,
		Dir:    dir,
		Env:    env,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Exited reports whether `exit` has been invoked; the REPL must stop
// after observing this.
func (r *Runner) Exited() bool { return r.exited }

// ExitCode returns the status `exit` was called with, valid only once
// Exited reports true.
func (r *Runner) ExitCode() int { return r.exitCode }

// Exit records an `exit` request: Exited will report true and ExitCode
// will report code from this point on. Called by the `exit` built-in,
// which lives outside this package, so this needs to be the exported
// mutator.
func (r *Runner) Exit(code int) {
	r.exited = true
	r.exitCode = code
}

// LastStatus returns the status of the most recently completed
// top-level command, used by `exit` without an argument and for the
// REPL's clean-EOF exit code.
func (r *Runner) LastStatus() int { return r.lastStatus }

func (r *Runner) errf(format string, args ...any) {
	fmt.Fprintf(r.Stderr, format, args...)
}

// Run executes a parsed AST root and returns its exit status. It
// never returns an error for ordinary command failures; those are
// reported as a non-zero status.
func (r *Runner) Run(ctx context.Context, n ast.Node) int {
	if n == nil {
		return r.lastStatus
	}
	status := r.execNode(ctx, n)
	r.lastStatus = status
	return status
}

// EnvSlice returns Env as a sorted KEY=VALUE slice, suitable for
// exec.Cmd.Env.
func (r *Runner) EnvSlice() []string {
	out := make([]string, 0, len(r.Env))
	for k, v := range r.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// clone returns a Runner sharing r's registries, job table, terminal
// supervisor, and options, but owning a private copy of the mutable
// per-invocation state (environment, working directory, stdio). It
// backs subshells, pipeline stages, command substitution, and
// backgrounded in-process builtins: each runs against a clone so its
// mutations never leak back into the session's Runner.
func (r *Runner) clone() *Runner {
	env := make(map[string]string, len(r.Env))
	for k, v := range r.Env {
		env[k] = v
	}
	return &Runner{
		Opts:      r.Opts,
		Reg:       r.Reg,
		Jobs:      r.Jobs,
		Term:      r.Term,
		Hist:      r.Hist,
		Dir:       r.Dir,
		Env:       env,
		ShellPath: r.ShellPath,
		Stdin:     r.Stdin,
		Stdout:    r.Stdout,
		Stderr:    r.Stderr,
	}
}

// overlayEnv returns a copy of r.Env overlaid with as, without
// mutating r.Env: pre-command assignments apply to the child
// environment only.
func (r *Runner) overlayEnv(as []*ast.Assignment) map[string]string {
	if len(as) == 0 {
		return r.Env
	}
	cp := make(map[string]string, len(r.Env)+len(as))
	for k, v := range r.Env {
		cp[k] = v
	}
	for _, a := range as {
		cp[a.Name] = a.Value
	}
	return cp
}
