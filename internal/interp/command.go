package interp

import (
	"context"
	"fmt"
	"os"

	"github.com/razzshell/razzshell/internal/ast"
	"github.com/razzshell/razzshell/internal/lexer"
	"github.com/razzshell/razzshell/internal/plugin"
	"github.com/razzshell/razzshell/internal/registry"
	"github.com/razzshell/razzshell/internal/token"
)

// execCommand resolves argv[0] via the registry, expands words, applies
// redirections, and dispatches to a builtin/plugin (in-process) or an
// external program (forked).
func (r *Runner) execCommand(ctx context.Context, c *ast.Command) int {
	assigns, err := r.expandAssignments(ctx, c.Assignments)
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 1
	}
	env := r.overlayEnv(assigns)

	argv, err := r.expandWords(ctx, c.Argv, env)
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 1
	}
	if len(argv) == 0 {
		// e.g. `FOO=bar` alone already handled as *ast.Assignment by
		// the parser; an empty argv here means every word expanded
		// away to nothing, which is a no-op success.
		return 0
	}

	if r.Opts.XTrace {
		fmt.Fprintf(r.Stderr, "+ %s\n", joinArgv(argv))
	}

	res := r.Reg.Resolve(argv[0])

	// Alias expansion is a single, non-recursive first-token swap. The
	// expansion text is lexed as one replacement token (no
	// re-tokenization), so a multi-word expansion does not split into
	// several argv entries.
	if res.Kind == registry.IsAlias {
		argv = append([]string{res.Expanded}, argv[1:]...)
		res = r.Reg.Resolve(firstWord(res.Expanded))
		if res.Kind == registry.IsAlias {
			// Non-recursive: stop after one expansion even if the
			// result happens to also name an alias.
			res = registry.Resolution{Kind: registry.None}
		}
	}

	if c.Background {
		return r.execBackground(ctx, c, argv, env, res)
	}
	return r.execForeground(ctx, c, argv, env, res)
}

// firstWord returns the first whitespace-delimited token of s, used
// only to re-resolve after a single alias expansion.
func firstWord(s string) string {
	toks := lexer.All(s)
	for _, t := range toks {
		if t.Kind == token.WORD {
			return t.Lexeme
		}
	}
	return s
}

func (r *Runner) execForeground(ctx context.Context, c *ast.Command, argv []string, env map[string]string, res registry.Resolution) int {
	switch res.Kind {
	case registry.IsBuiltin:
		return r.runBuiltinInProcess(ctx, res.Builtin, argv, c.Redirs)
	case registry.IsPlugin:
		return r.runPluginInProcess(ctx, res.Plugin, argv, c.Redirs)
	case registry.IsExternal:
		return r.runExternalForeground(ctx, res.Path, argv, env, c.Redirs, joinArgv(argv))
	default:
		fds, toClose, err := r.openRedirects(c.Redirs, savedFDs{stdin: r.Stdin, stdout: r.Stdout, stderr: r.Stderr})
		if err != nil {
			r.errf("razzshell: %s\n", err)
			return 1
		}
		defer closeAll(toClose)
		fmt.Fprintf(fds.stderr, "%s: command not found\n", argv[0])
		return 127
	}
}

func (r *Runner) execBackground(ctx context.Context, c *ast.Command, argv []string, env map[string]string, res registry.Resolution) int {
	switch res.Kind {
	case registry.IsExternal:
		return r.runExternalBackground(res.Path, argv, env, c.Redirs, joinArgv(argv))
	case registry.IsBuiltin, registry.IsPlugin:
		// No real OS process backs an in-process builtin or plugin, so
		// there is no process group to hand control over; it still
		// gets a job-table entry (PGID 0) so `jobs` can observe it,
		// though there is no process group to deliver job-control
		// signals to. The handler runs against a clone so its state
		// mutations and fd save/restore never race the session Runner.
		job := r.Jobs.Add(0, joinArgv(argv), true)
		clone := r.clone()
		go func() {
			var status int
			if res.Kind == registry.IsBuiltin {
				status = clone.runBuiltinInProcess(ctx, res.Builtin, argv, c.Redirs)
			} else {
				status = clone.runPluginInProcess(ctx, res.Plugin, argv, c.Redirs)
			}
			r.Jobs.Finish(job.ID, status)
		}()
		return 0
	default:
		r.errf("%s: command not found\n", argv[0])
		return 127
	}
}

func joinArgv(argv []string) string {
	s := ""
	for i, a := range argv {
		if i > 0 {
			s += " "
		}
		s += a
	}
	return s
}

// runBuiltinInProcess applies redirections via the save/restore stack
// and invokes the builtin handler synchronously in the shell process.
func (r *Runner) runBuiltinInProcess(ctx context.Context, b *registry.Builtin, argv []string, redirs []*ast.Redirect) int {
	fn, ok := b.Handler.(BuiltinFunc)
	if !ok {
		r.errf("razzshell: internal error: builtin %q has the wrong handler signature\n", b.Name)
		return 2
	}

	next, toClose, err := r.openRedirects(redirs, savedFDs{})
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 1
	}
	defer closeAll(toClose)

	r.pushFDs(next)
	defer r.popFDs()

	return fn(ctx, r, argv)
}

func (r *Runner) runPluginInProcess(ctx context.Context, m *plugin.Module, argv []string, redirs []*ast.Redirect) int {
	next, toClose, err := r.openRedirects(redirs, savedFDs{})
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 1
	}
	defer closeAll(toClose)

	r.pushFDs(next)
	defer r.popFDs()

	code, err := m.Handler(ctx, argv, r.Stdin, r.Stdout, r.Stderr)
	if err != nil {
		fmt.Fprintf(r.Stderr, "%s: %s\n", argv[0], err)
		return 1
	}
	return code
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}
