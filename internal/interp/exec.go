package interp

import (
	"context"

	"github.com/razzshell/razzshell/internal/ast"
)

// execNode dispatches on the AST node kind.
func (r *Runner) execNode(ctx context.Context, n ast.Node) int {
	if r.exited {
		return r.lastStatus
	}
	switch x := n.(type) {
	case *ast.Command:
		return r.execCommand(ctx, x)
	case *ast.Pipeline:
		return r.execPipeline(ctx, x)
	case *ast.List:
		var status int
		for _, c := range x.Children {
			status = r.execNode(ctx, c)
			if r.exited {
				return status
			}
		}
		return status
	case *ast.AndList:
		left := r.execNode(ctx, x.Left)
		if r.exited || left != 0 {
			return left
		}
		return r.execNode(ctx, x.Right)
	case *ast.OrList:
		left := r.execNode(ctx, x.Left)
		if r.exited || left == 0 {
			return left
		}
		return r.execNode(ctx, x.Right)
	case *ast.Subshell:
		return r.execSubshell(ctx, x)
	case *ast.Assignment:
		val, err := r.expandWord(ctx, x.Value, r.Env)
		if err != nil {
			r.errf("razzshell: %s\n", err)
			return 1
		}
		r.Env[x.Name] = val
		return 0
	case *ast.Test:
		return r.execTest(ctx, x)
	default:
		r.errf("razzshell: internal error: unhandled AST node %T\n", n)
		return 2
	}
}

// execSubshell runs a SUBSHELL body against a clone of the
// interpreter's mutable state (working directory and environment) and
// discards the clone's mutations afterward. A real OS fork is
// unnecessary here because the subshell body never needs to outlive
// this call the way a backgrounded pipeline does; the clone gives the
// same isolation the fork would.
func (r *Runner) execSubshell(ctx context.Context, s *ast.Subshell) int {
	clone := r.clone()
	status := clone.execNode(ctx, s.Body)
	if clone.exited {
		// `exit` inside a subshell only terminates the subshell.
		return clone.exitCode
	}
	return status
}
