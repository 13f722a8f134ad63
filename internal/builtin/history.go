package builtin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/razzshell/razzshell/internal/ast"
	"github.com/razzshell/razzshell/internal/interp"
	"github.com/razzshell/razzshell/internal/parser"
)

func historyClearBuiltin(_ context.Context, rt *interp.Runner, _ []string) int {
	rt.Hist.Clear()
	return 0
}

func commandsBuiltin(_ context.Context, rt *interp.Runner, _ []string) int {
	for i, line := range rt.Hist.Lines() {
		fmt.Fprintf(rt.Stdout, "%5d  %s\n", i+1, line)
	}
	return 0
}

// repeatBuiltin parses and runs a command line n times. Each
// iteration is lexed and parsed fresh, the same way the REPL treats a
// typed line, since a heredoc inside a repeated command has no
// sensible source to re-read from.
func repeatBuiltin(ctx context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 3 {
		fmt.Fprintln(rt.Stderr, "repeat: usage: repeat N CMD...")
		return 1
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		fmt.Fprintf(rt.Stderr, "repeat: %q is not a non-negative integer\n", args[1])
		return 1
	}
	line := strings.Join(args[2:], " ")

	status := 0
	for i := 0; i < n; i++ {
		node, perr := parser.Parse(line, nil)
		if perr != nil {
			fmt.Fprintf(rt.Stderr, "repeat: %s\n", perr)
			return 1
		}
		if node == nil {
			continue
		}
		status = rt.Run(ctx, node)
		ast.Free(node)
		if rt.Exited() {
			return status
		}
	}
	return status
}
