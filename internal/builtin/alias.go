package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/razzshell/razzshell/internal/interp"
)

// aliasBuiltin defines or prints aliases. The non-recursive
// first-token expansion itself is enforced at resolve time, not here.
func aliasBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		for name, exp := range rt.Reg.Aliases() {
			fmt.Fprintf(rt.Stdout, "alias %s='%s'\n", name, exp)
		}
		return 0
	}
	for _, def := range args[1:] {
		name, exp, ok := strings.Cut(def, "=")
		if !ok {
			fmt.Fprintf(rt.Stderr, "alias: usage: alias NAME=EXPANSION\n")
			return 1
		}
		if err := rt.Reg.SetAlias(name, exp); err != nil {
			fmt.Fprintf(rt.Stderr, "%s\n", err)
			return 1
		}
	}
	return 0
}

func unaliasBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(rt.Stderr, "unalias: usage: unalias NAME")
		return 1
	}
	if err := rt.Reg.Unalias(args[1]); err != nil {
		fmt.Fprintf(rt.Stderr, "%s\n", err)
		return 1
	}
	return 0
}

func aliasesBuiltin(_ context.Context, rt *interp.Runner, _ []string) int {
	for name, exp := range rt.Reg.Aliases() {
		fmt.Fprintf(rt.Stdout, "%s=%s\n", name, exp)
	}
	return 0
}
