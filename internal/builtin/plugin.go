package builtin

import (
	"context"
	"fmt"

	"github.com/razzshell/razzshell/internal/interp"
)

// loadpluginBuiltin opens the shared object at the given path, looks
// up its exported plugin_command symbol, and registers the handler
// under the path.
func loadpluginBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(rt.Stderr, "loadplugin: usage: loadplugin PATH")
		return 1
	}
	if err := rt.Reg.Plugins.LoadPath(args[1]); err != nil {
		fmt.Fprintf(rt.Stderr, "%s\n", err)
		return 1
	}
	return 0
}

func unloadpluginBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(rt.Stderr, "unloadplugin: usage: unloadplugin NAME")
		return 1
	}
	if err := rt.Reg.Plugins.Unload(args[1]); err != nil {
		fmt.Fprintf(rt.Stderr, "%s\n", err)
		return 1
	}
	return 0
}
