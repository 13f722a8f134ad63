// Package builtin implements RazzShell's core built-in commands under
// both their native names (change, say, where, quit, viewjobs, ...)
// and the POSIX spellings (cd, echo, pwd, exit, jobs, ...), plus the
// vocabulary-neutral ones (aliases, setenv, mode, set, which,
// loadplugin, history_clear, commands, repeat), registered onto a
// [registry.Registry] at startup. The many cosmetic built-ins
// (RazzFetch, clock/matrix screens, the AI-query command) live
// outside this package and attach through the same surface.
package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/razzshell/razzshell/internal/interp"
	"github.com/razzshell/razzshell/internal/registry"
	"github.com/razzshell/razzshell/internal/shellopts"
)

// RegisterAll attaches every core built-in to reg in one startup-time
// call. The native vocabulary (change, say, where, quit, viewjobs,
// bringtofront, sendtoback, terminate, makealias, removealias) is what
// the POSIX/BASH translation table targets; the familiar POSIX
// spellings are registered alongside so they also resolve directly in
// native mode.
func RegisterAll(reg *registry.Registry) {
	for _, b := range []*registry.Builtin{
		{Name: "change", Handler: interp.BuiltinFunc(cdBuiltin), Description: "Change directory"},
		{Name: "quit", Handler: interp.BuiltinFunc(exitBuiltin), Description: "Exit the shell"},
		{Name: "where", Handler: interp.BuiltinFunc(pwdBuiltin), Description: "Print working directory"},
		{Name: "say", Handler: interp.BuiltinFunc(echoBuiltin), Description: "Display a line of text"},
		{Name: "viewjobs", Handler: interp.BuiltinFunc(jobsBuiltin), Description: "List active background jobs"},
		{Name: "bringtofront", Handler: interp.BuiltinFunc(fgBuiltin), Description: "Bring job to foreground"},
		{Name: "sendtoback", Handler: interp.BuiltinFunc(bgBuiltin), Description: "Send job to background"},
		{Name: "terminate", Handler: interp.BuiltinFunc(killBuiltin), Description: "Terminate a process"},
		{Name: "makealias", Handler: interp.BuiltinFunc(aliasBuiltin), Description: "Create a command alias"},
		{Name: "removealias", Handler: interp.BuiltinFunc(unaliasBuiltin), Description: "Remove a command alias"},

		{Name: "cd", Handler: interp.BuiltinFunc(cdBuiltin), Description: "Change directory"},
		{Name: "exit", Handler: interp.BuiltinFunc(exitBuiltin), Description: "Exit the shell"},
		{Name: "pwd", Handler: interp.BuiltinFunc(pwdBuiltin), Description: "Print working directory"},
		{Name: "echo", Handler: interp.BuiltinFunc(echoBuiltin), Description: "Display a line of text"},
		{Name: "jobs", Handler: interp.BuiltinFunc(jobsBuiltin), Description: "List active background jobs"},
		{Name: "fg", Handler: interp.BuiltinFunc(fgBuiltin), Description: "Bring job to foreground"},
		{Name: "bg", Handler: interp.BuiltinFunc(bgBuiltin), Description: "Send job to background"},
		{Name: "kill", Handler: interp.BuiltinFunc(killBuiltin), Description: "Terminate a process"},
		{Name: "alias", Handler: interp.BuiltinFunc(aliasBuiltin), Description: "Create a command alias"},
		{Name: "unalias", Handler: interp.BuiltinFunc(unaliasBuiltin), Description: "Remove a command alias"},

		{Name: "aliases", Handler: interp.BuiltinFunc(aliasesBuiltin), Description: "List all aliases"},
		{Name: "setenv", Handler: interp.BuiltinFunc(setenvBuiltin), Description: "Set an environment variable"},
		{Name: "unsetenv", Handler: interp.BuiltinFunc(unsetenvBuiltin), Description: "Unset an environment variable"},
		{Name: "printenv", Handler: interp.BuiltinFunc(printenvBuiltin), Description: "Print environment variables"},
		{Name: "mode", Handler: interp.BuiltinFunc(modeBuiltin), Description: "Switch shell execution mode"},
		{Name: "set", Handler: interp.BuiltinFunc(setBuiltin), Description: "Set shell options"},
		{Name: "which", Handler: interp.BuiltinFunc(whichBuiltin), Description: "Locate a command in PATH or built-ins"},
		{Name: "loadplugin", Handler: interp.BuiltinFunc(loadpluginBuiltin), Description: "Load a plugin"},
		{Name: "unloadplugin", Handler: interp.BuiltinFunc(unloadpluginBuiltin), Description: "Unload a plugin"},
		{Name: "history_clear", Handler: interp.BuiltinFunc(historyClearBuiltin), Description: "Clear command history"},
		{Name: "commands", Handler: interp.BuiltinFunc(commandsBuiltin), Description: "Show command history"},
		{Name: "repeat", Handler: interp.BuiltinFunc(repeatBuiltin), Description: "Repeat a command multiple times"},
	} {
		reg.RegisterBuiltin(b)
	}
}

// cdBuiltin changes the runner's working directory without touching
// the process-wide one: external commands launch with the runner's Dir
// and subshell clones must not leak their cd back into the session.
func cdBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	target := rt.Env["HOME"]
	if len(args) > 1 {
		target = args[1]
	}
	if target == "" {
		fmt.Fprintln(rt.Stderr, "cd: HOME not set")
		return 1
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(rt.Dir, target)
	}
	target = filepath.Clean(target)
	fi, err := os.Stat(target)
	if err != nil {
		fmt.Fprintf(rt.Stderr, "cd: %s\n", err)
		return 1
	}
	if !fi.IsDir() {
		fmt.Fprintf(rt.Stderr, "cd: %s: not a directory\n", target)
		return 1
	}
	rt.Dir = target
	rt.Env["PWD"] = target
	return 0
}

// exitBuiltin terminates the REPL with the last command's status, or
// with an explicit numeric argument when given.
func exitBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	code := rt.LastStatus()
	if len(args) > 1 {
		var n int
		if _, err := fmt.Sscanf(args[1], "%d", &n); err == nil {
			code = n
		}
	}
	rt.Exit(code)
	return code
}

func pwdBuiltin(_ context.Context, rt *interp.Runner, _ []string) int {
	fmt.Fprintln(rt.Stdout, rt.Dir)
	return 0
}

// echoBuiltin prints its arguments space-joined; $NAME expansion has
// already happened during word expansion before dispatch.
func echoBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	fmt.Fprintln(rt.Stdout, strings.Join(args[1:], " "))
	return 0
}

func setenvBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 3 {
		fmt.Fprintln(rt.Stderr, "setenv: usage: setenv NAME VALUE")
		return 1
	}
	rt.Env[args[1]] = args[2]
	return 0
}

func unsetenvBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(rt.Stderr, "unsetenv: usage: unsetenv NAME")
		return 1
	}
	delete(rt.Env, args[1])
	return 0
}

func printenvBuiltin(_ context.Context, rt *interp.Runner, _ []string) int {
	for _, kv := range rt.EnvSlice() {
		fmt.Fprintln(rt.Stdout, kv)
	}
	return 0
}

func modeBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(rt.Stdout, rt.Opts.Mode)
		return 0
	}
	m, err := shellopts.ParseMode(args[1])
	if err != nil {
		fmt.Fprintf(rt.Stderr, "%s\n", err)
		return 1
	}
	rt.Opts.Mode = m
	rt.Env["RAZZSHELL_MODE"] = m.String()
	return 0
}

func setBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if err := rt.Opts.Apply(args[1:]); err != nil {
		fmt.Fprintf(rt.Stderr, "%s\n", err)
		return 1
	}
	return 0
}

func whichBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(rt.Stderr, "which: usage: which NAME")
		return 1
	}
	res := rt.Reg.Resolve(args[1])
	switch res.Kind {
	case registry.IsBuiltin:
		fmt.Fprintf(rt.Stdout, "%s is a shell built-in\n", args[1])
	case registry.IsAlias:
		fmt.Fprintf(rt.Stdout, "%s is aliased to `%s'\n", args[1], res.Expanded)
	case registry.IsPlugin:
		fmt.Fprintf(rt.Stdout, "%s is a loaded plugin (%s)\n", args[1], res.Plugin.Path)
	case registry.IsExternal:
		fmt.Fprintf(rt.Stdout, "%s is %s\n", args[1], res.Path)
	default:
		fmt.Fprintf(rt.Stderr, "%s: not found\n", args[1])
		return 1
	}
	return 0
}
