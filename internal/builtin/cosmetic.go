package builtin

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/razzshell/razzshell/internal/history"
	"github.com/razzshell/razzshell/internal/interp"
	"github.com/razzshell/razzshell/internal/registry"
)

// MaxBookmarks bounds the in-memory bookmark list.
const MaxBookmarks = 100

// RegisterCosmeticStubs attaches the handful of decorative built-ins
// the core keeps alive (session save/load, bookmarks, a directory
// lister for the translated `ls`, a system-information banner): just
// enough to prove the registration surface core built-ins attach
// through also serves collaborators outside the core. The remaining
// screen-painting commands (clock, matrix, monitor, sysart) attach
// the same way but are not part of this module.
func RegisterCosmeticStubs(reg *registry.Registry) {
	for _, b := range []*registry.Builtin{
		{Name: "save", Handler: interp.BuiltinFunc(saveBuiltin), Description: "Save current session"},
		{Name: "load", Handler: interp.BuiltinFunc(loadBuiltin), Description: "Load saved session"},
		{Name: "list", Handler: interp.BuiltinFunc(listBuiltin), Description: "List directory contents"},
		{Name: "bookmark", Handler: interp.BuiltinFunc(bookmarkBuiltin), Description: "Bookmark a command"},
		{Name: "listbookmarks", Handler: interp.BuiltinFunc(listbookmarksBuiltin), Description: "List all bookmarks"},
		{Name: "razzfetch", Handler: interp.BuiltinFunc(razzfetchBuiltin), Description: "Display system information in RazzShell style"},
	} {
		reg.RegisterBuiltin(b)
	}
}

func razzfetchBuiltin(_ context.Context, rt *interp.Runner, _ []string) int {
	fmt.Fprintf(rt.Stdout, "razzshell (mode=%s)\n", rt.Opts.Mode)
	return 0
}

func saveBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	path := "session.save"
	if len(args) > 1 {
		path = args[1]
	}
	if err := history.Save(path, rt.Hist); err != nil {
		fmt.Fprintf(rt.Stderr, "save: %s\n", err)
		return 1
	}
	fmt.Fprintln(rt.Stdout, "Session saved.")
	return 0
}

func loadBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	path := "session.save"
	if len(args) > 1 {
		path = args[1]
	}
	if err := history.Load(path, rt.Hist); err != nil {
		fmt.Fprintf(rt.Stderr, "load: %s\n", err)
		return 1
	}
	fmt.Fprintln(rt.Stdout, "Session loaded.")
	return 0
}

// listBuiltin is the native `list` (the translation target of `ls` in
// POSIX/BASH mode): names only, sorted, one per line.
func listBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	dir := rt.Dir
	if len(args) > 1 {
		dir = args[1]
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(rt.Stderr, "list: %s\n", err)
		return 1
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(rt.Stdout, n)
	}
	return 0
}

// bookmarks is session-lifetime state shared by the two bookmark
// built-ins.
var (
	bookmarksMu sync.Mutex
	bookmarks   []string
)

func bookmarkBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(rt.Stderr, "bookmark: usage: bookmark COMMAND")
		return 1
	}
	bookmarksMu.Lock()
	defer bookmarksMu.Unlock()
	if len(bookmarks) >= MaxBookmarks {
		fmt.Fprintln(rt.Stderr, "bookmark: bookmark limit reached")
		return 1
	}
	bookmarks = append(bookmarks, args[1])
	fmt.Fprintf(rt.Stdout, "Command %q bookmarked\n", args[1])
	return 0
}

func listbookmarksBuiltin(_ context.Context, rt *interp.Runner, _ []string) int {
	bookmarksMu.Lock()
	defer bookmarksMu.Unlock()
	for i, b := range bookmarks {
		fmt.Fprintf(rt.Stdout, "%d: %s\n", i+1, b)
	}
	return 0
}
