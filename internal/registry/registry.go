// Package registry implements command-name resolution: a single
// resolve function consulted in builtin, alias, plugin, external
// priority order, plus the POSIX-to-native command name translation
// table.
package registry

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/razzshell/razzshell/internal/plugin"
	"github.com/razzshell/razzshell/internal/shellopts"
)

// MaxAliases bounds the alias table.
const MaxAliases = 256

// MaxPlugins bounds the plugin table.
const MaxPlugins = 64

// BuiltinFunc is the handler signature a built-in registers. It is
// intentionally untyped here (an any) because the concrete signature
// (taking the executor's full call context) lives in package interp,
// which depends on registry; registry must not depend back on interp.
// Builtin.Handler is therefore stored and type-asserted by the caller.
type BuiltinFunc any

// Builtin is a statically registered built-in command.
type Builtin struct {
	Name        string
	Handler     BuiltinFunc
	Description string
}

// Kind identifies which resolution tier answered a lookup.
type Kind int

const (
	None Kind = iota
	IsBuiltin
	IsAlias
	IsPlugin
	IsExternal
)

// Resolution is the result of resolving a command name to one of
// builtin, alias, plugin, external, or nothing.
type Resolution struct {
	Kind     Kind
	Builtin  *Builtin
	Expanded string // alias expansion text, only for IsAlias
	Plugin   *plugin.Module
	Path     string // resolved executable path, only for IsExternal
}

// Registry holds the builtin table (static), the alias table
// (mutable), and the plugin table (mutable), and performs resolution
// in that priority order, applying the POSIX/BASH translation table
// first when the shell is not in Native mode.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]*Builtin
	aliases  map[string]string

	Plugins *plugin.Registry

	opts *shellopts.Options

	// lookPath is overridable in tests; defaults to exec.LookPath.
	lookPath func(string) (string, error)
}

// New returns an empty Registry consulting opts for the current mode.
func New(opts *shellopts.Options) *Registry {
	return &Registry{
		builtins: make(map[string]*Builtin),
		aliases:  make(map[string]string),
		Plugins:  plugin.NewRegistry(MaxPlugins),
		opts:     opts,
		lookPath: exec.LookPath,
	}
}

// RegisterBuiltin adds a built-in to the static table. Called at
// startup by package builtin's registration surface; cosmetic
// built-ins living outside the core attach through the same call.
func (r *Registry) RegisterBuiltin(b *Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins[b.Name] = b
}

// Builtins returns the name-sorted-by-caller builtin table, e.g. for a
// `help`/`commands`-style listing.
func (r *Registry) Builtins() map[string]*Builtin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[string]*Builtin, len(r.builtins))
	for k, v := range r.builtins {
		cp[k] = v
	}
	return cp
}

// SetAlias adds or replaces an alias, enforcing MaxAliases.
func (r *Registry) SetAlias(name, expansion string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.aliases[name]; !exists && len(r.aliases) >= MaxAliases {
		return fmt.Errorf("alias: table is full (capacity %d)", MaxAliases)
	}
	r.aliases[name] = expansion
	return nil
}

// Unalias removes an alias.
func (r *Registry) Unalias(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.aliases[name]; !ok {
		return fmt.Errorf("unalias: no such alias %q", name)
	}
	delete(r.aliases, name)
	return nil
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		cp[k] = v
	}
	return cp
}

// posixToNative maps the POSIX command vocabulary to RazzShell's
// native names, one entry per standard command the shell answers to.
var posixToNative = map[string]string{
	"cd":       "change",
	"ls":       "list",
	"echo":     "say",
	"pwd":      "where",
	"cat":      "readfile",
	"cp":       "copy",
	"mv":       "move",
	"rm":       "delete",
	"mkdir":    "makedir",
	"rmdir":    "removedir",
	"chmod":    "setperm",
	"chown":    "setowner",
	"grep":     "searchtext",
	"find":     "searchfile",
	"touch":    "create",
	"ps":       "showprocesses",
	"whoami":   "whome",
	"ping":     "pinghost",
	"curl":     "fetchurl",
	"df":       "diskfree",
	"du":       "diskuse",
	"uname":    "systemname",
	"head":     "headfile",
	"tail":     "tailfile",
	"wc":       "wordcount",
	"date":     "today",
	"cal":      "calendar",
	"clear":    "clear",
	"history":  "commands",
	"alias":    "makealias",
	"unalias":  "removealias",
	"export":   "setenv",
	"unset":    "unsetenv",
	"printenv": "printenv",
	"env":      "printenv",
	"exit":     "quit",
	"jobs":     "viewjobs",
	"fg":       "bringtofront",
	"bg":       "sendtoback",
	"kill":     "terminate",
}

// translate applies the POSIX-to-native table in POSIX and BASH
// modes, before any other lookup; Native mode bypasses it.
func (r *Registry) translate(name string) string {
	if r.opts.Mode == shellopts.Native {
		return name
	}
	if native, ok := posixToNative[name]; ok {
		return native
	}
	return name
}

// Resolve looks a name up in priority order: builtin, then alias
// (non-recursive, single first-token swap), then plugin, then
// external on PATH, else None.
func (r *Registry) Resolve(name string) Resolution {
	name = r.translate(name)

	r.mu.RLock()
	b, isBuiltin := r.builtins[name]
	r.mu.RUnlock()
	if isBuiltin {
		return Resolution{Kind: IsBuiltin, Builtin: b}
	}

	r.mu.RLock()
	exp, isAlias := r.aliases[name]
	r.mu.RUnlock()
	if isAlias {
		return Resolution{Kind: IsAlias, Expanded: exp}
	}

	if m, ok := r.Plugins.Lookup(name); ok {
		return Resolution{Kind: IsPlugin, Plugin: m}
	}

	if path, err := r.lookPath(name); err == nil {
		return Resolution{Kind: IsExternal, Path: path}
	}

	return Resolution{Kind: None}
}
