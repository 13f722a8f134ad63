// Package plugin implements RazzShell's dynamic-loader plugin ABI: a
// plugin is a shared object opened via the operating system's
// dynamic-loader primitive, whose single exported symbol answers one
// command name.
//
// The loader uses the standard library's plugin package, the direct
// Go counterpart of the C dlopen/dlsym pair.
package plugin

import (
	"context"
	"fmt"
	"io"
	stdplugin "plugin"
	"sync"
)

// SymbolName is the exported symbol every plugin module must provide.
const SymbolName = "plugin_command"

// Handler is the function-pointer contract a plugin's exported
// plugin_command symbol must satisfy: given the full argv (args[0] is
// the path the plugin was loaded from, matching the external-command
// convention) and the shell's current stdio, it returns an exit
// status.
type Handler func(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error)

// Module is a loaded plugin: the path it was loaded from, the opaque
// handle returned by the dynamic loader, and the resolved handler
// symbol.
type Module struct {
	Path    string
	handle  *stdplugin.Plugin
	Handler Handler
}

// Load opens the shared object at path, looks up the exported
// SymbolName, and type-asserts it against Handler. The registry is
// left unchanged if any step fails.
func Load(path string) (*Module, error) {
	h, err := stdplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadplugin: %s: %w", path, err)
	}
	sym, err := h.Lookup(SymbolName)
	if err != nil {
		return nil, fmt.Errorf("loadplugin: %s: missing symbol %s: %w", path, SymbolName, err)
	}
	fn, ok := sym.(func(context.Context, []string, io.Reader, io.Writer, io.Writer) (int, error))
	if !ok {
		return nil, fmt.Errorf("loadplugin: %s: symbol %s has the wrong signature", path, SymbolName)
	}
	return &Module{Path: path, handle: h, Handler: Handler(fn)}, nil
}

// Registry is the bounded, mutable table of loaded plugins.
type Registry struct {
	mu      sync.Mutex
	cap     int
	modules map[string]*Module
}

// NewRegistry returns an empty Registry accepting up to capacity
// modules.
func NewRegistry(capacity int) *Registry {
	return &Registry{cap: capacity, modules: make(map[string]*Module)}
}

// LoadPath loads the module at path and registers it under the path
// itself, which doubles as the plugin's command name.
func (r *Registry) LoadPath(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[path]; exists {
		return fmt.Errorf("loadplugin: %s is already loaded", path)
	}
	if len(r.modules) >= r.cap {
		return fmt.Errorf("loadplugin: plugin registry is full (capacity %d)", r.cap)
	}
	m, err := Load(path)
	if err != nil {
		return err
	}
	r.modules[path] = m
	return nil
}

// Unload drops the module registered under name. Go's plugin package
// offers no corresponding "close"; the handle is simply released to
// the garbage collector, matching the runtime's one-way dlopen model.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[name]; !ok {
		return fmt.Errorf("unloadplugin: no such plugin %q", name)
	}
	delete(r.modules, name)
	return nil
}

// Lookup returns the module registered under name, if any.
func (r *Registry) Lookup(name string) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns the currently loaded plugin names in no particular
// order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.modules))
	for n := range r.modules {
		names = append(names, n)
	}
	return names
}
