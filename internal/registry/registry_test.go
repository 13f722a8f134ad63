package registry_test

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/razzshell/razzshell/internal/registry"
	"github.com/razzshell/razzshell/internal/shellopts"
)

func newTestRegistry(mode shellopts.Mode) (*registry.Registry, *shellopts.Options) {
	opts := shellopts.New()
	opts.Mode = mode
	return registry.New(opts), opts
}

// Resolution priority order: builtin, then alias, then plugin, then
// external, else None.
func TestResolvePriorityBuiltinBeatsAlias(t *testing.T) {
	c := qt.New(t)
	reg, _ := newTestRegistry(shellopts.Native)
	reg.RegisterBuiltin(&registry.Builtin{Name: "ls", Handler: "builtin-handler"})
	c.Assert(reg.SetAlias("ls", "echo not-a-builtin"), qt.IsNil)

	res := reg.Resolve("ls")
	c.Assert(res.Kind, qt.Equals, registry.IsBuiltin)
}

func TestResolveFallsThroughToAlias(t *testing.T) {
	c := qt.New(t)
	reg, _ := newTestRegistry(shellopts.Native)
	c.Assert(reg.SetAlias("ll", "ls -la"), qt.IsNil)

	res := reg.Resolve("ll")
	c.Assert(res.Kind, qt.Equals, registry.IsAlias)
	c.Assert(res.Expanded, qt.Equals, "ls -la")
}

func TestResolveUnknownNameIsNone(t *testing.T) {
	c := qt.New(t)
	reg, _ := newTestRegistry(shellopts.Native)
	res := reg.Resolve("definitely-not-a-real-command-xyz")
	c.Assert(res.Kind, qt.Equals, registry.None)
}

// In POSIX/BASH mode the resolver rewrites a POSIX name to its native
// equivalent before alias lookup; in NATIVE mode the table is
// bypassed.
func TestPOSIXTranslationAppliesOnlyOutsideNativeMode(t *testing.T) {
	c := qt.New(t)

	reg, _ := newTestRegistry(shellopts.POSIX)
	reg.RegisterBuiltin(&registry.Builtin{Name: "list", Handler: "native-ls"})
	res := reg.Resolve("ls")
	c.Assert(res.Kind, qt.Equals, registry.IsBuiltin)
	c.Assert(res.Builtin.Name, qt.Equals, "list")

	native, _ := newTestRegistry(shellopts.Native)
	native.RegisterBuiltin(&registry.Builtin{Name: "list", Handler: "native-ls"})
	res = native.Resolve("ls")
	c.Assert(res.Kind, qt.Not(qt.Equals), registry.IsBuiltin)
}

func TestPOSIXTranslationAppliesInBashModeToo(t *testing.T) {
	c := qt.New(t)
	reg, _ := newTestRegistry(shellopts.Bash)
	reg.RegisterBuiltin(&registry.Builtin{Name: "change", Handler: "native-cd"})
	res := reg.Resolve("cd")
	c.Assert(res.Kind, qt.Equals, registry.IsBuiltin)
	c.Assert(res.Builtin.Name, qt.Equals, "change")
}

// The alias table refuses entries past its fixed capacity.
func TestAliasTableIsBounded(t *testing.T) {
	c := qt.New(t)
	reg, _ := newTestRegistry(shellopts.Native)
	for i := 0; i < registry.MaxAliases; i++ {
		c.Assert(reg.SetAlias(fmt.Sprintf("alias%d", i), "x"), qt.IsNil)
	}
	err := reg.SetAlias("one-too-many", "x")
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestUnaliasRemovesEntry(t *testing.T) {
	c := qt.New(t)
	reg, _ := newTestRegistry(shellopts.Native)
	c.Assert(reg.SetAlias("ll", "ls -la"), qt.IsNil)
	c.Assert(reg.Unalias("ll"), qt.IsNil)
	_, isAlias := reg.Aliases()["ll"]
	c.Assert(isAlias, qt.IsFalse)
}

func TestUnaliasUnknownIsAnError(t *testing.T) {
	c := qt.New(t)
	reg, _ := newTestRegistry(shellopts.Native)
	err := reg.Unalias("nope")
	c.Assert(err, qt.Not(qt.IsNil))
}
