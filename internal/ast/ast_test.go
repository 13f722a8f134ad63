package ast_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/razzshell/razzshell/internal/ast"
)

func TestNewCommandCopiesArgv(t *testing.T) {
	c := qt.New(t)
	argv := []string{"echo", "hi"}
	cmd := ast.NewCommand(argv)
	argv[0] = "mutated"
	c.Assert(cmd.Argv[0], qt.Equals, "echo", qt.Commentf("NewCommand must copy, not alias, its argv"))
}

func TestNewCommandPanicsOnEmptyArgv(t *testing.T) {
	c := qt.New(t)
	c.Assert(func() { ast.NewCommand(nil) }, qt.PanicMatches, ".*argv must be non-empty.*")
}

// A pipeline always carries at least two stages.
func TestNewPipelinePanicsBelowTwoStages(t *testing.T) {
	c := qt.New(t)
	one := []ast.Stage{ast.NewCommand([]string{"echo"})}
	c.Assert(func() { ast.NewPipeline(one) }, qt.PanicMatches, ".*at least 2 stages.*")
}

func TestNewPipelineAcceptsTwoOrMoreStages(t *testing.T) {
	c := qt.New(t)
	stages := []ast.Stage{
		ast.NewCommand([]string{"echo", "hi"}),
		ast.NewCommand([]string{"cat"}),
		ast.NewCommand([]string{"cat"}),
	}
	p := ast.NewPipeline(stages)
	c.Assert(p.Stages, qt.HasLen, 3)
}

func TestCommandPrettyIncludesAssignmentsAndRedirs(t *testing.T) {
	c := qt.New(t)
	cmd := ast.NewCommand([]string{"echo", "hi"})
	cmd.Assignments = []*ast.Assignment{{Name: "FOO", Value: "bar"}}
	cmd.Redirs = []*ast.Redirect{{Kind: ast.RedirAppend, Target: "/tmp/log"}}
	cmd.Background = true

	out := cmd.Pretty(0)
	c.Assert(out, qt.Contains, "FOO=bar")
	c.Assert(out, qt.Contains, "argv=[echo hi]")
	c.Assert(out, qt.Contains, ">> /tmp/log")
	c.Assert(out, qt.Contains, "&")
}

func TestPrintRendersSourceForm(t *testing.T) {
	c := qt.New(t)
	cmd := ast.NewCommand([]string{"grep", "foo"})
	cmd.Assignments = []*ast.Assignment{{Name: "LC_ALL", Value: "C"}}
	cmd.Redirs = []*ast.Redirect{{Kind: ast.RedirAppend, Target: "/tmp/log"}}
	cmd.Background = true
	c.Assert(ast.Print(cmd), qt.Equals, "LC_ALL=C grep foo >> /tmp/log &")

	pipe := ast.NewPipeline([]ast.Stage{
		ast.NewCommand([]string{"echo", "hi"}),
		&ast.Subshell{Body: ast.NewCommand([]string{"cat"})},
	})
	c.Assert(ast.Print(pipe), qt.Equals, "echo hi | (cat)")

	and := &ast.AndList{Left: ast.NewCommand([]string{"true"}), Right: ast.NewCommand([]string{"echo", "ok"})}
	c.Assert(ast.Print(and), qt.Equals, "true && echo ok")
}

// Free must recursively clear descendants without panicking on any
// node kind, including the leaf kinds that hold no children.
func TestFreeRecursesThroughEveryNodeKind(t *testing.T) {
	c := qt.New(t)
	a := ast.NewCommand([]string{"a"})
	pipe := ast.NewPipeline([]ast.Stage{
		a,
		&ast.Subshell{Body: ast.NewCommand([]string{"b"})},
	})
	list := &ast.List{Children: []ast.Node{
		pipe,
		&ast.AndList{Left: ast.NewCommand([]string{"c"}), Right: ast.NewCommand([]string{"d"})},
		&ast.OrList{Left: ast.NewCommand([]string{"e"}), Right: ast.NewCommand([]string{"f"})},
		&ast.Assignment{Name: "X", Value: "1"},
		&ast.Test{Tokens: []string{"-f", "x"}},
	}}

	ast.Free(list) // must not panic on any node kind
	c.Assert(a.Argv, qt.IsNil)
	c.Assert(list.Children, qt.IsNil)
}
