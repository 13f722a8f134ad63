package repl_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/razzshell/razzshell/internal/history"
	"github.com/razzshell/razzshell/internal/interp"
	"github.com/razzshell/razzshell/internal/registry"
	"github.com/razzshell/razzshell/internal/repl"
	"github.com/razzshell/razzshell/internal/shellopts"
	"github.com/razzshell/razzshell/internal/termctl"
)

// rig is a Runner whose command-output stdout is an OS pipe captured
// into a buffer, distinct from the REPL's own prompt/echo writer.
type rig struct {
	rt   *interp.Runner
	w    *os.File
	buf  *bytes.Buffer
	done chan struct{}
}

func newRig(t *testing.T) *rig {
	t.Helper()
	opts := shellopts.New()
	reg := registry.New(opts)
	reg.RegisterBuiltin(&registry.Builtin{Name: "echo", Handler: interp.BuiltinFunc(func(_ context.Context, rt *interp.Runner, args []string) int {
		rt.Stdout.WriteString(strings.Join(args[1:], " ") + "\n")
		return 0
	})})
	reg.RegisterBuiltin(&registry.Builtin{Name: "exit", Handler: interp.BuiltinFunc(func(_ context.Context, rt *interp.Runner, _ []string) int {
		rt.Exit(0)
		return 0
	})})
	jobs := interp.NewJobTable()
	hist := history.New()
	term := termctl.New(os.Stdin)
	rt := interp.New(opts, reg, jobs, term, hist)

	r, w, err := os.Pipe()
	qt.Assert(t, err, qt.IsNil)
	rt.Stdout = w

	rg := &rig{rt: rt, w: w, buf: &bytes.Buffer{}, done: make(chan struct{})}
	go func() {
		io.Copy(rg.buf, r)
		close(rg.done)
	}()
	return rg
}

// run drives the REPL over src to EOF and returns the exit status plus
// everything the session's builtins wrote to stdout.
func (rg *rig) run(src string) (int, string) {
	var out bytes.Buffer
	status := repl.New(rg.rt, strings.NewReader(src), &out).Run(context.Background())
	rg.w.Close()
	<-rg.done
	return status, rg.buf.String()
}

func TestRunStopsCleanlyAtEOF(t *testing.T) {
	c := qt.New(t)
	rg := newRig(t)
	status, out := rg.run("echo one\necho two\n")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "one\ntwo\n")
}

func TestRunRecordsEachLineInHistory(t *testing.T) {
	c := qt.New(t)
	rg := newRig(t)
	rg.run("echo a\necho b\n")
	c.Assert(rg.rt.Hist.Lines(), qt.DeepEquals, []string{"echo a", "echo b"})
}

func TestRunExitBuiltinEndsTheLoopEarly(t *testing.T) {
	c := qt.New(t)
	rg := newRig(t)
	status, out := rg.run("echo before\nexit\necho after\n")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "before\n")
}

// Non-interactive errexit teardown: a piped script with `set -e` stops
// at the first failing command instead of continuing.
func TestRunErrexitStopsNonInteractiveRunOnFailure(t *testing.T) {
	c := qt.New(t)
	rg := newRig(t)
	rg.rt.Opts.ErrExit = true
	status, out := rg.run("definitely-not-a-real-command-xyz\necho should-not-print\n")
	c.Assert(status, qt.Equals, 127)
	c.Assert(out, qt.Equals, "")
}

func TestRunVerboseEchoesTheLineToThePromptWriter(t *testing.T) {
	c := qt.New(t)
	rg := newRig(t)
	rg.rt.Opts.Verbose = true
	var out bytes.Buffer
	repl.New(rg.rt, strings.NewReader("echo hi\n"), &out).Run(context.Background())
	rg.w.Close()
	<-rg.done
	c.Assert(out.String(), qt.Contains, "echo hi\n")
}

func TestRunBlankLineIsSkippedWithoutError(t *testing.T) {
	c := qt.New(t)
	rg := newRig(t)
	status, out := rg.run("\necho hi\n")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "hi\n")
}
