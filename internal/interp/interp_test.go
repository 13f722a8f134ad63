package interp_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/razzshell/razzshell/internal/history"
	"github.com/razzshell/razzshell/internal/interp"
	"github.com/razzshell/razzshell/internal/parser"
	"github.com/razzshell/razzshell/internal/registry"
	"github.com/razzshell/razzshell/internal/shellopts"
	"github.com/razzshell/razzshell/internal/termctl"
)

// captured wraps a Runner whose stdout/stderr are OS pipes read into
// in-memory buffers, so tests can assert on what a command printed
// without depending on the real terminal.
type captured struct {
	rt         *interp.Runner
	outR, errR *os.File
	outBuf     *bytes.Buffer
	errBuf     *bytes.Buffer
	done       chan struct{}
	errDone    chan struct{}
}

func newCaptured(t *testing.T) *captured {
	t.Helper()
	opts := shellopts.New()
	reg := registry.New(opts)
	jobs := interp.NewJobTable()
	hist := history.New()
	term := termctl.New(os.Stdin)

	rt := interp.New(opts, reg, jobs, term, hist)

	outR, outW, err := os.Pipe()
	qt.Assert(t, err, qt.IsNil)
	errR, errW, err := os.Pipe()
	qt.Assert(t, err, qt.IsNil)

	rt.Stdout = outW
	rt.Stderr = errW

	c := &captured{rt: rt, outR: outR, errR: errR, outBuf: &bytes.Buffer{}, errBuf: &bytes.Buffer{}, done: make(chan struct{}), errDone: make(chan struct{})}
	go func() {
		io.Copy(c.outBuf, c.outR)
		close(c.done)
	}()
	go func() {
		io.Copy(c.errBuf, c.errR)
		close(c.errDone)
	}()
	return c
}

// run parses and executes src to completion, then closes the write
// ends so the reader goroutines see EOF, and returns stdout/stderr.
func (c *captured) run(t *testing.T, src string) (status int, stdout, stderr string) {
	t.Helper()
	node, err := parser.Parse(src, nil)
	qt.Assert(t, err, qt.IsNil, qt.Commentf("parsing %q", src))
	status = c.rt.Run(context.Background(), node)
	c.rt.Stdout.Close()
	c.rt.Stderr.Close()
	<-c.done
	<-c.errDone
	return status, c.outBuf.String(), c.errBuf.String()
}

func registerCoreBuiltins(reg *registry.Registry) {
	reg.RegisterBuiltin(&registry.Builtin{Name: "echo", Handler: interp.BuiltinFunc(func(_ context.Context, rt *interp.Runner, args []string) int {
		for i, a := range args[1:] {
			if i > 0 {
				io.WriteString(rt.Stdout, " ")
			}
			io.WriteString(rt.Stdout, a)
		}
		io.WriteString(rt.Stdout, "\n")
		return 0
	})})
	reg.RegisterBuiltin(&registry.Builtin{Name: "true", Handler: interp.BuiltinFunc(func(context.Context, *interp.Runner, []string) int { return 0 })})
	reg.RegisterBuiltin(&registry.Builtin{Name: "false", Handler: interp.BuiltinFunc(func(context.Context, *interp.Runner, []string) int { return 1 })})
	reg.RegisterBuiltin(&registry.Builtin{Name: "pwd", Handler: interp.BuiltinFunc(func(_ context.Context, rt *interp.Runner, _ []string) int {
		io.WriteString(rt.Stdout, rt.Dir+"\n")
		return 0
	})})
	reg.RegisterBuiltin(&registry.Builtin{Name: "cd", Handler: interp.BuiltinFunc(func(_ context.Context, rt *interp.Runner, args []string) int {
		if len(args) > 1 {
			rt.Dir = args[1]
		}
		return 0
	})})
}

// `echo hello world` -> stdout "hello world\n", exit 0.
func TestEchoScenario(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)

	status, out, _ := rc.run(t, "echo hello world")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "hello world\n")
}

// `FOO=bar; echo $FOO` -> stdout "bar\n".
func TestAssignmentThenExpansion(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)

	status, out, _ := rc.run(t, "FOO=bar; echo $FOO")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "bar\n")
}

// true && echo ok writes "ok"; false && echo ok
// writes nothing; false || echo ok writes "ok".
func TestAndOrShortCircuit(t *testing.T) {
	c := qt.New(t)

	cap1 := newCaptured(t)
	registerCoreBuiltins(cap1.rt.Reg)
	_, out1, _ := cap1.run(t, "true && echo ok")
	c.Assert(out1, qt.Equals, "ok\n")

	cap2 := newCaptured(t)
	registerCoreBuiltins(cap2.rt.Reg)
	_, out2, _ := cap2.run(t, "false && echo ok")
	c.Assert(out2, qt.Equals, "")

	cap3 := newCaptured(t)
	registerCoreBuiltins(cap3.rt.Reg)
	_, out3, _ := cap3.run(t, "false || echo ok")
	c.Assert(out3, qt.Equals, "ok\n")
}

// echo hi | cat | cat writes "hi" on stdout.
func TestPipelineThroughExternalCat(t *testing.T) {
	if _, err := os.Stat("/bin/cat"); err != nil {
		t.Skip("/bin/cat not available")
	}
	c := qt.New(t)
	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)

	status, out, _ := rc.run(t, "echo hi | cat | cat")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "hi\n")
}

// With pipefail, false | true exits non-zero;
// without it, exits zero.
func TestPipefailAggregation(t *testing.T) {
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("/bin/true not available")
	}
	c := qt.New(t)

	without := newCaptured(t)
	registerCoreBuiltins(without.rt.Reg)
	status, _, _ := without.run(t, "false | true")
	c.Assert(status, qt.Equals, 0)

	with := newCaptured(t)
	registerCoreBuiltins(with.rt.Reg)
	with.rt.Opts.PipeFail = true
	status, _, _ = with.run(t, "false | true")
	c.Assert(status, qt.Not(qt.Equals), 0)
}

// (cd /tmp && pwd) prints /tmp but the parent
// shell's working directory is unchanged.
func TestSubshellDirectoryIsolation(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)
	rc.rt.Dir = "/"

	status, out, _ := rc.run(t, "(cd /tmp && pwd)")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "/tmp\n")
	c.Assert(rc.rt.Dir, qt.Equals, "/", qt.Commentf("subshell must not leak its cd into the parent"))
}

func TestCommandNotFoundStatus127(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)
	status, _, stderr := rc.run(t, "definitely-not-a-real-command-xyz")
	c.Assert(status, qt.Equals, 127)
	c.Assert(stderr, qt.Contains, "command not found")
}

func TestRedirectionToFile(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	path := dir + "/err.txt"

	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)
	status, _, stderr := rc.run(t, "definitely-not-a-real-command-xyz 2> "+path)
	c.Assert(status, qt.Equals, 127)
	c.Assert(stderr, qt.Equals, "", qt.Commentf("stderr was redirected to a file"))

	body, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(body), qt.Contains, "command not found")
}

func TestCommandSubstitution(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)

	status, out, _ := rc.run(t, "echo $(echo nested)")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "nested\n")
}

func TestTestBuiltinStringCompare(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)

	status, _, _ := rc.run(t, "[[ abc = abc ]]")
	c.Assert(status, qt.Equals, 0)

	cap2 := newCaptured(t)
	status, _, _ = cap2.run(t, "[[ abc = xyz ]]")
	c.Assert(status, qt.Equals, 1)
}

func TestTestBuiltinIntegerCompare(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)
	status, _, _ := rc.run(t, "[[ 3 -lt 10 ]]")
	c.Assert(status, qt.Equals, 0)
}

// A pipeline whose first stage is an in-process builtin still plumbs
// its output into the next stage and sees EOF propagate: the stage
// goroutine, not the parent, owns and closes the shared pipe ends.
func TestBuiltinFeedsExternalPipelineStage(t *testing.T) {
	if _, err := os.Stat("/usr/bin/tr"); err != nil {
		t.Skip("/usr/bin/tr not available")
	}
	c := qt.New(t)
	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)

	status, out, _ := rc.run(t, "echo hello | tr a-z A-Z")
	c.Assert(status, qt.Equals, 0)
	c.Assert(out, qt.Equals, "HELLO\n")
}

// A heredoc body is fed to the command's stdin through a pipe; the
// <<- form strips leading tabs as the content is fed.
func TestHeredocFeedsStdin(t *testing.T) {
	if _, err := os.Stat("/bin/cat"); err != nil {
		t.Skip("/bin/cat not available")
	}
	c := qt.New(t)

	rc := newCaptured(t)
	lines := &scriptLines{lines: []string{"body line", "EOF"}}
	node, err := parser.Parse("cat <<EOF", lines)
	c.Assert(err, qt.IsNil)
	status := rc.rt.Run(context.Background(), node)
	rc.rt.Stdout.Close()
	rc.rt.Stderr.Close()
	<-rc.done
	c.Assert(status, qt.Equals, 0)
	c.Assert(rc.outBuf.String(), qt.Equals, "body line\n")

	rc2 := newCaptured(t)
	lines2 := &scriptLines{lines: []string{"\t\tindented", "\tEOF"}}
	node2, err := parser.Parse("cat <<-EOF", lines2)
	c.Assert(err, qt.IsNil)
	status = rc2.rt.Run(context.Background(), node2)
	rc2.rt.Stdout.Close()
	rc2.rt.Stderr.Close()
	<-rc2.done
	c.Assert(status, qt.Equals, 0)
	c.Assert(rc2.outBuf.String(), qt.Equals, "indented\n")
}

type scriptLines struct {
	lines []string
	i     int
}

func (s *scriptLines) NextLine() (string, bool) {
	if s.i >= len(s.lines) {
		return "", false
	}
	l := s.lines[s.i]
	s.i++
	return l, true
}

// set -x echoes each expanded simple command with a leading "+ ".
func TestXTraceEchoesExpandedCommand(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)
	rc.rt.Opts.XTrace = true
	rc.rt.Env["WHO"] = "world"

	_, out, stderr := rc.run(t, "echo hello $WHO")
	c.Assert(out, qt.Equals, "hello world\n")
	c.Assert(stderr, qt.Equals, "+ echo hello world\n")
}

func TestNounsetReportsUnboundVariable(t *testing.T) {
	c := qt.New(t)
	rc := newCaptured(t)
	registerCoreBuiltins(rc.rt.Reg)
	rc.rt.Opts.NoUnset = true

	status, _, stderr := rc.run(t, "echo $UNSET_VAR_XYZ")
	c.Assert(status, qt.Not(qt.Equals), 0)
	c.Assert(stderr, qt.Contains, "unbound variable")
}
