// Package repl implements RazzShell's top-level read-eval-print loop:
// print prompt, read a line, lex/parse/run it, loop.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/razzshell/razzshell/internal/ast"
	"github.com/razzshell/razzshell/internal/interp"
	"github.com/razzshell/razzshell/internal/parser"
)

// REPL drives one interactive (or piped) shell session.
//
// Input is pumped by a dedicated goroutine onto a channel so that the
// wait for the next line can race an interrupt: a SIGINT arriving
// while the loop is blocked at the prompt discards the pending line
// wait and reprompts instead of leaving the shell stuck in a blocking
// read.
type REPL struct {
	Runner *interp.Runner
	Out    io.Writer

	interactive bool

	lines chan string   // closed at end of input
	intCh chan struct{} // one-slot interrupt latch
}

// New constructs a REPL reading from in and writing prompts to out.
// interactive controls whether errexit tears the loop down immediately;
// it defaults to in being a terminal when fd is available.
func New(rt *interp.Runner, in io.Reader, out io.Writer) *REPL {
	interactive := false
	if f, ok := in.(interface{ Fd() uintptr }); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	r := &REPL{
		Runner:      rt,
		Out:         out,
		interactive: interactive,
		lines:       make(chan string),
		intCh:       make(chan struct{}, 1),
	}
	reader := bufio.NewReader(in)
	go func() {
		defer close(r.lines)
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 {
				r.lines <- strings.TrimRight(line, "\n")
			}
			if err != nil {
				return
			}
		}
	}()
	return r
}

// Interrupt aborts the wait for the current input line: the loop
// prints a fresh prompt instead of continuing to block. The terminal
// supervisor's SIGINT handler calls this; the terminal driver itself
// has already discarded the partially typed line.
func (r *REPL) Interrupt() {
	select {
	case r.intCh <- struct{}{}:
	default:
	}
}

// NextLine implements parser.LineSource by pulling the next raw line
// off the same channel the REPL loop reads, so a heredoc body is read
// inline with the rest of the session's input.
func (r *REPL) NextLine() (string, bool) {
	line, ok := <-r.lines
	return line, ok
}

func (r *REPL) prompt() string {
	return fmt.Sprintf("razzshell[%s]$ ", r.Runner.Opts.Mode)
}

// Run executes the read-eval-print loop until EOF, `exit`, or an
// errexit teardown in a non-interactive run, and returns the status
// the shell process should exit with: on EOF, the status of the last
// command run; otherwise the exit code set by the `exit` builtin or
// the last command run.
func (r *REPL) Run(ctx context.Context) int {
	for {
		// Background jobs that finished since the last prompt are
		// reported once, then gone from `jobs`.
		for _, note := range r.Runner.Jobs.DrainNotices() {
			fmt.Fprintln(r.Out, note)
		}

		fmt.Fprint(r.Out, r.prompt())

		var line string
		var ok bool
		select {
		case line, ok = <-r.lines:
			if !ok {
				fmt.Fprintln(r.Out)
				return r.Runner.LastStatus()
			}
		case <-r.intCh:
			fmt.Fprintln(r.Out)
			continue
		}

		r.Runner.Hist.Add(line)

		if r.Runner.Opts.Verbose {
			fmt.Fprintln(r.Out, line)
		}

		node, err := parser.Parse(line, r)
		if err != nil {
			fmt.Fprintf(r.Out, "razzshell: %s\n", err)
			continue
		}
		if node == nil {
			continue
		}

		status := r.Runner.Run(ctx, node)
		ast.Free(node)

		if r.Runner.Exited() {
			return r.Runner.ExitCode()
		}

		if r.Runner.Opts.ErrExit && status != 0 && !r.interactive {
			return status
		}
	}
}
