package interp

import (
	"fmt"
	"os"
	"strings"

	"github.com/razzshell/razzshell/internal/ast"
)

// openRedirects resolves a command's redirection list into the three
// file handles that should back stdin/stdout/stderr, applying them
// left-to-right so later redirections may dup over earlier ones. It
// returns the resolved files (nil meaning "leave as inherited") and a
// list of files the caller must close once the command finishes.
func (r *Runner) openRedirects(redirs []*ast.Redirect, inherit savedFDs) (result savedFDs, toClose []*os.File, err error) {
	result = inherit
	for _, rd := range redirs {
		switch rd.Kind {
		case ast.RedirInput:
			f, oerr := os.OpenFile(rd.Target, os.O_RDONLY, 0)
			if oerr != nil {
				return result, toClose, fmt.Errorf("%s: %w", rd.Target, oerr)
			}
			toClose = append(toClose, f)
			result.stdin = f
		case ast.RedirOutput:
			f, oerr := os.OpenFile(rd.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if oerr != nil {
				return result, toClose, fmt.Errorf("%s: %w", rd.Target, oerr)
			}
			toClose = append(toClose, f)
			result.stdout = f
		case ast.RedirAppend:
			f, oerr := os.OpenFile(rd.Target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if oerr != nil {
				return result, toClose, fmt.Errorf("%s: %w", rd.Target, oerr)
			}
			toClose = append(toClose, f)
			result.stdout = f
		case ast.RedirError:
			f, oerr := os.OpenFile(rd.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if oerr != nil {
				return result, toClose, fmt.Errorf("%s: %w", rd.Target, oerr)
			}
			toClose = append(toClose, f)
			result.stderr = f
		case ast.RedirBoth:
			f, oerr := os.OpenFile(rd.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if oerr != nil {
				return result, toClose, fmt.Errorf("%s: %w", rd.Target, oerr)
			}
			toClose = append(toClose, f)
			result.stdout = f
			result.stderr = f
		case ast.RedirHeredoc, ast.RedirHeredocStrip:
			content := rd.Content
			if rd.Kind == ast.RedirHeredocStrip {
				content = stripLeadingTabs(content)
			}
			f, werr := r.heredocPipe(content)
			if werr != nil {
				return result, toClose, werr
			}
			toClose = append(toClose, f)
			result.stdin = f
		}
	}
	return result, toClose, nil
}

// stripLeadingTabs removes leading tabs from every line of a <<-
// heredoc body as the content is fed to the command; the AST keeps
// the body verbatim.
func stripLeadingTabs(content string) string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, "\t")
	}
	return strings.Join(lines, "\n")
}

// heredocPipe writes content to the write end of a fresh OS pipe and
// returns the read end, which becomes the command's stdin.
func (r *Runner) heredocPipe(content string) (*os.File, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	go func() {
		defer pw.Close()
		pw.WriteString(content)
	}()
	return pr, nil
}

// pushFDs saves the runner's current stdio and installs the given
// overrides, for the duration of a single in-process builtin/plugin
// invocation. Fields left nil in next keep the current value; popFDs
// restores the saved set when the built-in returns.
func (r *Runner) pushFDs(next savedFDs) {
	r.fdStack = append(r.fdStack, savedFDs{stdin: r.Stdin, stdout: r.Stdout, stderr: r.Stderr})
	if next.stdin != nil {
		r.Stdin = next.stdin
	}
	if next.stdout != nil {
		r.Stdout = next.stdout
	}
	if next.stderr != nil {
		r.Stderr = next.stderr
	}
}

// popFDs restores the stdio saved by the most recent pushFDs.
func (r *Runner) popFDs() {
	n := len(r.fdStack)
	if n == 0 {
		return
	}
	saved := r.fdStack[n-1]
	r.fdStack = r.fdStack[:n-1]
	r.Stdin, r.Stdout, r.Stderr = saved.stdin, saved.stdout, saved.stderr
}
