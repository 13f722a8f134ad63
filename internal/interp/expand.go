package interp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/razzshell/razzshell/internal/ast"
	"github.com/razzshell/razzshell/internal/parser"
)

// expandWords applies the full word-expansion order to every word in
// argv, using env as the lookup table for parameter expansion (the
// overlay produced by pre-command assignments, not necessarily r.Env
// itself).
func (r *Runner) expandWords(ctx context.Context, argv []string, env map[string]string) ([]string, error) {
	out := make([]string, 0, len(argv))
	for _, w := range argv {
		ex, err := r.expandWord(ctx, w, env)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

// expandAssignments expands each pre-command assignment's value the
// same way a command argument is expanded, returning fresh nodes so
// the AST keeps its unexpanded source text.
func (r *Runner) expandAssignments(ctx context.Context, as []*ast.Assignment) ([]*ast.Assignment, error) {
	if len(as) == 0 {
		return as, nil
	}
	out := make([]*ast.Assignment, len(as))
	for i, a := range as {
		v, err := r.expandWord(ctx, a.Value, r.Env)
		if err != nil {
			return nil, err
		}
		out[i] = &ast.Assignment{Name: a.Name, Value: v}
	}
	return out, nil
}

// expandWord performs, in order: tilde expansion on the word's first
// segment, parameter expansion, command substitution (recursing into
// the same executor), escape processing, and quote removal. Field
// splitting does not apply because words arrive already tokenized by
// the lexer.
func (r *Runner) expandWord(ctx context.Context, w string, env map[string]string) (string, error) {
	w = expandTilde(w, env)

	var out strings.Builder
	i := 0
	for i < len(w) {
		c := w[i]
		switch c {
		case '\'':
			j := i + 1
			for j < len(w) && !(w[j] == '\'' && (j == i+1 || w[j-1] != '\\')) {
				j++
			}
			// Unescape the \' embed-quote mechanism within the literal
			// segment; everything else in single quotes is verbatim.
			seg := w[i+1 : min(j, len(w))]
			out.WriteString(strings.ReplaceAll(seg, `\'`, `'`))
			i = j + 1
		case '"':
			j, text, err := r.expandDouble(ctx, w, i+1, env)
			if err != nil {
				return "", err
			}
			out.WriteString(text)
			i = j + 1
		case '$':
			consumed, text, err := r.expandDollar(ctx, w, i, env)
			if err != nil {
				return "", err
			}
			out.WriteString(text)
			i += consumed
		case '`':
			j, text, err := r.expandBacktick(ctx, w, i+1)
			if err != nil {
				return "", err
			}
			out.WriteString(text)
			i = j + 1
		case '\\':
			if i+1 < len(w) {
				out.WriteByte(w[i+1])
				i += 2
			} else {
				out.WriteByte('\\')
				i++
			}
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// expandTilde replaces a leading bare "~" with $HOME, only when it is
// the word's very first character and is either the whole word or
// immediately followed by '/'.
func expandTilde(w string, env map[string]string) string {
	if len(w) == 0 || w[0] != '~' {
		return w
	}
	if len(w) > 1 && w[1] != '/' {
		return w
	}
	home := env["HOME"]
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return home + w[1:]
}

// expandDouble processes the contents of a double-quoted segment
// starting just after the opening quote, honoring \\, \$, \`, \" as
// escapes and $ / ` as expansion triggers, until the matching
// unescaped closing quote. Returns the index of the closing quote.
func (r *Runner) expandDouble(ctx context.Context, w string, start int, env map[string]string) (int, string, error) {
	var out strings.Builder
	i := start
	for i < len(w) {
		c := w[i]
		if c == '"' {
			return i, out.String(), nil
		}
		if c == '\\' && i+1 < len(w) {
			switch w[i+1] {
			case '\\', '$', '`', '"':
				out.WriteByte(w[i+1])
				i += 2
				continue
			}
		}
		if c == '$' {
			consumed, text, err := r.expandDollar(ctx, w, i, env)
			if err != nil {
				return 0, "", err
			}
			out.WriteString(text)
			i += consumed
			continue
		}
		if c == '`' {
			j, text, err := r.expandBacktick(ctx, w, i+1)
			if err != nil {
				return 0, "", err
			}
			out.WriteString(text)
			i = j + 1
			continue
		}
		out.WriteByte(c)
		i++
	}
	return i, out.String(), fmt.Errorf("razzshell: unterminated double quote")
}

// expandDollar expands a parameter or $(...) command substitution
// starting at the '$' byte in w[i]. It returns how many bytes of w
// were consumed and the expanded text.
func (r *Runner) expandDollar(ctx context.Context, w string, i int, env map[string]string) (int, string, error) {
	if i+1 >= len(w) {
		return 1, "$", nil
	}
	switch {
	case w[i+1] == '(':
		end, inner, ok := scanBalancedParens(w, i+2)
		if !ok {
			return 0, "", fmt.Errorf("razzshell: unterminated $( command substitution")
		}
		out, err := r.captureCommandSubst(ctx, inner)
		if err != nil {
			return 0, "", err
		}
		return end + 1 - i, out, nil
	case w[i+1] == '{':
		j := i + 2
		for j < len(w) && w[j] != '}' {
			j++
		}
		if j >= len(w) {
			return 0, "", fmt.Errorf("razzshell: unterminated ${ parameter expansion")
		}
		name := w[i+2 : j]
		val, err := r.lookupParam(name, env)
		if err != nil {
			return 0, "", err
		}
		return j + 1 - i, val, nil
	case isIdentStart(w[i+1]):
		j := i + 1
		for j < len(w) && isIdentCont(w[j]) {
			j++
		}
		name := w[i+1 : j]
		val, err := r.lookupParam(name, env)
		if err != nil {
			return 0, "", err
		}
		return j - i, val, nil
	default:
		return 1, "$", nil
	}
}

func (r *Runner) lookupParam(name string, env map[string]string) (string, error) {
	val, ok := env[name]
	if !ok {
		if r.Opts.NoUnset {
			return "", fmt.Errorf("razzshell: %s: unbound variable", name)
		}
		return "", nil
	}
	return val, nil
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// scanBalancedParens scans w starting at start (the byte right after
// "$(") for the matching ')', accounting for nested parens. Returns
// the index of the matching ')' and the content between.
func scanBalancedParens(w string, start int) (end int, content string, ok bool) {
	depth := 1
	i := start
	for i < len(w) {
		switch w[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, w[start:i], true
			}
		}
		i++
	}
	return 0, "", false
}

// expandBacktick scans for the matching unescaped backtick starting at
// start, executes the enclosed text as a command substitution, and
// returns the closing backtick's index.
func (r *Runner) expandBacktick(ctx context.Context, w string, start int) (int, string, error) {
	i := start
	for i < len(w) {
		if w[i] == '\\' && i+1 < len(w) && w[i+1] == '`' {
			i += 2
			continue
		}
		if w[i] == '`' {
			inner := strings.ReplaceAll(w[start:i], "\\`", "`")
			out, err := r.captureCommandSubst(ctx, inner)
			return i, out, err
		}
		i++
	}
	return 0, "", fmt.Errorf("razzshell: unterminated backtick command substitution")
}

// captureCommandSubst lexes, parses, and runs src as a full line
// against a clone of the current interpreter state, capturing its
// stdout and trimming trailing newlines.
func (r *Runner) captureCommandSubst(ctx context.Context, src string) (string, error) {
	n, err := parser.Parse(src, nil)
	if err != nil {
		return "", err
	}
	if n == nil {
		return "", nil
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return "", err
	}

	clone := r.clone()
	clone.Stdout = pw

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		buf.ReadFrom(pr)
		close(done)
	}()

	clone.execNode(ctx, n)
	pw.Close()
	<-done
	pr.Close()

	return strings.TrimRight(buf.String(), "\n"), nil
}
