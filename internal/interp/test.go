package interp

import (
	"context"
	"os"
	"strconv"

	"github.com/razzshell/razzshell/internal/ast"
)

// execTest evaluates a TEST node's opaque token sequence: file
// predicates, string compares, and integer compares. Each operand is
// put through the same word expansion as a command argument before
// the operator is applied, so `[[ -f $f ]]` and `[[ $a = $b ]]` see
// expanded values.
//
// Supported forms, in this order of recognition:
//
//	-f|-d|-e|-r|-w|-x OPERAND
//	-z|-n OPERAND
//	OPERAND = OPERAND
//	OPERAND != OPERAND
//	OPERAND -eq|-ne|-lt|-le|-gt|-ge OPERAND
//
// Returns 0 for true, 1 for false, 2 for a malformed expression.
func (r *Runner) execTest(ctx context.Context, t *ast.Test) int {
	toks, err := r.expandTestTokens(ctx, t.Tokens)
	if err != nil {
		r.errf("razzshell: %s\n", err)
		return 2
	}

	switch len(toks) {
	case 2:
		return r.evalUnary(toks[0], toks[1])
	case 3:
		return r.evalBinary(toks[0], toks[1], toks[2])
	default:
		r.errf("razzshell: [[: malformed test expression\n")
		return 2
	}
}

func (r *Runner) expandTestTokens(ctx context.Context, toks []string) ([]string, error) {
	out := make([]string, len(toks))
	for i, tok := range toks {
		switch tok {
		case "-f", "-d", "-e", "-r", "-w", "-x", "-z", "-n",
			"=", "!=", "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
			out[i] = tok
			continue
		}
		v, err := r.expandWord(ctx, tok, r.Env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *Runner) evalUnary(op, operand string) int {
	switch op {
	case "-f":
		return boolStatus(fileIs(operand, func(fi os.FileInfo) bool { return fi.Mode().IsRegular() }))
	case "-d":
		return boolStatus(fileIs(operand, func(fi os.FileInfo) bool { return fi.IsDir() }))
	case "-e":
		_, err := os.Stat(operand)
		return boolStatus(err == nil)
	case "-r":
		return boolStatus(accessible(operand, os.O_RDONLY))
	case "-w":
		return boolStatus(accessible(operand, os.O_WRONLY))
	case "-x":
		return boolStatus(fileIs(operand, func(fi os.FileInfo) bool { return fi.Mode()&0o111 != 0 }))
	case "-z":
		return boolStatus(len(operand) == 0)
	case "-n":
		return boolStatus(len(operand) != 0)
	default:
		r.errf("razzshell: [[: unknown unary operator %q\n", op)
		return 2
	}
}

func (r *Runner) evalBinary(lhs, op, rhs string) int {
	switch op {
	case "=":
		return boolStatus(lhs == rhs)
	case "!=":
		return boolStatus(lhs != rhs)
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		l, lerr := strconv.Atoi(lhs)
		rr, rerr := strconv.Atoi(rhs)
		if lerr != nil || rerr != nil {
			r.errf("razzshell: [[: %s: integer expression expected\n", lhs)
			return 2
		}
		switch op {
		case "-eq":
			return boolStatus(l == rr)
		case "-ne":
			return boolStatus(l != rr)
		case "-lt":
			return boolStatus(l < rr)
		case "-le":
			return boolStatus(l <= rr)
		case "-gt":
			return boolStatus(l > rr)
		case "-ge":
			return boolStatus(l >= rr)
		}
	}
	r.errf("razzshell: [[: unknown binary operator %q\n", op)
	return 2
}

func boolStatus(b bool) int {
	if b {
		return 0
	}
	return 1
}

func fileIs(path string, pred func(os.FileInfo) bool) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return pred(fi)
}

// accessible is a best-effort permission probe: it opens the path with
// the requested access mode and immediately closes it, since Go has no
// portable access(2) wrapper in the standard library.
func accessible(path string, flag int) bool {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
