// Package parser implements the RazzShell recursive-descent parser:
// tokens in, an ast.Node out.
package parser

import (
	"fmt"

	"github.com/razzshell/razzshell/internal/ast"
	"github.com/razzshell/razzshell/internal/lexer"
	"github.com/razzshell/razzshell/internal/token"
)

// LineSource supplies additional raw source lines on demand, used only
// to collect here-document bodies, which are declared by an operator
// on one line but whose content follows on subsequent lines up to the
// delimiter. Heredoc bodies are captured at parse time rather than
// deferred to execution.
type LineSource interface {
	// NextLine returns the next raw line (without its trailing
	// newline) and true, or "", false at end of input.
	NextLine() (string, bool)
}

// Error is a single parse diagnostic. The parser stops and returns
// nil, err on the first error, so callers only ever see one.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Parser is a recursive-descent parser with two-token lookahead.
type Parser struct {
	src  string
	toks []token.Token
	i    int // index of current token

	lines LineSource
}

// New creates a Parser over a single line of source. lines may be nil
// if the caller's grammar never needs a heredoc body (e.g. unit tests
// of non-heredoc constructs); a nil LineSource turns an attempted
// heredoc capture into a parse error instead of a panic.
func New(line string, lines LineSource) *Parser {
	return &Parser{src: line, toks: lexer.All(line), lines: lines}
}

func (p *Parser) current() token.Token { return p.toks[p.i] }

func (p *Parser) peek() token.Token {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1] // EOF/ERROR sentinel
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.i]
	if p.i+1 < len(p.toks) {
		p.i++
	}
	return t
}

func (p *Parser) errf(format string, args ...any) error {
	return &Error{Pos: p.current().Pos, Msg: fmt.Sprintf(format, args...)}
}

// skipNewlines consumes any run of NEWLINE tokens; the grammar
// otherwise never mentions NEWLINE because a Parser is constructed
// over one line at a time, but a trailing newline token is harmless to
// tolerate.
func (p *Parser) skipNewlines() {
	for p.current().Kind == token.NEWLINE {
		p.advance()
	}
}

// Parse parses a full line into a single AST root, or returns an error
// if the line contains a syntax error. A line yielding only whitespace
// (lexes straight to EOF) returns (nil, nil); the REPL should skip it.
func Parse(line string, lines LineSource) (ast.Node, error) {
	p := New(line, lines)
	n, err := p.parseLine()
	if err != nil {
		return nil, err
	}
	if p.current().Kind != token.EOF {
		return nil, p.errf("unexpected token %s %q", p.current().Kind, p.current().Lexeme)
	}
	return n, nil
}

// parseLine parses `pipeline { (';' | '&&' | '||') pipeline }`. It
// stops at EOF or at a ')' closing an enclosing subshell, leaving the
// paren for the caller.
func (p *Parser) parseLine() (ast.Node, error) {
	p.skipNewlines()
	if p.current().Kind == token.EOF {
		return nil, nil
	}
	if p.current().Kind == token.ERROR {
		return nil, p.errf("%s", p.current().Lexeme)
	}

	left, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().Kind {
		case token.SEMICOLON:
			p.advance()
			for p.current().Kind == token.SEMICOLON {
				p.advance() // coalesce consecutive ';'
			}
			p.skipNewlines()
			if p.current().Kind == token.EOF || p.current().Kind == token.RPAREN {
				return left, nil // trailing ';' is benign
			}
			right, err := p.parsePipeline()
			if err != nil {
				return nil, err
			}
			left = appendList(left, right)
		case token.AND:
			p.advance()
			p.skipNewlines()
			right, err := p.parsePipeline()
			if err != nil {
				return nil, err
			}
			left = &ast.AndList{Left: left, Right: right}
		case token.OR:
			p.advance()
			p.skipNewlines()
			right, err := p.parsePipeline()
			if err != nil {
				return nil, err
			}
			left = &ast.OrList{Left: left, Right: right}
		case token.EOF, token.RPAREN:
			return left, nil
		default:
			return nil, p.errf("unexpected token %s %q", p.current().Kind, p.current().Lexeme)
		}
	}
}

// appendList builds a flat LIST node pairwise: a; b; c becomes one LIST
// with both children folded in when the left side is already a List,
// rather than nesting Lists inside Lists. Execution order is
// left-to-right either way.
func appendList(left, right ast.Node) ast.Node {
	if l, ok := left.(*ast.List); ok {
		l.Children = append(l.Children, right)
		return l
	}
	return &ast.List{Children: []ast.Node{left, right}}
}

// parsePipeline parses `command { '|' command } ['&']`. '|' binds
// tighter than the line-level operators ';', '&&', and '||'.
func (p *Parser) parsePipeline() (ast.Node, error) {
	first, err := p.parseCommand()
	if err != nil {
		return nil, err
	}

	var stages []ast.Stage
	if cmd, ok := first.(ast.Stage); ok {
		stages = append(stages, cmd)
	} else {
		// TEST and ASSIGNMENT nodes cannot be pipeline stages; a bare
		// one stands alone and a following '|' is a syntax error.
		if p.current().Kind == token.PIPE {
			return nil, p.errf("unexpected '|' after non-command node")
		}
		return p.maybeBackground(first), nil
	}

	for p.current().Kind == token.PIPE {
		p.advance()
		p.skipNewlines()
		next, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		cmd, ok := next.(ast.Stage)
		if !ok {
			return nil, p.errf("only commands and subshells may appear in a pipeline")
		}
		stages = append(stages, cmd)
	}

	var result ast.Node
	if len(stages) == 1 {
		result = stages[0]
	} else {
		result = ast.NewPipeline(stages)
	}
	return p.maybeBackground(result), nil
}

// maybeBackground consumes a trailing '&' and marks the rightmost
// command of result as backgrounded. For a lone Command this is the
// command itself; for a Pipeline, this implementation marks the last
// stage, since the Background flag lives on Command rather than on
// Pipeline itself.
func (p *Parser) maybeBackground(result ast.Node) ast.Node {
	if p.current().Kind != token.BACKGROUND {
		return result
	}
	p.advance()
	switch v := result.(type) {
	case *ast.Command:
		v.Background = true
	case *ast.Pipeline:
		if len(v.Stages) > 0 {
			if last, ok := v.Stages[len(v.Stages)-1].(*ast.Command); ok {
				last.Background = true
			}
		}
	}
	return result
}

// parseCommand parses `subshell | test | assignment | simple`.
func (p *Parser) parseCommand() (ast.Node, error) {
	switch p.current().Kind {
	case token.LPAREN:
		return p.parseSubshell()
	case token.DBLBRACKET_L:
		return p.parseTest()
	}
	return p.parseSimple()
}

func (p *Parser) parseSubshell() (ast.Node, error) {
	p.advance() // (
	p.skipNewlines()
	body, err := p.parseLine()
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, p.errf("empty subshell body")
	}
	if p.current().Kind != token.RPAREN {
		return nil, p.errf("expected ')' to close subshell, got %s", p.current().Kind)
	}
	p.advance()
	return &ast.Subshell{Body: body}, nil
}

// parseTest consumes `[[ { any-token-except-']]' } ']]'` as an opaque
// token sequence: RazzShell does not interpret the contents at parse
// time, only at TEST-node evaluation in the executor. Adjacent token
// runs (e.g. `$a`, `!=`) are glued back into single operands.
func (p *Parser) parseTest() (ast.Node, error) {
	p.advance() // [[
	var toks []string
	for p.current().Kind != token.DBLBRACKET_R {
		switch p.current().Kind {
		case token.EOF:
			return nil, p.errf("unterminated '[[' test expression")
		case token.ERROR:
			return nil, p.errf("%s", p.current().Lexeme)
		}
		if isWordPiece(p.current().Kind) {
			w, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			toks = append(toks, w)
			continue
		}
		toks = append(toks, p.advance().Lexeme)
	}
	p.advance() // ]]
	return &ast.Test{Tokens: toks}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isAlpha := c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
		isDigit := c >= '0' && c <= '9'
		if i == 0 {
			if !isAlpha {
				return false
			}
			continue
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

// isWordPiece reports whether k can begin or extend a glued word: an
// unquoted `$NAME`, `$(...)`, backtick substitution, or `=` splits
// into operator tokens at the lexer, and the parser reassembles
// adjacent runs of these into the single argument string the executor
// expands.
func isWordPiece(k token.Kind) bool {
	switch k {
	case token.WORD, token.DOLLAR, token.SUBST_START, token.BACKTICK, token.ASSIGN:
		return true
	}
	return false
}

// parseWord consumes a maximal run of adjacent word pieces and returns
// the exact source text they span. Inside a `$(...)` or backtick
// substitution, tokens are consumed through the matching closer
// regardless of interior spacing, so `$(echo a b)` stays one word.
func (p *Parser) parseWord() (string, error) {
	start := p.current().Pos.Offset
	end := start
	for {
		t := p.current()
		if !isWordPiece(t.Kind) {
			break
		}
		if end != start && t.Pos.Offset != end {
			break // whitespace between pieces: a new word starts
		}
		switch t.Kind {
		case token.SUBST_START:
			p.advance()
			depth := 1
			end = t.Pos.Offset + len(t.Lexeme)
			for depth > 0 {
				u := p.current()
				switch u.Kind {
				case token.EOF:
					return "", p.errf("unterminated $( command substitution")
				case token.ERROR:
					return "", p.errf("%s", u.Lexeme)
				case token.SUBST_START, token.LPAREN:
					depth++
				case token.RPAREN:
					depth--
				}
				end = u.Pos.Offset + len(u.Lexeme)
				p.advance()
			}
		case token.BACKTICK:
			p.advance()
			end = t.Pos.Offset + len(t.Lexeme)
			for {
				u := p.current()
				if u.Kind == token.EOF {
					return "", p.errf("unterminated backtick command substitution")
				}
				if u.Kind == token.ERROR {
					return "", p.errf("%s", u.Lexeme)
				}
				end = u.Pos.Offset + len(u.Lexeme)
				p.advance()
				if u.Kind == token.BACKTICK {
					break
				}
			}
		default:
			end = t.Pos.Offset + len(t.Lexeme)
			p.advance()
		}
	}
	return p.src[start:end], nil
}

// parseSimple parses `WORD { WORD | redirection } [ '&' ]`, plus the
// leading-assignment extension: any number of WORD '=' [WORD] pairs
// may precede the command word. A leading assignment is only
// detectable by peek=='='; once the first non-assignment WORD appears,
// later WORD=WORD tokens are ordinary arguments.
func (p *Parser) parseSimple() (ast.Node, error) {
	var assigns []*ast.Assignment
	for p.current().Kind == token.WORD && p.peek().Kind == token.ASSIGN && isIdentifier(p.current().Lexeme) {
		a, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, a)
	}

	if !isWordPiece(p.current().Kind) {
		// A pure assignment command, e.g. `FOO=bar`, or several.
		switch len(assigns) {
		case 0:
			return nil, p.errf("expected a command word, got %s", p.current().Kind)
		case 1:
			return assigns[0], nil
		default:
			nodes := make([]ast.Node, len(assigns))
			for i, a := range assigns {
				nodes[i] = a
			}
			return &ast.List{Children: nodes}, nil
		}
	}

	first, err := p.parseWord()
	if err != nil {
		return nil, err
	}

	cmd := &ast.Command{Argv: []string{first}, Assignments: assigns}

	for {
		switch p.current().Kind {
		case token.REDIR_IN, token.REDIR_OUT, token.REDIR_APPEND, token.REDIR_ERR, token.REDIR_BOTH:
			r, err := p.parseRedirection()
			if err != nil {
				return nil, err
			}
			cmd.Redirs = append(cmd.Redirs, r)
			continue
		case token.HEREDOC, token.HEREDOC_STRIP:
			r, err := p.parseHeredoc()
			if err != nil {
				return nil, err
			}
			cmd.Redirs = append(cmd.Redirs, r)
			continue
		}
		if isWordPiece(p.current().Kind) {
			w, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			cmd.Argv = append(cmd.Argv, w)
			continue
		}
		return cmd, nil
	}
}

// parseAssignment parses `WORD '=' [ WORD ]`. The value must start
// immediately after the '=' to belong to the assignment; `FOO= bar`
// assigns the empty string and leaves `bar` as the command word.
func (p *Parser) parseAssignment() (*ast.Assignment, error) {
	name := p.advance().Lexeme
	if !isIdentifier(name) {
		return nil, p.errf("invalid assignment name %q", name)
	}
	eq := p.advance() // =
	value := ""
	if isWordPiece(p.current().Kind) && p.current().Pos.Offset == eq.Pos.Offset+len(eq.Lexeme) {
		v, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		value = v
	}
	return &ast.Assignment{Name: name, Value: value}, nil
}

func (p *Parser) parseRedirection() (*ast.Redirect, error) {
	op := p.advance()
	if !isWordPiece(p.current().Kind) {
		return nil, p.errf("expected a target word after %s", op.Kind)
	}
	target, err := p.parseWord()
	if err != nil {
		return nil, err
	}
	var kind ast.RedirKind
	switch op.Kind {
	case token.REDIR_IN:
		kind = ast.RedirInput
	case token.REDIR_OUT:
		kind = ast.RedirOutput
	case token.REDIR_APPEND:
		kind = ast.RedirAppend
	case token.REDIR_ERR:
		kind = ast.RedirError
	case token.REDIR_BOTH:
		kind = ast.RedirBoth
	}
	return &ast.Redirect{Kind: kind, Target: target}, nil
}

// parseHeredoc reads the delimiter word, then pulls lines from the
// Parser's LineSource until a line equal to the delimiter (after
// stripping leading tabs, if the '<<-' form was used). The body is
// stored verbatim; tab stripping of content lines happens when the
// executor feeds the body to the command.
func (p *Parser) parseHeredoc() (*ast.Redirect, error) {
	op := p.advance()
	if p.current().Kind != token.WORD {
		return nil, p.errf("expected a delimiter word after %s", op.Kind)
	}
	delim := p.advance().Lexeme
	strip := op.Kind == token.HEREDOC_STRIP

	if p.lines == nil {
		return nil, p.errf("here-document requires more input but no line source is configured")
	}

	var body []byte
	for {
		line, ok := p.lines.NextLine()
		if !ok {
			return nil, p.errf("unterminated here-document (delimiter %q not found)", delim)
		}
		compare := line
		if strip {
			compare = trimLeadingTabs(line)
		}
		if compare == delim {
			break
		}
		body = append(body, line...)
		body = append(body, '\n')
	}

	kind := ast.RedirHeredoc
	if strip {
		kind = ast.RedirHeredocStrip
	}
	return &ast.Redirect{Kind: kind, Target: delim, Content: string(body)}, nil
}

func trimLeadingTabs(s string) string {
	i := 0
	for i < len(s) && s[i] == '\t' {
		i++
	}
	return s[i:]
}
