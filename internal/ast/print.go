package ast

import "strings"

// Print renders a tree back to RazzShell source text that the parser
// accepts, so print-then-parse reproduces the tree. Two lossy corners:
// a here-document redirection prints as its operator and delimiter
// only (the captured body lives on following input lines, which a
// single-line rendering cannot carry), and a negated pipeline's "!"
// prefix is display-only since "!" is not an operator the lexer
// recognizes.
func Print(n Node) string {
	switch v := n.(type) {
	case *Command:
		parts := make([]string, 0, len(v.Assignments)+len(v.Argv)+len(v.Redirs))
		for _, a := range v.Assignments {
			parts = append(parts, a.Name+"="+a.Value)
		}
		parts = append(parts, v.Argv...)
		for _, rd := range v.Redirs {
			parts = append(parts, rd.Kind.String()+" "+rd.Target)
		}
		s := strings.Join(parts, " ")
		if v.Background {
			s += " &"
		}
		return s
	case *Pipeline:
		stages := make([]string, len(v.Stages))
		for i, st := range v.Stages {
			stages[i] = Print(st)
		}
		s := strings.Join(stages, " | ")
		if v.Negated {
			s = "! " + s
		}
		return s
	case *List:
		children := make([]string, len(v.Children))
		for i, c := range v.Children {
			children[i] = Print(c)
		}
		return strings.Join(children, "; ")
	case *AndList:
		return Print(v.Left) + " && " + Print(v.Right)
	case *OrList:
		return Print(v.Left) + " || " + Print(v.Right)
	case *Subshell:
		return "(" + Print(v.Body) + ")"
	case *Assignment:
		return v.Name + "=" + v.Value
	case *Test:
		return "[[ " + strings.Join(v.Tokens, " ") + " ]]"
	case *Heredoc:
		op := "<<"
		if v.Strip {
			op = "<<-"
		}
		return op + " " + v.Delim
	case *Redirect:
		return v.Kind.String() + " " + v.Target
	}
	return ""
}
