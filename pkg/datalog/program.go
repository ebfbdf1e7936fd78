// Package datalog reads programs written in a Souffle-flavoured text syntax:
//
//	t(X, Z) :- r(X, Y), s(Y, Z).
//	r("a", "b").
//	?s("c", "d").          // the truth of s("c", "d") is unknown
//	r($alpha:symbol, "b"). # $alpha is an unknown string
//
// Numbers are 64-bit integers. Variables start with an upper-case letter or "_"; a bare "_" is a
// fresh variable at each occurrence. A "!" before a body literal negates it.
package datalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/program"
)

// ErrSyntax marks text that is not a valid program.
var ErrSyntax = errors.Wrap(errors.ErrInvalidInput, "syntax error")

// SyntaxError locates a parse failure.
type SyntaxError struct {
	Line   int
	Clause string
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Msg, e.Clause)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

type clause struct {
	text string
	line int
}

// ParseProgram parses a whole program. Clauses with ":-" become rules, all others facts.
func ParseProgram(src string) (*program.Program, error) {
	p := &program.Program{}
	for _, c := range splitClauses(src) {
		if err := parseClause(p, c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ParseFact parses a single fact; the trailing "." is optional.
func ParseFact(s string) (program.Fact, error) {
	clauses := splitClauses(s)
	if len(clauses) != 1 {
		return program.Fact{}, &SyntaxError{Line: 1, Clause: strings.TrimSpace(s), Msg: "expected exactly one fact"}
	}
	p := &program.Program{}
	if err := parseClause(p, clauses[0]); err != nil {
		return program.Fact{}, err
	}
	if len(p.Facts) != 1 {
		return program.Fact{}, &SyntaxError{Line: clauses[0].line, Clause: clauses[0].text, Msg: "expected a fact, got a rule"}
	}
	return p.Facts[0], nil
}

// ParseTargets parses a list of concrete facts separated by commas, periods or newlines.
func ParseTargets(s string) ([]program.Fact, error) {
	var out []program.Fact
	for _, c := range splitClauses(s) {
		for _, raw := range SmartSplit(c.text) {
			f, err := factFromText(raw, c.line)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func parseClause(p *program.Program, c clause) error {
	text := c.text
	if idx := indexOutsideQuotes(text, ":-"); idx != -1 {
		head, err := parseLiteral(text[:idx], c, nil)
		if err != nil {
			return err
		}
		if !head.Positive {
			return &SyntaxError{Line: c.line, Clause: text, Msg: "rule head cannot be negated"}
		}
		anon := 0
		var body []program.Literal
		for _, raw := range SmartSplit(text[idx+2:]) {
			l, err := parseLiteral(raw, c, &anon)
			if err != nil {
				return err
			}
			body = append(body, l)
		}
		if len(body) == 0 {
			return &SyntaxError{Line: c.line, Clause: text, Msg: "rule has an empty body"}
		}
		p.Rules = append(p.Rules, program.NewRule(head, body...))
		return nil
	}

	f, err := factFromText(text, c.line)
	if err != nil {
		return err
	}
	p.Facts = append(p.Facts, f)
	return nil
}

func factFromText(text string, line int) (program.Fact, error) {
	text = strings.TrimSpace(text)
	signed := strings.HasPrefix(text, "?")
	if signed {
		text = strings.TrimSpace(text[1:])
	}
	c := clause{text: text, line: line}
	head, err := parseLiteral(text, c, nil)
	if err != nil {
		return program.Fact{}, err
	}
	if !head.Positive {
		return program.Fact{}, &SyntaxError{Line: line, Clause: text, Msg: "facts cannot be negated"}
	}
	for _, a := range head.Args {
		if a.IsVariable() {
			return program.Fact{}, &SyntaxError{Line: line, Clause: text, Msg: "variable " + a.Name() + " in a fact"}
		}
	}
	f := program.Fact{Head: head}
	if signed {
		f = program.Signed(f)
	}
	return f, nil
}

// parseLiteral converts one atom. anon numbers the "_" variables of a rule body; nil rejects them.
func parseLiteral(raw string, c clause, anon *int) (program.Literal, error) {
	atom, err := parseAtom(raw)
	if err != nil {
		return program.Literal{}, &SyntaxError{Line: c.line, Clause: c.text, Msg: err.Error()}
	}
	l := program.Literal{Name: atom.Predicate, Positive: !atom.Negated, Args: make([]program.Arg, len(atom.Args))}
	for i, tok := range atom.Args {
		if tok == "_" {
			if anon == nil {
				return program.Literal{}, &SyntaxError{Line: c.line, Clause: c.text, Msg: "anonymous variable outside a rule body"}
			}
			*anon++
			l.Args[i] = program.Anonymous(*anon)
			continue
		}
		arg, err := parseArg(tok)
		if err != nil {
			return program.Literal{}, &SyntaxError{Line: c.line, Clause: c.text, Msg: err.Error()}
		}
		l.Args[i] = arg
	}
	return l, nil
}

func parseArg(tok string) (program.Arg, error) {
	tok = strings.TrimSpace(tok)
	switch {
	case tok == "":
		return program.Arg{}, fmt.Errorf("empty argument")
	case tok[0] == '"':
		s, err := strconv.Unquote(tok)
		if err != nil {
			return program.Arg{}, fmt.Errorf("bad string literal %s", tok)
		}
		return program.String(s), nil
	case tok[0] == '\'':
		if len(tok) < 2 || tok[len(tok)-1] != '\'' {
			return program.Arg{}, fmt.Errorf("bad string literal %s", tok)
		}
		return program.String(tok[1 : len(tok)-1]), nil
	case tok[0] == '$':
		return parseSymbolic(tok[1:])
	case tok[0] == '-' || unicode.IsDigit(rune(tok[0])):
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return program.Arg{}, fmt.Errorf("bad number %s", tok)
		}
		return program.Number(n), nil
	case isIdentifier(tok) && (tok[0] == '_' || unicode.IsUpper(rune(tok[0]))):
		return program.Variable(tok), nil
	default:
		return program.Arg{}, fmt.Errorf("unexpected argument %s (strings must be quoted, variables capitalised)", tok)
	}
}

// parseSymbolic parses "name" or "name:type". The type defaults to symbol.
func parseSymbolic(s string) (program.Arg, error) {
	name, typ, hasType := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !isIdentifier(name) {
		return program.Arg{}, fmt.Errorf("invalid symbolic constant name %q", name)
	}
	t := program.TypeSymbol
	if hasType {
		var err error
		if t, err = program.ParseType(strings.TrimSpace(typ)); err != nil {
			return program.Arg{}, fmt.Errorf("symbolic constant $%s: unknown type %q", name, strings.TrimSpace(typ))
		}
	}
	return program.Symbolic(name, t), nil
}

// splitClauses strips comments and splits src at every "." outside quotes. A final clause without
// a terminating "." is kept.
func splitClauses(src string) []clause {
	src = stripComments(src)
	var out []clause
	var current strings.Builder
	line, start := 1, 1
	started := false
	inQuote := false
	escaped := false
	var quoteChar rune

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			out = append(out, clause{text: text, line: start})
		}
		current.Reset()
		started = false
	}

	for _, r := range src {
		if r == '\n' {
			line++
		}
		if !started && !unicode.IsSpace(r) {
			start, started = line, true
		}
		if inQuote {
			current.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quoteChar:
				inQuote = false
			}
			continue
		}
		switch r {
		case '"', '\'':
			inQuote = true
			quoteChar = r
			current.WriteRune(r)
		case '.':
			flush()
		case '\n':
			current.WriteRune(' ')
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return out
}

// stripComments removes "//" and "#" comments that are not inside a string.
func stripComments(src string) string {
	var sb strings.Builder
	inQuote := false
	escaped := false
	inComment := false
	var quoteChar byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inComment {
			if c == '\n' {
				inComment = false
				sb.WriteByte(c)
			}
			continue
		}
		if inQuote {
			sb.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quoteChar:
				inQuote = false
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			inQuote = true
			quoteChar = c
			sb.WriteByte(c)
		case c == '#' || (c == '/' && i+1 < len(src) && src[i+1] == '/'):
			inComment = true
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
