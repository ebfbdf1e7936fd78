package datalog

import (
	"fmt"
	"strings"

	"github.com/duynguyendang/symlog/pkg/program"
)

// Atom is one literal as written: a predicate applied to raw argument tokens. Quotes are kept so
// that callers can tell string constants from variables.
type Atom struct {
	Predicate string
	Args      []string
	Negated   bool
}

// Parse parses a query such as `t(X, "c"), r(X, Y)` into its atoms. A rule head before ":-", a
// leading "?" and a trailing "." are ignored.
func Parse(query string) ([]Atom, error) {
	query = strings.TrimSpace(stripComments(query))
	// Handle "Head :- Body" syntax by taking Body (ignore Head as it's just the Goal)
	if idx := indexOutsideQuotes(query, ":-"); idx != -1 {
		query = query[idx+2:]
	}
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ".")
	query = strings.TrimPrefix(query, "?")

	rawAtoms := SmartSplit(query)
	if len(rawAtoms) == 0 {
		return nil, fmt.Errorf("empty query")
	}

	var parsedAtoms []Atom
	for _, raw := range rawAtoms {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		atom, err := parseAtom(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse atom '%s': %w", raw, err)
		}
		parsedAtoms = append(parsedAtoms, atom)
	}
	if len(parsedAtoms) == 0 {
		return nil, fmt.Errorf("empty query")
	}
	return parsedAtoms, nil
}

// parseAtom parses "predicate(arg1, arg2, ...)", optionally prefixed by "!".
func parseAtom(s string) (Atom, error) {
	s = strings.TrimSpace(s)
	var atom Atom
	if strings.HasPrefix(s, "!") {
		atom.Negated = true
		s = strings.TrimSpace(s[1:])
	}

	start := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")
	if start == -1 || end == -1 || start >= end {
		return Atom{}, fmt.Errorf("expected format 'predicate(args...)' but got '%s'", s)
	}
	if rest := strings.TrimSpace(s[end+1:]); rest != "" {
		return Atom{}, fmt.Errorf("unexpected %q after ')'", rest)
	}

	atom.Predicate = strings.TrimSpace(s[:start])
	if !isIdentifier(atom.Predicate) {
		return Atom{}, fmt.Errorf("invalid predicate name %q", atom.Predicate)
	}

	body := strings.TrimSpace(s[start+1 : end])
	if body == "" {
		return atom, nil
	}
	for _, arg := range SmartSplit(body) {
		if arg == "" {
			return Atom{}, fmt.Errorf("empty argument in '%s'", s)
		}
		atom.Args = append(atom.Args, arg)
	}
	return atom, nil
}

// SmartSplit splits a string by comma, correctly handling quotes and parentheses.
// e.g. "a, b, 'c,d'" -> ["a", "b", "'c,d'"]
func SmartSplit(s string) []string {
	var results []string
	var current strings.Builder
	depth := 0
	inQuote := false
	escaped := false
	var quoteChar rune

	for _, r := range s {
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
		case '(':
			depth++
			current.WriteRune(r)
		case ')':
			depth--
			current.WriteRune(r)
		case ',':
			if depth == 0 {
				results = append(results, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		results = append(results, strings.TrimSpace(current.String()))
	}
	return results
}

// indexOutsideQuotes is strings.Index that skips quoted text.
func indexOutsideQuotes(s, sub string) int {
	inQuote := false
	escaped := false
	var quoteChar byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
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
		if c == '"' || c == '\'' {
			inQuote = true
			quoteChar = c
			continue
		}
		if strings.HasPrefix(s[i:], sub) {
			return i
		}
	}
	return -1
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Matches reports whether l is an instance of the atom. Variables in the atom match any argument;
// a variable repeated in the atom must match equal arguments.
func (a Atom) Matches(l program.Literal) bool {
	if a.Predicate != l.Name || len(a.Args) != len(l.Args) || a.Negated == l.Positive {
		return false
	}
	bound := make(map[string]program.Arg)
	for i, tok := range a.Args {
		want, err := parseArg(tok)
		if err != nil {
			return false
		}
		if !want.IsVariable() {
			if !want.SameEntity(l.Args[i]) {
				return false
			}
			continue
		}
		if strings.HasPrefix(want.Name(), "_") {
			continue
		}
		if prev, ok := bound[want.Name()]; ok && !prev.SameEntity(l.Args[i]) {
			return false
		}
		bound[want.Name()] = l.Args[i]
	}
	return true
}
