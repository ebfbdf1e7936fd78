// Package program holds the immutable value types of a Datalog program whose facts may be
// partially unknown: typed constants, symbolic constants, variables, literals, rules and facts.
package program

import (
	"sort"
	"strings"
)

// Literal is a relation name applied to an ordered argument list, with a polarity.
type Literal struct {
	Name     string
	Args     []Arg
	Positive bool
}

// NewLiteral builds a positive literal.
func NewLiteral(name string, args ...Arg) Literal {
	return Literal{Name: name, Args: args, Positive: true}
}

func (l Literal) Arity() int { return len(l.Args) }

// IsGround reports whether every argument is a constant or a symbolic constant.
func (l Literal) IsGround() bool {
	for _, a := range l.Args {
		if !a.IsGround() {
			return false
		}
	}
	return true
}

// IsConcrete reports whether every argument is a concrete constant.
func (l Literal) IsConcrete() bool {
	for _, a := range l.Args {
		if !a.IsConstant() {
			return false
		}
	}
	return true
}

// Symbolics returns the symbolic constants of the literal in order of first appearance.
func (l Literal) Symbolics() []Arg {
	var out []Arg
	seen := make(map[string]bool)
	for _, a := range l.Args {
		if a.IsSymbolic() && !seen[a.name] {
			seen[a.name] = true
			out = append(out, a)
		}
	}
	return out
}

// Key returns the canonical key of the literal.
func (l Literal) Key() Key { return KeyOf(l.Name, l.Args) }

// Clone returns a literal with its own argument slice.
func (l Literal) Clone() Literal {
	args := make([]Arg, len(l.Args))
	copy(args, l.Args)
	return Literal{Name: l.Name, Args: args, Positive: l.Positive}
}

// String renders the literal in program syntax, e.g. r("a", X).
func (l Literal) String() string {
	return l.render(Arg.String)
}

// Display renders the literal without type annotations on symbolic constants.
func (l Literal) Display() string {
	return l.render(Arg.Display)
}

func (l Literal) render(arg func(Arg) string) string {
	var sb strings.Builder
	if !l.Positive {
		sb.WriteByte('!')
	}
	sb.WriteString(l.Name)
	sb.WriteByte('(')
	for i, a := range l.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg(a))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Rule is a head literal derived from a conjunction of body literals.
type Rule struct {
	Head Literal
	Body []Literal
}

// NewRule builds a rule.
func NewRule(head Literal, body ...Literal) Rule {
	return Rule{Head: head, Body: body}
}

// IsFact reports whether the rule has an empty body.
func (r Rule) IsFact() bool { return len(r.Body) == 0 }

// Literals returns the head followed by the body literals.
func (r Rule) Literals() []Literal {
	out := make([]Literal, 0, len(r.Body)+1)
	out = append(out, r.Head)
	return append(out, r.Body...)
}

// Variables returns the variables of the rule in order of first appearance.
func (r Rule) Variables() []Arg {
	var out []Arg
	seen := make(map[string]bool)
	for _, l := range r.Literals() {
		for _, a := range l.Args {
			if a.IsVariable() && !seen[a.name] {
				seen[a.name] = true
				out = append(out, a)
			}
		}
	}
	return out
}

func (r Rule) String() string {
	if r.IsFact() {
		return r.Head.String() + "."
	}
	parts := make([]string, len(r.Body))
	for i, b := range r.Body {
		parts[i] = b.String()
	}
	return r.Head.String() + " :- " + strings.Join(parts, ", ") + "."
}

// Fact is a ground or symbolically-ground assertion. When SymbolicSign is set the fact is not
// asserted; its truth is an unknown boolean.
type Fact struct {
	Head         Literal
	SymbolicSign bool
}

// NewFact builds an asserted fact.
func NewFact(name string, args ...Arg) Fact {
	return Fact{Head: NewLiteral(name, args...)}
}

// Signed wraps a fact so that its truth becomes a symbolic sign.
func Signed(f Fact) Fact {
	f.SymbolicSign = true
	return f
}

func (f Fact) Name() string { return f.Head.Name }
func (f Fact) Arity() int   { return f.Head.Arity() }
func (f Fact) Key() Key     { return f.Head.Key() }

// Rule returns the fact as a rule with an empty body.
func (f Fact) Rule() Rule { return Rule{Head: f.Head} }

func (f Fact) String() string {
	if f.SymbolicSign {
		return "?" + f.Head.String() + "."
	}
	return f.Head.String() + "."
}

// Program is a rule set together with a fact base.
type Program struct {
	Rules []Rule
	Facts []Fact
}

// Relations returns the sorted relation names used anywhere in the program.
func (p *Program) Relations() []string {
	seen := make(map[string]bool)
	for _, r := range p.Rules {
		for _, l := range r.Literals() {
			seen[l.Name] = true
		}
	}
	for _, f := range p.Facts {
		seen[f.Head.Name] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Append adds the rules and facts of other to p.
func (p *Program) Append(other *Program) {
	p.Rules = append(p.Rules, other.Rules...)
	p.Facts = append(p.Facts, other.Facts...)
}

// String renders the program: rules first, then facts.
func (p *Program) String() string {
	var sb strings.Builder
	for _, r := range p.Rules {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	for _, f := range p.Facts {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
