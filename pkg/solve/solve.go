// Package solve decides formulas with a SAT solver.
//
// Sign atoms become boolean variables. Each symbolic constant gets a one-hot choice over a finite
// domain: the constants of its type that the formula mentions, plus one placeholder value per
// symbolic constant of that type. The placeholders stand for "some value not mentioned", which is
// enough to satisfy any disequality the formula can express.
package solve

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/formula"
	"github.com/duynguyendang/symlog/pkg/program"
)

// Status is the verdict of a satisfiability check.
type Status string

const (
	Sat   Status = "sat"
	Unsat Status = "unsat"
)

// Model is a satisfying assignment.
type Model struct {
	// Signs maps sign names, e.g. r("a", "b")., to their truth.
	Signs map[string]bool `json:"signs,omitempty"`
	// Values maps symbolic constant names to a value. Values starting with "*" are placeholders
	// for a value the formula does not mention.
	Values map[string]string `json:"values,omitempty"`
}

// Outcome is the result of Check.
type Outcome struct {
	Status Status `json:"status"`
	// Valid is set when the formula holds under every assignment.
	Valid bool   `json:"valid"`
	Model *Model `json:"model,omitempty"`
}

// ErrUnknown is returned when the solver gives up.
var ErrUnknown = errors.New("solver returned unknown")

type choice struct {
	value program.Arg
	label string
	lit   z.Lit
}

type encoder struct {
	c       *logic.C
	signs   map[string]z.Lit
	names   map[string]string
	choices map[string][]choice
	domain  []z.Lit
}

// Check decides whether f is satisfiable and whether it is valid.
func Check(f formula.Formula) (Outcome, error) {
	switch {
	case f.IsTrue():
		return Outcome{Status: Sat, Valid: true, Model: &Model{}}, nil
	case f.IsFalse():
		return Outcome{Status: Unsat}, nil
	}

	enc := newEncoder(f)
	root := enc.formula(f)
	wellFormed := enc.c.Ands(enc.domain...)

	sat, model, err := enc.solve(enc.c.And(wellFormed, root))
	if err != nil {
		return Outcome{}, err
	}
	if !sat {
		return Outcome{Status: Unsat}, nil
	}
	refuted, _, err := enc.solve(enc.c.And(wellFormed, root.Not()))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: Sat, Valid: !refuted, Model: model}, nil
}

func newEncoder(f formula.Formula) *encoder {
	enc := &encoder{
		c:       logic.NewC(),
		signs:   make(map[string]z.Lit),
		names:   make(map[string]string),
		choices: make(map[string][]choice),
	}

	symbols := make(map[string]program.Arg)
	var constants []program.Arg
	seenConst := make(map[program.Arg]bool)
	addValue := func(a program.Arg) {
		switch {
		case a.IsSymbolic():
			symbols[a.Name()] = a
		case a.IsConstant() && !seenConst[a]:
			seenConst[a] = true
			constants = append(constants, a)
		}
	}
	for _, a := range f.Atoms() {
		if a.Kind() == formula.AtomSign {
			enc.signs[a.Key()] = enc.c.Lit()
			enc.names[a.Key()] = a.SignName()
			continue
		}
		addValue(a.Left())
		addValue(a.Right())
	}

	names := make([]string, 0, len(symbols))
	for n := range symbols {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		sym := symbols[n]
		var opts []choice
		for _, v := range constants {
			if sym.Type() == program.TypeUnknown || v.Type() == sym.Type() {
				opts = append(opts, choice{value: v, label: v.Display()})
			}
		}
		// One placeholder per symbolic constant of a compatible type.
		for i, other := range names {
			if sym.Type() == program.TypeUnknown || symbols[other].Type() == program.TypeUnknown || symbols[other].Type() == sym.Type() {
				opts = append(opts, choice{label: "*" + strconv.Itoa(i)})
			}
		}
		lits := make([]z.Lit, len(opts))
		for i := range opts {
			opts[i].lit = enc.c.Lit()
			lits[i] = opts[i].lit
		}
		enc.choices[n] = opts
		enc.domain = append(enc.domain, enc.exactlyOne(lits))
	}
	return enc
}

func (e *encoder) exactlyOne(lits []z.Lit) z.Lit {
	parts := []z.Lit{e.c.Ors(lits...)}
	for i := range lits {
		for j := i + 1; j < len(lits); j++ {
			parts = append(parts, e.c.And(lits[i], lits[j]).Not())
		}
	}
	return e.c.Ands(parts...)
}

func (e *encoder) formula(f formula.Formula) z.Lit {
	var terms []z.Lit
	for _, m := range f.Monomials() {
		conj := make([]z.Lit, 0, len(m))
		for _, a := range m {
			conj = append(conj, e.atom(a))
		}
		terms = append(terms, e.c.Ands(conj...))
	}
	return e.c.Ors(terms...)
}

func (e *encoder) atom(a formula.Atom) z.Lit {
	if a.Kind() == formula.AtomSign {
		return e.signs[a.Key()]
	}
	left := e.choices[a.Left().Name()]
	right := a.Right()
	if !right.IsSymbolic() {
		for _, ch := range left {
			if ch.value.IsConstant() && ch.value == right {
				return ch.lit
			}
		}
		return e.c.F
	}
	// Two symbolic constants are equal when they pick the same domain element.
	var same []z.Lit
	for _, l := range left {
		for _, r := range e.choices[right.Name()] {
			if l.label == r.label {
				same = append(same, e.c.And(l.lit, r.lit))
			}
		}
	}
	return e.c.Ors(same...)
}

func (e *encoder) solve(root z.Lit) (bool, *Model, error) {
	g := gini.New()
	e.c.ToCnf(g)
	g.Assume(root)
	switch g.Solve() {
	case 1:
		return true, e.model(g), nil
	case -1:
		return false, nil, nil
	default:
		return false, nil, ErrUnknown
	}
}

func (e *encoder) model(g *gini.Gini) *Model {
	m := &Model{Signs: make(map[string]bool), Values: make(map[string]string)}
	for key, lit := range e.signs {
		m.Signs[e.names[key]] = g.Value(lit)
	}
	for name, opts := range e.choices {
		for _, ch := range opts {
			if g.Value(ch.lit) {
				m.Values[name] = ch.label
				break
			}
		}
	}
	return m
}

// String renders the outcome on one line.
func (o Outcome) String() string {
	if o.Status == Unsat {
		return "unsat"
	}
	s := "sat"
	if o.Valid {
		s += " (valid)"
	}
	if o.Model == nil {
		return s
	}
	var parts []string
	for _, k := range sortedKeys(o.Model.Values) {
		parts = append(parts, fmt.Sprintf("$%s = %s", k, o.Model.Values[k]))
	}
	for _, k := range sortedKeys(o.Model.Signs) {
		parts = append(parts, fmt.Sprintf("%s %t", k, o.Model.Signs[k]))
	}
	for i, p := range parts {
		if i == 0 {
			s += ": "
		} else {
			s += ", "
		}
		s += p
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
