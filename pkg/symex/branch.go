package symex

import (
	"github.com/duynguyendang/symlog/pkg/formula"
	"github.com/duynguyendang/symlog/pkg/program"
)

// candidate is a fact a body literal may match: a base fact, or a fact derived during saturation.
type candidate struct {
	fact program.Fact
	cond formula.Formula
}

func baseCandidate(f program.Fact) candidate {
	c := candidate{fact: f, cond: formula.True()}
	if f.SymbolicSign {
		c.cond = formula.Sign(f.Head)
	}
	return c
}

type pin struct {
	sym program.Arg
	val program.Arg
}

// branch accumulates one partial derivation: variable bindings, symbolic constants pinned to
// concrete values, equalities between symbolic constants and the conditions of the facts used.
type branch struct {
	bindings program.Bindings
	pins     map[string]pin
	links    []formula.Formula
	conds    []formula.Formula
	support  []program.Fact
}

func newBranch() *branch {
	return &branch{bindings: make(program.Bindings), pins: make(map[string]pin)}
}

func (b *branch) clone() *branch {
	pins := make(map[string]pin, len(b.pins)+1)
	for k, v := range b.pins {
		pins[k] = v
	}
	return &branch{
		bindings: b.bindings.Clone(),
		pins:     pins,
		links:    append([]formula.Formula(nil), b.links...),
		conds:    append([]formula.Formula(nil), b.conds...),
		support:  append([]program.Fact(nil), b.support...),
	}
}

// resolve reads a through the variable bindings and the pinned symbolic constants.
func (b *branch) resolve(a program.Arg) program.Arg {
	if a.IsVariable() {
		v, ok := b.bindings[a.Name()]
		if !ok {
			return a
		}
		a = v
	}
	if a.IsSymbolic() {
		if p, ok := b.pins[a.Name()]; ok {
			return p.val
		}
	}
	return a
}

// unify matches want (from a rule or a target) against got (from a candidate fact). It reports
// false when the pair can never be equal; otherwise the branch records what the match requires.
func (b *branch) unify(want, got program.Arg) bool {
	got = b.resolve(got)
	if want.IsVariable() {
		if _, ok := b.bindings[want.Name()]; !ok {
			b.bindings[want.Name()] = got
			return true
		}
	}
	want = b.resolve(want)

	switch {
	case want.IsConstant() && got.IsConstant():
		return want == got
	case want.IsSymbolic() && got.IsSymbolic():
		if want.Name() == got.Name() {
			return true
		}
		eq := formula.Eq(want, got)
		if eq.IsFalse() {
			return false
		}
		b.links = append(b.links, eq)
		return true
	default:
		sym, val := want, got
		if !sym.IsSymbolic() {
			sym, val = val, sym
		}
		if sym.Type() != program.TypeUnknown && sym.Type() != val.Type() {
			return false
		}
		b.pins[sym.Name()] = pin{sym: sym, val: val}
		return true
	}
}

// match extends a clone of b with c as the fact for lit, or returns nil if they cannot match.
func (b *branch) match(lit program.Literal, c candidate) *branch {
	if c.cond.IsFalse() || len(lit.Args) != len(c.fact.Head.Args) {
		return nil
	}
	nb := b.clone()
	for i, arg := range lit.Args {
		if !nb.unify(arg, c.fact.Head.Args[i]) {
			return nil
		}
	}
	if !c.cond.IsTrue() {
		nb.conds = append(nb.conds, c.cond)
	}
	nb.support = append(nb.support, c.fact)
	return nb
}

// resolved is the map from pinned symbolic constant names to their values.
func (b *branch) resolved() map[string]program.Arg {
	out := make(map[string]program.Arg, len(b.pins))
	for name, p := range b.pins {
		out[name] = p.val
	}
	return out
}

// formula is the condition under which the branch holds. Sign atoms and symbolic equalities are
// grounded through the pinned values; every pin contributes its own equality atom.
func (b *branch) formula() formula.Formula {
	resolved := b.resolved()
	parts := make([]formula.Formula, 0, len(b.pins)+len(b.links)+len(b.conds))
	for _, p := range b.pins {
		parts = append(parts, formula.Eq(p.sym, p.val))
	}
	for _, l := range b.links {
		parts = append(parts, l.Substitute(resolved))
	}
	for _, c := range b.conds {
		parts = append(parts, c.Substitute(resolved))
	}
	return formula.And(parts...)
}

// ground instantiates lit with the branch bindings and pins.
func (b *branch) ground(lit program.Literal) program.Literal {
	out := lit.Clone()
	for i, a := range out.Args {
		out.Args[i] = b.resolve(a)
	}
	out.Positive = true
	return out
}
