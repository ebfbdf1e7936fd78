package symex

import (
	"github.com/duynguyendang/symlog/pkg/formula"
	"github.com/duynguyendang/symlog/pkg/program"
)

// DirectFact is the Rule index of a derivation that matches a base fact directly.
const DirectFact = -1

// Derivation is one consistent way of producing a target.
type Derivation struct {
	// Rule indexes the rule set, or is DirectFact.
	Rule     int
	Bindings program.Bindings
	// Support lists the facts matched by the rule body, in body order. Facts of rule-defined
	// relations are the derived facts they matched.
	Support []program.Fact
	Formula formula.Formula
}

// Entry is the provenance of one derivable target.
type Entry struct {
	Target      program.Fact
	Formula     formula.Formula
	Derivations []Derivation
}

// Result holds the derivable targets in the order they were asked, plus the targets that were
// omitted because nothing derives them.
type Result struct {
	Entries []Entry
	Omitted []program.Fact

	index map[program.Key]int
}

func newResult() *Result {
	return &Result{index: make(map[program.Key]int)}
}

func (r *Result) add(e Entry) {
	r.index[e.Target.Key()] = len(r.Entries)
	r.Entries = append(r.Entries, e)
}

// Get returns the formula of target, if it is derivable.
func (r *Result) Get(target program.Fact) (formula.Formula, bool) {
	e, ok := r.Entry(target)
	if !ok {
		return formula.False(), false
	}
	return e.Formula, true
}

// Entry returns the full entry of target, if it is derivable.
func (r *Result) Entry(target program.Fact) (Entry, bool) {
	i, ok := r.index[target.Key()]
	if !ok {
		return Entry{}, false
	}
	return r.Entries[i], true
}

// Len is the number of derivable targets.
func (r *Result) Len() int { return len(r.Entries) }

// Formulas returns the target to formula mapping.
func (r *Result) Formulas() map[program.Key]formula.Formula {
	out := make(map[program.Key]formula.Formula, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Target.Key()] = e.Formula
	}
	return out
}
