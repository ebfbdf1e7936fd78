// Package formula is the boolean/equality algebra in which derivation conditions are expressed.
//
// A Formula is kept in canonical disjunctive normal form: a sorted set of monomials, each a sorted
// set of atoms, with duplicates, absorbed monomials and contradictory equalities removed. Two
// formulas built from the same atoms therefore have the same Key and compare Equal.
package formula

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/duynguyendang/symlog/pkg/program"
)

type monomial struct {
	atoms []Atom
	key   string
}

func newMonomial(atoms []Atom) (monomial, bool) {
	sort.Slice(atoms, func(i, j int) bool { return atoms[i].key < atoms[j].key })
	out := atoms[:0]
	for i, a := range atoms {
		if i > 0 && a.key == atoms[i-1].key {
			continue
		}
		out = append(out, a)
	}
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[i].conflicts(out[j]) {
				return monomial{}, false
			}
		}
	}
	var buf []byte
	for _, a := range out {
		buf = binary.AppendUvarint(buf, uint64(len(a.key)))
		buf = append(buf, a.key...)
	}
	return monomial{atoms: out, key: string(buf)}, true
}

// subsetOf reports whether every atom of m occurs in o. Both atom lists are sorted by key.
func (m monomial) subsetOf(o monomial) bool {
	if len(m.atoms) > len(o.atoms) {
		return false
	}
	j := 0
	for _, a := range m.atoms {
		for j < len(o.atoms) && o.atoms[j].key < a.key {
			j++
		}
		if j == len(o.atoms) || o.atoms[j].key != a.key {
			return false
		}
		j++
	}
	return true
}

// Formula is an immutable condition over equality atoms and sign atoms.
type Formula struct {
	terms []monomial
}

// True is the formula that always holds.
func True() Formula {
	m, _ := newMonomial(nil)
	return Formula{terms: []monomial{m}}
}

// False is the formula that never holds; it is also the empty disjunction.
func False() Formula { return Formula{} }

// Sign is the unknown truth of the grounded fact lit.
func Sign(lit program.Literal) Formula {
	m, _ := newMonomial([]Atom{newSign(lit)})
	return Formula{terms: []monomial{m}}
}

// Eq is the equality of two ground arguments. Equal constants fold to True, distinct constants
// or mismatched types to False; any other combination is an equality atom.
func Eq(a, b program.Arg) Formula {
	if !a.IsSymbolic() {
		a, b = b, a
	}
	if !a.IsSymbolic() {
		if a == b {
			return True()
		}
		return False()
	}
	if b.IsSymbolic() && a.Name() == b.Name() {
		return True()
	}
	if a.Type() != program.TypeUnknown && b.Type() != program.TypeUnknown && a.Type() != b.Type() {
		return False()
	}
	m, _ := newMonomial([]Atom{newEq(a, b)})
	return Formula{terms: []monomial{m}}
}

// FromAtom lifts a single atom to a formula.
func FromAtom(a Atom) Formula {
	m, _ := newMonomial([]Atom{a})
	return Formula{terms: []monomial{m}}
}

// Or is the disjunction of fs.
func Or(fs ...Formula) Formula {
	var all []monomial
	for _, f := range fs {
		all = append(all, f.terms...)
	}
	return normalize(all)
}

// And is the conjunction of fs.
func And(fs ...Formula) Formula {
	acc := True()
	for _, f := range fs {
		if f.IsFalse() {
			return False()
		}
		if f.IsTrue() {
			continue
		}
		var product []monomial
		for _, l := range acc.terms {
			for _, r := range f.terms {
				atoms := make([]Atom, 0, len(l.atoms)+len(r.atoms))
				atoms = append(atoms, l.atoms...)
				atoms = append(atoms, r.atoms...)
				if m, ok := newMonomial(atoms); ok {
					product = append(product, m)
				}
			}
		}
		acc = normalize(product)
		if acc.IsFalse() {
			return acc
		}
	}
	return acc
}

// normalize sorts monomials shortest first and drops every monomial absorbed by a kept one.
func normalize(ms []monomial) Formula {
	sort.SliceStable(ms, func(i, j int) bool {
		if len(ms[i].atoms) != len(ms[j].atoms) {
			return len(ms[i].atoms) < len(ms[j].atoms)
		}
		return ms[i].key < ms[j].key
	})
	kept := make([]monomial, 0, len(ms))
	for _, m := range ms {
		absorbed := false
		for _, k := range kept {
			if k.subsetOf(m) {
				absorbed = true
				break
			}
		}
		if !absorbed {
			kept = append(kept, m)
		}
	}
	return Formula{terms: kept}
}

// IsTrue reports whether the formula is literal true.
func (f Formula) IsTrue() bool { return len(f.terms) == 1 && len(f.terms[0].atoms) == 0 }

// IsFalse reports whether the formula is literal false.
func (f Formula) IsFalse() bool { return len(f.terms) == 0 }

// Key is the canonical encoding of the formula.
func (f Formula) Key() string {
	var sb strings.Builder
	for _, m := range f.terms {
		var n [binary.MaxVarintLen64]byte
		sb.Write(n[:binary.PutUvarint(n[:], uint64(len(m.key)))])
		sb.WriteString(m.key)
	}
	return sb.String()
}

// Equal reports whether two formulas are structurally identical after normalisation.
func (f Formula) Equal(o Formula) bool { return f.Key() == o.Key() }

// Monomials returns the disjuncts of the formula, each as a list of atoms.
func (f Formula) Monomials() [][]Atom {
	out := make([][]Atom, len(f.terms))
	for i, m := range f.terms {
		out[i] = append([]Atom(nil), m.atoms...)
	}
	return out
}

// Atoms returns the distinct atoms of the formula ordered by key.
func (f Formula) Atoms() []Atom {
	seen := make(map[string]bool)
	var out []Atom
	for _, m := range f.terms {
		for _, a := range m.atoms {
			if !seen[a.key] {
				seen[a.key] = true
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Substitute grounds symbolic constants that resolve to concrete values: equalities over them are
// folded and sign atoms are renamed to the grounded fact.
func (f Formula) Substitute(resolved map[string]program.Arg) Formula {
	if len(resolved) == 0 {
		return f
	}
	terms := make([]Formula, 0, len(f.terms))
	for _, m := range f.terms {
		parts := make([]Formula, len(m.atoms))
		for i, a := range m.atoms {
			parts[i] = a.substitute(resolved)
		}
		terms = append(terms, And(parts...))
	}
	return Or(terms...)
}

// String renders the formula, e.g. `$alpha = "a" & r("a", "b") | s("c", "d")`.
func (f Formula) String() string {
	if f.IsFalse() {
		return "false"
	}
	if f.IsTrue() {
		return "true"
	}
	parts := make([]string, len(f.terms))
	for i, m := range f.terms {
		atoms := make([]string, len(m.atoms))
		for j, a := range m.atoms {
			atoms[j] = a.String()
		}
		s := strings.Join(atoms, " & ")
		if len(f.terms) > 1 && len(m.atoms) > 1 {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, " | ")
}

// MarshalText renders the formula as text for JSON and YAML output.
func (f Formula) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}
