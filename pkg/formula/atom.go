package formula

import (
	"github.com/duynguyendang/symlog/pkg/program"
)

// AtomKind discriminates equality constraints from sign unknowns.
type AtomKind uint8

const (
	AtomEq AtomKind = iota + 1
	AtomSign
)

// Atom is an indivisible proposition: either an equality between a symbolic constant and a value,
// or the unknown truth of a grounded fact.
type Atom struct {
	kind  AtomKind
	left  program.Arg
	right program.Arg
	lit   program.Literal
	key   string
}

func newEq(left, right program.Arg) Atom {
	// Symbolic/symbolic equalities are stored with the smaller name on the left.
	if right.IsSymbolic() && right.Name() < left.Name() {
		left, right = right, left
	}
	return Atom{
		kind:  AtomEq,
		left:  left,
		right: right,
		key:   "e" + string(program.KeyOf("=", []program.Arg{left, right})),
	}
}

func newSign(lit program.Literal) Atom {
	lit = lit.Clone()
	lit.Positive = true
	return Atom{kind: AtomSign, lit: lit, key: "s" + string(lit.Key())}
}

func (a Atom) Kind() AtomKind { return a.kind }

// Left is the symbolic constant of an equality atom.
func (a Atom) Left() program.Arg { return a.left }

// Right is the value of an equality atom: a constant or another symbolic constant.
func (a Atom) Right() program.Arg { return a.right }

// Literal is the grounded fact of a sign atom.
func (a Atom) Literal() program.Literal { return a.lit }

// Key is the canonical identity of the atom.
func (a Atom) Key() string { return a.key }

// SignName is the name of the boolean unknown of a sign atom, e.g. r("a", "b").
func (a Atom) SignName() string { return a.lit.Display() + "." }

func (a Atom) String() string {
	if a.kind == AtomSign {
		return a.lit.Display()
	}
	return a.left.Display() + " = " + a.right.Display()
}

// substitute applies resolved symbolic constants and returns the resulting formula.
func (a Atom) substitute(resolved map[string]program.Arg) Formula {
	if a.kind == AtomSign {
		return Sign(program.Resolve(a.lit, resolved))
	}
	left, right := a.left, a.right
	if v, ok := resolved[left.Name()]; ok {
		left = v
	}
	if right.IsSymbolic() {
		if v, ok := resolved[right.Name()]; ok {
			right = v
		}
	}
	return Eq(left, right)
}

// conflicts reports whether two equality atoms pin the same symbolic constant to different constants.
func (a Atom) conflicts(b Atom) bool {
	if a.kind != AtomEq || b.kind != AtomEq {
		return false
	}
	if !a.right.IsConstant() || !b.right.IsConstant() {
		return false
	}
	return a.left.Name() == b.left.Name() && a.right != b.right
}
