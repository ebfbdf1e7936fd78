package program

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the value type of a relation argument.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeSymbol
	TypeNumber
)

// String returns the Souffle spelling of the type.
func (t Type) String() string {
	switch t {
	case TypeSymbol:
		return "symbol"
	case TypeNumber:
		return "number"
	default:
		return "unknown"
	}
}

// ParseType parses a Souffle type name. "string" is accepted as an alias of "symbol".
func ParseType(name string) (Type, error) {
	switch name {
	case "symbol", "string":
		return TypeSymbol, nil
	case "number", "int":
		return TypeNumber, nil
	default:
		return TypeUnknown, fmt.Errorf("%w: unknown type %q (want symbol or number)", ErrStructural, name)
	}
}

// MarshalText implements encoding.TextMarshaler so declarations serialise as type names.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ArgKind discriminates the Arg variant.
type ArgKind uint8

const (
	KindConstant ArgKind = iota + 1
	KindSymbolic
	KindVariable
)

func (k ArgKind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindSymbolic:
		return "symbolic"
	case KindVariable:
		return "variable"
	default:
		return "invalid"
	}
}

// Arg is a literal argument: a typed constant, a symbolic constant or a rule-local variable.
// Arg is a comparable value; == is value equality.
type Arg struct {
	kind ArgKind
	typ  Type
	name string // symbolic constant or variable name
	str  string
	num  int64
}

// String builds a string (symbol) constant.
func String(s string) Arg {
	return Arg{kind: KindConstant, typ: TypeSymbol, str: s}
}

// Number builds a number constant.
func Number(n int64) Arg {
	return Arg{kind: KindConstant, typ: TypeNumber, num: n}
}

// Symbolic builds a symbolic constant: a named value of known type whose concrete value is unknown.
func Symbolic(name string, typ Type) Arg {
	return Arg{kind: KindSymbolic, typ: typ, name: name}
}

// Variable builds a rule-local variable.
func Variable(name string) Arg {
	return Arg{kind: KindVariable, name: name}
}

// anonymousPrefix cannot start a variable name in program text, so anonymous variables never
// collide with written ones.
const anonymousPrefix = "_#"

// Anonymous builds the n-th anonymous variable of a rule. It renders as "_".
func Anonymous(n int) Arg {
	return Variable(anonymousPrefix + strconv.Itoa(n))
}

// IsAnonymous reports whether a is a variable built by Anonymous.
func (a Arg) IsAnonymous() bool {
	return a.kind == KindVariable && strings.HasPrefix(a.name, anonymousPrefix)
}

func (a Arg) Kind() ArgKind { return a.kind }

// Type returns the declared type for constants and symbolic constants, TypeUnknown for variables.
func (a Arg) Type() Type {
	if a.kind == KindVariable {
		return TypeUnknown
	}
	return a.typ
}

// Name returns the name of a variable or symbolic constant.
func (a Arg) Name() string { return a.name }

// Str returns the value of a string constant.
func (a Arg) Str() string { return a.str }

// Num returns the value of a number constant.
func (a Arg) Num() int64 { return a.num }

func (a Arg) IsConstant() bool { return a.kind == KindConstant }
func (a Arg) IsSymbolic() bool { return a.kind == KindSymbolic }
func (a Arg) IsVariable() bool { return a.kind == KindVariable }

// IsGround reports whether the argument may appear in a fact.
func (a Arg) IsGround() bool { return a.kind == KindConstant || a.kind == KindSymbolic }

// SameEntity reports whether two arguments denote the same thing. Symbolic constants are
// identified by name alone.
func (a Arg) SameEntity(b Arg) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindSymbolic, KindVariable:
		return a.name == b.name
	default:
		return a == b
	}
}

// String renders the argument in program syntax.
func (a Arg) String() string {
	switch a.kind {
	case KindConstant:
		if a.typ == TypeNumber {
			return strconv.FormatInt(a.num, 10)
		}
		return strconv.Quote(a.str)
	case KindSymbolic:
		return "$" + a.name + ":" + a.typ.String()
	case KindVariable:
		if a.IsAnonymous() {
			return "_"
		}
		return a.name
	default:
		return "<invalid>"
	}
}

// Display renders the argument without type annotations, as used in sign atom names.
func (a Arg) Display() string {
	if a.kind == KindSymbolic {
		return "$" + a.name
	}
	return a.String()
}
