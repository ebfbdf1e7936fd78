package formula

import (
	"sort"
	"strconv"
	"strings"

	"github.com/duynguyendang/symlog/pkg/program"
)

// SMTLIB renders the formula as an SMT-LIB2 script: one declaration per symbolic constant
// (String or Int) and per sign unknown (Bool), followed by a single assertion.
func (f Formula) SMTLIB() string {
	var sb strings.Builder
	consts := make(map[string]program.Type)
	var signs []string
	seenSign := make(map[string]bool)
	for _, a := range f.Atoms() {
		switch a.kind {
		case AtomEq:
			consts[a.left.Name()] = a.left.Type()
			if a.right.IsSymbolic() {
				consts[a.right.Name()] = a.right.Type()
			}
		case AtomSign:
			for _, s := range a.lit.Symbolics() {
				consts[s.Name()] = s.Type()
			}
			if name := smtSymbol(a.SignName()); !seenSign[name] {
				seenSign[name] = true
				signs = append(signs, name)
			}
		}
	}

	names := make([]string, 0, len(consts))
	for n := range consts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		sb.WriteString("(declare-const " + smtSymbol(n) + " " + smtSort(consts[n]) + ")\n")
	}
	for _, s := range signs {
		sb.WriteString("(declare-const " + s + " Bool)\n")
	}
	sb.WriteString("(assert " + f.smtTerm() + ")\n")
	return sb.String()
}

func (f Formula) smtTerm() string {
	if f.IsFalse() {
		return "false"
	}
	if f.IsTrue() {
		return "true"
	}
	disjuncts := make([]string, len(f.terms))
	for i, m := range f.terms {
		conj := make([]string, len(m.atoms))
		for j, a := range m.atoms {
			conj[j] = a.smtTerm()
		}
		disjuncts[i] = smtApply("and", conj)
	}
	return smtApply("or", disjuncts)
}

func (a Atom) smtTerm() string {
	if a.kind == AtomSign {
		return smtSymbol(a.SignName())
	}
	return "(= " + smtSymbol(a.left.Name()) + " " + smtValue(a.right) + ")"
}

func smtApply(op string, args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "(" + op + " " + strings.Join(args, " ") + ")"
}

func smtValue(v program.Arg) string {
	switch {
	case v.IsSymbolic():
		return smtSymbol(v.Name())
	case v.Type() == program.TypeNumber:
		if n := v.Num(); n < 0 {
			// -(n+1) cannot overflow, even for math.MinInt64.
			return "(- " + strconv.FormatUint(uint64(-(n+1))+1, 10) + ")"
		}
		return strconv.FormatInt(v.Num(), 10)
	default:
		return `"` + strings.ReplaceAll(v.Str(), `"`, `""`) + `"`
	}
}

func smtSort(t program.Type) string {
	if t == program.TypeNumber {
		return "Int"
	}
	return "String"
}

// symbolEscaper percent-encodes the characters a quoted symbol cannot hold, and '%' itself, so
// distinct names stay distinct.
var symbolEscaper = strings.NewReplacer("%", "%25", "|", "%7C", `\`, "%5C")

// smtSymbol quotes a name as an SMT-LIB quoted symbol.
func smtSymbol(name string) string {
	return "|" + symbolEscaper.Replace(name) + "|"
}
