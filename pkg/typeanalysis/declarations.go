package typeanalysis

import (
	"sort"
	"strconv"
	"strings"

	"github.com/duynguyendang/symlog/pkg/program"
)

// Declarations maps relation names to their argument types, one entry per position.
type Declarations map[string][]program.Type

// Clone returns a deep copy.
func (d Declarations) Clone() Declarations {
	out := make(Declarations, len(d))
	for k, v := range d {
		out[k] = append([]program.Type(nil), v...)
	}
	return out
}

// Equal reports whether both tables hold the same signatures.
func (d Declarations) Equal(o Declarations) bool {
	if len(d) != len(o) {
		return false
	}
	for k, v := range d {
		w, ok := o[k]
		if !ok || len(v) != len(w) {
			return false
		}
		for i := range v {
			if v[i] != w[i] {
				return false
			}
		}
	}
	return true
}

// Unknowns counts the positions still typed unknown.
func (d Declarations) Unknowns() int {
	n := 0
	for _, ts := range d {
		for _, t := range ts {
			if t == program.TypeUnknown {
				n++
			}
		}
	}
	return n
}

// Resolved reports whether every position of rel has a concrete type.
func (d Declarations) Resolved(rel string) bool {
	ts, ok := d[rel]
	if !ok {
		return false
	}
	return !hasUnknown(ts)
}

// Relations returns the declared relation names in sorted order.
func (d Declarations) Relations() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Souffle renders the table as Souffle .decl lines. Unknown positions are rendered as symbol,
// Souffle's default domain.
func (d Declarations) Souffle() string {
	var sb strings.Builder
	for _, rel := range d.Relations() {
		sb.WriteString(".decl ")
		sb.WriteString(rel)
		sb.WriteByte('(')
		for i, t := range d[rel] {
			if i > 0 {
				sb.WriteString(", ")
			}
			if t == program.TypeUnknown {
				t = program.TypeSymbol
			}
			sb.WriteString("a" + strconv.Itoa(i) + ": " + t.String())
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}

func hasUnknown(ts []program.Type) bool {
	for _, t := range ts {
		if t == program.TypeUnknown {
			return true
		}
	}
	return false
}

func sameTypes(a, b []program.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
