package typeanalysis

import (
	"fmt"
	"strings"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/program"
)

// ErrTypeConsistency marks errors where the program forces incompatible types on a relation.
var ErrTypeConsistency = errors.Wrap(errors.ErrUnprocessable, "inconsistent types")

// MalformedArgumentError reports a fact argument that is neither a constant nor a symbolic constant.
type MalformedArgumentError struct {
	Fact     program.Fact
	Position int
	Kind     program.ArgKind
}

func (e *MalformedArgumentError) Error() string {
	return fmt.Sprintf("argument %d of fact %s is a %s; valid kinds: constant, symbolic constant", e.Position, e.Fact, e.Kind)
}

func (e *MalformedArgumentError) Unwrap() error { return program.ErrStructural }

// InconsistentFactError reports two sources forcing incompatible signatures on a relation.
type InconsistentFactError struct {
	Relation string
	Declared []program.Type
	Inferred []program.Type
	Source   string
}

func (e *InconsistentFactError) Error() string {
	return fmt.Sprintf("declaration of relation %s (%s) is inconsistent with %s (%s)",
		e.Relation, formatTypes(e.Declared), e.Source, formatTypes(e.Inferred))
}

func (e *InconsistentFactError) Unwrap() error { return ErrTypeConsistency }

// AmbiguousTypeError reports a rule that forces two different types onto one head position.
type AmbiguousTypeError struct {
	Rule     program.Rule
	Position int
	Types    []program.Type
}

func (e *AmbiguousTypeError) Error() string {
	return fmt.Sprintf("type of %s in %s is ambiguous (%s) in rule: %s",
		e.Rule.Head.Args[e.Position], e.Rule.Head, formatTypes(e.Types), e.Rule)
}

func (e *AmbiguousTypeError) Unwrap() error { return ErrTypeConsistency }

func formatTypes(ts []program.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
