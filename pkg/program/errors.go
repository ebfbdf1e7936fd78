package program

import (
	"fmt"

	"github.com/duynguyendang/symlog/pkg/common/errors"
)

// ErrStructural marks errors caused by a malformed program rather than by its data.
var ErrStructural = errors.Wrap(errors.ErrUnprocessable, "malformed program")

// ArityError reports a relation used with two different arities.
type ArityError struct {
	Relation string
	Want     int
	Got      int
	Literal  Literal
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("relation %s has arity %d, but %s has %d arguments", e.Relation, e.Want, e.Literal, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrStructural }

// MalformedFactError reports a fact whose head carries a variable.
type MalformedFactError struct {
	Fact     Fact
	Position int
}

func (e *MalformedFactError) Error() string {
	return fmt.Sprintf("fact %s has non-ground argument at position %d", e.Fact, e.Position)
}

func (e *MalformedFactError) Unwrap() error { return ErrStructural }

// UnsafeRuleError reports a head variable that no positive body literal binds.
type UnsafeRuleError struct {
	Rule     Rule
	Variable string
}

func (e *UnsafeRuleError) Error() string {
	return fmt.Sprintf("variable %s in head of %s does not occur in a positive body literal", e.Variable, e.Rule)
}

func (e *UnsafeRuleError) Unwrap() error { return ErrStructural }
