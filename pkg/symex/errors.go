package symex

import (
	"fmt"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/program"
)

var (
	// ErrNegation is returned for rules with a negative body literal.
	ErrNegation = errors.Wrap(errors.ErrUnprocessable, "negation is not supported")
	// ErrInvalidTarget marks targets that are not concrete facts of a known shape.
	ErrInvalidTarget = errors.Wrap(errors.ErrInvalidInput, "invalid target")
	// ErrSaturationLimit is returned when derived relations do not settle within the round limit.
	ErrSaturationLimit = errors.Wrap(errors.ErrUnprocessable, "saturation did not converge")
)

// NegationError identifies the rule carrying a negative body literal.
type NegationError struct {
	Rule    program.Rule
	Literal program.Literal
}

func (e *NegationError) Error() string {
	return fmt.Sprintf("negative literal %s in rule %s", e.Literal, e.Rule)
}

func (e *NegationError) Unwrap() error { return ErrNegation }

// TargetError reports a target that cannot be asked about.
type TargetError struct {
	Target program.Fact
	Reason string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s: %s", e.Target.Head, e.Reason)
}

func (e *TargetError) Unwrap() error { return ErrInvalidTarget }
