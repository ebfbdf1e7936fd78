package service

import (
	"fmt"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/program"
)

// ErrTargetType marks a target whose constants do not match the inferred declaration of its
// relation.
var ErrTargetType = errors.Wrap(errors.ErrInvalidInput, "target does not match declaration")

// TargetTypeError pinpoints the mismatching argument.
type TargetTypeError struct {
	Target   program.Fact
	Position int
	Want     program.Type
	Got      program.Type
}

func (e *TargetTypeError) Error() string {
	return fmt.Sprintf("target %s: argument %d is %s, relation %s declares %s",
		e.Target.Head, e.Position, e.Got, e.Target.Name(), e.Want)
}

func (e *TargetTypeError) Unwrap() error { return ErrTargetType }
