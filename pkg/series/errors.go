package series

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrUnsupportedType  = errors.New("unsupported type")
	ErrInconsistentType = errors.New("inconsistent type")
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrEmptyInput       = errors.New("empty input")
	ErrMaxDepthExceeded = errors.New("max depth exceeded")
	ErrDuplicateField   = errors.New("duplicate field")
)

// UnsupportedTypeError is returned when no classification rule matches a value.
type UnsupportedTypeError struct {
	TypeName string
	Reason   string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported type %s: %s", e.TypeName, e.Reason)
	}
	return fmt.Sprintf("unsupported type %s", e.TypeName)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// InconsistentTypeError reports the first row whose kind diverges from the
// kind established by the sample row. RowIndex is relative to the rows slice
// of the innermost build call that detected it; Path holds the row indices of
// the enclosing list levels, outermost first.
type InconsistentTypeError struct {
	RowIndex int
	Path     []int
	Expected Kind
	Found    string
}

func (e *InconsistentTypeError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("row %d (within %v): expected %s, found %s", e.RowIndex, e.Path, e.Expected, e.Found)
	}
	return fmt.Sprintf("row %d: expected %s, found %s", e.RowIndex, e.Expected, e.Found)
}

func (e *InconsistentTypeError) Is(target error) bool { return target == ErrInconsistentType }

// LengthMismatchError names the first two struct fields whose lengths disagree.
type LengthMismatchError struct {
	FieldA  string
	LengthA int
	FieldB  string
	LengthB int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("field %q has length %d but field %q has length %d", e.FieldA, e.LengthA, e.FieldB, e.LengthB)
}

func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }

// EmptyInputError is returned when there is nothing to infer a kind from.
type EmptyInputError struct {
	What string
}

func (e *EmptyInputError) Error() string {
	if e.What == "" {
		return "empty input"
	}
	return "empty input: " + e.What
}

func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// MaxDepthExceededError is returned when nesting goes past the configured bound.
type MaxDepthExceededError struct {
	Limit int
}

func (e *MaxDepthExceededError) Error() string {
	return fmt.Sprintf("nesting exceeds max depth %d", e.Limit)
}

func (e *MaxDepthExceededError) Is(target error) bool { return target == ErrMaxDepthExceeded }

// DuplicateFieldError is returned when a struct would carry two fields with
// the same name.
type DuplicateFieldError struct {
	Name string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("duplicate field %q", e.Name)
}

func (e *DuplicateFieldError) Is(target error) bool { return target == ErrDuplicateField }

// errorKind labels an error for logging and metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrInconsistentType):
		return "inconsistent_type"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrMaxDepthExceeded):
		return "max_depth_exceeded"
	case errors.Is(err, ErrDuplicateField):
		return "duplicate_field"
	default:
		return "engine"
	}
}
