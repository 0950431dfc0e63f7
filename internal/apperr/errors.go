// Package apperr holds the error taxonomy shared by the storage, identity and CRM layers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a lookup by id yields nothing.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when a mutating operation runs without a principal.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrStorage marks failures of the storage engine itself (unreachable, corrupt, unexpected).
	ErrStorage = errors.New("storage failure")
)

// ValidationError lists user-facing problems with caller input. Nothing was persisted.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// Validation returns nil when problems is empty.
func Validation(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

type ConstraintKind string

const (
	KindUnique     ConstraintKind = "unique"
	KindForeignKey ConstraintKind = "foreign_key"
	KindCheck      ConstraintKind = "check"
	KindNotNull    ConstraintKind = "not_null"
)

// ConstraintViolation is a storage rule broken by a write. Constraint names the rule as reported by
// the engine (index, constraint or table.column); Message is the user-facing text set by the
// operation that caught it.
type ConstraintViolation struct {
	Kind       ConstraintKind
	Constraint string
	Message    string
}

func (e *ConstraintViolation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Constraint == "" {
		return fmt.Sprintf("constraint violation: %s", e.Kind)
	}
	return fmt.Sprintf("constraint violation: %s (%s)", e.Kind, e.Constraint)
}

// WithMessage returns a copy carrying a user-facing message.
func (e *ConstraintViolation) WithMessage(msg string) *ConstraintViolation {
	cp := *e
	cp.Message = msg
	return &cp
}

// AsConstraint unwraps err into a ConstraintViolation.
func AsConstraint(err error) (*ConstraintViolation, bool) {
	var cv *ConstraintViolation
	if errors.As(err, &cv) {
		return cv, true
	}
	return nil, false
}

// AsValidation unwraps err into a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// UserMessages returns the messages a user should see for a recoverable error, or nil when err is
// not recoverable (storage failure, programming error).
func UserMessages(err error) []string {
	if ve, ok := AsValidation(err); ok {
		return ve.Problems
	}
	if cv, ok := AsConstraint(err); ok {
		return []string{cv.Error()}
	}
	if errors.Is(err, ErrNotFound) {
		return []string{"The requested record does not exist."}
	}
	return nil
}
