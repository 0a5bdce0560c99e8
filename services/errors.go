package services

import (
	"errors"
	"sort"
	"strings"
)

// Expected, caller-recoverable failures. Anything else returned by a service
// is an unexpected fault.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidTarget = errors.New("invalid target")
	ErrInvalidState  = errors.New("invalid state")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("concurrent modification, retry")
)

// ValidationError carries per-field messages for ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsExpected reports whether err is one of the service error kinds above.
func IsExpected(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrForbidden, ErrInvalidTarget, ErrInvalidState, ErrValidation, ErrConflict} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
