package observation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidObservation matches every *ValidationError.
var ErrInvalidObservation = errors.New("invalid observation")

// FieldError is a problem with one metadata field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports why an observation was refused.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func newValidationError(err error, flds ...FieldError) error {
	sort.Slice(flds, func(i, j int) bool { return flds[i].Field < flds[j].Field })
	return &ValidationError{Err: err, Fields: flds}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Err == nil {
			return ErrInvalidObservation.Error()
		}
		return fmt.Sprintf("%v: %v", ErrInvalidObservation, e.Err)
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Error
	}
	return fmt.Sprintf("%v: %s", ErrInvalidObservation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidObservation }
