package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every error leaving the repository or service layers wraps
// exactly one of these so callers can branch with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrDecode     = errors.New("image could not be decoded")
	ErrStorage    = errors.New("storage unavailable")
	ErrNotFound   = errors.New("not found")
	ErrPartial    = errors.New("completed with failures")
)

// ValidationError lists the offending form fields.
type ValidationError struct {
	Fields map[string]string
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
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// Decode wraps an image decoding failure.
func Decode(err error) error {
	return fmt.Errorf("%w: %w", ErrDecode, err)
}

// Storage wraps a backend failure (database, key-value service, filesystem, object storage).
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// NotFound reports a missing product id or tag name.
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// Partial joins the failures of a best-effort operation.
func Partial(op string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPartial, op, errors.Join(errs...))
}
