package navigation

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a snapshot or policy cannot be translated.
// Use errors.Is to test for it; the concrete error is usually an *InputError.
var ErrInvalidInput = errors.New("navigation: invalid input")

// InputError describes which part of the input was rejected.
type InputError struct {
	// Field names the offending value, e.g. "frame.width" or "box.confidence".
	Field string

	// Index is the box index within the snapshot, or -1 for frame/policy errors.
	Index int

	// Reason is a short human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("navigation: invalid input: box %d: %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("navigation: invalid input: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func frameError(field, reason string) error {
	return &InputError{Field: field, Index: -1, Reason: reason}
}

func boxError(index int, field, reason string) error {
	return &InputError{Field: field, Index: index, Reason: reason}
}
