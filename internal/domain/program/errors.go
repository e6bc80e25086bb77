package program

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a program or data row does not exist.
// Stores wrap it with the missing identifier.
var ErrNotFound = errors.New("not found")

// ValidationError reports bad or missing caller input.
// Field carries the human label of the offending field where one applies.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

// Error implements the error interface.
// PRE: e.Message is set
// POST: returns a human-readable message naming the field and raw value
func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Message, e.Value)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	default:
		return e.Message
	}
}

// StorageError reports a transaction or commit failure.
// The message stays generic; the driver error is reachable through Unwrap.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return "storage failure during " + e.Op
}

// Unwrap exposes the underlying driver error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
