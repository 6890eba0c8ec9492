package warranty

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument matches every ValidationError via errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// ValidationError reports a malformed constructor input.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}
