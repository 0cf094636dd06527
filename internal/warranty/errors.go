package warranty

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no warranty record matched the lookup.
	ErrNotFound = errors.New("no warranty records found")
	// ErrAlreadyActive means the order/phone pair already has an
	// activated warranty.
	ErrAlreadyActive = errors.New("warranty is already activated for this order")
	// ErrNotReactivatable means the record is expired or cancelled
	// and resubmission cannot revive it.
	ErrNotReactivatable = errors.New("warranty is no longer eligible for activation")
)

// ValidationError reports a missing or invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
