package activity

import (
	"errors"
	"fmt"
)

// ValidationError reports caller input that violates an operation's contract.
// It is always returned before any store call and its message is safe to
// show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StoreError reports a failed store call. It keeps only the store's message
// so no SDK types leak past the service.
type StoreError struct {
	Op      string
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsStoreError reports whether err is a *StoreError.
func IsStoreError(err error) bool {
	var s *StoreError
	return errors.As(err, &s)
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func newStoreError(op string, err error) error {
	return &StoreError{Op: op, Message: err.Error()}
}

func unknownActivityType(activityType string) error {
	return validationErrorf("ActivityType \"%s\" is not found", activityType)
}

func missingLocationField(field string) error {
	return validationErrorf("Field \"%s\" is not provided in the location object", field)
}
