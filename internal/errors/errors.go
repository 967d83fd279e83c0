package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized = errors.New("user is not authorized")
	ErrForbidden    = errors.New("operation is forbidden for user")

	// ErrNotFound covers both missing rows and events the caller may not see.
	ErrNotFound = errors.New("not found")

	ErrCapacityExceeded    = errors.New("event has reached its maximum capacity")
	ErrAlreadyRegistered   = errors.New("user is already registered for this event")
	ErrRegistrationPending = errors.New("registration is pending confirmation")

	ErrGroupNotFound      = errors.New("role group does not exist")
	ErrDuplicate          = errors.New("record already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ForbiddenError carries the reason shown on the access-denied surface.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: %s", ErrForbidden, e.Reason)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// Forbidden returns an error matching ErrForbidden with a user-facing reason.
func Forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// ValidationError holds field-level messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field, keeping the first one.
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil lets callers write `return v.OrNil()` after collecting checks.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
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

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsInformational reports outcomes that are shown to the user without being failures.
func IsInformational(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered) || errors.Is(err, ErrRegistrationPending)
}
