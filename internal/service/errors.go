package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists means a relationship row for the (user, target)
	// pair already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrRelationNotFound means a toggle-off was requested for a
	// relationship that is not present. Distinct from ErrNotFound so
	// handlers can map it to 400 instead of 404.
	ErrRelationNotFound = errors.New("relation not found")
	// ErrSelfSubscription means a user attempted to subscribe to themselves.
	ErrSelfSubscription = errors.New("subscription to oneself is not allowed")
	// ErrPermissionDenied means the actor lacks rights over the target.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidCredentials is returned on failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports malformed or semantically invalid input for a
// specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
