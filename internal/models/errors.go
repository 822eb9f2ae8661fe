package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for any failed secret check.
	ErrInvalidCredentials = errors.New("invalid password")
	// ErrUserExists is returned when a username is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned by repositories when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when a session record is missing or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnauthorized is returned when a request carries no valid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the session may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned when a client exceeded its request budget.
	ErrRateLimited = errors.New("too many requests")
	// ErrResetTokenInvalid is returned for unknown, used or expired reset tokens.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)

// ValidationError carries per-field messages for form input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
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
