// Package apperr defines the error kinds the account backend surfaces to
// callers. Services wrap detail around these sentinels with fmt.Errorf("%w");
// the HTTP layer maps them to status codes with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks user-correctable input problems.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication marks bad login credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrUnauthorized marks a missing, invalid or revoked session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound marks an absent resource.
	ErrNotFound = errors.New("not found")
	// ErrProcessing marks a downstream transform failure (e.g. image decode).
	ErrProcessing = errors.New("processing failed")
)

// Validation wraps a constraint message as a ValidationError.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Authentication wraps a credential failure message.
func Authentication(msg string) error {
	return fmt.Errorf("%w: %s", ErrAuthentication, msg)
}

// Message returns the user-facing part of an error produced by this package,
// i.e. everything after the sentinel prefix.
func Message(err error) string {
	for _, sentinel := range []error{ErrValidation, ErrAuthentication, ErrUnauthorized, ErrNotFound, ErrProcessing} {
		if errors.Is(err, sentinel) {
			s := err.Error()
			prefix := sentinel.Error() + ": "
			if len(s) > len(prefix) && s[:len(prefix)] == prefix {
				return s[len(prefix):]
			}
			return s
		}
	}
	return err.Error()
}
