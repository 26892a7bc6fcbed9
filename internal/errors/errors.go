package errors

import (
	"errors"
	"fmt"
)

// Common error types for the weeb client
var (
	// Storage errors
	ErrNotFound = errors.New("not found")

	// Request errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrServer       = errors.New("server error")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyToken         = errors.New("server returned an empty token")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Session errors
	ErrNoRefreshCredential = errors.New("no refresh credential available")
	ErrRefreshFailed       = errors.New("token refresh failed")
	ErrSessionInvalidated  = errors.New("session invalidated")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
