package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Tourbook client
var (
	// Authentication errors
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrValidation           = errors.New("validation failed")
	ErrMissingIdentityToken = errors.New("missing identity token")
	ErrAuthProviderRejected = errors.New("auth provider rejected sign-in")

	// Session errors
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrSessionExpired = errors.New("session expired")

	// Transport errors
	ErrNetwork = errors.New("network error")
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
