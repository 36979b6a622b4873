package api

import (
	"errors"
	"fmt"
)

// Error is a structured failure returned by the Tourbook backend. It carries
// the HTTP status code and the server-provided message so callers can surface
// the message verbatim.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	return StatusCode(err) == status
}

// Message returns the server-provided message carried by err, or fallback
// when err has none. Resource stores use it to build display strings.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
