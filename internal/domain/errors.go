package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the library service is unreachable
	ErrServerOffline = errors.New("library service is unreachable")

	// ErrAuthFailed indicates the session token was rejected
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the library service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// ValidationError reports a blank or malformed form field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// IsNetworkOrServerError reports whether err came from talking to the
// library service, as opposed to local validation.
func IsNetworkOrServerError(err error) bool {
	var apiErr *APIError
	return errors.Is(err, ErrServerOffline) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.As(err, &apiErr)
}
