package client

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericErrorMessage is shown when the backend rejects a request without
// saying why.
const GenericErrorMessage = "request failed"

var (
	// ErrUnauthorized matches any APIError with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches any APIError with status 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches any APIError with status 404.
	ErrNotFound = errors.New("not found")
	// ErrTransport wraps network failures (connection refused, timeouts, bad bodies).
	ErrTransport = errors.New("network error")
	// ErrNoCredential is returned by authorized calls when no session is active.
	ErrNoCredential = errors.New("not authenticated. Please run 'seap login' first")
)

// APIError is a non-2xx response from the SEAP backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets callers match status classes with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Message extracts a user-facing message from any error returned by the
// client, falling back to fallback for transport failures and unknown errors.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != GenericErrorMessage {
		return apiErr.Message
	}
	if errors.Is(err, ErrNoCredential) {
		return ErrNoCredential.Error()
	}
	return fallback
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}
