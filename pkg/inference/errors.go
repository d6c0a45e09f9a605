package inference

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrCancelled marks a request that was superseded or abandoned.
	// It is expected and never reported to the user.
	ErrCancelled = errors.New("inference: request cancelled")

	// ErrNoEndpoint is returned when the classifier URL is missing.
	ErrNoEndpoint = errors.New("inference: endpoint required")

	// ErrNoImage is returned when Classify is called without image data.
	ErrNoImage = errors.New("inference: image required")
)

// APIError represents a non-success response from the classifier.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Provider identifies which classifier returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("inference [%s]: API error %d: %s",
		e.Provider, e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// TransportError wraps a network-level failure.
type TransportError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("inference [%s]: transport: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when the response body cannot be
// understood.
type MalformedResponseError struct {
	Provider string
	Reason   string
	Err      error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference [%s]: malformed response: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("inference [%s]: malformed response: %s", e.Provider, e.Reason)
}

// Unwrap returns the underlying error.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// IsCancelled reports whether err means the request was superseded or its
// context ended.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled)
}

// Kind classifies err for logs and metrics: "ok", "cancelled", "transport",
// "api", "malformed" or "error".
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	if IsCancelled(err) {
		return "cancelled"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return "api"
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return "malformed"
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return "transport"
	}
	return "error"
}
