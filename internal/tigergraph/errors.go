package tigergraph

import (
	"errors"
	"fmt"
)

// Common errors returned by the TigerGraph client.
var (
	// ErrAuth indicates missing or rejected credentials.
	ErrAuth = errors.New("TigerGraph authentication error")

	// ErrRateLimited indicates the server refused the request rate.
	ErrRateLimited = errors.New("TigerGraph rate limit exceeded")

	// ErrNetwork indicates a network connectivity issue.
	ErrNetwork = errors.New("network error communicating with TigerGraph")

	// ErrInvalidResponse indicates an unexpected response body.
	ErrInvalidResponse = errors.New("invalid response from TigerGraph")

	// ErrNotConnected is returned by RESTPP calls made before Connect.
	ErrNotConnected = errors.New("not connected to TigerGraph; call Connect first")
)

// APIError is an error reported by the TigerGraph server.
type APIError struct {
	StatusCode int
	Code       string // Server error code (e.g. "REST-30000")
	Message    string
	Source     string // Source vertex, for pagerank errors
}

func (e *APIError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("TigerGraph error (status %d, code %s): %s (source: %s)", e.StatusCode, e.Code, e.Message, e.Source)
	}
	return fmt.Sprintf("TigerGraph error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// IsRemote returns true for any failure that originates on the server or
// the network path to it.
func IsRemote(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) ||
		errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrNotConnected)
}
