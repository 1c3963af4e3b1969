package provider

import (
	"errors"
	"fmt"
)

// ErrUnreachable wraps transport-level failures. Symbol-source callers treat
// it as fatal and abort the run; the fetch loop treats it as a transient
// per-entity error.
var ErrUnreachable = errors.New("provider unreachable")

// Error is a provider-level error response. The Message carries the server's
// own text, which may embed a rate-limit wait hint that pkg/ratelimit
// extracts.
type Error struct {
	StatusCode int
	Endpoint   string
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider error (status %d) on %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("provider error (status %d) on %s", e.StatusCode, e.Endpoint)
}

// HTTPStatus reports the response status code. pkg/ratelimit uses this to
// recognize 429 responses without depending on this package.
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}
