package gateway

import (
	"fmt"

	"github.com/portal/backend/internal/domain/shared"
)

// APIError is a non-2xx response from the gateway. It carries the upstream
// HTTP status and the gateway-provided error body for logging; Unwrap maps
// the status onto the domain sentinel the HTTP boundary translates.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
	DebugID    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("gateway: %s: %s (HTTP %d, debug_id=%s)", e.Name, e.Message, e.StatusCode, e.DebugID)
	}
	return fmt.Sprintf("gateway: HTTP %d", e.StatusCode)
}

// Unwrap classifies the upstream status: 401 means our credentials were
// rejected, 400 means the request was malformed, 404 means the referenced
// gateway resource is gone, everything else is a generic gateway failure.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return shared.ErrGatewayAuth
	case 400:
		return shared.ErrInvalidInput
	case 404:
		return shared.ErrNotFound
	default:
		return shared.ErrGatewayRejected
	}
}
