package domain

import "errors"

// Common domain errors
var (
	ErrInvalidCallerKey     = errors.New("invalid caller identity key")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrQueueClosed          = errors.New("audit queue closed")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenContent     = errors.New("request contains forbidden content fields")
	ErrConfigInvalid        = errors.New("invalid configuration")
)

// ErrorResponse defines the standard JSON error model returned by the check API.
// It intentionally avoids exposing sensitive details while providing a stable
// machine-readable code. TraceID should carry the current OpenTelemetry trace
// identifier when available to aid diagnostics.
type ErrorResponse struct {
	Code    string `json:"code"`               // Machine-readable error code (e.g., RATE_LIMITED, AUTHN_FAILED)
	Message string `json:"message"`            // Human-readable message (safe for logs)
	TraceID string `json:"trace_id,omitempty"` // Optional trace/correlation ID
}
