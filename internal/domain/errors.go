package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/EcliqseX/vetsim/internal/clinic"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios. Engine rejections reuse the
// clinic rejection codes.
const (
	ErrNoCurrentCase        = "NO_CURRENT_CASE"
	ErrInsufficientFunds    = "INSUFFICIENT_FUNDS"
	ErrNoSelection          = "NO_SELECTION"
	ErrQueueEmpty           = "QUEUE_EMPTY"
	ErrPatientAlreadyActive = "PATIENT_ALREADY_ACTIVE"
	ErrUnknownTest          = "UNKNOWN_TEST"
	ErrTestUnavailable      = "TEST_UNAVAILABLE"
	ErrAlreadyDiagnosed     = "ALREADY_DIAGNOSED"
	ErrSessionNotFound      = "SESSION_NOT_FOUND"
	ErrInvalidInput         = "INVALID_INPUT"
	ErrDatabaseError        = "DATABASE_ERROR"
	ErrRateLimit            = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer       = "INTERNAL_SERVER_ERROR"
)

// ErrNotFound is returned by session stores for unknown session tokens.
var ErrNotFound = errors.New("session not found")

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// CodeFor maps an error to its response code.
func CodeFor(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrNotFound):
		return ErrSessionNotFound
	}
	if r, ok := clinic.AsRejection(err); ok {
		return r.Code
	}
	return ErrInternalServer
}

// FromError converts err to an APIError carrying requestID.
func FromError(err error, requestID string) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		out := *apiErr
		if out.RequestID == "" {
			out.RequestID = requestID
		}
		return &out
	}

	code := CodeFor(err)
	message := err.Error()
	if code == ErrInternalServer {
		message = "internal server error"
	}
	return NewAPIError(code, message, "", requestID)
}
