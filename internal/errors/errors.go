package errors

import "fmt"

// ErrorCode represents a porystore error code.
type ErrorCode string

const (
	ErrInvalidPayload  ErrorCode = "INVALID_PAYLOAD"   // 400, save data could not be decoded
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"   // 400
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"      // 401
	ErrForbidden       ErrorCode = "FORBIDDEN"         // 403
	ErrNotFound        ErrorCode = "NOT_FOUND"         // 404
	ErrConflict        ErrorCode = "CONFLICT"          // 409
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE" // 413
	ErrInternal        ErrorCode = "INTERNAL"          // 500
	ErrPurgeFailed     ErrorCode = "PURGE_FAILED"      // 500, logged only; no caller is waiting
)

// Error represents a structured error with code, HTTP status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidPayload creates a 400 error for save data that failed to decode
// or fingerprint.
func NewInvalidPayload(msg string) *Error {
	return &Error{
		Code:    ErrInvalidPayload,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for missing or invalid credentials.
func NewUnauthorized(msg string) *Error {
	return &Error{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewForbidden creates a 403 error for visibility or ownership violations.
// Distinct from NotFound so callers can tell permission from absence.
func NewForbidden() *Error {
	return &Error{
		Code:    ErrForbidden,
		Status:  403,
		Message: "you do not have permission to access this resource",
	}
}

// NewNotFound creates a 404 error for an absent creature, note, box, or user.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *Error {
	return &Error{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewPayloadTooLarge creates a 413 error when an upload exceeds the size limit.
func NewPayloadTooLarge(max, actual int) *Error {
	return &Error{
		Code:    ErrPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("upload exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// NewPurgeFailed creates an error for a failed delayed purge. It is recorded
// by the scheduler's logger and metrics; the soft-delete request was already
// acknowledged, so it is never written to an HTTP response.
func NewPurgeFailed(id string, err error) *Error {
	return &Error{
		Code:    ErrPurgeFailed,
		Status:  500,
		Message: fmt.Sprintf("purge of creature %s failed: %v", id, err),
		Details: map[string]any{"id": id},
	}
}

// Is checks if an error is an Error with the given code.
func Is(err error, code ErrorCode) bool {
	if pErr, ok := err.(*Error); ok {
		return pErr.Code == code
	}
	return false
}
