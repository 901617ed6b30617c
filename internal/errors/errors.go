package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Retrace error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrImportFailed   ErrorCode = "IMPORT_FAILED"   // 422
	ErrQueryCancelled ErrorCode = "QUERY_CANCELLED" // 499, superseded query, dropped silently
	ErrQueryFailed    ErrorCode = "QUERY_FAILED"    // 500, store/driver failure
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// RetraceError represents a structured error with code, status, and details.
type RetraceError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *RetraceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *RetraceError {
	return &RetraceError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a page cannot be found.
func NewNotFound(identifier string) *RetraceError {
	return &RetraceError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("page not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewImportFailed creates a 422 error for a bookmark import that could not be applied.
func NewImportFailed(path string, err error) *RetraceError {
	msg := "import failed"
	if err != nil {
		msg = err.Error()
	}
	return &RetraceError{
		Code:    ErrImportFailed,
		Status:  422,
		Message: msg,
		Details: map[string]any{"path": path},
	}
}

// NewQueryCancelled marks a superseded in-flight query. Not a failure:
// callers drop the result and show nothing.
func NewQueryCancelled(requestID string) *RetraceError {
	return &RetraceError{
		Code:    ErrQueryCancelled,
		Status:  499,
		Message: fmt.Sprintf("query superseded: %s", requestID),
		Details: map[string]any{"request_id": requestID},
	}
}

// NewQueryFailed creates a 500 error for a store query that failed.
// Distinct from cancellation so surfaces can log it while displaying
// an empty result set.
func NewQueryFailed(err error) *RetraceError {
	msg := "query failed"
	if err != nil {
		msg = err.Error()
	}
	return &RetraceError{
		Code:    ErrQueryFailed,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the original error is kept in Details for logging
// so SQL errors and file paths never leak to callers.
func NewInternal(err error) *RetraceError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &RetraceError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a RetraceError with the given code.
func Is(err error, code ErrorCode) bool {
	var rErr *RetraceError
	if stderrors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}
