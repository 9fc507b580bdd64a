package common

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorCode represents different types of application errors
type ErrorCode string

const (
	// General errors
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	// Invoice errors
	ErrCodeMalformedInvoice ErrorCode = "MALFORMED_INVOICE"

	// Storage errors
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeConsistencyGap     ErrorCode = "CONSISTENCY_GAP"

	// Business logic errors
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"
	ErrCodeOperationNotAllowed ErrorCode = "OPERATION_NOT_ALLOWED"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StatusCode int                    `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Stack      string                 `json:"-"`
	RequestID  string                 `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRequestID adds request ID to the error
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getHTTPStatusCode(code),
		Stack:      getStackTrace(),
	}
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Details = details
	return appErr
}

// NewAppErrorWithCause creates a new application error with an underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = cause
	return appErr
}

// WrapError wraps an existing error with application error context.
// An AppError anywhere in the chain is returned unchanged.
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}
	return NewAppErrorWithCause(code, message, err)
}

func getHTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput, ErrCodeMalformedInvoice:
		return http.StatusBadRequest
	case ErrCodeTimeout:
		return http.StatusRequestTimeout
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable, ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeConsistencyGap:
		return http.StatusConflict
	case ErrCodeInvalidState, ErrCodeOperationNotAllowed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func getStackTrace() string {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasErrorCode checks if the error has a specific error code
func HasErrorCode(err error, code ErrorCode) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == code
	}
	return false
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string, cause error) *AppError {
	return NewAppErrorWithCause(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), cause)
}

// ErrMalformedInvoice creates a malformed invoice error
func ErrMalformedInvoice(details string, cause error) *AppError {
	appErr := NewAppErrorWithCause(ErrCodeMalformedInvoice, "invoice is malformed", cause)
	appErr.Details = details
	return appErr
}

// ErrStorageUnavailable creates a storage error for the named operation
func ErrStorageUnavailable(operation string, cause error) *AppError {
	return NewAppErrorWithCause(ErrCodeStorageUnavailable,
		fmt.Sprintf("storage unavailable: %s", operation), cause)
}

// ErrConsistencyGap reports a cross-entity update that only partially applied
func ErrConsistencyGap(details string, cause error) *AppError {
	appErr := NewAppErrorWithCause(ErrCodeConsistencyGap, "entities out of sync", cause)
	appErr.Details = details
	return appErr
}

// ErrRateLimited creates a rate limited error
func ErrRateLimited() *AppError {
	return NewAppError(ErrCodeRateLimited, "rate limit exceeded")
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return NewAppError(ErrCodeInternal, message)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed with %d errors", len(ve))
}

// Add adds a validation error
func (ve *ValidationErrors) Add(field, message string, value interface{}) {
	*ve = append(*ve, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}
