package errors

import (
	"context"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeValidation ErrorType = "validation"
	ErrTypeDatabase   ErrorType = "database"
	ErrTypeInternal   ErrorType = "internal"
	ErrTypeTimeout    ErrorType = "timeout"
	ErrTypeAuth       ErrorType = "authentication"
	ErrTypeForbidden  ErrorType = "forbidden"
	ErrTypeNotFound   ErrorType = "not_found"
	ErrTypeConflict   ErrorType = "conflict"
	ErrTypeIntegrity  ErrorType = "integrity"
	ErrTypeCache      ErrorType = "cache_backend"
)

// AppError represents a standardized application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Cause      error     `json:"-"`
	StatusCode int       `json:"-"`
	Retryable  bool      `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error should be retried
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// GetHTTPStatusCode returns the appropriate HTTP status code
func (e *AppError) GetHTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeAuth:
		return http.StatusUnauthorized
	case ErrTypeForbidden:
		return http.StatusForbidden
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeConflict:
		return http.StatusConflict
	case ErrTypeTimeout:
		return http.StatusRequestTimeout
	case ErrTypeDatabase, ErrTypeCache:
		return http.StatusBadGateway
	case ErrTypeIntegrity:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors for common error types

// NewValidationError creates a validation error
func NewValidationError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeValidation,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeDatabase,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
		Retryable:  true,
	}
}

// NewInternalError creates an internal error
func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeInternal,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeTimeout,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusRequestTimeout,
		Retryable:  true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeAuth,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeForbidden,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusForbidden,
		Retryable:  false,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeNotFound,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusNotFound,
		Retryable:  false,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeConflict,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusConflict,
		Retryable:  false,
	}
}

// NewIntegrityError creates an integrity violation error. Integrity
// violations are never auto-repaired; they fail the affected subtree and
// are surfaced through the operator-facing consistency report.
func NewIntegrityError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeIntegrity,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
	}
}

// NewCacheBackendError creates a cache backend error. These are recovered
// locally by falling back to the origin loader and are not surfaced to
// API callers.
func NewCacheBackendError(code, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeCache,
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
	}
}

// Predefined error codes
const (
	// Validation errors
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeMissingField  = "MISSING_FIELD"
	ErrCodeInvalidMode   = "INVALID_TREE_MODE"
	ErrCodeInvalidParent = "INVALID_PARENT"

	// Resource errors
	ErrCodeStoryNotFound   = "STORY_NOT_FOUND"
	ErrCodePartNotFound    = "PART_NOT_FOUND"
	ErrCodeChapterNotFound = "CHAPTER_NOT_FOUND"
	ErrCodeSceneNotFound   = "SCENE_NOT_FOUND"

	// Conflict errors
	ErrCodeOrderIndexConflict = "ORDER_INDEX_CONFLICT"
	ErrCodeHasChildren        = "HAS_CHILDREN"

	// Authorization errors
	ErrCodeAccessDenied  = "ACCESS_DENIED"
	ErrCodeAdminRequired = "ADMIN_REQUIRED"

	// Database errors
	ErrCodeDatabaseConnection = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQuery      = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseTx         = "DATABASE_TRANSACTION_FAILED"

	// Integrity errors
	ErrCodeIntegrityViolation = "INTEGRITY_VIOLATION"
	ErrCodeDuplicateOrder     = "DUPLICATE_ORDER_INDEX"
	ErrCodeOrphanedChild      = "ORPHANED_CHILD"

	// Cache errors
	ErrCodeCacheUnavailable = "CACHE_BACKEND_UNAVAILABLE"
	ErrCodeCacheSerialize   = "CACHE_SERIALIZATION_FAILED"

	// Internal errors
	ErrCodeConfigurationError = "CONFIGURATION_ERROR"
	ErrCodeProcessingError    = "PROCESSING_ERROR"
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError converts an error to AppError if possible
func AsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == t
	}
	return false
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return IsType(err, ErrTypeNotFound) }

// IsForbidden reports whether err is a forbidden error
func IsForbidden(err error) bool { return IsType(err, ErrTypeForbidden) }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return IsType(err, ErrTypeConflict) }

// WrapError wraps an existing error as an AppError
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve retryability
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Type:      errType,
			Code:      code,
			Message:   message,
			Cause:     appErr,
			Retryable: appErr.Retryable,
		}
	}

	return &AppError{
		Type:      errType,
		Code:      code,
		Message:   message,
		Cause:     err,
		Retryable: isRetryableByDefault(errType),
	}
}

// isRetryableByDefault determines default retryability based on error type
func isRetryableByDefault(errType ErrorType) bool {
	switch errType {
	case ErrTypeDatabase, ErrTypeTimeout, ErrTypeCache:
		return true
	default:
		return false
	}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.IsRetryable()
	}

	if err == context.Canceled || err == context.DeadlineExceeded {
		return false
	}

	return false
}
