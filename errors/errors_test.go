package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Code:    ErrCodeStoryNotFound,
				Message: "story does not exist",
			},
			expected: "STORY_NOT_FOUND: story does not exist",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Code:    ErrCodeDatabaseQuery,
				Message: "failed to list parts",
				Cause:   fmt.Errorf("connection refused"),
			},
			expected: "DATABASE_QUERY_FAILED: failed to list parts (caused by: connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appError.Error())
		})
	}
}

func TestAppError_GetHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected int
	}{
		{"validation maps to bad request", ErrTypeValidation, http.StatusBadRequest},
		{"auth maps to unauthorized", ErrTypeAuth, http.StatusUnauthorized},
		{"forbidden maps to forbidden", ErrTypeForbidden, http.StatusForbidden},
		{"not found maps to not found", ErrTypeNotFound, http.StatusNotFound},
		{"conflict maps to conflict", ErrTypeConflict, http.StatusConflict},
		{"timeout maps to request timeout", ErrTypeTimeout, http.StatusRequestTimeout},
		{"database maps to bad gateway", ErrTypeDatabase, http.StatusBadGateway},
		{"cache backend maps to bad gateway", ErrTypeCache, http.StatusBadGateway},
		{"integrity maps to internal error", ErrTypeIntegrity, http.StatusInternalServerError},
		{"internal maps to internal error", ErrTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := &AppError{Type: tt.errType}
			assert.Equal(t, tt.expected, appErr.GetHTTPStatusCode())
		})
	}
}

func TestAppError_GetHTTPStatusCode_ExplicitStatusWins(t *testing.T) {
	appErr := &AppError{Type: ErrTypeValidation, StatusCode: http.StatusUnprocessableEntity}
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.GetHTTPStatusCode())
}

func TestErrorConstructors(t *testing.T) {
	cause := fmt.Errorf("underlying failure")

	tests := []struct {
		name          string
		err           *AppError
		expectedType  ErrorType
		expectedRetry bool
	}{
		{"validation", NewValidationError(ErrCodeInvalidInput, "bad input", cause), ErrTypeValidation, false},
		{"database", NewDatabaseError(ErrCodeDatabaseQuery, "query failed", cause), ErrTypeDatabase, true},
		{"internal", NewInternalError(ErrCodeProcessingError, "oops", cause), ErrTypeInternal, false},
		{"timeout", NewTimeoutError(ErrCodeDatabaseQuery, "too slow", cause), ErrTypeTimeout, true},
		{"auth", NewAuthError(ErrCodeAccessDenied, "who are you", nil), ErrTypeAuth, false},
		{"forbidden", NewForbiddenError(ErrCodeAccessDenied, "not yours", nil), ErrTypeForbidden, false},
		{"not found", NewNotFoundError(ErrCodeSceneNotFound, "no such scene", nil), ErrTypeNotFound, false},
		{"conflict", NewConflictError(ErrCodeOrderIndexConflict, "order taken", nil), ErrTypeConflict, false},
		{"integrity", NewIntegrityError(ErrCodeDuplicateOrder, "duplicate order", nil), ErrTypeIntegrity, false},
		{"cache backend", NewCacheBackendError(ErrCodeCacheUnavailable, "backend down", cause), ErrTypeCache, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedType, tt.err.Type)
			assert.Equal(t, tt.expectedRetry, tt.err.Retryable)
			assert.NotEmpty(t, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	appErr := NewDatabaseError(ErrCodeDatabaseQuery, "wrapper", cause)

	assert.Equal(t, cause, appErr.Unwrap())
	assert.True(t, errors.Is(appErr, cause))
}

func TestAsAppError(t *testing.T) {
	appErr := NewNotFoundError(ErrCodeStoryNotFound, "missing", nil)

	got, ok := AsAppError(appErr)
	require.True(t, ok)
	assert.Equal(t, appErr, got)

	_, ok = AsAppError(fmt.Errorf("plain error"))
	assert.False(t, ok)

	assert.True(t, IsAppError(appErr))
	assert.False(t, IsAppError(fmt.Errorf("plain error")))
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError(ErrCodePartNotFound, "gone", nil)))
	assert.False(t, IsNotFound(NewConflictError(ErrCodeOrderIndexConflict, "taken", nil)))

	assert.True(t, IsForbidden(NewForbiddenError(ErrCodeAccessDenied, "no", nil)))
	assert.False(t, IsForbidden(fmt.Errorf("plain")))

	assert.True(t, IsConflict(NewConflictError(ErrCodeHasChildren, "has children", nil)))
	assert.False(t, IsConflict(NewNotFoundError(ErrCodeStoryNotFound, "gone", nil)))
}

func TestWrapError(t *testing.T) {
	t.Run("wraps plain error with default retryability", func(t *testing.T) {
		wrapped := WrapError(fmt.Errorf("io failure"), ErrTypeDatabase, ErrCodeDatabaseQuery, "query failed")
		require.NotNil(t, wrapped)
		assert.Equal(t, ErrTypeDatabase, wrapped.Type)
		assert.True(t, wrapped.Retryable)
	})

	t.Run("preserves retryability of wrapped app error", func(t *testing.T) {
		inner := NewConflictError(ErrCodeOrderIndexConflict, "order taken", nil)
		wrapped := WrapError(inner, ErrTypeInternal, ErrCodeProcessingError, "insert failed")
		require.NotNil(t, wrapped)
		assert.False(t, wrapped.Retryable)
		assert.Equal(t, inner, wrapped.Cause)
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, WrapError(nil, ErrTypeInternal, ErrCodeProcessingError, "nothing"))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewDatabaseError(ErrCodeDatabaseQuery, "flaky", nil)))
	assert.False(t, IsRetryable(NewValidationError(ErrCodeInvalidInput, "bad", nil)))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}
