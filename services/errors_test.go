package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	withCause := NewDomainError(ErrorTypeNotFound, "client not found", errors.New("sql: no rows in result set"))
	assert.Equal(t, "not_found: client not found (sql: no rows in result set)", withCause.Error())
	assert.Equal(t, "conflict: invoice is already paid", ErrAlreadyPaid.Error())
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapInternal("failed to load board", cause)

	assert.True(t, IsInternalError(err))
	assert.ErrorIs(t, err, cause)
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same sentinel", ErrTaskNotFound, ErrTaskNotFound, true},
		{"wrapped with fmt", fmt.Errorf("handoff: %w", ErrAlreadyHandedOff), ErrAlreadyHandedOff, true},
		{"copy with a cause", NewDomainError(ErrorTypeExternal, ErrAllProvidersFailed.Message, errors.New("timeout")), ErrAllProvidersFailed, true},
		{"same type, other sentinel", ErrProposalExpired, ErrAlreadyPaid, false},
		{"other type", ErrSameColumn, ErrTaskNotFound, false},
		{"plain target", ErrTaskNotFound, errors.New("task not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeExternal, "all AI providers failed", nil).
		WithDetail("attempts", 3).
		WithDetail("last_provider", "gemini")

	assert.Equal(t, map[string]interface{}{"attempts": 3, "last_provider": "gemini"}, GetErrorDetails(err))
	assert.Nil(t, GetErrorDetails(errors.New("regular error")))

	bare := &DomainError{Type: ErrorTypeValidation, Message: "bad slug"}
	assert.Equal(t, "norte digital", bare.WithDetail("slug", "norte digital").Details["slug"])
}

func TestTypeCheckers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checker func(error) bool
		want    bool
	}{
		{"not found", ErrClientNotFound, IsNotFoundError, true},
		{"wrapped not found", fmt.Errorf("load: %w", ErrBoardNotFound), IsNotFoundError, true},
		{"validation", ErrSameColumn, IsValidationError, true},
		{"provider rejected is validation", ErrProviderRejected, IsValidationError, true},
		{"forbidden", ErrOrgMismatch, IsForbiddenError, true},
		{"conflict", ErrDuplicateHandle, IsConflictError, true},
		{"internal", WrapInternal("failed to save", errors.New("deadlock")), IsInternalError, true},
		{"external", ErrAllProvidersFailed, IsExternalError, true},
		{"plain error", errors.New("boom"), IsNotFoundError, false},
		{"nil", nil, IsConflictError, false},
		{"wrong type", ErrClientNotFound, IsConflictError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeUnauthorized, GetErrorType(ErrTokenExpired))
	assert.Equal(t, ErrorTypeExternal, GetErrorType(fmt.Errorf("checkout: %w", ErrPaymentProvider)))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("regular")))

	var domainErr *DomainError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", ErrNoPortalEmail), &domainErr))
	assert.Equal(t, "client has no email address", domainErr.Message)
}
