package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
		message        string
	}{
		{"not found", services.ErrClientNotFound, http.StatusNotFound, "not_found", "client not found"},
		{"validation", services.ErrScheduleInPast, http.StatusBadRequest, "bad_request", services.ErrScheduleInPast.Message},
		{"unauthorized", services.ErrTokenExpired, http.StatusUnauthorized, "unauthorized", services.ErrTokenExpired.Message},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, "forbidden", services.ErrForbidden.Message},
		{"conflict", services.ErrDuplicateSlug, http.StatusConflict, "conflict", services.ErrDuplicateSlug.Message},
		{"already handed off", services.ErrAlreadyHandedOff, http.StatusConflict, "conflict", services.ErrAlreadyHandedOff.Message},
		{"providers exhausted", services.ErrAllProvidersFailed, http.StatusBadGateway, "bad_gateway", services.ErrAllProvidersFailed.Message},
		{"internal hides cause", services.WrapInternal("failed to load client", errors.New("pq: connection reset")), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error", "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decodeErrorBody(t, w)
			assert.Equal(t, tt.expectedError, body.Error)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestHandleServiceError_Details(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypeExternal, services.ErrAllProvidersFailed.Message, nil).
		WithDetail("attempts", []string{"openrouter", "anthropic"})
	w := httptest.NewRecorder()

	HandleServiceError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, []interface{}{"openrouter", "anthropic"}, body.Details["attempts"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("field errors become details", func(t *testing.T) {
		err := &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"name": "name is required"},
		}
		w := httptest.NewRecorder()

		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeErrorBody(t, w)
		assert.Equal(t, "Validation failed", body.Message)
		assert.Equal(t, "name is required", body.Details["name"])
	})

	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleValidationError(w, errors.New("bad input"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad input", decodeErrorBody(t, w).Message)
	})
}
