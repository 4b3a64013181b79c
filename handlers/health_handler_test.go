package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var envelope struct {
		Data HealthResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	return envelope.Data
}

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, nil, "1.4.0", zap.NewNop())
	w := httptest.NewRecorder()

	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := readHealth(t, w)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.4.0", body.Version)
	assert.NotEmpty(t, body.Timestamp)
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	t.Run("database and redis up", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		handler := NewHealthHandler(db, rdb, "", logger)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := readHealth(t, w)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy"}, body.Checks)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database ping fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		handler := NewHealthHandler(db, nil, "", logger)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := readHealth(t, w)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "unhealthy", body.Checks["database"])
	})

	t.Run("redis down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer rdb.Close()
		mr.Close()

		handler := NewHealthHandler(nil, rdb, "", logger)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", readHealth(t, w).Checks["redis"])
	})

	t.Run("extra check", func(t *testing.T) {
		handler := NewHealthHandler(nil, nil, "", logger)
		handler.AddCheck("payments", func(ctx context.Context) error { return nil })
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", readHealth(t, w).Checks["payments"])
	})
}
