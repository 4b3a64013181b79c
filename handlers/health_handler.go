package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	version string
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler probes the database and, when configured, the shared
// Redis cache tier
func NewHealthHandler(db *sql.DB, cache *redis.Client, version string, logger *zap.Logger) *HealthHandler {
	h := &HealthHandler{
		version: version,
		checks:  make(map[string]CheckFunc),
		timeout: 5 * time.Second,
		logger:  logger,
	}
	if db != nil {
		h.checks["database"] = databaseCheck(db)
	}
	if cache != nil {
		h.checks["redis"] = func(ctx context.Context) error {
			return cache.Ping(ctx).Err()
		}
	}
	return h
}

// AddCheck registers an extra readiness probe
func (h *HealthHandler) AddCheck(name string, check CheckFunc) {
	h.checks[name] = check
}

// HandleHealth handles GET /healthz. It never touches dependencies.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz; 503 when any probe fails
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unhealthy"
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	resp := HealthResponse{
		Status:    status,
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if err := utils.WriteJSON(w, code, utils.SuccessResponse{Data: resp}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func databaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		var one int
		return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	}
}
