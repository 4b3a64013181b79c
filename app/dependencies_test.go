package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/config"
	"github.com/upb/agency-backoffice/repositories/postgres"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			ReadTimeout: 5 * time.Second,
			PublicURL:   "https://app.norte.test",
		},
		AI: config.AIConfig{
			ProviderOrder:  []string{"openrouter", "anthropic", "openai", "gemini"},
			RequestTimeout: 5 * time.Second,
			ConfigCacheTTL: time.Minute,
			AppName:        "Agency Backoffice",
		},
		Messaging: config.MessagingConfig{
			DeliveryTimeout: time.Second,
		},
		RateLimit: config.RateLimitConfig{AIRequestsPerSecond: 1, AIBurst: 5},
		Billing:   config.BillingConfig{InvoiceDueDays: 14, Currency: "USD"},
		Observability: config.ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
		},
	}
}

func newTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	db, _, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.WrapDB(db, zap.NewNop())
}

func TestNewDependenciesFromDB(t *testing.T) {
	t.Run("wires every handler without optional integrations", func(t *testing.T) {
		deps, err := NewDependenciesFromDB(testConfig(), newTestDB(t), nil, zap.NewNop())
		require.NoError(t, err)
		defer deps.Close(context.Background())

		assert.NotNil(t, deps.Metrics)
		assert.Zero(t, deps.Providers.Len())
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.AILimiter)

		h := deps.Handlers
		for name, handler := range map[string]interface{}{
			"health":        h.Health,
			"ai":            h.AI,
			"integrations":  h.Integrations,
			"clients":       h.Clients,
			"directory":     h.Directory,
			"kanban":        h.Kanban,
			"notifications": h.Notifications,
			"proposals":     h.Proposals,
			"invoices":      h.Invoices,
			"social":        h.Social,
			"chat":          h.Chat,
			"dashboard":     h.Dashboard,
			"audit":         h.Audit,
		} {
			assert.NotNil(t, handler, name)
		}
	})

	t.Run("registers configured providers", func(t *testing.T) {
		cfg := testConfig()
		cfg.AI.Anthropic = config.ProviderConfig{APIKey: "sk-ant-test", BaseURL: "https://api.anthropic.test"}
		cfg.AI.OpenRouter = config.ProviderConfig{APIKey: "sk-or-test", BaseURL: "https://openrouter.test"}

		deps, err := NewDependenciesFromDB(cfg, newTestDB(t), nil, zap.NewNop())
		require.NoError(t, err)
		defer deps.Close(context.Background())

		assert.ElementsMatch(t, []string{"anthropic", "openrouter"}, deps.Providers.ListProviders())
	})

	t.Run("shares settings through redis when configured", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer cache.Close()

		deps, err := NewDependenciesFromDB(testConfig(), newTestDB(t), cache, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, deps.Close(context.Background()))

		// the caller still owns the client
		assert.NoError(t, cache.Ping(context.Background()).Err())
	})

	t.Run("bad churn weights file", func(t *testing.T) {
		cfg := testConfig()
		cfg.Churn.WeightsFile = "/nonexistent/weights.yaml"

		_, err := NewDependenciesFromDB(cfg, newTestDB(t), nil, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "churn weights")
	})
}

func TestRejectAllValidator(t *testing.T) {
	deps, err := NewDependenciesFromDB(testConfig(), newTestDB(t), nil, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close(context.Background())

	protected := deps.AuthMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	r.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
