package ai

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/internal/observability"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/services/providers"
	"go.uber.org/zap"
)

// scriptedProvider answers with a fixed error or content and records what it saw
type scriptedProvider struct {
	name    string
	err     error
	content string
	delay   time.Duration

	mu       sync.Mutex
	requests []*providers.CompletionRequest
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, providers.NewProviderError(p.name, "timeout", "request timed out", 0, true, ctx.Err())
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	model := req.Model
	if model == "" {
		model = p.name + "-default"
	}
	return &providers.CompletionResponse{
		Provider:     p.name,
		Model:        model,
		Content:      p.content,
		FinishReason: "stop",
		Usage:        providers.Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12},
	}, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedProvider) lastRequest() *providers.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

func failing(name string, status int) *scriptedProvider {
	return &scriptedProvider{
		name: name,
		err:  providers.NewProviderError(name, "http_error", http.StatusText(status), status, status >= 500, nil),
	}
}

func succeeding(name, content string) *scriptedProvider {
	return &scriptedProvider{name: name, content: content}
}

// staticSettings serves the same settings to every tenant
type staticSettings struct {
	settings models.IntegrationSettings
	err      error
}

func (s *staticSettings) Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.settings.Clone()
	return &out, nil
}

type routerFixture struct {
	router   *Router
	recorder *audit.Memory
	metrics  *observability.Metrics
	settings *staticSettings
}

func newRouter(t *testing.T, config Config, provs ...providers.Provider) *routerFixture {
	t.Helper()
	registry := providers.NewRegistry()
	for _, p := range provs {
		require.NoError(t, registry.RegisterProvider(p))
	}
	f := &routerFixture{
		recorder: &audit.Memory{},
		metrics:  observability.NewMetrics("test"),
		settings: &staticSettings{settings: models.DefaultIntegrationSettings()},
	}
	f.router = NewRouter(registry, f.settings, f.recorder, f.metrics, zap.NewNop(), config)
	return f
}

func baseRequest() GenerateRequest {
	user := uuid.New()
	return GenerateRequest{
		OrgID:     uuid.New(),
		UserID:    &user,
		Feature:   FeatureChat,
		Prompt:    "Write a tagline",
		RequestID: "req-1",
	}
}

func attemptsOf(t *testing.T, err error) []Attempt {
	t.Helper()
	details := services.GetErrorDetails(err)
	require.NotNil(t, details)
	attempts, ok := details["attempts"].([]Attempt)
	require.True(t, ok, "attempts detail missing")
	return attempts
}

func TestGenerate_FallsBackToNextProvider(t *testing.T) {
	openrouter := failing("openrouter", http.StatusServiceUnavailable)
	anthropic := succeeding("anthropic", "Bold ideas, delivered.")
	openai := succeeding("openai", "unused")

	f := newRouter(t, Config{DefaultOrder: []string{"openrouter", "anthropic", "openai"}}, openrouter, anthropic, openai)

	result, err := f.router.Generate(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, "Bold ideas, delivered.", result.Content)
	assert.Equal(t, "anthropic", result.Provider)
	assert.Equal(t, 12, result.Usage.TotalTokens)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, OutcomeFallback, result.Attempts[0].Outcome)
	assert.Equal(t, http.StatusServiceUnavailable, result.Attempts[0].StatusCode)
	assert.Equal(t, OutcomeSuccess, result.Attempts[1].Outcome)
	assert.Equal(t, 0, openai.calls())

	assert.Equal(t, []models.AuditAction{
		models.AuditActionAICompletionFailed,
		models.AuditActionAICompletion,
	}, f.recorder.Actions())

	success := f.recorder.Entries()[1]
	assert.Equal(t, "anthropic", *success.Provider)
	assert.Equal(t, 12, *success.TokensUsed)
	assert.Equal(t, "req-1", success.RequestID)
	assert.Nil(t, success.StatusCode)

	failed := f.recorder.Entries()[0]
	assert.Equal(t, http.StatusServiceUnavailable, *failed.StatusCode)

	count, err := testutil.GatherAndCount(f.metrics.Registry, "test_ai_provider_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGenerate_FallbackStatuses(t *testing.T) {
	statuses := []int{401, 403, 404, 408, 409, 429, 500, 502, 503, 529}
	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			first := failing("openai", status)
			second := succeeding("gemini", "ok")
			f := newRouter(t, Config{DefaultOrder: []string{"openai", "gemini"}}, first, second)

			result, err := f.router.Generate(context.Background(), baseRequest())
			require.NoError(t, err)
			assert.Equal(t, "gemini", result.Provider)
			assert.Len(t, result.Attempts, 2)
		})
	}
}

func TestGenerate_NetworkErrorFallsBack(t *testing.T) {
	first := &scriptedProvider{
		name: "openai",
		err:  providers.NewProviderError("openai", "http_error", "HTTP request failed", 0, true, errors.New("connection refused")),
	}
	second := succeeding("gemini", "ok")
	f := newRouter(t, Config{DefaultOrder: []string{"openai", "gemini"}}, first, second)

	result, err := f.router.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "gemini", result.Provider)
	assert.Equal(t, 0, result.Attempts[0].StatusCode)
	assert.Contains(t, result.Attempts[0].Error, "connection refused")
}

func TestGenerate_AbortsOnInvalidRequest(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			first := failing("anthropic", status)
			second := succeeding("openai", "should not be reached")
			f := newRouter(t, Config{DefaultOrder: []string{"anthropic", "openai"}}, first, second)

			_, err := f.router.Generate(context.Background(), baseRequest())
			require.Error(t, err)
			assert.True(t, services.IsValidationError(err))
			assert.Equal(t, 0, second.calls())

			attempts := attemptsOf(t, err)
			require.Len(t, attempts, 1)
			assert.Equal(t, OutcomeAbort, attempts[0].Outcome)
			assert.Equal(t, "anthropic", services.GetErrorDetails(err)["provider"])
			assert.Equal(t, []models.AuditAction{models.AuditActionAICompletionFailed}, f.recorder.Actions())
		})
	}
}

func TestGenerate_AllProvidersFail(t *testing.T) {
	f := newRouter(t, Config{DefaultOrder: []string{"openrouter", "anthropic", "openai", "gemini"}},
		failing("openrouter", 500),
		failing("anthropic", 429),
		failing("openai", 401),
		failing("gemini", 503),
	)

	_, err := f.router.Generate(context.Background(), baseRequest())
	require.Error(t, err)
	assert.True(t, services.IsExternalError(err))
	assert.Contains(t, err.Error(), "all AI providers failed")

	attempts := attemptsOf(t, err)
	require.Len(t, attempts, 4)
	for i, name := range []string{"openrouter", "anthropic", "openai", "gemini"} {
		assert.Equal(t, name, attempts[i].Provider)
		assert.Equal(t, OutcomeFallback, attempts[i].Outcome)
	}
	assert.Len(t, f.recorder.Entries(), 4, "every attempt yields one audit row")
}

func TestGenerate_AttemptTimeoutFallsBack(t *testing.T) {
	slow := &scriptedProvider{name: "openrouter", delay: time.Second, content: "late"}
	fast := succeeding("openai", "fast")
	f := newRouter(t, Config{DefaultOrder: []string{"openrouter", "openai"}, AttemptTimeout: 20 * time.Millisecond}, slow, fast)

	result, err := f.router.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, http.StatusGatewayTimeout, result.Attempts[0].StatusCode)
}

func TestGenerate_CallerCancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &scriptedProvider{name: "openrouter", delay: time.Second}
	second := succeeding("openai", "unused")
	f := newRouter(t, Config{DefaultOrder: []string{"openrouter", "openai"}}, first, second)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := f.router.Generate(ctx, baseRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, second.calls())
	assert.Len(t, f.recorder.Entries(), 1)
}

func TestGenerate_Validation(t *testing.T) {
	f := newRouter(t, Config{}, succeeding("openai", "ok"))

	req := baseRequest()
	req.Prompt = "   "
	_, err := f.router.Generate(context.Background(), req)
	assert.True(t, services.IsValidationError(err))

	// history alone is enough
	req.History = []providers.Message{{Role: "user", Content: "earlier question"}}
	_, err = f.router.Generate(context.Background(), req)
	assert.NoError(t, err)
}

func TestGenerate_NoProviderConfigured(t *testing.T) {
	f := newRouter(t, Config{DefaultOrder: []string{"anthropic"}}, succeeding("openai", "ok"))

	_, err := f.router.Generate(context.Background(), baseRequest())
	assert.True(t, services.IsExternalError(err))
	assert.Contains(t, err.Error(), "no AI provider configured")
}

func TestGenerate_SettingsError(t *testing.T) {
	f := newRouter(t, Config{}, succeeding("openai", "ok"))
	f.settings.err = services.WrapInternal("failed to load integration settings", errors.New("db down"))

	_, err := f.router.Generate(context.Background(), baseRequest())
	assert.True(t, services.IsInternalError(err))
}

func TestGenerate_RedactsPIIWhenEnabled(t *testing.T) {
	provider := succeeding("openai", "ok")
	f := newRouter(t, Config{DefaultOrder: []string{"openai"}}, provider)
	f.settings.settings.RedactPII = true

	req := baseRequest()
	req.SystemPrompt = "Reply to support@agency.com threads"
	req.History = []providers.Message{{Role: "assistant", Content: "Call 555-123-4567?"}}
	req.Prompt = "Email maria@client.com the deck"

	_, err := f.router.Generate(context.Background(), req)
	require.NoError(t, err)

	sent := provider.lastRequest().Messages
	require.Len(t, sent, 3)
	assert.Equal(t, "Reply to support@agency.com threads", sent[0].Content)
	assert.Equal(t, "Call [PHONE_REDACTED]?", sent[1].Content)
	assert.Equal(t, "Email [EMAIL_REDACTED] the deck", sent[2].Content)
}

func TestGenerate_LeavesPIIWhenDisabled(t *testing.T) {
	provider := succeeding("openai", "ok")
	f := newRouter(t, Config{DefaultOrder: []string{"openai"}}, provider)

	req := baseRequest()
	req.Prompt = "Email maria@client.com the deck"
	_, err := f.router.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Email maria@client.com the deck", provider.lastRequest().Messages[0].Content)
}

func TestGenerate_ModelSelection(t *testing.T) {
	openai := failing("openai", 500)
	gemini := succeeding("gemini", "ok")
	f := newRouter(t, Config{DefaultOrder: []string{"openai", "gemini"}}, openai, gemini)
	f.settings.settings.AIModels = map[string]string{"gemini": "gemini-1.5-pro"}

	result, err := f.router.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "", openai.lastRequest().Model, "no tenant model: adapter default")
	assert.Equal(t, "gemini-1.5-pro", gemini.lastRequest().Model)
	assert.Equal(t, "gemini-1.5-pro", result.Model)

	req := baseRequest()
	req.Model = "custom-model"
	_, err = f.router.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "custom-model", openai.lastRequest().Model)
	assert.Equal(t, "custom-model", gemini.lastRequest().Model)
}

func TestResolveOrder(t *testing.T) {
	f := newRouter(t, Config{DefaultOrder: []string{"openrouter", "anthropic", "openai", "gemini"}},
		succeeding("anthropic", ""), succeeding("openai", ""), succeeding("gemini", ""))

	tests := []struct {
		name     string
		override []string
		tenant   []string
		want     []string
	}{
		{
			name: "default skips unregistered",
			want: []string{"anthropic", "openai", "gemini"},
		},
		{
			name:   "tenant order wins over default",
			tenant: []string{"gemini", "openai"},
			want:   []string{"gemini", "openai"},
		},
		{
			name:     "override wins over tenant",
			override: []string{"openai"},
			tenant:   []string{"gemini"},
			want:     []string{"openai"},
		},
		{
			name:     "unknown and duplicate names dropped",
			override: []string{"mistral", "Gemini", "gemini", "openrouter", "anthropic"},
			want:     []string{"gemini", "anthropic"},
		},
		{
			name:     "nothing usable",
			override: []string{"openrouter"},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &models.IntegrationSettings{AIProviderOrder: tt.tenant}
			assert.Equal(t, tt.want, f.router.ResolveOrder(tt.override, settings))
		})
	}
}

func TestGenerate_TriesEachProviderOnce(t *testing.T) {
	openai := failing("openai", 500)
	f := newRouter(t, Config{}, openai)

	req := baseRequest()
	req.Providers = []string{"openai", "openai", "OPENAI"}
	_, err := f.router.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 1, openai.calls())
}

func TestProviders(t *testing.T) {
	f := newRouter(t, Config{DefaultOrder: []string{"openrouter", "anthropic", "openai"}},
		succeeding("openai", ""), succeeding("anthropic", ""))
	f.settings.settings.AIProviderOrder = []string{"openai", "gemini"}

	listing, err := f.router.Providers(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "openai"}, listing.Registered)
	assert.Equal(t, []string{"openai", "gemini"}, listing.TenantOrder)
	assert.Equal(t, []string{"openai"}, listing.Effective)
}

func TestBuildMessages(t *testing.T) {
	history := []providers.Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: ""},
		{Role: "assistant", Content: "second"},
	}
	got := BuildMessages("persona", history, "third")

	require.Len(t, got, 4)
	assert.Equal(t, providers.Message{Role: "system", Content: "persona"}, got[0])
	assert.Equal(t, "first", got[1].Content)
	assert.Equal(t, "second", got[2].Content)
	assert.Equal(t, providers.Message{Role: "user", Content: "third"}, got[3])

	assert.Empty(t, BuildMessages("", nil, ""))
}
