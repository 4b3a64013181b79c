package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/internal/observability"
	"github.com/upb/agency-backoffice/internal/prompt"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/services/providers"
	"go.uber.org/zap"
)

// Config holds router settings
type Config struct {
	// DefaultOrder is used when neither the request nor the tenant names an order
	DefaultOrder []string

	// AttemptTimeout bounds a single provider call
	AttemptTimeout time.Duration
}

// Router walks the provider chain until one provider answers
type Router struct {
	registry *providers.Registry
	settings SettingsSource
	recorder audit.Recorder
	metrics  *observability.Metrics
	logger   *zap.Logger
	config   Config
}

// NewRouter creates a new fallback router
func NewRouter(
	registry *providers.Registry,
	settings SettingsSource,
	recorder audit.Recorder,
	metrics *observability.Metrics,
	logger *zap.Logger,
	config Config,
) *Router {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if len(config.DefaultOrder) == 0 {
		config.DefaultOrder = providers.KnownProviders
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 45 * time.Second
	}
	return &Router{
		registry: registry,
		settings: settings,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
		config:   config,
	}
}

// Generate builds the conversation, then tries each provider in order until one succeeds
func (r *Router) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.Feature == "" {
		req.Feature = FeatureGeneric
	}

	messages := BuildMessages(req.SystemPrompt, req.History, req.Prompt)
	if len(messages) == 0 {
		return nil, services.ErrEmptyPrompt
	}

	settings, err := r.settings.Get(ctx, req.OrgID)
	if err != nil {
		return nil, err
	}

	if settings.RedactPII {
		messages = RedactMessages(messages)
	}

	order := r.ResolveOrder(req.Providers, settings)
	if len(order) == 0 {
		return nil, services.ErrNoProviderConfigured
	}

	r.logger.Info("starting AI generation",
		zap.String("request_id", req.RequestID),
		zap.String("org_id", req.OrgID.String()),
		zap.String("feature", req.Feature),
		zap.Strings("providers", order),
	)

	attempts := make([]Attempt, 0, len(order))
	for i, name := range order {
		provider, err := r.registry.GetProvider(name)
		if err != nil {
			continue
		}

		model := req.Model
		if model == "" {
			model = settings.ModelFor(name)
		}

		completion := &providers.CompletionRequest{
			Model:       model,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}

		resp, attempt, err := r.attempt(ctx, provider, completion)
		attempt.Model = model
		if resp != nil && resp.Model != "" {
			attempt.Model = resp.Model
		}

		if err == nil {
			attempt.Outcome = OutcomeSuccess
			attempts = append(attempts, attempt)
			r.record(req, i+1, attempt, resp.Usage.TotalTokens)

			r.logger.Info("AI generation completed",
				zap.String("request_id", req.RequestID),
				zap.String("provider", name),
				zap.String("model", attempt.Model),
				zap.Int("attempts", len(attempts)),
				zap.Int("tokens", resp.Usage.TotalTokens),
			)
			return &GenerateResult{
				Content:      resp.Content,
				Provider:     name,
				Model:        attempt.Model,
				FinishReason: resp.FinishReason,
				Usage:        resp.Usage,
				Attempts:     attempts,
			}, nil
		}

		if shouldAbort(ctx, attempt.StatusCode) {
			attempt.Outcome = OutcomeAbort
			attempts = append(attempts, attempt)
			r.record(req, i+1, attempt, 0)

			r.logger.Warn("AI generation aborted",
				zap.String("request_id", req.RequestID),
				zap.String("provider", name),
				zap.Int("status_code", attempt.StatusCode),
				zap.Error(err),
			)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrProviderRejected.Message, err).
				WithDetail("provider", name).
				WithDetail("attempts", attempts)
		}

		attempt.Outcome = OutcomeFallback
		attempts = append(attempts, attempt)
		r.record(req, i+1, attempt, 0)

		r.logger.Warn("AI provider failed, trying next",
			zap.String("request_id", req.RequestID),
			zap.String("provider", name),
			zap.Int("status_code", attempt.StatusCode),
			zap.Error(err),
		)
	}

	r.logger.Error("all AI providers failed",
		zap.String("request_id", req.RequestID),
		zap.String("org_id", req.OrgID.String()),
		zap.Int("attempts", len(attempts)),
	)
	return nil, services.NewDomainError(services.ErrorTypeExternal, services.ErrAllProvidersFailed.Message, nil).
		WithDetail("attempts", attempts)
}

// attempt performs one provider call under the per-attempt timeout
func (r *Router) attempt(ctx context.Context, provider providers.Provider, req *providers.CompletionRequest) (*providers.CompletionResponse, Attempt, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.config.AttemptTimeout)
	defer cancel()

	start := time.Now()
	resp, err := provider.Complete(attemptCtx, req)
	latency := time.Since(start)

	attempt := Attempt{
		Provider:  provider.Name(),
		LatencyMs: latency.Milliseconds(),
	}
	if err != nil {
		attempt.StatusCode = providers.StatusCode(err)
		attempt.Error = err.Error()
		if attempt.StatusCode == 0 && errors.Is(err, context.DeadlineExceeded) {
			attempt.StatusCode = http.StatusGatewayTimeout
		}
		return nil, attempt, err
	}
	return resp, attempt, nil
}

// shouldAbort stops the walk when the request itself is at fault or the
// caller went away. Everything else moves on to the next provider.
func shouldAbort(ctx context.Context, statusCode int) bool {
	if ctx.Err() != nil {
		return true
	}
	return statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity
}

// record writes the audit row and metrics for one attempt
func (r *Router) record(req GenerateRequest, n int, attempt Attempt, tokens int) {
	r.metrics.RecordAIAttempt(attempt.Provider, attempt.Outcome, time.Duration(attempt.LatencyMs)*time.Millisecond)

	action := models.AuditActionAICompletion
	if attempt.Outcome != OutcomeSuccess {
		action = models.AuditActionAICompletionFailed
	} else {
		r.metrics.RecordAITokens(attempt.Provider, req.Feature, tokens)
	}

	entry := models.NewAuditLog(req.OrgID, action, "ai").
		WithAIMetrics(attempt.Model, attempt.Provider, tokens, int(attempt.LatencyMs)).
		WithRequest(req.RequestID, req.IPAddress, req.UserAgent).
		WithDetails(map[string]interface{}{
			"feature": req.Feature,
			"attempt": n,
			"outcome": attempt.Outcome,
		})
	if req.UserID != nil {
		entry.WithUser(*req.UserID)
	}
	if req.ClientID != nil {
		entry.WithClient(*req.ClientID)
	}
	if attempt.Outcome != OutcomeSuccess {
		entry.WithError(attempt.StatusCode, attempt.Error)
	}
	r.recorder.Record(entry)
}

// ResolveOrder picks the first non-empty order among the override, the
// tenant settings and the configured default, then drops names that are
// unknown, not registered or repeated
func (r *Router) ResolveOrder(override []string, settings *models.IntegrationSettings) []string {
	candidates := override
	if len(candidates) == 0 && settings != nil {
		candidates = settings.AIProviderOrder
	}
	if len(candidates) == 0 {
		candidates = r.config.DefaultOrder
	}

	seen := make(map[string]bool, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, name := range candidates {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] || !providers.IsKnown(name) || !r.registry.Has(name) {
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	return order
}

// Providers lists the registered providers and the tenant's effective order
func (r *Router) Providers(ctx context.Context, orgID uuid.UUID) (*ProviderListing, error) {
	settings, err := r.settings.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &ProviderListing{
		Registered:   r.registry.ListProviders(),
		DefaultOrder: r.config.DefaultOrder,
		TenantOrder:  settings.AIProviderOrder,
		Effective:    r.ResolveOrder(nil, settings),
	}, nil
}

// BuildMessages assembles the conversation: system prompt, history in
// order, then the new user prompt. Blank entries are dropped.
func BuildMessages(systemPrompt string, history []providers.Message, userPrompt string) []providers.Message {
	messages := make([]providers.Message, 0, len(history)+2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, providers.Message{Role: "system", Content: systemPrompt})
	}
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		messages = append(messages, msg)
	}
	if strings.TrimSpace(userPrompt) != "" {
		messages = append(messages, providers.Message{Role: "user", Content: userPrompt})
	}
	return messages
}

// RedactMessages masks PII in user and assistant messages. System prompts
// are authored by the service and left untouched.
func RedactMessages(messages []providers.Message) []providers.Message {
	out := make([]providers.Message, len(messages))
	for i, msg := range messages {
		if msg.Role == "user" || msg.Role == "assistant" {
			msg.Content = prompt.RedactPII(msg.Content)
		}
		out[i] = msg
	}
	return out
}
