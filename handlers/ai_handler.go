package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services/ai"
	"github.com/upb/agency-backoffice/services/providers"
	"go.uber.org/zap"
)

// GenerateRequest is the body of POST /api/v1/ai/generate
type GenerateRequest struct {
	Feature      string           `json:"feature" validate:"omitempty,oneof=generic chat proposal social_caption"`
	SystemPrompt string           `json:"system_prompt" validate:"max=8000"`
	Prompt       string           `json:"prompt" validate:"max=16000"`
	History      []HistoryMessage `json:"history" validate:"max=50,dive"`
	Model        string           `json:"model" validate:"max=120"`
	MaxTokens    int              `json:"max_tokens" validate:"gte=0,lte=8192"`
	Temperature  float64          `json:"temperature" validate:"gte=0,lte=2"`
	Providers    []string         `json:"providers" validate:"max=8"`
	ClientID     *uuid.UUID       `json:"client_id"`
}

// HistoryMessage is a prior turn sent along with a prompt
type HistoryMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// AIService is the slice of the completion router used over HTTP
type AIService interface {
	Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResult, error)
	Providers(ctx context.Context, orgID uuid.UUID) (*ai.ProviderListing, error)
}

// AIHandler exposes the provider fallback chain
type AIHandler struct {
	router AIService
	logger *zap.Logger
}

func NewAIHandler(router AIService, logger *zap.Logger) *AIHandler {
	return &AIHandler{router: router, logger: logger}
}

// HandleGenerate handles POST /api/v1/ai/generate
func (h *AIHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}

	var req GenerateRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	history := make([]providers.Message, len(req.History))
	for i, m := range req.History {
		history[i] = providers.Message{Role: m.Role, Content: m.Content}
	}

	userID := emp.ID
	result, err := h.router.Generate(ctx, ai.GenerateRequest{
		OrgID:        orgID,
		UserID:       &userID,
		ClientID:     req.ClientID,
		Feature:      req.Feature,
		SystemPrompt: req.SystemPrompt,
		Prompt:       req.Prompt,
		History:      history,
		Model:        req.Model,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		Providers:    req.Providers,
		RequestID:    middleware.GetRequestIDFromContext(ctx),
		IPAddress:    r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("ai completion served",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("org_id", orgID.String()),
		zap.String("provider", result.Provider),
		zap.Int("attempts", len(result.Attempts)))
	writeOK(w, result, h.logger)
}

// HandleProviders handles GET /api/v1/ai/providers
func (h *AIHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	listing, err := h.router.Providers(r.Context(), orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, listing, h.logger)
}

// IntegrationService reads and writes per-tenant integration settings
type IntegrationService interface {
	Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationSettings, error)
	Update(ctx context.Context, orgID uuid.UUID, actorID *uuid.UUID, settings models.IntegrationSettings) (*models.IntegrationSettings, error)
}

// IntegrationsHandler serves the tenant integration config
type IntegrationsHandler struct {
	service IntegrationService
	logger  *zap.Logger
}

func NewIntegrationsHandler(service IntegrationService, logger *zap.Logger) *IntegrationsHandler {
	return &IntegrationsHandler{service: service, logger: logger}
}

// HandleGet handles GET /api/v1/integrations
func (h *IntegrationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	settings, err := h.service.Get(r.Context(), orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, settings, h.logger)
}

// HandleUpdate handles PUT /api/v1/integrations. The body replaces the
// whole settings document.
func (h *IntegrationsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	var settings models.IntegrationSettings
	if !decodeRequest(w, r, &settings, h.logger) {
		return
	}
	actorID := emp.ID
	updated, err := h.service.Update(r.Context(), orgID, &actorID, settings)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, updated, h.logger)
}
