package ai

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services/providers"
)

// Features tag what a generation is for, in audit rows and token metrics
const (
	FeatureGeneric       = "generic"
	FeatureChat          = "chat"
	FeatureProposal      = "proposal"
	FeatureSocialCaption = "social_caption"
)

// Attempt outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeAbort    = "abort"
)

// Generator is implemented by Router; consumers depend on this
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// SettingsSource resolves a tenant's integration settings
type SettingsSource interface {
	Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationSettings, error)
}

// GenerateRequest represents a completion request from a feature or the API
type GenerateRequest struct {
	// Tenant context
	OrgID    uuid.UUID
	UserID   *uuid.UUID
	ClientID *uuid.UUID

	// Feature names the calling feature, e.g. "chat"
	Feature string

	SystemPrompt string
	Prompt       string
	History      []providers.Message

	// Model overrides the tenant and provider default model on every attempt
	Model       string
	MaxTokens   int
	Temperature float64

	// Providers overrides the provider order for this call
	Providers []string

	// Request metadata
	RequestID string
	IPAddress string
	UserAgent string
}

// Attempt records one provider call of a generation
type Attempt struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
}

// GenerateResult is the successful outcome of a generation
type GenerateResult struct {
	Content      string          `json:"content"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        providers.Usage `json:"usage"`
	Attempts     []Attempt       `json:"attempts"`
}

// ProviderListing describes the providers available to a tenant
type ProviderListing struct {
	Registered   []string `json:"registered"`
	DefaultOrder []string `json:"default_order"`
	TenantOrder  []string `json:"tenant_order,omitempty"`

	// Effective is the order a request without overrides would walk
	Effective []string `json:"effective"`
}
