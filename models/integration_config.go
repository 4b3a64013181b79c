package models

import (
	"time"

	"github.com/google/uuid"
)

// IntegrationSettings is the per-tenant integration configuration
// stored as JSONB in integration_configs.settings.
type IntegrationSettings struct {
	AIProviderOrder []string          `json:"ai_provider_order,omitempty"`
	AIModels        map[string]string `json:"ai_models,omitempty"`
	RedactPII       bool              `json:"redact_pii"`
	EmailFrom       string            `json:"email_from,omitempty"`
	EmailFromName   string            `json:"email_from_name,omitempty"`
	WhatsAppPhoneID string            `json:"whatsapp_phone_id,omitempty"`
	NotifyEmail     bool              `json:"notify_email"`
	NotifyWhatsApp  bool              `json:"notify_whatsapp"`
}

// ModelFor returns the tenant's model override for a provider, if any
func (s *IntegrationSettings) ModelFor(provider string) string {
	if s == nil || s.AIModels == nil {
		return ""
	}
	return s.AIModels[provider]
}

// IntegrationConfig is the stored row
type IntegrationConfig struct {
	OrgID     uuid.UUID           `json:"org_id" db:"org_id"`
	Settings  IntegrationSettings `json:"settings" db:"settings"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the IntegrationConfig model
func (IntegrationConfig) TableName() string {
	return "integration_configs"
}

// DefaultIntegrationSettings is used for tenants without a stored row
func DefaultIntegrationSettings() IntegrationSettings {
	return IntegrationSettings{NotifyEmail: true}
}

// Clone returns a deep copy of the settings
func (s IntegrationSettings) Clone() IntegrationSettings {
	out := s
	if s.AIProviderOrder != nil {
		out.AIProviderOrder = append([]string(nil), s.AIProviderOrder...)
	}
	if s.AIModels != nil {
		out.AIModels = make(map[string]string, len(s.AIModels))
		for k, v := range s.AIModels {
			out.AIModels[k] = v
		}
	}
	return out
}
