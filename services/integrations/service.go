package integrations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/internal/observability"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/services/providers"
	"go.uber.org/zap"
)

// Service resolves per-tenant integration settings through the memory
// cache, the optional Redis tier and finally the database
type Service struct {
	repo     repositories.IntegrationRepository
	cache    *SettingsCache
	shared   *RedisTier
	recorder audit.Recorder
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the integration settings service. shared may be nil.
func NewService(
	repo repositories.IntegrationRepository,
	cache *SettingsCache,
	shared *RedisTier,
	recorder audit.Recorder,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		shared:   shared,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the tenant's settings, or the defaults when none are stored
func (s *Service) Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationSettings, error) {
	if settings, ok := s.cache.Get(orgID); ok {
		s.metrics.RecordCacheLookup("memory", true)
		return &settings, nil
	}
	s.metrics.RecordCacheLookup("memory", false)

	if s.shared != nil {
		settings, remaining, found, err := s.shared.Get(ctx, orgID)
		switch {
		case err != nil:
			s.logger.Warn("integration settings redis lookup failed",
				zap.String("org_id", orgID.String()),
				zap.Error(err),
			)
		case found:
			s.metrics.RecordCacheLookup("redis", true)
			s.cache.SetWithTTL(orgID, settings, remaining)
			return &settings, nil
		default:
			s.metrics.RecordCacheLookup("redis", false)
		}
	}

	settings, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(orgID, settings)
	if s.shared != nil {
		if err := s.shared.Set(ctx, orgID, settings); err != nil {
			s.logger.Warn("failed to populate integration settings in redis",
				zap.String("org_id", orgID.String()),
				zap.Error(err),
			)
		}
	}
	return &settings, nil
}

func (s *Service) load(ctx context.Context, orgID uuid.UUID) (models.IntegrationSettings, error) {
	cfg, err := s.repo.Get(ctx, orgID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.metrics.RecordCacheLookup("db", false)
		return models.DefaultIntegrationSettings(), nil
	}
	if err != nil {
		return models.IntegrationSettings{}, services.WrapInternal("failed to load integration settings", err)
	}
	s.metrics.RecordCacheLookup("db", true)
	return cfg.Settings, nil
}

// Update validates and stores the tenant's settings, then invalidates both cache tiers
func (s *Service) Update(ctx context.Context, orgID uuid.UUID, actorID *uuid.UUID, settings models.IntegrationSettings) (*models.IntegrationSettings, error) {
	normalized, err := Normalize(settings)
	if err != nil {
		return nil, err
	}

	cfg := &models.IntegrationConfig{
		OrgID:     orgID,
		Settings:  normalized,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, services.WrapInternal("failed to save integration settings", err)
	}

	s.Invalidate(ctx, orgID)

	entry := models.NewAuditLog(orgID, models.AuditActionIntegrationUpdated, "integration_config").
		WithDetails(map[string]interface{}{
			"ai_provider_order": normalized.AIProviderOrder,
			"redact_pii":        normalized.RedactPII,
			"notify_email":      normalized.NotifyEmail,
			"notify_whatsapp":   normalized.NotifyWhatsApp,
		})
	if actorID != nil {
		entry.WithUser(*actorID)
	}
	s.recorder.Record(entry)

	s.logger.Info("integration settings updated", zap.String("org_id", orgID.String()))
	return &normalized, nil
}

// Invalidate drops the tenant from both cache tiers
func (s *Service) Invalidate(ctx context.Context, orgID uuid.UUID) {
	s.cache.Invalidate(orgID)
	if s.shared != nil {
		if err := s.shared.Delete(ctx, orgID); err != nil {
			s.logger.Warn("failed to invalidate integration settings in redis",
				zap.String("org_id", orgID.String()),
				zap.Error(err),
			)
		}
	}
}

// Normalize lower-cases and de-duplicates provider names and rejects
// names that no adapter answers to
func Normalize(settings models.IntegrationSettings) (models.IntegrationSettings, error) {
	out := settings.Clone()

	seen := make(map[string]bool, len(out.AIProviderOrder))
	order := make([]string, 0, len(out.AIProviderOrder))
	for _, name := range out.AIProviderOrder {
		name = strings.ToLower(strings.TrimSpace(name))
		if !providers.IsKnown(name) {
			return out, services.NewDomainError(services.ErrorTypeValidation, "unknown AI provider", nil).
				WithDetail("provider", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	out.AIProviderOrder = order

	if len(out.AIModels) > 0 {
		byProvider := make(map[string]string, len(out.AIModels))
		for name, model := range out.AIModels {
			name = strings.ToLower(strings.TrimSpace(name))
			if !providers.IsKnown(name) {
				return out, services.NewDomainError(services.ErrorTypeValidation, "unknown AI provider", nil).
					WithDetail("provider", name)
			}
			if model = strings.TrimSpace(model); model != "" {
				byProvider[name] = model
			}
		}
		out.AIModels = byProvider
	}

	out.EmailFrom = strings.TrimSpace(out.EmailFrom)
	out.EmailFromName = strings.TrimSpace(out.EmailFromName)
	out.WhatsAppPhoneID = strings.TrimSpace(out.WhatsAppPhoneID)
	return out, nil
}
