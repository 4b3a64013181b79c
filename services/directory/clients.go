package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/supabase"
	"go.uber.org/zap"
)

const (
	defaultClientPage = 50
	maxClientPage     = 200
)

// CreateClient adds a client account
func (s *Service) CreateClient(ctx context.Context, orgID uuid.UUID, req ClientRequest) (*models.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "client name is required", nil)
	}
	if req.MonthlyRetainerCents < 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "retainer cannot be negative", nil)
	}
	if err := validateSatisfaction(req.SatisfactionScore); err != nil {
		return nil, err
	}
	if err := validateContract(req.ContractStart, req.ContractEnd); err != nil {
		return nil, err
	}
	if req.OwnerID != nil {
		if _, err := s.GetEmployee(ctx, orgID, *req.OwnerID); err != nil {
			return nil, err
		}
	}

	c := models.NewClient(orgID, name, strings.TrimSpace(req.Company), strings.ToLower(strings.TrimSpace(req.Email)))
	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	c.Phone = strings.TrimSpace(req.Phone)
	c.OwnerID = req.OwnerID
	c.ContractStart = utcDate(req.ContractStart)
	c.ContractEnd = utcDate(req.ContractEnd)
	c.MonthlyRetainerCents = req.MonthlyRetainerCents
	c.SatisfactionScore = req.SatisfactionScore

	if err := s.clients.Create(ctx, c); err != nil {
		return nil, duplicateError("failed to create client", err)
	}
	s.logger.Info("client created", zap.String("org_id", orgID.String()), zap.String("client_id", c.ID.String()))
	return c, nil
}

// GetClient returns a client account
func (s *Service) GetClient(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	c, err := s.clients.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrClientNotFound
		}
		return nil, services.WrapInternal("failed to get client", err)
	}
	return c, nil
}

// ListClients returns a page of client accounts
func (s *Service) ListClients(ctx context.Context, orgID uuid.UUID, filter repositories.ClientFilter) ([]*models.Client, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultClientPage
	}
	if filter.Limit > maxClientPage {
		filter.Limit = maxClientPage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	list, err := s.clients.List(ctx, orgID, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list clients", err)
	}
	return list, nil
}

// UpdateClient changes a client account
func (s *Service) UpdateClient(ctx context.Context, orgID, id uuid.UUID, req ClientUpdate) (*models.Client, error) {
	c, err := s.GetClient(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "client name is required", nil)
		}
		c.Name = name
	}
	if req.Company != nil {
		c.Company = strings.TrimSpace(*req.Company)
	}
	if req.Email != nil {
		c.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		c.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Status != nil {
		switch *req.Status {
		case models.ClientStatusActive, models.ClientStatusPaused, models.ClientStatusChurned:
			c.Status = *req.Status
		default:
			return nil, services.NewDomainError(services.ErrorTypeValidation, "unknown client status", nil).
				WithDetail("status", string(*req.Status))
		}
	}
	if req.OwnerID != nil {
		if _, err := s.GetEmployee(ctx, orgID, *req.OwnerID); err != nil {
			return nil, err
		}
		c.OwnerID = req.OwnerID
	}
	if req.ContractStart != nil {
		c.ContractStart = utcDate(req.ContractStart)
	}
	if req.ContractEnd != nil {
		c.ContractEnd = utcDate(req.ContractEnd)
	}
	if err := validateContract(c.ContractStart, c.ContractEnd); err != nil {
		return nil, err
	}
	if req.MonthlyRetainerCents != nil {
		if *req.MonthlyRetainerCents < 0 {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "retainer cannot be negative", nil)
		}
		c.MonthlyRetainerCents = *req.MonthlyRetainerCents
	}
	if req.SatisfactionScore != nil {
		if err := validateSatisfaction(req.SatisfactionScore); err != nil {
			return nil, err
		}
		c.SatisfactionScore = req.SatisfactionScore
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.clients.Update(ctx, c); err != nil {
		return nil, duplicateError("failed to update client", err)
	}
	return c, nil
}

// DeleteClient removes a client account
func (s *Service) DeleteClient(ctx context.Context, orgID, id uuid.UUID) error {
	if err := s.clients.Delete(ctx, orgID, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrClientNotFound
		}
		return services.WrapInternal("failed to delete client", err)
	}
	s.logger.Info("client deleted", zap.String("org_id", orgID.String()), zap.String("client_id", id.String()))
	return nil
}

// RecordContact stamps the last time the agency spoke with the client.
// A nil at means now; future times are rejected.
func (s *Service) RecordContact(ctx context.Context, orgID, id uuid.UUID, at *time.Time) (*models.Client, error) {
	now := s.now().UTC()
	when := now
	if at != nil {
		when = at.UTC()
		if when.After(now) {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "contact time cannot be in the future", nil)
		}
	}

	if err := s.clients.TouchContact(ctx, orgID, id, when); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrClientNotFound
		}
		return nil, services.WrapInternal("failed to record contact", err)
	}
	return s.GetClient(ctx, orgID, id)
}

// RecordPortalLogin stamps a client portal visit. Failures are logged only;
// a missed stamp must not block the portal.
func (s *Service) RecordPortalLogin(ctx context.Context, clientID uuid.UUID) {
	if err := s.clients.TouchPortalLogin(ctx, clientID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record portal login", zap.String("client_id", clientID.String()), zap.Error(err))
	}
}

// InvitePortalUser creates the client's Supabase account, tags it with the
// client role and links it to the client record
func (s *Service) InvitePortalUser(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Client, error) {
	c, err := s.GetClient(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Email) == "" {
		return nil, services.ErrNoPortalEmail
	}
	if c.PortalUserID != nil {
		return nil, services.NewDomainError(services.ErrorTypeConflict, "client already has portal access", nil).
			WithDetail("client_id", c.ID.String())
	}

	user, err := s.invite(ctx, c.Email, s.config.PortalRedirectURL, map[string]interface{}{"full_name": c.Name})
	if err != nil {
		return nil, err
	}
	meta := supabase.AppMetadata{
		OrgID:    orgID.String(),
		Role:     string(models.RoleClient),
		ClientID: c.ID.String(),
	}
	if err := s.auth.UpdateAppMetadata(ctx, user.ID, meta); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, services.ErrAuthProvider.Message, err).
			WithDetail("client_id", c.ID.String())
	}

	if err := s.clients.SetPortalUser(ctx, orgID, c.ID, user.ID); err != nil {
		return nil, duplicateError("failed to link portal user", err)
	}
	portalID := user.ID
	c.PortalUserID = &portalID

	s.logger.Info("client invited to portal",
		zap.String("org_id", orgID.String()),
		zap.String("client_id", c.ID.String()),
		zap.String("request_id", actor.RequestID),
	)
	s.recorder.Record(actor.Stamp(models.NewAuditLog(orgID, models.AuditActionClientInvited, "client").
		WithClient(c.ID).
		WithResource(c.ID)))
	return c, nil
}

func validateSatisfaction(score *float64) error {
	if score != nil && (*score < 1 || *score > 5) {
		return services.NewDomainError(services.ErrorTypeValidation, "satisfaction score must be between 1 and 5", nil).
			WithDetail("satisfaction_score", *score)
	}
	return nil
}

func validateContract(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return services.NewDomainError(services.ErrorTypeValidation, "contract end must not be before its start", nil)
	}
	return nil
}

func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
