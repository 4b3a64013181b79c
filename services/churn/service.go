package churn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"go.uber.org/zap"
)

// RescoreSummary reports a batch rescore of one organization
type RescoreSummary struct {
	OrgID  uuid.UUID                `json:"org_id"`
	Scored int                      `json:"scored"`
	Failed int                      `json:"failed"`
	ByRisk map[models.RiskLevel]int `json:"by_risk"`
}

// Service scores clients and persists their churn risk
type Service struct {
	clients repositories.ClientRepository
	scorer  *Scorer
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new churn service
func NewService(clients repositories.ClientRepository, scorer *Scorer, logger *zap.Logger) *Service {
	return &Service{
		clients: clients,
		scorer:  scorer,
		logger:  logger,
		now:     time.Now,
	}
}

// ScoreClient loads the client's activity, scores it and stores the result
func (s *Service) ScoreClient(ctx context.Context, orgID, clientID uuid.UUID) (*Score, error) {
	now := s.now().UTC()

	activity, err := s.clients.GetActivity(ctx, orgID, clientID, now)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrClientNotFound
		}
		return nil, services.WrapInternal("failed to load client activity", err)
	}

	score := s.scorer.Score(activity)
	score.ClientID = clientID
	score.ScoredAt = now

	if err := s.clients.UpdateChurn(ctx, orgID, clientID, score.Score, score.Risk); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrClientNotFound
		}
		return nil, services.WrapInternal("failed to store churn score", err)
	}

	s.logger.Debug("client scored",
		zap.String("org_id", orgID.String()),
		zap.String("client_id", clientID.String()),
		zap.Int("score", score.Score),
		zap.String("risk", string(score.Risk)),
	)
	return score, nil
}

// RescoreAll scores every active client of the organization. A client that
// fails to score is logged and counted; the batch carries on.
func (s *Service) RescoreAll(ctx context.Context, orgID uuid.UUID) (*RescoreSummary, error) {
	ids, err := s.clients.ListActiveIDs(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to list active clients", err)
	}

	summary := &RescoreSummary{
		OrgID:  orgID,
		ByRisk: make(map[models.RiskLevel]int),
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		score, err := s.ScoreClient(ctx, orgID, id)
		if err != nil {
			summary.Failed++
			s.logger.Warn("failed to score client",
				zap.String("org_id", orgID.String()),
				zap.String("client_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		summary.Scored++
		summary.ByRisk[score.Risk]++
	}

	s.logger.Info("churn rescore finished",
		zap.String("org_id", orgID.String()),
		zap.Int("scored", summary.Scored),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// AtRisk lists active clients whose stored risk is at least minRisk,
// highest score first
func (s *Service) AtRisk(ctx context.Context, orgID uuid.UUID, minRisk models.RiskLevel) ([]*models.Client, error) {
	if minRisk.Rank() == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid risk level", nil).
			WithDetail("min", string(minRisk))
	}

	active := models.ClientStatusActive
	clients, err := s.clients.List(ctx, orgID, repositories.ClientFilter{
		Status:  &active,
		MinRisk: &minRisk,
	})
	if err != nil {
		return nil, services.WrapInternal("failed to list at-risk clients", err)
	}
	if clients == nil {
		clients = []*models.Client{}
	}
	return clients, nil
}

// ParseRisk reads a risk level from a query value. Empty means high.
func ParseRisk(value string) (models.RiskLevel, error) {
	if value == "" {
		return models.RiskHigh, nil
	}
	risk := models.RiskLevel(strings.ToLower(strings.TrimSpace(value)))
	if risk.Rank() == 0 {
		return "", services.NewDomainError(services.ErrorTypeValidation, "invalid risk level", nil).
			WithDetail("min", value)
	}
	return risk, nil
}
