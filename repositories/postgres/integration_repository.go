package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

// IntegrationRepository implements the repositories.IntegrationRepository interface
type IntegrationRepository struct {
	conn
}

// NewIntegrationRepository creates a new integration settings repository
func NewIntegrationRepository(db *DB, logger *zap.Logger) repositories.IntegrationRepository {
	return &IntegrationRepository{conn{db: db, logger: logger}}
}

// Get loads the organization's settings row
func (r *IntegrationRepository) Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationConfig, error) {
	cfg := &models.IntegrationConfig{}
	var raw []byte
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT org_id, settings, updated_at FROM integration_configs WHERE org_id = $1`, orgID,
	).Scan(&cfg.OrgID, &raw, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("integration config", orgID)
		}
		return nil, fmt.Errorf("failed to get integration config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode integration settings: %w", err)
	}
	return cfg, nil
}

// Upsert inserts or replaces the organization's settings
func (r *IntegrationRepository) Upsert(ctx context.Context, cfg *models.IntegrationConfig) error {
	raw, err := json.Marshal(cfg.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode integration settings: %w", err)
	}

	_, err = r.exec(ctx).ExecContext(ctx, `
		INSERT INTO integration_configs (org_id, settings, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id) DO UPDATE
		SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at
	`, cfg.OrgID, raw, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert integration config: %w", err)
	}

	r.logger.Debug("integration config saved", zap.String("org_id", cfg.OrgID.String()))
	return nil
}
