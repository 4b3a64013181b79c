package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

const organizationColumns = `id, name, slug, currency, timezone, created_at, updated_at`

// OrganizationRepository implements the repositories.OrganizationRepository interface
type OrganizationRepository struct {
	conn
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *DB, logger *zap.Logger) repositories.OrganizationRepository {
	return &OrganizationRepository{conn{db: db, logger: logger}}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, slug, currency, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.exec(ctx).ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Slug,
		org.Currency,
		org.Timezone,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to create organization", err)
	}

	r.logger.Debug("organization created", zap.String("id", org.ID.String()), zap.String("slug", org.Slug))
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`

	org, err := scanOrganization(r.exec(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("organization", id)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetBySlug retrieves an organization by slug
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE slug = $1`

	org, err := scanOrganization(r.exec(ctx).QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("organization", slug)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// List retrieves all organizations with pagination
func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	query := `
		SELECT ` + organizationColumns + `
		FROM organizations
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}

	return orgs, nil
}

// Update updates an organization
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2,
		    slug = $3,
		    currency = $4,
		    timezone = $5,
		    updated_at = $6
		WHERE id = $1
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Slug,
		org.Currency,
		org.Timezone,
		org.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to update organization", err)
	}
	if err := expectOne(result, "organization", org.ID); err != nil {
		return err
	}

	r.logger.Debug("organization updated", zap.String("id", org.ID.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *OrganizationRepository) WithTx(tx repositories.Transaction) repositories.OrganizationRepository {
	return &OrganizationRepository{r.bind(tx)}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.Currency,
		&org.Timezone,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return org, nil
}
