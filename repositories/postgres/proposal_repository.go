package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

const proposalColumns = `id, org_id, client_id, title, line_items, discount_pct, tax_pct, currency,
	subtotal_cents, total_cents, status, valid_until, body, generated_by, contract_body,
	sent_at, decided_at, created_by, created_at, updated_at`

// ProposalRepository implements the repositories.ProposalRepository interface
type ProposalRepository struct {
	conn
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *DB, logger *zap.Logger) repositories.ProposalRepository {
	return &ProposalRepository{conn{db: db, logger: logger}}
}

// Create creates a new proposal
func (r *ProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	items, err := json.Marshal(p.LineItems)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}

	query := `
		INSERT INTO proposals (` + proposalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = r.exec(ctx).ExecContext(ctx, query,
		p.ID,
		p.OrgID,
		p.ClientID,
		p.Title,
		items,
		p.DiscountPct,
		p.TaxPct,
		p.Currency,
		p.SubtotalCents,
		p.TotalCents,
		p.Status,
		p.ValidUntil,
		p.Body,
		p.GeneratedBy,
		p.ContractBody,
		p.SentAt,
		p.DecidedAt,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to create proposal", err)
	}

	r.logger.Debug("proposal created", zap.String("id", p.ID.String()))
	return nil
}

// GetByID retrieves a proposal of the organization
func (r *ProposalRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE org_id = $1 AND id = $2`

	p, err := scanProposal(r.exec(ctx).QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("proposal", id)
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, nil
}

// GetByIDForUpdate retrieves a proposal and locks its row for the rest of the
// transaction. Outside a transaction the lock is released immediately.
func (r *ProposalRepository) GetByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE org_id = $1 AND id = $2 FOR UPDATE`

	p, err := scanProposal(r.exec(ctx).QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("proposal", id)
		}
		return nil, fmt.Errorf("failed to lock proposal: %w", err)
	}
	return p, nil
}

// List returns proposals newest first
func (r *ProposalRepository) List(ctx context.Context, orgID uuid.UUID, filter repositories.ProposalFilter) ([]*models.Proposal, error) {
	where := []string{"org_id = $1"}
	args := []interface{}{orgID}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var out []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update writes every mutable proposal field
func (r *ProposalRepository) Update(ctx context.Context, p *models.Proposal) error {
	items, err := json.Marshal(p.LineItems)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}

	query := `
		UPDATE proposals
		SET title = $3,
		    line_items = $4,
		    discount_pct = $5,
		    tax_pct = $6,
		    currency = $7,
		    subtotal_cents = $8,
		    total_cents = $9,
		    status = $10,
		    valid_until = $11,
		    body = $12,
		    generated_by = $13,
		    contract_body = $14,
		    sent_at = $15,
		    decided_at = $16,
		    updated_at = $17
		WHERE org_id = $1 AND id = $2
	`
	result, err := r.exec(ctx).ExecContext(ctx, query,
		p.OrgID,
		p.ID,
		p.Title,
		items,
		p.DiscountPct,
		p.TaxPct,
		p.Currency,
		p.SubtotalCents,
		p.TotalCents,
		p.Status,
		p.ValidUntil,
		p.Body,
		p.GeneratedBy,
		p.ContractBody,
		p.SentAt,
		p.DecidedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}
	return expectOne(result, "proposal", p.ID)
}

// WithTx returns a new repository instance bound to the transaction
func (r *ProposalRepository) WithTx(tx repositories.Transaction) repositories.ProposalRepository {
	return &ProposalRepository{r.bind(tx)}
}

func scanProposal(row rowScanner) (*models.Proposal, error) {
	p := &models.Proposal{}
	var (
		items      []byte
		validUntil sql.NullTime
		sentAt     sql.NullTime
		decidedAt  sql.NullTime
		createdBy  uuid.NullUUID
	)
	err := row.Scan(
		&p.ID,
		&p.OrgID,
		&p.ClientID,
		&p.Title,
		&items,
		&p.DiscountPct,
		&p.TaxPct,
		&p.Currency,
		&p.SubtotalCents,
		&p.TotalCents,
		&p.Status,
		&validUntil,
		&p.Body,
		&p.GeneratedBy,
		&p.ContractBody,
		&sentAt,
		&decidedAt,
		&createdBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &p.LineItems); err != nil {
			return nil, fmt.Errorf("failed to decode line items: %w", err)
		}
	}
	p.ValidUntil = nullTime(validUntil)
	p.SentAt = nullTime(sentAt)
	p.DecidedAt = nullTime(decidedAt)
	p.CreatedBy = nullUUID(createdBy)
	return p, nil
}
