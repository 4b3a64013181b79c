package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

const invoiceColumns = `id, org_id, client_id, proposal_id, number, amount_cents, currency, status,
	due_date, paid_at, checkout_session_id, checkout_url, created_at, updated_at`

// InvoiceRepository implements the repositories.InvoiceRepository interface
type InvoiceRepository struct {
	conn
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *DB, logger *zap.Logger) repositories.InvoiceRepository {
	return &InvoiceRepository{conn{db: db, logger: logger}}
}

// Create creates a new invoice
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.exec(ctx).ExecContext(ctx, query,
		inv.ID,
		inv.OrgID,
		inv.ClientID,
		inv.ProposalID,
		inv.Number,
		inv.AmountCents,
		inv.Currency,
		inv.Status,
		inv.DueDate,
		inv.PaidAt,
		inv.CheckoutSessionID,
		inv.CheckoutURL,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to create invoice", err)
	}

	r.logger.Debug("invoice created", zap.String("id", inv.ID.String()), zap.String("number", inv.Number))
	return nil
}

// GetByID retrieves an invoice of the organization
func (r *InvoiceRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE org_id = $1 AND id = $2`
	return r.getOne(ctx, query, id, orgID, id)
}

// FindByID retrieves an invoice by ID alone
func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.getOne(ctx, query, id, id)
}

// List returns invoices newest first
func (r *InvoiceRepository) List(ctx context.Context, orgID uuid.UUID, filter repositories.InvoiceFilter) ([]*models.Invoice, error) {
	where := []string{"org_id = $1"}
	args := []interface{}{orgID}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	return r.query(ctx, query, args...)
}

// Update writes the mutable invoice fields
func (r *InvoiceRepository) Update(ctx context.Context, inv *models.Invoice) error {
	query := `
		UPDATE invoices
		SET status = $3,
		    due_date = $4,
		    paid_at = $5,
		    checkout_session_id = $6,
		    checkout_url = $7,
		    updated_at = $8
		WHERE org_id = $1 AND id = $2
	`
	result, err := r.exec(ctx).ExecContext(ctx, query,
		inv.OrgID,
		inv.ID,
		inv.Status,
		inv.DueDate,
		inv.PaidAt,
		inv.CheckoutSessionID,
		inv.CheckoutURL,
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return expectOne(result, "invoice", inv.ID)
}

// NextSequence returns the next invoice sequence for the numbering prefix.
// Callers hold a transaction; the unique (org_id, number) constraint rejects
// a concurrent duplicate.
func (r *InvoiceRepository) NextSequence(ctx context.Context, orgID uuid.UUID, prefix string) (int, error) {
	var count int
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE org_id = $1 AND number LIKE $2`,
		orgID, prefix+"%",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get invoice sequence: %w", err)
	}
	return count + 1, nil
}

// MarkPaid flips an unpaid invoice to paid
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	result, err := r.exec(ctx).ExecContext(ctx, `
		UPDATE invoices SET status = $2, paid_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('open', 'overdue', 'draft')
	`, id, models.InvoicePaid, paidAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// SetCheckoutSession records the processor session only while the invoice
// is open or overdue, so a concurrent payment is never overwritten
func (r *InvoiceRepository) SetCheckoutSession(ctx context.Context, orgID, id uuid.UUID, sessionID, url string, now time.Time) (bool, error) {
	result, err := r.exec(ctx).ExecContext(ctx, `
		UPDATE invoices SET checkout_session_id = $3, checkout_url = $4, updated_at = $5
		WHERE org_id = $1 AND id = $2 AND status IN ('open', 'overdue')
	`, orgID, id, sessionID, url, now)
	if err != nil {
		return false, fmt.Errorf("failed to store checkout session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkOverdue flips every open invoice past its due date
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) ([]*models.Invoice, error) {
	query := `
		UPDATE invoices SET status = $1, updated_at = $3
		WHERE status = $2 AND due_date < $3
		RETURNING ` + invoiceColumns
	return r.query(ctx, query, models.InvoiceOverdue, models.InvoiceOpen, now)
}

// Summary counts and sums the organization's invoices in a status
func (r *InvoiceRepository) Summary(ctx context.Context, orgID uuid.UUID, status models.InvoiceStatus) (*repositories.InvoiceSummary, error) {
	s := &repositories.InvoiceSummary{}
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM invoices WHERE org_id = $1 AND status = $2`,
		orgID, status,
	).Scan(&s.Count, &s.TotalCents)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize invoices: %w", err)
	}
	return s, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *InvoiceRepository) WithTx(tx repositories.Transaction) repositories.InvoiceRepository {
	return &InvoiceRepository{r.bind(tx)}
}

func (r *InvoiceRepository) getOne(ctx context.Context, query string, key interface{}, args ...interface{}) (*models.Invoice, error) {
	inv, err := scanInvoice(r.exec(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("invoice", key)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Invoice, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}
	return out, nil
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	inv := &models.Invoice{}
	var (
		proposalID uuid.NullUUID
		paidAt     sql.NullTime
	)
	err := row.Scan(
		&inv.ID,
		&inv.OrgID,
		&inv.ClientID,
		&proposalID,
		&inv.Number,
		&inv.AmountCents,
		&inv.Currency,
		&inv.Status,
		&inv.DueDate,
		&paidAt,
		&inv.CheckoutSessionID,
		&inv.CheckoutURL,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.ProposalID = nullUUID(proposalID)
	inv.PaidAt = nullTime(paidAt)
	return inv, nil
}
