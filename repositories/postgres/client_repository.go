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

const clientColumns = `id, org_id, name, company, email, phone, status, portal_user_id, owner_id,
	contract_start, contract_end, monthly_retainer_cents, satisfaction_score,
	last_contact_at, last_portal_login_at, churn_score, churn_risk, created_at, updated_at`

const day = 24 * time.Hour

// ClientRepository implements the repositories.ClientRepository interface
type ClientRepository struct {
	conn
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *DB, logger *zap.Logger) repositories.ClientRepository {
	return &ClientRepository{conn{db: db, logger: logger}}
}

// Create creates a new client
func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.exec(ctx).ExecContext(ctx, query,
		c.ID,
		c.OrgID,
		c.Name,
		c.Company,
		c.Email,
		c.Phone,
		c.Status,
		c.PortalUserID,
		c.OwnerID,
		c.ContractStart,
		c.ContractEnd,
		c.MonthlyRetainerCents,
		c.SatisfactionScore,
		c.LastContactAt,
		c.LastPortalLoginAt,
		c.ChurnScore,
		c.ChurnRisk,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to create client", err)
	}

	r.logger.Debug("client created", zap.String("id", c.ID.String()))
	return nil
}

// GetByID retrieves a client of the organization
func (r *ClientRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE org_id = $1 AND id = $2`

	c, err := scanClient(r.exec(ctx).QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("client", id)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// List retrieves clients matching the filter, highest churn score first
func (r *ClientRepository) List(ctx context.Context, orgID uuid.UUID, filter repositories.ClientFilter) ([]*models.Client, error) {
	where := []string{"org_id = $1"}
	args := []interface{}{orgID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.MinRisk != nil {
		args = append(args, pq.Array(risksAtOrAbove(*filter.MinRisk)))
		where = append(where, fmt.Sprintf("churn_risk = ANY($%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM clients
		WHERE %s
		ORDER BY churn_score DESC NULLS LAST, name
		LIMIT $%d OFFSET $%d
	`, clientColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client rows: %w", err)
	}
	return clients, nil
}

// Update updates the editable client fields
func (r *ClientRepository) Update(ctx context.Context, c *models.Client) error {
	query := `
		UPDATE clients
		SET name = $3,
		    company = $4,
		    email = $5,
		    phone = $6,
		    status = $7,
		    owner_id = $8,
		    contract_start = $9,
		    contract_end = $10,
		    monthly_retainer_cents = $11,
		    satisfaction_score = $12,
		    updated_at = $13
		WHERE org_id = $1 AND id = $2
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		c.OrgID,
		c.ID,
		c.Name,
		c.Company,
		c.Email,
		c.Phone,
		c.Status,
		c.OwnerID,
		c.ContractStart,
		c.ContractEnd,
		c.MonthlyRetainerCents,
		c.SatisfactionScore,
		c.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to update client", err)
	}
	return expectOne(result, "client", c.ID)
}

// Delete deletes a client
func (r *ClientRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	result, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM clients WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return expectOne(result, "client", id)
}

// ListActiveIDs returns every active client ID of the organization
func (r *ClientRepository) ListActiveIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.exec(ctx).QueryContext(ctx,
		`SELECT id FROM clients WHERE org_id = $1 AND status = $2 ORDER BY created_at`,
		orgID, models.ClientStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active clients: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan client id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountAtRisk counts clients in any of the given risk levels
func (r *ClientRepository) CountAtRisk(ctx context.Context, orgID uuid.UUID, levels []models.RiskLevel) (int, error) {
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = string(l)
	}

	var count int
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE org_id = $1 AND status = $2 AND churn_risk = ANY($3)`,
		orgID, models.ClientStatusActive, pq.Array(names),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count at-risk clients: %w", err)
	}
	return count, nil
}

// GetActivity aggregates churn inputs for a client. Engagement is the number
// of audit entries and tasks touching the client in the two trailing
// 30-day windows.
func (r *ClientRepository) GetActivity(ctx context.Context, orgID, id uuid.UUID, now time.Time) (*models.ClientActivity, error) {
	query := `
		SELECT c.last_contact_at,
		       c.last_portal_login_at,
		       c.satisfaction_score,
		       c.contract_start,
		       c.contract_end,
		       c.created_at,
		       (SELECT COUNT(*) FROM invoices i WHERE i.client_id = c.id AND i.status = 'overdue'),
		       (SELECT COUNT(*) FROM tasks t WHERE t.client_id = c.id AND t.status = 'open'),
		       (SELECT COUNT(*) FROM audit_logs a WHERE a.client_id = c.id AND a.timestamp >= $3)
		         + (SELECT COUNT(*) FROM tasks t WHERE t.client_id = c.id AND t.created_at >= $3),
		       (SELECT COUNT(*) FROM audit_logs a WHERE a.client_id = c.id AND a.timestamp >= $4 AND a.timestamp < $3)
		         + (SELECT COUNT(*) FROM tasks t WHERE t.client_id = c.id AND t.created_at >= $4 AND t.created_at < $3)
		FROM clients c
		WHERE c.org_id = $1 AND c.id = $2
	`

	var (
		row           activityRow
		satisfaction  sql.NullFloat64
		lastContact   sql.NullTime
		lastLogin     sql.NullTime
		contractStart sql.NullTime
		contractEnd   sql.NullTime
	)
	err := r.exec(ctx).QueryRowContext(ctx, query, orgID, id, now.Add(-30*day), now.Add(-60*day)).Scan(
		&lastContact,
		&lastLogin,
		&satisfaction,
		&contractStart,
		&contractEnd,
		&row.createdAt,
		&row.overdueInvoices,
		&row.openTasks,
		&row.last30,
		&row.prev30,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("client", id)
		}
		return nil, fmt.Errorf("failed to load client activity: %w", err)
	}

	row.lastContact = nullTime(lastContact)
	row.lastLogin = nullTime(lastLogin)
	row.contractStart = nullTime(contractStart)
	row.contractEnd = nullTime(contractEnd)
	if satisfaction.Valid {
		s := satisfaction.Float64
		row.satisfaction = &s
	}

	activity := row.toActivity(now)
	activity.ClientID = id
	return activity, nil
}

// UpdateChurn stores the latest churn score
func (r *ClientRepository) UpdateChurn(ctx context.Context, orgID, id uuid.UUID, score int, risk models.RiskLevel) error {
	result, err := r.exec(ctx).ExecContext(ctx,
		`UPDATE clients SET churn_score = $3, churn_risk = $4, updated_at = NOW() WHERE org_id = $1 AND id = $2`,
		orgID, id, score, risk)
	if err != nil {
		return fmt.Errorf("failed to update churn score: %w", err)
	}
	return expectOne(result, "client", id)
}

// TouchContact records an agency contact with the client
func (r *ClientRepository) TouchContact(ctx context.Context, orgID, id uuid.UUID, at time.Time) error {
	result, err := r.exec(ctx).ExecContext(ctx,
		`UPDATE clients SET last_contact_at = $3, updated_at = $3 WHERE org_id = $1 AND id = $2`,
		orgID, id, at)
	if err != nil {
		return fmt.Errorf("failed to record contact: %w", err)
	}
	return expectOne(result, "client", id)
}

// TouchPortalLogin records a client portal visit
func (r *ClientRepository) TouchPortalLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.exec(ctx).ExecContext(ctx,
		`UPDATE clients SET last_portal_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to record portal login: %w", err)
	}
	return expectOne(result, "client", id)
}

// SetPortalUser links an invited auth user to the client
func (r *ClientRepository) SetPortalUser(ctx context.Context, orgID, id, portalUserID uuid.UUID) error {
	result, err := r.exec(ctx).ExecContext(ctx,
		`UPDATE clients SET portal_user_id = $3, updated_at = NOW() WHERE org_id = $1 AND id = $2`,
		orgID, id, portalUserID)
	if err != nil {
		return wrapWriteErr("failed to set portal user", err)
	}
	return expectOne(result, "client", id)
}

// WithTx returns a new repository instance bound to the transaction
func (r *ClientRepository) WithTx(tx repositories.Transaction) repositories.ClientRepository {
	return &ClientRepository{r.bind(tx)}
}

// risksAtOrAbove lists the risk levels ranked at or above min
func risksAtOrAbove(min models.RiskLevel) []string {
	all := []models.RiskLevel{models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical}
	var out []string
	for _, l := range all {
		if l.Rank() >= min.Rank() {
			out = append(out, string(l))
		}
	}
	return out
}

type activityRow struct {
	lastContact     *time.Time
	lastLogin       *time.Time
	satisfaction    *float64
	contractStart   *time.Time
	contractEnd     *time.Time
	createdAt       time.Time
	overdueInvoices int
	openTasks       int
	last30          int
	prev30          int
}

func (a activityRow) toActivity(now time.Time) *models.ClientActivity {
	out := &models.ClientActivity{
		OverdueInvoices:   a.overdueInvoices,
		OpenTasks:         a.openTasks,
		SatisfactionScore: a.satisfaction,
		ActivityLast30:    a.last30,
		ActivityPrev30:    a.prev30,
	}
	if a.lastContact != nil {
		d := daysBetween(*a.lastContact, now)
		out.DaysSinceLastContact = &d
	}
	if a.lastLogin != nil {
		d := daysBetween(*a.lastLogin, now)
		out.DaysSinceLastLogin = &d
	}
	if a.contractEnd != nil {
		d := daysBetween(now, *a.contractEnd)
		out.ContractDaysRemaining = &d
	}

	start := a.createdAt
	if a.contractStart != nil {
		start = *a.contractStart
	}
	out.TenureMonths = monthsBetween(start, now)
	return out
}

// daysBetween returns whole days from a to b, negative when b is before a
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / day)
}

func monthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func scanClient(row rowScanner) (*models.Client, error) {
	c := &models.Client{}
	var (
		portalUserID  uuid.NullUUID
		ownerID       uuid.NullUUID
		contractStart sql.NullTime
		contractEnd   sql.NullTime
		satisfaction  sql.NullFloat64
		lastContact   sql.NullTime
		lastLogin     sql.NullTime
		churnScore    sql.NullInt64
		churnRisk     sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.OrgID,
		&c.Name,
		&c.Company,
		&c.Email,
		&c.Phone,
		&c.Status,
		&portalUserID,
		&ownerID,
		&contractStart,
		&contractEnd,
		&c.MonthlyRetainerCents,
		&satisfaction,
		&lastContact,
		&lastLogin,
		&churnScore,
		&churnRisk,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.PortalUserID = nullUUID(portalUserID)
	c.OwnerID = nullUUID(ownerID)
	c.ContractStart = nullTime(contractStart)
	c.ContractEnd = nullTime(contractEnd)
	c.LastContactAt = nullTime(lastContact)
	c.LastPortalLoginAt = nullTime(lastLogin)
	if satisfaction.Valid {
		s := satisfaction.Float64
		c.SatisfactionScore = &s
	}
	if churnScore.Valid {
		s := int(churnScore.Int64)
		c.ChurnScore = &s
	}
	if churnRisk.Valid {
		risk := models.RiskLevel(churnRisk.String)
		c.ChurnRisk = &risk
	}
	return c, nil
}
