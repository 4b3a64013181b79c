package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

const auditColumns = `id, org_id, client_id, user_id, action, resource_type, resource_id,
	details, ip_address, user_agent, request_id, timestamp,
	model, provider, tokens_used, latency_ms, status_code, error_message`

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	conn
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{conn{db: db, logger: logger}}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	_, err := r.exec(ctx).ExecContext(ctx, query,
		log.ID,
		log.OrgID,
		log.ClientID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		details,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		log.Timestamp,
		log.Model,
		log.Provider,
		log.TokensUsed,
		log.LatencyMs,
		log.StatusCode,
		log.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE id = $1`

	log, err := scanAuditLog(r.exec(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("audit log", id)
		}
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return log, nil
}

// GetByOrgID retrieves audit logs for an organization with pagination
func (r *AuditRepository) GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE org_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryAuditLogs(ctx, query, orgID, limit, offset)
}

// GetByClientID retrieves audit logs concerning a client with pagination
func (r *AuditRepository) GetByClientID(ctx context.Context, orgID, clientID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE org_id = $1 AND client_id = $2
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`
	return r.queryAuditLogs(ctx, query, orgID, clientID, limit, offset)
}

// GetByDateRange retrieves audit logs within a date range
func (r *AuditRepository) GetByDateRange(ctx context.Context, orgID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE org_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4 OFFSET $5
	`
	return r.queryAuditLogs(ctx, query, orgID, start, end, limit, offset)
}

// GetByAction retrieves audit logs by action type
func (r *AuditRepository) GetByAction(ctx context.Context, orgID uuid.UUID, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE org_id = $1 AND action = $2
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`
	return r.queryAuditLogs(ctx, query, orgID, action, limit, offset)
}

// GetByRequestID retrieves audit logs by request ID
func (r *AuditRepository) GetByRequestID(ctx context.Context, requestID string) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE request_id = $1
		ORDER BY timestamp DESC
	`
	return r.queryAuditLogs(ctx, query, requestID)
}

// WithTx returns a new repository instance bound to the transaction
func (r *AuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return &AuditRepository{r.bind(tx)}
}

// queryAuditLogs is a helper method to query multiple audit logs
func (r *AuditRepository) queryAuditLogs(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	log := &models.AuditLog{}
	var (
		clientID, userID, resourceID uuid.NullUUID
		details                      []byte
		ip, agent, requestID         sql.NullString
		model, provider, errMsg      sql.NullString
		tokens, latency, status      sql.NullInt64
	)
	err := row.Scan(
		&log.ID,
		&log.OrgID,
		&clientID,
		&userID,
		&log.Action,
		&log.ResourceType,
		&resourceID,
		&details,
		&ip,
		&agent,
		&requestID,
		&log.Timestamp,
		&model,
		&provider,
		&tokens,
		&latency,
		&status,
		&errMsg,
	)
	if err != nil {
		return nil, err
	}

	log.ClientID = nullUUID(clientID)
	log.UserID = nullUUID(userID)
	log.ResourceID = nullUUID(resourceID)
	log.Details = details
	log.IPAddress = ip.String
	log.UserAgent = agent.String
	log.RequestID = requestID.String
	log.Model = nullString(model)
	log.Provider = nullString(provider)
	log.ErrorMessage = nullString(errMsg)
	log.TokensUsed = nullInt(tokens)
	log.LatencyMs = nullInt(latency)
	log.StatusCode = nullInt(status)
	return log, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
