package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

// NotificationRepository implements the repositories.NotificationRepository interface
type NotificationRepository struct {
	conn
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB, logger *zap.Logger) repositories.NotificationRepository {
	return &NotificationRepository{conn{db: db, logger: logger}}
}

// Create inserts a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, org_id, recipient_id, kind, title, body, link, channel, delivery_status, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.exec(ctx).ExecContext(ctx, query,
		n.ID,
		n.OrgID,
		n.RecipientID,
		n.Kind,
		n.Title,
		n.Body,
		n.Link,
		n.Channel,
		n.DeliveryStatus,
		n.ReadAt,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// UpdateDeliveryStatus records the outcome of an external delivery
func (r *NotificationRepository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status models.DeliveryStatus) error {
	result, err := r.exec(ctx).ExecContext(ctx,
		`UPDATE notifications SET delivery_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	return expectOne(result, "notification", id)
}

// List returns a recipient's in-app notifications, newest first
func (r *NotificationRepository) List(ctx context.Context, orgID, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, org_id, recipient_id, kind, title, body, link, channel, delivery_status, read_at, created_at
		FROM notifications
		WHERE org_id = $1 AND recipient_id = $2 AND channel = $3
		  AND ($4 = FALSE OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $5
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, orgID, recipientID, models.ChannelInApp, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var readAt sql.NullTime
		err := rows.Scan(
			&n.ID,
			&n.OrgID,
			&n.RecipientID,
			&n.Kind,
			&n.Title,
			&n.Body,
			&n.Link,
			&n.Channel,
			&n.DeliveryStatus,
			&readAt,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.ReadAt = nullTime(readAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks one of the recipient's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, orgID, recipientID, id uuid.UUID, at time.Time) error {
	result, err := r.exec(ctx).ExecContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, $4)
		WHERE org_id = $1 AND recipient_id = $2 AND id = $3
	`, orgID, recipientID, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectOne(result, "notification", id)
}

// MarkAllRead marks every unread notification of the recipient as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, orgID, recipientID uuid.UUID, at time.Time) (int64, error) {
	result, err := r.exec(ctx).ExecContext(ctx, `
		UPDATE notifications SET read_at = $3
		WHERE org_id = $1 AND recipient_id = $2 AND read_at IS NULL
	`, orgID, recipientID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

// UnreadCount counts unread in-app notifications
func (r *NotificationRepository) UnreadCount(ctx context.Context, orgID, recipientID uuid.UUID) (int, error) {
	var count int
	err := r.exec(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE org_id = $1 AND recipient_id = $2 AND channel = $3 AND read_at IS NULL
	`, orgID, recipientID, models.ChannelInApp).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *NotificationRepository) WithTx(tx repositories.Transaction) repositories.NotificationRepository {
	return &NotificationRepository{r.bind(tx)}
}
