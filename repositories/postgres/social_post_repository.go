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

const postColumns = `id, org_id, client_id, platform, content, media_urls, scheduled_at, status,
	published_at, external_id, error_message, created_by, created_at, updated_at`

// SocialPostRepository implements the repositories.SocialPostRepository interface
type SocialPostRepository struct {
	conn
}

// NewSocialPostRepository creates a new social post repository
func NewSocialPostRepository(db *DB, logger *zap.Logger) repositories.SocialPostRepository {
	return &SocialPostRepository{conn{db: db, logger: logger}}
}

// Create creates a new post
func (r *SocialPostRepository) Create(ctx context.Context, post *models.SocialPost) error {
	query := `
		INSERT INTO social_posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.exec(ctx).ExecContext(ctx, query,
		post.ID,
		post.OrgID,
		post.ClientID,
		post.Platform,
		post.Content,
		pq.Array(post.MediaURLs),
		post.ScheduledAt,
		post.Status,
		post.PublishedAt,
		post.ExternalID,
		post.ErrorMessage,
		post.CreatedBy,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create social post: %w", err)
	}

	r.logger.Debug("social post created", zap.String("id", post.ID.String()), zap.String("platform", string(post.Platform)))
	return nil
}

// GetByID retrieves a post of the organization
func (r *SocialPostRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.SocialPost, error) {
	query := `SELECT ` + postColumns + ` FROM social_posts WHERE org_id = $1 AND id = $2`

	post, err := scanPost(r.exec(ctx).QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("social post", id)
		}
		return nil, fmt.Errorf("failed to get social post: %w", err)
	}
	return post, nil
}

// Update writes the mutable post fields
func (r *SocialPostRepository) Update(ctx context.Context, post *models.SocialPost) error {
	query := `
		UPDATE social_posts
		SET content = $3,
		    media_urls = $4,
		    scheduled_at = $5,
		    status = $6,
		    published_at = $7,
		    external_id = $8,
		    error_message = $9,
		    updated_at = $10
		WHERE org_id = $1 AND id = $2
	`
	result, err := r.exec(ctx).ExecContext(ctx, query,
		post.OrgID,
		post.ID,
		post.Content,
		pq.Array(post.MediaURLs),
		post.ScheduledAt,
		post.Status,
		post.PublishedAt,
		post.ExternalID,
		post.ErrorMessage,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update social post: %w", err)
	}
	return expectOne(result, "social post", post.ID)
}

// ListRange returns posts scheduled within [From, To)
func (r *SocialPostRepository) ListRange(ctx context.Context, orgID uuid.UUID, filter repositories.PostFilter) ([]*models.SocialPost, error) {
	where := []string{"org_id = $1", "scheduled_at >= $2", "scheduled_at < $3"}
	args := []interface{}{orgID, filter.From, filter.To}
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

	query := `SELECT ` + postColumns + ` FROM social_posts WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY scheduled_at`
	return r.query(ctx, query, args...)
}

// ListDue returns scheduled posts whose time has come, oldest first
func (r *SocialPostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.SocialPost, error) {
	query := `
		SELECT ` + postColumns + `
		FROM social_posts
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT $3
	`
	return r.query(ctx, query, models.PostScheduled, now, limit)
}

// CountScheduled counts scheduled posts in [from, to)
func (r *SocialPostRepository) CountScheduled(ctx context.Context, orgID uuid.UUID, from, to time.Time) (int, error) {
	var count int
	err := r.exec(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM social_posts
		WHERE org_id = $1 AND status = $2 AND scheduled_at >= $3 AND scheduled_at < $4
	`, orgID, models.PostScheduled, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scheduled posts: %w", err)
	}
	return count, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *SocialPostRepository) WithTx(tx repositories.Transaction) repositories.SocialPostRepository {
	return &SocialPostRepository{r.bind(tx)}
}

func (r *SocialPostRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.SocialPost, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query social posts: %w", err)
	}
	defer rows.Close()

	var out []*models.SocialPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan social post: %w", err)
		}
		out = append(out, post)
	}
	return out, rows.Err()
}

func scanPost(row rowScanner) (*models.SocialPost, error) {
	post := &models.SocialPost{}
	var (
		publishedAt sql.NullTime
		createdBy   uuid.NullUUID
	)
	err := row.Scan(
		&post.ID,
		&post.OrgID,
		&post.ClientID,
		&post.Platform,
		&post.Content,
		pq.Array(&post.MediaURLs),
		&post.ScheduledAt,
		&post.Status,
		&publishedAt,
		&post.ExternalID,
		&post.ErrorMessage,
		&createdBy,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	post.PublishedAt = nullTime(publishedAt)
	post.CreatedBy = nullUUID(createdBy)
	return post, nil
}
