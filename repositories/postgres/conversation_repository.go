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

// ConversationRepository implements the repositories.ConversationRepository interface
type ConversationRepository struct {
	conn
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB, logger *zap.Logger) repositories.ConversationRepository {
	return &ConversationRepository{conn{db: db, logger: logger}}
}

// Create creates a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	_, err := r.exec(ctx).ExecContext(ctx, `
		INSERT INTO conversations (id, org_id, owner_id, client_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, conv.ID, conv.OrgID, conv.OwnerID, conv.ClientID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetByID retrieves a conversation of the organization
func (r *ConversationRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Conversation, error) {
	conv, err := scanConversation(r.exec(ctx).QueryRowContext(ctx, `
		SELECT id, org_id, owner_id, client_id, title, created_at, updated_at
		FROM conversations WHERE org_id = $1 AND id = $2
	`, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("conversation", id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListByOwner returns an employee's conversations, most recently active first
func (r *ConversationRepository) ListByOwner(ctx context.Context, orgID, ownerID uuid.UUID) ([]*models.Conversation, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, `
		SELECT id, org_id, owner_id, client_id, title, created_at, updated_at
		FROM conversations
		WHERE org_id = $1 AND owner_id = $2
		ORDER BY updated_at DESC
	`, orgID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// Touch bumps the conversation's activity time
func (r *ConversationRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.exec(ctx).ExecContext(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return expectOne(result, "conversation", id)
}

// AddMessage appends a message to a conversation
func (r *ConversationRepository) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	_, err := r.exec(ctx).ExecContext(ctx, `
		INSERT INTO chat_messages (id, conversation_id, role, content, provider, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Provider, msg.Model, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add chat message: %w", err)
	}
	return nil
}

// RecentMessages returns the newest limit messages in chronological order
func (r *ConversationRepository) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, `
		SELECT id, conversation_id, role, content, provider, model, created_at
		FROM (
			SELECT id, conversation_id, role, content, provider, model, created_at
			FROM chat_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var out []*models.ChatMessage
	for rows.Next() {
		m := &models.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Provider, &m.Model, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// WithTx returns a new repository instance bound to the transaction
func (r *ConversationRepository) WithTx(tx repositories.Transaction) repositories.ConversationRepository {
	return &ConversationRepository{r.bind(tx)}
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var clientID uuid.NullUUID
	if err := row.Scan(&conv.ID, &conv.OrgID, &conv.OwnerID, &clientID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	conv.ClientID = nullUUID(clientID)
	return conv, nil
}
