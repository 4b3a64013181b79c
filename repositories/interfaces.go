package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
)

var (
	// ErrNotFound is wrapped by every lookup that matched no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is wrapped when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context that carries the transaction
	Context() context.Context
}

// OrganizationRepository handles organization data operations
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// GetByID retrieves an organization by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by slug
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// List retrieves all organizations with pagination
	List(ctx context.Context, limit, offset int) ([]*models.Organization, error)

	// Update updates an organization
	Update(ctx context.Context, org *models.Organization) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) OrganizationRepository
}

// EmployeeRepository handles agency staff records
type EmployeeRepository interface {
	Create(ctx context.Context, emp *models.Employee) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Employee, error)

	// GetByAuthUserID resolves the employee behind an auth token subject
	GetByAuthUserID(ctx context.Context, authUserID uuid.UUID) (*models.Employee, error)

	// GetByHandles returns the employees of orgID whose handle is in handles.
	// Handles are compared lower-cased.
	GetByHandles(ctx context.Context, orgID uuid.UUID, handles []string) ([]*models.Employee, error)

	List(ctx context.Context, orgID uuid.UUID) ([]*models.Employee, error)
	Update(ctx context.Context, emp *models.Employee) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	WithTx(tx Transaction) EmployeeRepository
}

// ClientFilter narrows client listings
type ClientFilter struct {
	Status  *models.ClientStatus
	OwnerID *uuid.UUID
	// MinRisk keeps clients whose stored churn risk ranks at or above it
	MinRisk *models.RiskLevel
	Limit   int
	Offset  int
}

// ClientRepository handles client accounts and churn inputs
type ClientRepository interface {
	Create(ctx context.Context, c *models.Client) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error)
	List(ctx context.Context, orgID uuid.UUID, filter ClientFilter) ([]*models.Client, error)
	Update(ctx context.Context, c *models.Client) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error

	// ListActiveIDs returns the IDs of every active client of the org
	ListActiveIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)

	// CountAtRisk counts clients whose churn risk is one of levels
	CountAtRisk(ctx context.Context, orgID uuid.UUID, levels []models.RiskLevel) (int, error)

	// GetActivity aggregates the churn inputs for a client as of now
	GetActivity(ctx context.Context, orgID, id uuid.UUID, now time.Time) (*models.ClientActivity, error)

	UpdateChurn(ctx context.Context, orgID, id uuid.UUID, score int, risk models.RiskLevel) error
	TouchContact(ctx context.Context, orgID, id uuid.UUID, at time.Time) error
	TouchPortalLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetPortalUser(ctx context.Context, orgID, id, portalUserID uuid.UUID) error
	WithTx(tx Transaction) ClientRepository
}

// BoardRepository handles boards and their columns
type BoardRepository interface {
	Create(ctx context.Context, board *models.Board) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Board, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*models.Board, error)

	CreateColumn(ctx context.Context, col *models.BoardColumn) error
	GetColumn(ctx context.Context, id uuid.UUID) (*models.BoardColumn, error)

	// ListColumns returns the board's columns ordered by position
	ListColumns(ctx context.Context, boardID uuid.UUID) ([]*models.BoardColumn, error)

	// NextColumnPosition returns max(position)+1 for the board, 0 when empty
	NextColumnPosition(ctx context.Context, boardID uuid.UUID) (int, error)
	WithTx(tx Transaction) BoardRepository
}

// ColumnTaskCount is the number of open tasks in one board column
type ColumnTaskCount struct {
	BoardID    uuid.UUID `json:"board_id"`
	BoardName  string    `json:"board_name"`
	ColumnID   uuid.UUID `json:"column_id"`
	ColumnName string    `json:"column_name"`
	Count      int       `json:"count"`
}

// TaskRepository handles kanban tasks and comments
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error)

	// GetByIDForUpdate reads a task and holds its row lock until the transaction ends
	GetByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error)

	// ListByBoard returns the board's tasks that are not handed off, ordered by position
	ListByBoard(ctx context.Context, orgID, boardID uuid.UUID) ([]*models.Task, error)

	// ListByColumn returns the open tasks of a column ordered by position
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.Task, error)

	Update(ctx context.Context, task *models.Task) error

	// UpdatePosition moves a task without touching other fields
	UpdatePosition(ctx context.Context, id, columnID uuid.UUID, position int) error

	Delete(ctx context.Context, orgID, id uuid.UUID) error

	// NextPosition returns max(position)+1 for the column, 0 when empty
	NextPosition(ctx context.Context, columnID uuid.UUID) (int, error)

	// CountOpenByColumn counts an assignee's open tasks per board column
	CountOpenByColumn(ctx context.Context, orgID, assigneeID uuid.UUID) ([]ColumnTaskCount, error)

	CreateComment(ctx context.Context, comment *models.TaskComment) error
	ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error)
	WithTx(tx Transaction) TaskRepository
}

// NotificationRepository handles notification rows
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status models.DeliveryStatus) error

	// List returns a recipient's notifications, newest first
	List(ctx context.Context, orgID, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)

	MarkRead(ctx context.Context, orgID, recipientID, id uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, orgID, recipientID uuid.UUID, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, orgID, recipientID uuid.UUID) (int, error)
	WithTx(tx Transaction) NotificationRepository
}

// ProposalFilter narrows proposal listings
type ProposalFilter struct {
	ClientID *uuid.UUID
	Status   *models.ProposalStatus
}

// ProposalRepository handles proposals and generated contracts
type ProposalRepository interface {
	Create(ctx context.Context, p *models.Proposal) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error)

	// GetByIDForUpdate reads a proposal and holds its row lock until the transaction ends
	GetByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error)

	List(ctx context.Context, orgID uuid.UUID, filter ProposalFilter) ([]*models.Proposal, error)
	Update(ctx context.Context, p *models.Proposal) error
	WithTx(tx Transaction) ProposalRepository
}

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	ClientID *uuid.UUID
	Statuses []models.InvoiceStatus
}

// InvoiceSummary is a count and sum of invoice amounts
type InvoiceSummary struct {
	Count      int   `json:"count"`
	TotalCents int64 `json:"total_cents"`
}

// InvoiceRepository handles invoices
type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error)

	// FindByID looks an invoice up without a tenant scope. Only for
	// callers that authenticated by other means, such as payment webhooks.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)

	List(ctx context.Context, orgID uuid.UUID, filter InvoiceFilter) ([]*models.Invoice, error)
	Update(ctx context.Context, inv *models.Invoice) error

	// NextSequence returns the next number for invoices whose number starts with prefix
	NextSequence(ctx context.Context, orgID uuid.UUID, prefix string) (int, error)

	// MarkPaid sets an unpaid invoice to paid. It reports false when the
	// invoice was already paid.
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error)

	// SetCheckoutSession stores a checkout session on an invoice that is
	// still payable. It reports false when the invoice is no longer payable.
	SetCheckoutSession(ctx context.Context, orgID, id uuid.UUID, sessionID, url string, now time.Time) (bool, error)

	// MarkOverdue flips every open invoice due before now to overdue and returns them
	MarkOverdue(ctx context.Context, now time.Time) ([]*models.Invoice, error)

	Summary(ctx context.Context, orgID uuid.UUID, status models.InvoiceStatus) (*InvoiceSummary, error)
	WithTx(tx Transaction) InvoiceRepository
}

// PostFilter narrows calendar queries
type PostFilter struct {
	ClientID *uuid.UUID
	Statuses []models.PostStatus
	From     time.Time
	To       time.Time
}

// SocialPostRepository handles scheduled social posts
type SocialPostRepository interface {
	Create(ctx context.Context, post *models.SocialPost) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.SocialPost, error)
	Update(ctx context.Context, post *models.SocialPost) error

	// ListRange returns posts scheduled in [From, To), ordered by scheduled_at
	ListRange(ctx context.Context, orgID uuid.UUID, filter PostFilter) ([]*models.SocialPost, error)

	// ListDue returns scheduled posts of every org due at or before now
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.SocialPost, error)

	CountScheduled(ctx context.Context, orgID uuid.UUID, from, to time.Time) (int, error)
	WithTx(tx Transaction) SocialPostRepository
}

// ConversationRepository handles AI chat threads
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Conversation, error)
	ListByOwner(ctx context.Context, orgID, ownerID uuid.UUID) ([]*models.Conversation, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error

	AddMessage(ctx context.Context, msg *models.ChatMessage) error

	// RecentMessages returns the last limit messages in chronological order
	RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ChatMessage, error)
	WithTx(tx Transaction) ConversationRepository
}

// IntegrationRepository handles per-tenant integration settings
type IntegrationRepository interface {
	Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationConfig, error)
	Upsert(ctx context.Context, cfg *models.IntegrationConfig) error
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// GetByOrgID retrieves audit logs for an organization with pagination
	GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByClientID retrieves audit logs concerning a client with pagination
	GetByClientID(ctx context.Context, orgID, clientID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByDateRange retrieves audit logs within a date range
	GetByDateRange(ctx context.Context, orgID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error)

	// GetByAction retrieves audit logs by action type
	GetByAction(ctx context.Context, orgID uuid.UUID, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error)

	// GetByRequestID retrieves audit logs by request ID
	GetByRequestID(ctx context.Context, requestID string) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Organizations OrganizationRepository
	Employees     EmployeeRepository
	Clients       ClientRepository
	Boards        BoardRepository
	Tasks         TaskRepository
	Notifications NotificationRepository
	Proposals     ProposalRepository
	Invoices      InvoiceRepository
	SocialPosts   SocialPostRepository
	Conversations ConversationRepository
	Integrations  IntegrationRepository
	AuditLogs     AuditRepository
}
