// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
)

// OrganizationRepository is a testify mock of repositories.OrganizationRepository
type OrganizationRepository struct {
	mock.Mock
}

func (m *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	args := m.Called(ctx, slug)
	if v := args.Get(0); v != nil {
		return v.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	args := m.Called(ctx, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *OrganizationRepository) WithTx(tx repositories.Transaction) repositories.OrganizationRepository {
	return m
}

// EmployeeRepository is a testify mock of repositories.EmployeeRepository
type EmployeeRepository struct {
	mock.Mock
}

func (m *EmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	args := m.Called(ctx, emp)
	return args.Error(0)
}

func (m *EmployeeRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Employee, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Employee), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EmployeeRepository) GetByAuthUserID(ctx context.Context, authUserID uuid.UUID) (*models.Employee, error) {
	args := m.Called(ctx, authUserID)
	if v := args.Get(0); v != nil {
		return v.(*models.Employee), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EmployeeRepository) GetByHandles(ctx context.Context, orgID uuid.UUID, handles []string) ([]*models.Employee, error) {
	args := m.Called(ctx, orgID, handles)
	if v := args.Get(0); v != nil {
		return v.([]*models.Employee), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EmployeeRepository) List(ctx context.Context, orgID uuid.UUID) ([]*models.Employee, error) {
	args := m.Called(ctx, orgID)
	if v := args.Get(0); v != nil {
		return v.([]*models.Employee), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EmployeeRepository) Update(ctx context.Context, emp *models.Employee) error {
	args := m.Called(ctx, emp)
	return args.Error(0)
}

func (m *EmployeeRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

func (m *EmployeeRepository) WithTx(tx repositories.Transaction) repositories.EmployeeRepository {
	return m
}

// ClientRepository is a testify mock of repositories.ClientRepository
type ClientRepository struct {
	mock.Mock
}

func (m *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *ClientRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) List(ctx context.Context, orgID uuid.UUID, filter repositories.ClientFilter) ([]*models.Client, error) {
	args := m.Called(ctx, orgID, filter)
	if v := args.Get(0); v != nil {
		return v.([]*models.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) Update(ctx context.Context, c *models.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *ClientRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

func (m *ClientRepository) ListActiveIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, orgID)
	if v := args.Get(0); v != nil {
		return v.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) CountAtRisk(ctx context.Context, orgID uuid.UUID, levels []models.RiskLevel) (int, error) {
	args := m.Called(ctx, orgID, levels)
	return args.Int(0), args.Error(1)
}

func (m *ClientRepository) GetActivity(ctx context.Context, orgID, id uuid.UUID, now time.Time) (*models.ClientActivity, error) {
	args := m.Called(ctx, orgID, id, now)
	if v := args.Get(0); v != nil {
		return v.(*models.ClientActivity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) UpdateChurn(ctx context.Context, orgID, id uuid.UUID, score int, risk models.RiskLevel) error {
	args := m.Called(ctx, orgID, id, score, risk)
	return args.Error(0)
}

func (m *ClientRepository) TouchContact(ctx context.Context, orgID, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, orgID, id, at)
	return args.Error(0)
}

func (m *ClientRepository) TouchPortalLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *ClientRepository) SetPortalUser(ctx context.Context, orgID, id, portalUserID uuid.UUID) error {
	args := m.Called(ctx, orgID, id, portalUserID)
	return args.Error(0)
}

func (m *ClientRepository) WithTx(tx repositories.Transaction) repositories.ClientRepository {
	return m
}

// BoardRepository is a testify mock of repositories.BoardRepository
type BoardRepository struct {
	mock.Mock
}

func (m *BoardRepository) Create(ctx context.Context, board *models.Board) error {
	args := m.Called(ctx, board)
	return args.Error(0)
}

func (m *BoardRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Board, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Board), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BoardRepository) List(ctx context.Context, orgID uuid.UUID) ([]*models.Board, error) {
	args := m.Called(ctx, orgID)
	if v := args.Get(0); v != nil {
		return v.([]*models.Board), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BoardRepository) CreateColumn(ctx context.Context, col *models.BoardColumn) error {
	args := m.Called(ctx, col)
	return args.Error(0)
}

func (m *BoardRepository) GetColumn(ctx context.Context, id uuid.UUID) (*models.BoardColumn, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.BoardColumn), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BoardRepository) ListColumns(ctx context.Context, boardID uuid.UUID) ([]*models.BoardColumn, error) {
	args := m.Called(ctx, boardID)
	if v := args.Get(0); v != nil {
		return v.([]*models.BoardColumn), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BoardRepository) NextColumnPosition(ctx context.Context, boardID uuid.UUID) (int, error) {
	args := m.Called(ctx, boardID)
	return args.Int(0), args.Error(1)
}

func (m *BoardRepository) WithTx(tx repositories.Transaction) repositories.BoardRepository {
	return m
}

// TaskRepository is a testify mock of repositories.TaskRepository
type TaskRepository struct {
	mock.Mock
}

func (m *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *TaskRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) GetByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) ListByBoard(ctx context.Context, orgID, boardID uuid.UUID) ([]*models.Task, error) {
	args := m.Called(ctx, orgID, boardID)
	if v := args.Get(0); v != nil {
		return v.([]*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.Task, error) {
	args := m.Called(ctx, columnID)
	if v := args.Get(0); v != nil {
		return v.([]*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *TaskRepository) UpdatePosition(ctx context.Context, id, columnID uuid.UUID, position int) error {
	args := m.Called(ctx, id, columnID, position)
	return args.Error(0)
}

func (m *TaskRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

func (m *TaskRepository) NextPosition(ctx context.Context, columnID uuid.UUID) (int, error) {
	args := m.Called(ctx, columnID)
	return args.Int(0), args.Error(1)
}

func (m *TaskRepository) CountOpenByColumn(ctx context.Context, orgID, assigneeID uuid.UUID) ([]repositories.ColumnTaskCount, error) {
	args := m.Called(ctx, orgID, assigneeID)
	if v := args.Get(0); v != nil {
		return v.([]repositories.ColumnTaskCount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) CreateComment(ctx context.Context, comment *models.TaskComment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *TaskRepository) ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error) {
	args := m.Called(ctx, taskID)
	if v := args.Get(0); v != nil {
		return v.([]*models.TaskComment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) WithTx(tx repositories.Transaction) repositories.TaskRepository {
	return m
}

// NotificationRepository is a testify mock of repositories.NotificationRepository
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *NotificationRepository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status models.DeliveryStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *NotificationRepository) List(ctx context.Context, orgID, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	args := m.Called(ctx, orgID, recipientID, unreadOnly, limit)
	if v := args.Get(0); v != nil {
		return v.([]*models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NotificationRepository) MarkRead(ctx context.Context, orgID, recipientID, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, orgID, recipientID, id, at)
	return args.Error(0)
}

func (m *NotificationRepository) MarkAllRead(ctx context.Context, orgID, recipientID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, orgID, recipientID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) UnreadCount(ctx context.Context, orgID, recipientID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID, recipientID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepository) WithTx(tx repositories.Transaction) repositories.NotificationRepository {
	return m
}

// ProposalRepository is a testify mock of repositories.ProposalRepository
type ProposalRepository struct {
	mock.Mock
}

func (m *ProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProposalRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Proposal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProposalRepository) GetByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Proposal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProposalRepository) List(ctx context.Context, orgID uuid.UUID, filter repositories.ProposalFilter) ([]*models.Proposal, error) {
	args := m.Called(ctx, orgID, filter)
	if v := args.Get(0); v != nil {
		return v.([]*models.Proposal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProposalRepository) Update(ctx context.Context, p *models.Proposal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProposalRepository) WithTx(tx repositories.Transaction) repositories.ProposalRepository {
	return m
}

// InvoiceRepository is a testify mock of repositories.InvoiceRepository
type InvoiceRepository struct {
	mock.Mock
}

func (m *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *InvoiceRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InvoiceRepository) List(ctx context.Context, orgID uuid.UUID, filter repositories.InvoiceFilter) ([]*models.Invoice, error) {
	args := m.Called(ctx, orgID, filter)
	if v := args.Get(0); v != nil {
		return v.([]*models.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InvoiceRepository) Update(ctx context.Context, inv *models.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *InvoiceRepository) NextSequence(ctx context.Context, orgID uuid.UUID, prefix string) (int, error) {
	args := m.Called(ctx, orgID, prefix)
	return args.Int(0), args.Error(1)
}

func (m *InvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, id, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *InvoiceRepository) SetCheckoutSession(ctx context.Context, orgID, id uuid.UUID, sessionID, url string, now time.Time) (bool, error) {
	args := m.Called(ctx, orgID, id, sessionID, url, now)
	return args.Bool(0), args.Error(1)
}

func (m *InvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) ([]*models.Invoice, error) {
	args := m.Called(ctx, now)
	if v := args.Get(0); v != nil {
		return v.([]*models.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InvoiceRepository) Summary(ctx context.Context, orgID uuid.UUID, status models.InvoiceStatus) (*repositories.InvoiceSummary, error) {
	args := m.Called(ctx, orgID, status)
	if v := args.Get(0); v != nil {
		return v.(*repositories.InvoiceSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InvoiceRepository) WithTx(tx repositories.Transaction) repositories.InvoiceRepository {
	return m
}

// SocialPostRepository is a testify mock of repositories.SocialPostRepository
type SocialPostRepository struct {
	mock.Mock
}

func (m *SocialPostRepository) Create(ctx context.Context, post *models.SocialPost) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *SocialPostRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.SocialPost, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.SocialPost), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SocialPostRepository) Update(ctx context.Context, post *models.SocialPost) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *SocialPostRepository) ListRange(ctx context.Context, orgID uuid.UUID, filter repositories.PostFilter) ([]*models.SocialPost, error) {
	args := m.Called(ctx, orgID, filter)
	if v := args.Get(0); v != nil {
		return v.([]*models.SocialPost), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SocialPostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.SocialPost, error) {
	args := m.Called(ctx, now, limit)
	if v := args.Get(0); v != nil {
		return v.([]*models.SocialPost), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SocialPostRepository) CountScheduled(ctx context.Context, orgID uuid.UUID, from, to time.Time) (int, error) {
	args := m.Called(ctx, orgID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *SocialPostRepository) WithTx(tx repositories.Transaction) repositories.SocialPostRepository {
	return m
}

// ConversationRepository is a testify mock of repositories.ConversationRepository
type ConversationRepository struct {
	mock.Mock
}

func (m *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *ConversationRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConversationRepository) ListByOwner(ctx context.Context, orgID, ownerID uuid.UUID) ([]*models.Conversation, error) {
	args := m.Called(ctx, orgID, ownerID)
	if v := args.Get(0); v != nil {
		return v.([]*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConversationRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *ConversationRepository) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *ConversationRepository) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, conversationID, limit)
	if v := args.Get(0); v != nil {
		return v.([]*models.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConversationRepository) WithTx(tx repositories.Transaction) repositories.ConversationRepository {
	return m
}

// IntegrationRepository is a testify mock of repositories.IntegrationRepository
type IntegrationRepository struct {
	mock.Mock
}

func (m *IntegrationRepository) Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationConfig, error) {
	args := m.Called(ctx, orgID)
	if v := args.Get(0); v != nil {
		return v.(*models.IntegrationConfig), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IntegrationRepository) Upsert(ctx context.Context, cfg *models.IntegrationConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

// AuditRepository is a testify mock of repositories.AuditRepository
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByClientID(ctx context.Context, orgID, clientID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, clientID, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByDateRange(ctx context.Context, orgID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, start, end, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByAction(ctx context.Context, orgID uuid.UUID, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, action, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByRequestID(ctx context.Context, requestID string) ([]*models.AuditLog, error) {
	args := m.Called(ctx, requestID)
	if v := args.Get(0); v != nil {
		return v.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return m
}
