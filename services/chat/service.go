package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/ai"
	"github.com/upb/agency-backoffice/services/providers"
	"go.uber.org/zap"
)

const (
	// HistoryWindow is how many stored messages are replayed to the model
	HistoryWindow = 20

	maxMessageLen   = 8000
	maxTitleLen     = 120
	defaultTitle    = "New conversation"
	defaultPageSize = 50
	maxPageSize     = 200
)

const persona = `You are the in-house assistant of %s, a marketing agency. You help account managers, ` +
	`designers and strategists with campaign ideas, copy, client communication and planning. ` +
	`Be concise and practical. If you are unsure about a client fact, say so instead of guessing.`

// CreateRequest opens a conversation, optionally about one client
type CreateRequest struct {
	ClientID *uuid.UUID `json:"client_id"`
	Title    string     `json:"title" validate:"max=120"`
}

// SendRequest is a user turn
type SendRequest struct {
	Content   string   `json:"content" validate:"required,max=8000"`
	Model     string   `json:"model"`
	Providers []string `json:"providers"`
}

// SendResult holds both persisted turns and how the reply was produced
type SendResult struct {
	UserMessage *models.ChatMessage `json:"user_message"`
	Reply       *models.ChatMessage `json:"reply"`
	Usage       providers.Usage     `json:"usage"`
	Attempts    []ai.Attempt        `json:"attempts"`
}

// Service runs AI chat threads for employees
type Service struct {
	conversations repositories.ConversationRepository
	clients       repositories.ClientRepository
	orgs          repositories.OrganizationRepository
	generator     ai.Generator
	logger        *zap.Logger
	now           func() time.Time
}

// NewService creates a chat service
func NewService(
	conversations repositories.ConversationRepository,
	clients repositories.ClientRepository,
	orgs repositories.OrganizationRepository,
	generator ai.Generator,
	logger *zap.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		clients:       clients,
		orgs:          orgs,
		generator:     generator,
		logger:        logger,
		now:           time.Now,
	}
}

// Create opens a conversation owned by the acting employee
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, actor services.Actor, req CreateRequest) (*models.Conversation, error) {
	if actor.EmployeeID == uuid.Nil {
		return nil, services.ErrForbidden
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle
	}
	if len(title) > maxTitleLen {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "conversation title is too long", nil).
			WithDetail("max", maxTitleLen)
	}
	if req.ClientID != nil {
		if _, err := s.getClient(ctx, orgID, *req.ClientID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	conv := &models.Conversation{
		ID:        uuid.New(),
		OrgID:     orgID,
		OwnerID:   actor.EmployeeID,
		ClientID:  req.ClientID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, services.WrapInternal("failed to create conversation", err)
	}
	return conv, nil
}

// List returns the employee's conversations, most recent first
func (s *Service) List(ctx context.Context, orgID, ownerID uuid.UUID) ([]*models.Conversation, error) {
	convs, err := s.conversations.ListByOwner(ctx, orgID, ownerID)
	if err != nil {
		return nil, services.WrapInternal("failed to list conversations", err)
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	return convs, nil
}

// Get returns a conversation the employee owns
func (s *Service) Get(ctx context.Context, orgID, ownerID, id uuid.UUID) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrConversationNotFound
		}
		return nil, services.WrapInternal("failed to get conversation", err)
	}
	if conv.OwnerID != ownerID {
		return nil, services.ErrConversationNotFound
	}
	return conv, nil
}

// Messages returns up to limit of the newest messages in chronological order
func (s *Service) Messages(ctx context.Context, orgID, ownerID, id uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	if _, err := s.Get(ctx, orgID, ownerID, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	msgs, err := s.conversations.RecentMessages(ctx, id, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to list messages", err)
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	return msgs, nil
}

// SendMessage stores the user turn, asks the AI router with the recent
// history and stores the reply. When generation fails the user turn stays.
func (s *Service) SendMessage(ctx context.Context, orgID uuid.UUID, actor services.Actor, id uuid.UUID, req SendRequest) (*SendResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "message content is required", nil)
	}
	if len(content) > maxMessageLen {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "message is too long", nil).
			WithDetail("max", maxMessageLen)
	}

	conv, err := s.Get(ctx, orgID, actor.EmployeeID, id)
	if err != nil {
		return nil, err
	}

	userMsg := s.newMessage(conv.ID, models.ChatRoleUser, content)
	if err := s.conversations.AddMessage(ctx, userMsg); err != nil {
		return nil, services.WrapInternal("failed to store message", err)
	}
	s.touch(ctx, conv.ID)

	recent, err := s.conversations.RecentMessages(ctx, conv.ID, HistoryWindow)
	if err != nil {
		return nil, services.WrapInternal("failed to load history", err)
	}
	history := make([]providers.Message, 0, len(recent))
	for _, m := range recent {
		if m.Role != models.ChatRoleUser && m.Role != models.ChatRoleAssistant {
			continue
		}
		history = append(history, providers.Message{Role: m.Role, Content: m.Content})
	}

	employeeID := actor.EmployeeID
	gen, err := s.generator.Generate(ctx, ai.GenerateRequest{
		OrgID:        orgID,
		UserID:       &employeeID,
		ClientID:     conv.ClientID,
		Feature:      ai.FeatureChat,
		SystemPrompt: s.systemPrompt(ctx, orgID, conv),
		History:      history,
		Model:        req.Model,
		Providers:    req.Providers,
		RequestID:    actor.RequestID,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
	})
	if err != nil {
		s.logger.Warn("chat reply failed",
			zap.String("conversation_id", conv.ID.String()),
			zap.String("request_id", actor.RequestID),
			zap.Error(err),
		)
		return nil, err
	}

	reply := s.newMessage(conv.ID, models.ChatRoleAssistant, gen.Content)
	reply.Provider = gen.Provider
	reply.Model = gen.Model
	if err := s.conversations.AddMessage(ctx, reply); err != nil {
		return nil, services.WrapInternal("failed to store reply", err)
	}
	s.touch(ctx, conv.ID)

	return &SendResult{
		UserMessage: userMsg,
		Reply:       reply,
		Usage:       gen.Usage,
		Attempts:    gen.Attempts,
	}, nil
}

func (s *Service) systemPrompt(ctx context.Context, orgID uuid.UUID, conv *models.Conversation) string {
	agency := "the agency"
	currency := ""
	if org, err := s.orgs.GetByID(ctx, orgID); err == nil {
		agency = org.Name
		currency = org.Currency
	} else {
		s.logger.Warn("failed to load organization for chat", zap.String("org_id", orgID.String()), zap.Error(err))
	}

	prompt := fmt.Sprintf(persona, agency)
	if conv.ClientID == nil {
		return prompt
	}
	client, err := s.getClient(ctx, orgID, *conv.ClientID)
	if err != nil {
		s.logger.Warn("failed to load chat client", zap.String("client_id", conv.ClientID.String()), zap.Error(err))
		return prompt
	}
	return prompt + "\n\n" + ClientSummary(client, currency)
}

// ClientSummary describes a client for the model in a few plain lines
func ClientSummary(c *models.Client, currency string) string {
	var b strings.Builder
	b.WriteString("This conversation is about the client ")
	if c.Company != "" {
		fmt.Fprintf(&b, "%s (contact: %s)", c.Company, c.Name)
	} else {
		b.WriteString(c.Name)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Status: %s.\n", c.Status)
	if c.ChurnRisk != nil {
		if c.ChurnScore != nil {
			fmt.Fprintf(&b, "Churn risk: %s (score %d/100).\n", *c.ChurnRisk, *c.ChurnScore)
		} else {
			fmt.Fprintf(&b, "Churn risk: %s.\n", *c.ChurnRisk)
		}
	} else {
		b.WriteString("Churn risk: not scored yet.\n")
	}
	if c.MonthlyRetainerCents > 0 {
		fmt.Fprintf(&b, "Monthly retainer: %s.\n", models.FormatMoney(c.MonthlyRetainerCents, currency))
	}
	if c.ContractEnd != nil {
		fmt.Fprintf(&b, "Contract ends: %s.\n", c.ContractEnd.Format("2006-01-02"))
	}
	if c.LastContactAt != nil {
		fmt.Fprintf(&b, "Last contact: %s.\n", c.LastContactAt.Format("2006-01-02"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Service) newMessage(conversationID uuid.UUID, role, content string) *models.ChatMessage {
	msg := models.NewChatMessage(conversationID, role, content)
	msg.CreatedAt = s.now().UTC()
	return msg
}

func (s *Service) touch(ctx context.Context, id uuid.UUID) {
	if err := s.conversations.Touch(ctx, id, s.now().UTC()); err != nil {
		s.logger.Warn("failed to touch conversation", zap.String("conversation_id", id.String()), zap.Error(err))
	}
}

func (s *Service) getClient(ctx context.Context, orgID, clientID uuid.UUID) (*models.Client, error) {
	c, err := s.clients.GetByID(ctx, orgID, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrClientNotFound
		}
		return nil, services.WrapInternal("failed to get client", err)
	}
	return c, nil
}
