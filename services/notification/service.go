package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/internal/observability"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Notifier is what other services use to reach an employee
type Notifier interface {
	Notify(ctx context.Context, req NotifyRequest) (*models.Notification, error)
}

// SettingsSource resolves a tenant's integration settings
type SettingsSource interface {
	Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationSettings, error)
}

// NotifyRequest describes one notification to one employee
type NotifyRequest struct {
	OrgID       uuid.UUID
	RecipientID uuid.UUID
	Kind        string
	Title       string
	Body        string
	Link        string
	Channels    []models.Channel
}

// Config holds sender defaults used when the tenant sets none
type Config struct {
	PublicURL       string
	EmailFrom       string
	EmailFromName   string
	WhatsAppPhoneID string
	DeliveryTimeout time.Duration
}

// Service stores in-app notifications and fans out to email and WhatsApp
type Service struct {
	repo      repositories.NotificationRepository
	employees repositories.EmployeeRepository
	settings  SettingsSource
	email     Sender
	whatsapp  Sender
	metrics   *observability.Metrics
	logger    *zap.Logger
	config    Config
	now       func() time.Time
}

// NewService creates the notification service. email and whatsapp may be nil
// when the channel is not configured.
func NewService(
	repo repositories.NotificationRepository,
	employees repositories.EmployeeRepository,
	settings SettingsSource,
	email Sender,
	whatsapp Sender,
	metrics *observability.Metrics,
	logger *zap.Logger,
	config Config,
) *Service {
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = 10 * time.Second
	}
	return &Service{
		repo:      repo,
		employees: employees,
		settings:  settings,
		email:     email,
		whatsapp:  whatsapp,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Notify stores the in-app notification, then attempts each requested
// external channel. Only the in-app write can fail the call.
func (s *Service) Notify(ctx context.Context, req NotifyRequest) (*models.Notification, error) {
	if req.RecipientID == uuid.Nil || strings.TrimSpace(req.Kind) == "" || strings.TrimSpace(req.Title) == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "notification needs a recipient, kind and title", nil)
	}

	n := models.NewNotification(req.OrgID, req.RecipientID, req.Kind, req.Title, req.Body, models.ChannelInApp)
	n.Link = req.Link
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, services.WrapInternal("failed to store notification", err)
	}
	s.metrics.RecordNotification(string(models.ChannelInApp), string(models.DeliverySent))

	if channels := externalChannels(req.Channels); len(channels) > 0 {
		s.deliver(ctx, req, channels)
	}
	return n, nil
}

// externalChannels dedupes the requested channels and drops in-app
func externalChannels(channels []models.Channel) []models.Channel {
	var out []models.Channel
	seen := make(map[models.Channel]bool)
	for _, ch := range channels {
		if ch == models.ChannelInApp || seen[ch] {
			continue
		}
		if ch != models.ChannelEmail && ch != models.ChannelWhatsApp {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out
}

func (s *Service) deliver(ctx context.Context, req NotifyRequest, channels []models.Channel) {
	settings, err := s.settings.Get(ctx, req.OrgID)
	if err != nil {
		s.logger.Warn("skipping external notification: settings unavailable",
			zap.String("org_id", req.OrgID.String()),
			zap.Error(err),
		)
		return
	}
	recipient, err := s.employees.GetByID(ctx, req.OrgID, req.RecipientID)
	if err != nil {
		s.logger.Warn("skipping external notification: recipient lookup failed",
			zap.String("recipient_id", req.RecipientID.String()),
			zap.Error(err),
		)
		return
	}

	// deliveries outlive a caller that hangs up
	sendBase := context.WithoutCancel(ctx)

	for _, channel := range channels {
		row := models.NewNotification(req.OrgID, req.RecipientID, req.Kind, req.Title, req.Body, channel)
		row.Link = req.Link

		sender, env, reason := s.route(channel, settings, recipient, req)
		if sender == nil {
			row.DeliveryStatus = models.DeliverySkipped
			if err := s.repo.Create(ctx, row); err != nil {
				s.logger.Warn("failed to store skipped delivery", zap.Error(err))
			}
			s.metrics.RecordNotification(string(channel), string(models.DeliverySkipped))
			s.logger.Debug("notification channel skipped",
				zap.String("channel", string(channel)),
				zap.String("reason", reason),
			)
			continue
		}

		if err := s.repo.Create(ctx, row); err != nil {
			s.logger.Warn("failed to store pending delivery", zap.String("channel", string(channel)), zap.Error(err))
			continue
		}

		sendCtx, cancel := context.WithTimeout(sendBase, s.config.DeliveryTimeout)
		sendErr := sender.Send(sendCtx, env)
		cancel()

		status := models.DeliverySent
		if sendErr != nil {
			status = models.DeliveryFailed
			s.logger.Warn("notification delivery failed",
				zap.String("notification_id", row.ID.String()),
				zap.String("channel", string(channel)),
				zap.Error(sendErr),
			)
		}
		if err := s.repo.UpdateDeliveryStatus(sendBase, row.ID, status); err != nil {
			s.logger.Warn("failed to store delivery status", zap.String("notification_id", row.ID.String()), zap.Error(err))
		}
		s.metrics.RecordNotification(string(channel), string(status))
	}
}

// route picks the sender and builds the envelope, or explains why the channel is skipped
func (s *Service) route(channel models.Channel, settings *models.IntegrationSettings, recipient *models.Employee, req NotifyRequest) (Sender, Envelope, string) {
	env := Envelope{
		ToName:  recipient.FullName,
		Subject: req.Title,
		Body:    s.body(req),
	}

	switch channel {
	case models.ChannelEmail:
		switch {
		case !settings.NotifyEmail:
			return nil, env, "email disabled for tenant"
		case s.email == nil:
			return nil, env, "email sender not configured"
		case recipient.Email == "":
			return nil, env, "recipient has no email"
		}
		env.To = recipient.Email
		env.FromEmail = firstNonEmpty(settings.EmailFrom, s.config.EmailFrom)
		env.FromName = firstNonEmpty(settings.EmailFromName, s.config.EmailFromName)
		return s.email, env, ""

	case models.ChannelWhatsApp:
		env.PhoneID = firstNonEmpty(settings.WhatsAppPhoneID, s.config.WhatsAppPhoneID)
		switch {
		case !settings.NotifyWhatsApp:
			return nil, env, "whatsapp disabled for tenant"
		case s.whatsapp == nil:
			return nil, env, "whatsapp sender not configured"
		case recipient.Phone == "":
			return nil, env, "recipient has no phone"
		case env.PhoneID == "":
			return nil, env, "no whatsapp phone number id"
		}
		env.To = recipient.Phone
		return s.whatsapp, env, ""
	}
	return nil, env, "unsupported channel"
}

func (s *Service) body(req NotifyRequest) string {
	if req.Link == "" {
		return req.Body
	}
	link := req.Link
	if strings.HasPrefix(link, "/") && s.config.PublicURL != "" {
		link = strings.TrimRight(s.config.PublicURL, "/") + link
	}
	if req.Body == "" {
		return link
	}
	return req.Body + "\n\n" + link
}

// List returns the recipient's in-app notifications, newest first
func (s *Service) List(ctx context.Context, orgID, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := s.repo.List(ctx, orgID, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to list notifications", err)
	}
	if items == nil {
		items = []*models.Notification{}
	}
	return items, nil
}

// MarkRead marks one of the recipient's notifications as read
func (s *Service) MarkRead(ctx context.Context, orgID, recipientID, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, orgID, recipientID, id, s.now().UTC()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrNotificationNotFound
		}
		return services.WrapInternal("failed to mark notification read", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the recipient and returns how many changed
func (s *Service) MarkAllRead(ctx context.Context, orgID, recipientID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, orgID, recipientID, s.now().UTC())
	if err != nil {
		return 0, services.WrapInternal("failed to mark notifications read", err)
	}
	return n, nil
}

// UnreadCount returns the recipient's unread in-app count
func (s *Service) UnreadCount(ctx context.Context, orgID, recipientID uuid.UUID) (int, error) {
	n, err := s.repo.UnreadCount(ctx, orgID, recipientID)
	if err != nil {
		return 0, services.WrapInternal("failed to count unread notifications", err)
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
