package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/services/notification"
	"go.uber.org/zap"
)

// Config holds invoicing and checkout settings
type Config struct {
	WebhookSecret    string
	WebhookTolerance time.Duration
	SuccessURL       string
	CancelURL        string
	DueDays          int
	Currency         string
}

// CreateRequest describes a manually issued invoice
type CreateRequest struct {
	ClientID    uuid.UUID
	AmountCents int64
	Currency    string
	DueDate     *time.Time
	Draft       bool
}

// WebhookResult reports what a payment webhook did
type WebhookResult struct {
	EventID   string     `json:"event_id"`
	Type      string     `json:"type"`
	Handled   bool       `json:"handled"`
	InvoiceID *uuid.UUID `json:"invoice_id,omitempty"`
}

// Service issues invoices and reconciles payments
type Service struct {
	txMgr    repositories.TransactionManager
	invoices repositories.InvoiceRepository
	clients  repositories.ClientRepository
	checkout CheckoutProvider
	notifier notification.Notifier
	recorder audit.Recorder
	logger   *zap.Logger
	config   Config
	now      func() time.Time
}

// NewService creates a billing service. checkout may be nil when no payment
// processor is configured.
func NewService(
	txMgr repositories.TransactionManager,
	invoices repositories.InvoiceRepository,
	clients repositories.ClientRepository,
	checkout CheckoutProvider,
	notifier notification.Notifier,
	recorder audit.Recorder,
	logger *zap.Logger,
	config Config,
) *Service {
	if config.WebhookTolerance <= 0 {
		config.WebhookTolerance = DefaultTolerance
	}
	if config.DueDays <= 0 {
		config.DueDays = 14
	}
	if config.Currency == "" {
		config.Currency = "USD"
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		txMgr:    txMgr,
		invoices: invoices,
		clients:  clients,
		checkout: checkout,
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// DueDays is the default payment term in days
func (s *Service) DueDays() int {
	return s.config.DueDays
}

// Issue numbers and stores an invoice inside the caller's transaction.
// Numbers run INV-YYYYMM-NNNN per organization and month.
func (s *Service) Issue(ctx context.Context, tx repositories.Transaction, inv *models.Invoice) error {
	invoices := s.invoices.WithTx(tx)
	now := s.now().UTC()

	seq, err := invoices.NextSequence(ctx, inv.OrgID, models.InvoiceNumberPrefix(now))
	if err != nil {
		return services.WrapInternal("failed to allocate invoice number", err)
	}
	inv.Number = models.InvoiceNumber(now, seq)
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Currency == "" {
		inv.Currency = s.config.Currency
	}
	inv.Currency = strings.ToUpper(inv.Currency)
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if err := invoices.Create(ctx, inv); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return services.NewDomainError(services.ErrorTypeConflict, "invoice number already issued, retry", err).
				WithDetail("number", inv.Number)
		}
		return services.WrapInternal("failed to create invoice", err)
	}

	s.logger.Info("invoice issued",
		zap.String("org_id", inv.OrgID.String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
		zap.Int64("amount_cents", inv.AmountCents),
	)
	return nil
}

// Create issues an invoice for a client
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, req CreateRequest) (*models.Invoice, error) {
	if req.AmountCents <= 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "amount must be positive", nil)
	}
	now := s.now().UTC()
	due := now.AddDate(0, 0, s.config.DueDays)
	if req.DueDate != nil {
		due = req.DueDate.UTC()
		if due.Before(now.Truncate(24 * time.Hour)) {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "due date cannot be in the past", nil)
		}
	}
	status := models.InvoiceOpen
	if req.Draft {
		status = models.InvoiceDraft
	}

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Invoice, error) {
		if _, err := s.clients.WithTx(tx).GetByID(ctx, orgID, req.ClientID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrClientNotFound
			}
			return nil, services.WrapInternal("failed to get client", err)
		}

		inv := &models.Invoice{
			OrgID:       orgID,
			ClientID:    req.ClientID,
			AmountCents: req.AmountCents,
			Currency:    req.Currency,
			Status:      status,
			DueDate:     due,
		}
		if err := s.Issue(ctx, tx, inv); err != nil {
			return nil, err
		}
		return inv, nil
	})
}

// Get returns an invoice of the organization
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvoiceNotFound
		}
		return nil, services.WrapInternal("failed to get invoice", err)
	}
	return inv, nil
}

// GetForClient returns an invoice only if it belongs to the client
func (s *Service) GetForClient(ctx context.Context, orgID, clientID, id uuid.UUID) (*models.Invoice, error) {
	inv, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if inv.ClientID != clientID || inv.Status == models.InvoiceDraft {
		return nil, services.ErrInvoiceNotFound
	}
	return inv, nil
}

// List returns the organization's invoices
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter repositories.InvoiceFilter) ([]*models.Invoice, error) {
	invoices, err := s.invoices.List(ctx, orgID, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list invoices", err)
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}
	return invoices, nil
}

// ListForClient returns what a client sees in the portal: no drafts or voids
func (s *Service) ListForClient(ctx context.Context, orgID, clientID uuid.UUID) ([]*models.Invoice, error) {
	return s.List(ctx, orgID, repositories.InvoiceFilter{
		ClientID: &clientID,
		Statuses: []models.InvoiceStatus{models.InvoiceOpen, models.InvoiceOverdue, models.InvoicePaid},
	})
}

// Void cancels an unpaid invoice
func (s *Service) Void(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Invoice, error) {
	var changed bool
	inv, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Invoice, error) {
		invoices := s.invoices.WithTx(tx)
		inv, err := invoices.GetByID(ctx, orgID, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrInvoiceNotFound
			}
			return nil, services.WrapInternal("failed to get invoice", err)
		}
		switch inv.Status {
		case models.InvoicePaid:
			return nil, services.ErrAlreadyPaid
		case models.InvoiceVoid:
			return inv, nil
		}

		inv.Status = models.InvoiceVoid
		inv.UpdatedAt = s.now().UTC()
		if err := invoices.Update(ctx, inv); err != nil {
			return nil, services.WrapInternal("failed to void invoice", err)
		}
		changed = true
		return inv, nil
	})
	if err != nil || !changed {
		return inv, err
	}

	s.recorder.Record(actor.Stamp(models.NewAuditLog(orgID, models.AuditActionInvoiceVoided, "invoice")).
		WithResource(inv.ID).
		WithClient(inv.ClientID).
		WithDetails(map[string]interface{}{"number": inv.Number}))
	return inv, nil
}

// Checkout starts a hosted payment for an open or overdue invoice. When
// clientID is set the invoice must belong to that client.
func (s *Service) Checkout(ctx context.Context, orgID, id uuid.UUID, clientID *uuid.UUID) (*models.Invoice, error) {
	if s.checkout == nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "payments are not configured", nil)
	}

	var (
		inv *models.Invoice
		err error
	)
	if clientID != nil {
		inv, err = s.GetForClient(ctx, orgID, *clientID, id)
	} else {
		inv, err = s.Get(ctx, orgID, id)
	}
	if err != nil {
		return nil, err
	}
	if !inv.Status.Payable() {
		return nil, services.NewDomainError(services.ErrorTypeConflict, services.ErrNotPayable.Message, nil).
			WithDetail("status", string(inv.Status))
	}

	client, err := s.clients.GetByID(ctx, orgID, inv.ClientID)
	if err != nil {
		return nil, services.WrapInternal("failed to get client", err)
	}

	session, err := s.checkout.CreateSession(ctx, CheckoutRequest{
		InvoiceID:     inv.ID,
		Description:   fmt.Sprintf("Invoice %s", inv.Number),
		AmountCents:   inv.AmountCents,
		Currency:      inv.Currency,
		CustomerEmail: client.Email,
		SuccessURL:    s.config.SuccessURL,
		CancelURL:     s.config.CancelURL,
	})
	if err != nil {
		s.logger.Error("checkout session failed",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
		return nil, services.NewDomainError(services.ErrorTypeExternal, services.ErrPaymentProvider.Message, err)
	}

	now := s.now().UTC()
	stored, err := s.invoices.SetCheckoutSession(ctx, orgID, inv.ID, session.ID, session.URL, now)
	if err != nil {
		return nil, services.WrapInternal("failed to store checkout session", err)
	}
	if !stored {
		// paid or voided while the session was being created
		s.logger.Warn("invoice left payable state during checkout",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("session_id", session.ID),
		)
		return nil, services.ErrNotPayable
	}
	inv.CheckoutSessionID = session.ID
	inv.CheckoutURL = session.URL
	inv.UpdatedAt = now

	s.logger.Info("checkout session created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("session_id", session.ID),
	)
	return inv, nil
}

// HandleWebhook verifies and applies a payment processor event. Completed
// checkouts mark the invoice paid once; other event types are acknowledged
// and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.config.WebhookSecret == "" {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "payment webhook secret is not configured", nil)
	}
	if err := VerifySignature(s.config.WebhookSecret, payload, signature, s.config.WebhookTolerance, s.now()); err != nil {
		s.logger.Warn("rejected payment webhook", zap.Error(err))
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidSignature.Message, err).
			WithDetail("reason", err.Error())
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid webhook payload", err)
	}
	result := &WebhookResult{EventID: event.ID, Type: event.Type}

	if event.Type != EventCheckoutCompleted {
		s.logger.Debug("ignoring payment event", zap.String("type", event.Type), zap.String("event_id", event.ID))
		return result, nil
	}
	object := event.Data.Object
	if object.PaymentStatus != "" && object.PaymentStatus != "paid" {
		s.logger.Info("checkout completed without payment",
			zap.String("event_id", event.ID),
			zap.String("payment_status", object.PaymentStatus),
		)
		return result, nil
	}

	ref := object.Metadata["invoice_id"]
	if ref == "" {
		ref = object.ClientReferenceID
	}
	invoiceID, err := uuid.Parse(ref)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "webhook does not reference an invoice", err).
			WithDetail("event_id", event.ID)
	}
	result.InvoiceID = &invoiceID

	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvoiceNotFound
		}
		return nil, services.WrapInternal("failed to get invoice", err)
	}

	paidAt := s.now().UTC()
	changed, err := s.invoices.MarkPaid(ctx, inv.ID, paidAt)
	if err != nil {
		return nil, services.WrapInternal("failed to mark invoice paid", err)
	}
	if !changed {
		s.logger.Info("payment already applied",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("event_id", event.ID),
			zap.String("status", string(inv.Status)),
		)
		return result, nil
	}
	inv.Status = models.InvoicePaid
	inv.PaidAt = &paidAt
	result.Handled = true

	s.recorder.Record(models.NewAuditLog(inv.OrgID, models.AuditActionInvoicePaid, "invoice").
		WithResource(inv.ID).
		WithClient(inv.ClientID).
		WithDetails(map[string]interface{}{
			"number":       inv.Number,
			"event_id":     event.ID,
			"session_id":   object.ID,
			"amount_cents": inv.AmountCents,
		}))

	s.notifyOwner(ctx, inv, models.KindInvoicePaid,
		fmt.Sprintf("Invoice %s was paid", inv.Number),
		fmt.Sprintf("%s received.", models.FormatMoney(inv.AmountCents, inv.Currency)),
	)

	s.logger.Info("invoice paid",
		zap.String("org_id", inv.OrgID.String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("event_id", event.ID),
	)
	return result, nil
}

// MarkOverdue flips every open invoice past its due date, across
// organizations, and tells each client's account owner
func (s *Service) MarkOverdue(ctx context.Context) ([]*models.Invoice, error) {
	flipped, err := s.invoices.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		return nil, services.WrapInternal("failed to mark overdue invoices", err)
	}
	for _, inv := range flipped {
		s.notifyOwner(ctx, inv, models.KindInvoiceOverdue,
			fmt.Sprintf("Invoice %s is overdue", inv.Number),
			fmt.Sprintf("%s was due on %s.", models.FormatMoney(inv.AmountCents, inv.Currency), inv.DueDate.Format("2006-01-02")),
		)
	}
	if len(flipped) > 0 {
		s.logger.Info("invoices marked overdue", zap.Int("count", len(flipped)))
	}
	return flipped, nil
}

func (s *Service) notifyOwner(ctx context.Context, inv *models.Invoice, kind, title, body string) {
	if s.notifier == nil {
		return
	}
	client, err := s.clients.GetByID(ctx, inv.OrgID, inv.ClientID)
	if err != nil {
		s.logger.Warn("failed to load client for invoice notification",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
		return
	}
	if client.OwnerID == nil {
		return
	}

	_, err = s.notifier.Notify(ctx, notification.NotifyRequest{
		OrgID:       inv.OrgID,
		RecipientID: *client.OwnerID,
		Kind:        kind,
		Title:       title,
		Body:        fmt.Sprintf("%s Client: %s.", body, client.Name),
		Link:        "/invoices/" + inv.ID.String(),
		Channels:    []models.Channel{models.ChannelEmail},
	})
	if err != nil {
		s.logger.Warn("failed to send invoice notification",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
