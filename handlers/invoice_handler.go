package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/billing"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

const maxWebhookBytes = 256 << 10

// BillingService covers invoices, checkout and the payment webhook
type BillingService interface {
	Create(ctx context.Context, orgID uuid.UUID, req billing.CreateRequest) (*models.Invoice, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error)
	GetForClient(ctx context.Context, orgID, clientID, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, orgID uuid.UUID, filter repositories.InvoiceFilter) ([]*models.Invoice, error)
	ListForClient(ctx context.Context, orgID, clientID uuid.UUID) ([]*models.Invoice, error)
	Void(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Invoice, error)
	Checkout(ctx context.Context, orgID, id uuid.UUID, clientID *uuid.UUID) (*models.Invoice, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookResult, error)
}

type CreateInvoiceRequest struct {
	ClientID    uuid.UUID  `json:"client_id" validate:"required"`
	AmountCents int64      `json:"amount_cents" validate:"gt=0"`
	Currency    string     `json:"currency" validate:"omitempty,iso4217"`
	DueDate     *time.Time `json:"due_date"`
	Draft       bool       `json:"draft"`
}

// CheckoutResponse is what a caller needs to redirect to the payment page
type CheckoutResponse struct {
	InvoiceID   uuid.UUID `json:"invoice_id"`
	CheckoutURL string    `json:"checkout_url"`
	SessionID   string    `json:"session_id"`
}

type InvoiceHandler struct {
	service BillingService
	logger  *zap.Logger
}

func NewInvoiceHandler(service BillingService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/invoices?client_id=&status=open&status=overdue
func (h *InvoiceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	clientID, err := queryUUID(r, "client_id")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid client_id format", nil)
		return
	}
	filter := repositories.InvoiceFilter{ClientID: clientID}
	for _, raw := range r.URL.Query()["status"] {
		status := models.InvoiceStatus(raw)
		switch status {
		case models.InvoiceDraft, models.InvoiceOpen, models.InvoicePaid, models.InvoiceOverdue, models.InvoiceVoid:
			filter.Statuses = append(filter.Statuses, status)
		default:
			_ = utils.WriteBadRequest(w, "Invalid status filter: "+raw, nil)
			return
		}
	}
	list, err := h.service.List(r.Context(), orgID, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, list, h.logger)
}

// HandleCreate handles POST /api/v1/invoices
func (h *InvoiceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	var req CreateInvoiceRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	inv, err := h.service.Create(r.Context(), orgID, billing.CreateRequest{
		ClientID:    req.ClientID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		DueDate:     req.DueDate,
		Draft:       req.Draft,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, inv, h.logger)
}

// HandleGet handles GET /api/v1/invoices/{id}
func (h *InvoiceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, inv, h.logger)
}

// HandleVoid handles POST /api/v1/invoices/{id}/void
func (h *InvoiceHandler) HandleVoid(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.service.Void(r.Context(), orgID, id, actorFrom(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, inv, h.logger)
}

// HandleCheckout handles POST /api/v1/invoices/{id}/checkout for staff
// sending a payment link on the client's behalf
func (h *InvoiceHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.checkout(w, r, orgID, id, nil)
}

// HandlePortalList handles GET /api/v1/portal/invoices
func (h *InvoiceHandler) HandlePortalList(w http.ResponseWriter, r *http.Request) {
	orgID, clientID, ok := requireClient(w, r, h.logger)
	if !ok {
		return
	}
	list, err := h.service.ListForClient(r.Context(), orgID, clientID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, list, h.logger)
}

// HandlePortalGet handles GET /api/v1/portal/invoices/{id}
func (h *InvoiceHandler) HandlePortalGet(w http.ResponseWriter, r *http.Request) {
	orgID, clientID, ok := requireClient(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.service.GetForClient(r.Context(), orgID, clientID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, inv, h.logger)
}

// HandlePortalCheckout handles POST /api/v1/portal/invoices/{id}/checkout
func (h *InvoiceHandler) HandlePortalCheckout(w http.ResponseWriter, r *http.Request) {
	orgID, clientID, ok := requireClient(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.checkout(w, r, orgID, id, &clientID)
}

func (h *InvoiceHandler) checkout(w http.ResponseWriter, r *http.Request, orgID, id uuid.UUID, clientID *uuid.UUID) {
	inv, err := h.service.Checkout(r.Context(), orgID, id, clientID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, CheckoutResponse{
		InvoiceID:   inv.ID,
		CheckoutURL: inv.CheckoutURL,
		SessionID:   inv.CheckoutSessionID,
	}, h.logger)
}

// HandleWebhook handles POST /webhooks/payments. The raw body is needed
// for signature verification, so it is read before any decoding.
func (h *InvoiceHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Unable to read body", nil)
		return
	}
	result, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(billing.SignatureHeader))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.logger.Info("payment webhook processed",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("event_id", result.EventID),
		zap.String("type", result.Type),
		zap.Bool("handled", result.Handled))
	writeOK(w, result, h.logger)
}
