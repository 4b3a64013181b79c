package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/proposal"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// ProposalService covers proposals for staff and the client portal
type ProposalService interface {
	Create(ctx context.Context, orgID uuid.UUID, actor services.Actor, req proposal.CreateRequest) (*models.Proposal, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error)
	GetForClient(ctx context.Context, orgID, clientID, id uuid.UUID) (*models.Proposal, error)
	List(ctx context.Context, orgID uuid.UUID, filter repositories.ProposalFilter) ([]*models.Proposal, error)
	ListForClient(ctx context.Context, orgID, clientID uuid.UUID) ([]*models.Proposal, error)
	Update(ctx context.Context, orgID, id uuid.UUID, req proposal.UpdateRequest) (*models.Proposal, error)
	GenerateDraft(ctx context.Context, orgID, id uuid.UUID, actor services.Actor, req proposal.DraftRequest) (*proposal.DraftResult, error)
	Send(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Proposal, error)
	Decide(ctx context.Context, orgID, clientID, id uuid.UUID, decision proposal.Decision, actor services.Actor) (*proposal.DecisionResult, error)
	GenerateContract(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error)
}

type CreateProposalRequest struct {
	ClientID    uuid.UUID         `json:"client_id" validate:"required"`
	Title       string            `json:"title" validate:"required,max=200"`
	LineItems   []models.LineItem `json:"line_items" validate:"required,min=1,max=100,dive"`
	DiscountPct float64           `json:"discount_pct" validate:"gte=0,lte=100"`
	TaxPct      *float64          `json:"tax_pct" validate:"omitempty,gte=0,lte=100"`
	Currency    string            `json:"currency" validate:"omitempty,iso4217"`
	ValidUntil  *time.Time        `json:"valid_until"`
	Body        string            `json:"body" validate:"max=50000"`
}

type UpdateProposalRequest struct {
	Title       *string           `json:"title" validate:"omitempty,min=1,max=200"`
	LineItems   []models.LineItem `json:"line_items" validate:"omitempty,max=100,dive"`
	DiscountPct *float64          `json:"discount_pct" validate:"omitempty,gte=0,lte=100"`
	TaxPct      *float64          `json:"tax_pct" validate:"omitempty,gte=0,lte=100"`
	ValidUntil  *time.Time        `json:"valid_until"`
	Body        *string           `json:"body" validate:"omitempty,max=50000"`
}

type DraftProposalRequest struct {
	Brief     string   `json:"brief" validate:"max=4000"`
	Tone      string   `json:"tone" validate:"max=100"`
	Providers []string `json:"providers" validate:"max=8"`
}

type ProposalHandler struct {
	service ProposalService
	logger  *zap.Logger
}

func NewProposalHandler(service ProposalService, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/proposals?client_id=&status=
func (h *ProposalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	clientID, err := queryUUID(r, "client_id")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid client_id format", nil)
		return
	}
	filter := repositories.ProposalFilter{ClientID: clientID}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.ProposalStatus(raw)
		switch status {
		case models.ProposalDraft, models.ProposalSent, models.ProposalAccepted, models.ProposalRejected, models.ProposalExpired:
			filter.Status = &status
		default:
			_ = utils.WriteBadRequest(w, "Invalid status filter", nil)
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

// HandleCreate handles POST /api/v1/proposals
func (h *ProposalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	var req CreateProposalRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	p, err := h.service.Create(r.Context(), orgID, actorFrom(r), proposal.CreateRequest{
		ClientID:    req.ClientID,
		Title:       req.Title,
		LineItems:   req.LineItems,
		DiscountPct: req.DiscountPct,
		TaxPct:      req.TaxPct,
		Currency:    req.Currency,
		ValidUntil:  req.ValidUntil,
		Body:        req.Body,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, p, h.logger)
}

// HandleGet handles GET /api/v1/proposals/{id}
func (h *ProposalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, p, h.logger)
}

// HandleUpdate handles PATCH /api/v1/proposals/{id}; drafts only
func (h *ProposalHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateProposalRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	p, err := h.service.Update(r.Context(), orgID, id, proposal.UpdateRequest{
		Title:       req.Title,
		LineItems:   req.LineItems,
		DiscountPct: req.DiscountPct,
		TaxPct:      req.TaxPct,
		ValidUntil:  req.ValidUntil,
		Body:        req.Body,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, p, h.logger)
}

// HandleGenerateDraft handles POST /api/v1/proposals/{id}/draft
func (h *ProposalHandler) HandleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req DraftProposalRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	result, err := h.service.GenerateDraft(r.Context(), orgID, id, actorFrom(r), proposal.DraftRequest{
		Brief:     req.Brief,
		Tone:      req.Tone,
		Providers: req.Providers,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if result.Fallback {
		h.logger.Warn("proposal drafted from template",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("proposal_id", id.String()),
			zap.String("reason", result.FallbackReason))
	}
	writeOK(w, result, h.logger)
}

// HandleSend handles POST /api/v1/proposals/{id}/send
func (h *ProposalHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.Send(r.Context(), orgID, id, actorFrom(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, p, h.logger)
}

// HandleContract handles POST /api/v1/proposals/{id}/contract
func (h *ProposalHandler) HandleContract(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.GenerateContract(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, p, h.logger)
}

// HandlePortalList handles GET /api/v1/portal/proposals
func (h *ProposalHandler) HandlePortalList(w http.ResponseWriter, r *http.Request) {
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

// HandlePortalGet handles GET /api/v1/portal/proposals/{id}
func (h *ProposalHandler) HandlePortalGet(w http.ResponseWriter, r *http.Request) {
	orgID, clientID, ok := requireClient(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.GetForClient(r.Context(), orgID, clientID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, p, h.logger)
}

// HandlePortalAccept handles POST /api/v1/portal/proposals/{id}/accept
func (h *ProposalHandler) HandlePortalAccept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, proposal.DecisionAccept)
}

// HandlePortalReject handles POST /api/v1/portal/proposals/{id}/reject
func (h *ProposalHandler) HandlePortalReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, proposal.DecisionReject)
}

func (h *ProposalHandler) decide(w http.ResponseWriter, r *http.Request, decision proposal.Decision) {
	orgID, clientID, ok := requireClient(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.service.Decide(r.Context(), orgID, clientID, id, decision, actorFrom(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.logger.Info("proposal decided",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("proposal_id", id.String()),
		zap.String("decision", string(decision)))
	writeOK(w, result, h.logger)
}
