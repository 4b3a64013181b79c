package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/churn"
	"github.com/upb/agency-backoffice/services/directory"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// ClientService manages client accounts
type ClientService interface {
	CreateClient(ctx context.Context, orgID uuid.UUID, req directory.ClientRequest) (*models.Client, error)
	GetClient(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context, orgID uuid.UUID, filter repositories.ClientFilter) ([]*models.Client, error)
	UpdateClient(ctx context.Context, orgID, id uuid.UUID, req directory.ClientUpdate) (*models.Client, error)
	DeleteClient(ctx context.Context, orgID, id uuid.UUID) error
	RecordContact(ctx context.Context, orgID, id uuid.UUID, at *time.Time) (*models.Client, error)
	InvitePortalUser(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Client, error)
}

// ChurnService scores clients
type ChurnService interface {
	ScoreClient(ctx context.Context, orgID, clientID uuid.UUID) (*churn.Score, error)
	RescoreAll(ctx context.Context, orgID uuid.UUID) (*churn.RescoreSummary, error)
	AtRisk(ctx context.Context, orgID uuid.UUID, minRisk models.RiskLevel) ([]*models.Client, error)
}

// RecordContactRequest is the optional body of POST /clients/{id}/contact
type RecordContactRequest struct {
	At *time.Time `json:"at"`
}

// ClientHandler handles client accounts and their churn scores
type ClientHandler struct {
	clients ClientService
	churn   ChurnService
	logger  *zap.Logger
}

func NewClientHandler(clients ClientService, churn ChurnService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, churn: churn, logger: logger}
}

// HandleList handles GET /api/v1/clients?status=&owner_id=&min_risk=
func (h *ClientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	filter := repositories.ClientFilter{Limit: limit, Offset: offset}
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status := models.ClientStatus(raw)
		switch status {
		case models.ClientStatusActive, models.ClientStatusPaused, models.ClientStatusChurned:
			filter.Status = &status
		default:
			_ = utils.WriteBadRequest(w, "Invalid status filter", nil)
			return
		}
	}
	owner, err := queryUUID(r, "owner_id")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid owner_id format", nil)
		return
	}
	filter.OwnerID = owner
	if raw := q.Get("min_risk"); raw != "" {
		risk := models.RiskLevel(raw)
		if risk.Rank() == 0 {
			_ = utils.WriteBadRequest(w, "Invalid min_risk filter", nil)
			return
		}
		filter.MinRisk = &risk
	}

	list, err := h.clients.ListClients(r.Context(), orgID, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if err := utils.WriteList(w, list, filter.Limit, filter.Offset); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleCreate handles POST /api/v1/clients
func (h *ClientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	var req directory.ClientRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	client, err := h.clients.CreateClient(r.Context(), orgID, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.logger.Info("client created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("org_id", orgID.String()),
		zap.String("client_id", client.ID.String()))
	writeCreated(w, client, h.logger)
}

// HandleGet handles GET /api/v1/clients/{id}
func (h *ClientHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	client, err := h.clients.GetClient(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, client, h.logger)
}

// HandleUpdate handles PATCH /api/v1/clients/{id}
func (h *ClientHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req directory.ClientUpdate
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	client, err := h.clients.UpdateClient(r.Context(), orgID, id, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, client, h.logger)
}

// HandleDelete handles DELETE /api/v1/clients/{id}
func (h *ClientHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.clients.DeleteClient(r.Context(), orgID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleRecordContact handles POST /api/v1/clients/{id}/contact. An empty
// body stamps the current time.
func (h *ClientHandler) HandleRecordContact(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req RecordContactRequest
	if err := utils.DecodeJSON(r, &req); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		_ = utils.WriteBadRequest(w, "Invalid request body: "+err.Error(), nil)
		return
	}
	client, err := h.clients.RecordContact(r.Context(), orgID, id, req.At)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, client, h.logger)
}

// HandlePortalInvite handles POST /api/v1/clients/{id}/portal-invite
func (h *ClientHandler) HandlePortalInvite(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	client, err := h.clients.InvitePortalUser(r.Context(), orgID, id, actorFrom(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, client, h.logger)
}

// HandleChurn handles GET /api/v1/clients/{id}/churn. The score is
// recomputed and persisted on every call.
func (h *ClientHandler) HandleChurn(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	score, err := h.churn.ScoreClient(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, score, h.logger)
}

// HandleAtRisk handles GET /api/v1/clients/at-risk?min=high
func (h *ClientHandler) HandleAtRisk(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	minRisk := models.RiskHigh
	if raw := r.URL.Query().Get("min"); raw != "" {
		minRisk = models.RiskLevel(raw)
		if minRisk.Rank() == 0 {
			_ = utils.WriteBadRequest(w, "min must be one of: low, medium, high, critical", nil)
			return
		}
	}
	list, err := h.churn.AtRisk(r.Context(), orgID, minRisk)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, list, h.logger)
}

// HandleRescore handles POST /api/v1/clients/rescore (admin)
func (h *ClientHandler) HandleRescore(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	summary, err := h.churn.RescoreAll(r.Context(), orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, summary, h.logger)
}
