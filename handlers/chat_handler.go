package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/chat"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// ChatService holds an employee's assistant conversations
type ChatService interface {
	Create(ctx context.Context, orgID uuid.UUID, actor services.Actor, req chat.CreateRequest) (*models.Conversation, error)
	List(ctx context.Context, orgID, ownerID uuid.UUID) ([]*models.Conversation, error)
	Get(ctx context.Context, orgID, ownerID, id uuid.UUID) (*models.Conversation, error)
	Messages(ctx context.Context, orgID, ownerID, id uuid.UUID, limit int) ([]*models.ChatMessage, error)
	SendMessage(ctx context.Context, orgID uuid.UUID, actor services.Actor, id uuid.UUID, req chat.SendRequest) (*chat.SendResult, error)
}

type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/chat/conversations
func (h *ChatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), orgID, emp.ID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, list, h.logger)
}

// HandleCreate handles POST /api/v1/chat/conversations
func (h *ChatHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	var req chat.CreateRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	conv, err := h.service.Create(r.Context(), orgID, actorFrom(r), req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, conv, h.logger)
}

// HandleGet handles GET /api/v1/chat/conversations/{id}
func (h *ChatHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	conv, err := h.service.Get(r.Context(), orgID, emp.ID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, conv, h.logger)
}

// HandleMessages handles GET /api/v1/chat/conversations/{id}/messages
func (h *ChatHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	msgs, err := h.service.Messages(r.Context(), orgID, emp.ID, id, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, msgs, h.logger)
}

// HandleSend handles POST /api/v1/chat/conversations/{id}/messages
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req chat.SendRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	result, err := h.service.SendMessage(r.Context(), orgID, actorFrom(r), id, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, result, h.logger)
}
