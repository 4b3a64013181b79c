package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// NotificationService is the caller's in-app inbox
type NotificationService interface {
	List(ctx context.Context, orgID, recipientID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, orgID, recipientID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, orgID, recipientID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, orgID, recipientID uuid.UUID) (int, error)
}

type NotificationHandler struct {
	service NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/notifications?unread=true&limit=
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	unread, err := utils.QueryBool(r, "unread", false)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	limit, _, ok := pagination(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), orgID, emp.ID, unread, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	count, err := h.service.UnreadCount(r.Context(), orgID, emp.ID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, map[string]interface{}{
		"notifications": list,
		"unread":        count,
	}, h.logger)
}

// HandleMarkRead handles POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(r.Context(), orgID, emp.ID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleMarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(r.Context(), orgID, emp.ID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, map[string]int64{"marked": n}, h.logger)
}
