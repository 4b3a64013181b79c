package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// AuditReader lists audit rows for a tenant
type AuditReader interface {
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
	ListForClient(ctx context.Context, orgID, clientID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

type AuditHandler struct {
	reader AuditReader
	logger *zap.Logger
}

func NewAuditHandler(reader AuditReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{reader: reader, logger: logger}
}

// HandleList handles GET /api/v1/audit/logs?client_id=&limit=&offset= (admin)
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	clientID, err := queryUUID(r, "client_id")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid client_id format", nil)
		return
	}

	var logs []*models.AuditLog
	if clientID != nil {
		logs, err = h.reader.ListForClient(r.Context(), orgID, *clientID, limit, offset)
	} else {
		logs, err = h.reader.List(r.Context(), orgID, limit, offset)
	}
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	if err := utils.WriteList(w, logs, limit, offset); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
