package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/services/dashboard"
	"go.uber.org/zap"
)

type DashboardService interface {
	ForEmployee(ctx context.Context, orgID, employeeID uuid.UUID) (*dashboard.Summary, error)
	ForClient(ctx context.Context, orgID, clientID uuid.UUID) (*dashboard.PortalSummary, error)
}

// PortalLoginRecorder stamps the client's last portal visit, which feeds
// the churn score
type PortalLoginRecorder interface {
	RecordPortalLogin(ctx context.Context, clientID uuid.UUID)
}

type DashboardHandler struct {
	service DashboardService
	logins  PortalLoginRecorder
	logger  *zap.Logger
}

func NewDashboardHandler(service DashboardService, logins PortalLoginRecorder, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logins: logins, logger: logger}
}

// HandleEmployee handles GET /api/v1/dashboard
func (h *DashboardHandler) HandleEmployee(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	summary, err := h.service.ForEmployee(r.Context(), orgID, emp.ID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, summary, h.logger)
}

// HandlePortal handles GET /api/v1/portal/dashboard. Loading it counts as
// a portal login.
func (h *DashboardHandler) HandlePortal(w http.ResponseWriter, r *http.Request) {
	orgID, clientID, ok := requireClient(w, r, h.logger)
	if !ok {
		return
	}
	if h.logins != nil {
		h.logins.RecordPortalLogin(r.Context(), clientID)
	}
	summary, err := h.service.ForClient(r.Context(), orgID, clientID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, summary, h.logger)
}
