package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/directory"
	"github.com/upb/agency-backoffice/supabase"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// DirectoryService manages the tenant, its staff and the caller's profile
type DirectoryService interface {
	GetOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, orgID uuid.UUID, req directory.OrganizationUpdate) (*models.Organization, error)
	CreateEmployee(ctx context.Context, orgID uuid.UUID, actor services.Actor, req directory.EmployeeRequest) (*models.Employee, error)
	GetEmployee(ctx context.Context, orgID, id uuid.UUID) (*models.Employee, error)
	ListEmployees(ctx context.Context, orgID uuid.UUID) ([]*models.Employee, error)
	UpdateEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor, req directory.EmployeeUpdate) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) error
	InviteEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Employee, error)
	Me(ctx context.Context, principal *supabase.Principal) (*directory.Profile, error)
}

// DirectoryHandler serves /me, the organization and employees
type DirectoryHandler struct {
	service DirectoryService
	logger  *zap.Logger
}

func NewDirectoryHandler(service DirectoryService, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{service: service, logger: logger}
}

// HandleMe handles GET /api/v1/me for staff and portal users alike
func (h *DirectoryHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}
	profile, err := h.service.Me(r.Context(), principal)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, profile, h.logger)
}

// HandleGetOrganization handles GET /api/v1/organization
func (h *DirectoryHandler) HandleGetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	org, err := h.service.GetOrganization(r.Context(), orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, org, h.logger)
}

// HandleUpdateOrganization handles PATCH /api/v1/organization (admin)
func (h *DirectoryHandler) HandleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	var req directory.OrganizationUpdate
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	org, err := h.service.UpdateOrganization(r.Context(), orgID, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, org, h.logger)
}

// HandleListEmployees handles GET /api/v1/employees
func (h *DirectoryHandler) HandleListEmployees(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	list, err := h.service.ListEmployees(r.Context(), orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, list, h.logger)
}

// HandleCreateEmployee handles POST /api/v1/employees (admin). When the
// invite fails the employee is still created; the response is 502 and
// the admin can retry with /invite.
func (h *DirectoryHandler) HandleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	var req directory.EmployeeRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	emp, err := h.service.CreateEmployee(r.Context(), orgID, actorFrom(r), req)
	if err != nil {
		if emp != nil {
			h.logger.Warn("employee created without invite",
				zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
				zap.String("employee_id", emp.ID.String()),
				zap.Error(err))
		}
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, emp, h.logger)
}

// HandleGetEmployee handles GET /api/v1/employees/{id}
func (h *DirectoryHandler) HandleGetEmployee(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	emp, err := h.service.GetEmployee(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, emp, h.logger)
}

// HandleUpdateEmployee handles PATCH /api/v1/employees/{id} (admin)
func (h *DirectoryHandler) HandleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req directory.EmployeeUpdate
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	emp, err := h.service.UpdateEmployee(r.Context(), orgID, id, actorFrom(r), req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, emp, h.logger)
}

// HandleDeleteEmployee handles DELETE /api/v1/employees/{id} (admin)
func (h *DirectoryHandler) HandleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteEmployee(r.Context(), orgID, id, actorFrom(r)); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleInviteEmployee handles POST /api/v1/employees/{id}/invite (admin)
func (h *DirectoryHandler) HandleInviteEmployee(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	emp, err := h.service.InviteEmployee(r.Context(), orgID, id, actorFrom(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, emp, h.logger)
}
