package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// requireOrg returns the tenant set by ExtractTenant or writes 401
func requireOrg(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	orgID := middleware.GetOrgIDFromContext(r.Context())
	if orgID == uuid.Nil {
		logger.Error("missing org ID in context",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		_ = utils.WriteUnauthorized(w, "Missing organization information")
		return uuid.Nil, false
	}
	return orgID, true
}

// requireEmployee returns the tenant and the calling staff member
func requireEmployee(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, *models.Employee, bool) {
	orgID, ok := requireOrg(w, r, logger)
	if !ok {
		return uuid.Nil, nil, false
	}
	emp := middleware.GetEmployeeFromContext(r.Context())
	if emp == nil {
		_ = utils.WriteForbidden(w, "Staff access required")
		return uuid.Nil, nil, false
	}
	return orgID, emp, true
}

// requireClient returns the tenant and the portal caller's client id
func requireClient(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, uuid.UUID, bool) {
	orgID, ok := requireOrg(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	clientID := middleware.GetClientIDFromContext(r.Context())
	if clientID == nil {
		_ = utils.WriteForbidden(w, "Client portal access required")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, *clientID, true
}

// actorFrom describes the caller for audit rows
func actorFrom(r *http.Request) services.Actor {
	ctx := r.Context()
	actor := services.Actor{
		ClientID:  middleware.GetClientIDFromContext(ctx),
		RequestID: middleware.GetRequestIDFromContext(ctx),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if emp := middleware.GetEmployeeFromContext(ctx); emp != nil {
		actor.EmployeeID = emp.ID
	}
	return actor
}

// pathUUID parses a chi URL parameter, writing 400 when malformed
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid "+name+" format", nil)
		return uuid.Nil, false
	}
	return id, true
}

// decodeRequest reads the JSON body into dst and validates it
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		logger.Debug("invalid request body",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body: "+err.Error(), nil)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates (midnight UTC)
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// pagination reads limit/offset with defaults and an upper bound
func pagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	limit, err := utils.QueryInt(r, "limit", defaultPageSize)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return 0, 0, false
	}
	offset, err := utils.QueryInt(r, "offset", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return 0, 0, false
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, true
}

func writeOK(w http.ResponseWriter, data interface{}, logger *zap.Logger) {
	if err := utils.WriteOK(w, data); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

func writeCreated(w http.ResponseWriter, data interface{}, logger *zap.Logger) {
	if err := utils.WriteCreated(w, data); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
