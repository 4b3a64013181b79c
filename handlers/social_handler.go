package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/social"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

const (
	defaultCalendarSpan = 30 * 24 * time.Hour
	maxCalendarSpan     = 92 * 24 * time.Hour
)

// SocialService schedules posts and writes captions
type SocialService interface {
	Schedule(ctx context.Context, orgID uuid.UUID, actor services.Actor, req social.ScheduleRequest) (*models.SocialPost, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.SocialPost, error)
	Reschedule(ctx context.Context, orgID, id uuid.UUID, req social.RescheduleRequest) (*models.SocialPost, error)
	Cancel(ctx context.Context, orgID, id uuid.UUID) (*models.SocialPost, error)
	Calendar(ctx context.Context, orgID uuid.UUID, q social.CalendarQuery) (*social.Calendar, error)
	ListForClient(ctx context.Context, orgID, clientID uuid.UUID, from, to time.Time) ([]*models.SocialPost, error)
	GenerateCaption(ctx context.Context, orgID uuid.UUID, actor services.Actor, req social.CaptionRequest) (*social.CaptionResult, error)
}

type SocialHandler struct {
	service SocialService
	logger  *zap.Logger
	now     func() time.Time
}

func NewSocialHandler(service SocialService, logger *zap.Logger) *SocialHandler {
	return &SocialHandler{service: service, logger: logger, now: time.Now}
}

// HandleSchedule handles POST /api/v1/social/posts
func (h *SocialHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	var req social.ScheduleRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	post, err := h.service.Schedule(r.Context(), orgID, actorFrom(r), req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, post, h.logger)
}

// HandleGet handles GET /api/v1/social/posts/{id}
func (h *SocialHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	post, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, post, h.logger)
}

// HandleReschedule handles PATCH /api/v1/social/posts/{id}
func (h *SocialHandler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req social.RescheduleRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	post, err := h.service.Reschedule(r.Context(), orgID, id, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, post, h.logger)
}

// HandleCancel handles POST /api/v1/social/posts/{id}/cancel
func (h *SocialHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	post, err := h.service.Cancel(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, post, h.logger)
}

// HandleCalendar handles GET /api/v1/social/calendar?from=&to=&client_id=&status=
func (h *SocialHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	clientID, err := queryUUID(r, "client_id")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid client_id format", nil)
		return
	}
	q := social.CalendarQuery{From: from, To: to, ClientID: clientID}
	for _, raw := range r.URL.Query()["status"] {
		status := models.PostStatus(raw)
		switch status {
		case models.PostDraft, models.PostScheduled, models.PostPublished, models.PostFailed, models.PostCancelled:
			q.Statuses = append(q.Statuses, status)
		default:
			_ = utils.WriteBadRequest(w, "Invalid status filter: "+raw, nil)
			return
		}
	}
	cal, err := h.service.Calendar(r.Context(), orgID, q)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, cal, h.logger)
}

// HandleCaption handles POST /api/v1/social/caption
func (h *SocialHandler) HandleCaption(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	var req social.CaptionRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	result, err := h.service.GenerateCaption(r.Context(), orgID, actorFrom(r), req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, result, h.logger)
}

// HandlePortalList handles GET /api/v1/portal/posts?from=&to=
func (h *SocialHandler) HandlePortalList(w http.ResponseWriter, r *http.Request) {
	orgID, clientID, ok := requireClient(w, r, h.logger)
	if !ok {
		return
	}
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	posts, err := h.service.ListForClient(r.Context(), orgID, clientID, from, to)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, posts, h.logger)
}

// window reads from/to, defaulting to the next 30 days and capping the
// span at roughly a quarter
func (h *SocialHandler) window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	fromQ, err := queryTime(r, "from")
	if err != nil {
		_ = utils.WriteBadRequest(w, "from must be a date or RFC 3339 timestamp", nil)
		return time.Time{}, time.Time{}, false
	}
	toQ, err := queryTime(r, "to")
	if err != nil {
		_ = utils.WriteBadRequest(w, "to must be a date or RFC 3339 timestamp", nil)
		return time.Time{}, time.Time{}, false
	}

	from := h.now().UTC().Truncate(24 * time.Hour)
	if fromQ != nil {
		from = *fromQ
	}
	to := from.Add(defaultCalendarSpan)
	if toQ != nil {
		to = *toQ
	}
	if !to.After(from) {
		_ = utils.WriteBadRequest(w, "to must be after from", nil)
		return time.Time{}, time.Time{}, false
	}
	if to.Sub(from) > maxCalendarSpan {
		_ = utils.WriteBadRequest(w, "window cannot exceed 92 days", nil)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
