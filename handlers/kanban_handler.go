package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services/kanban"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

// KanbanService is the board workflow used over HTTP
type KanbanService interface {
	CreateBoard(ctx context.Context, orgID uuid.UUID, req kanban.CreateBoardRequest) (*models.BoardView, error)
	ListBoards(ctx context.Context, orgID uuid.UUID) ([]*models.Board, error)
	GetBoard(ctx context.Context, orgID, boardID uuid.UUID) (*models.BoardView, error)
	AddColumn(ctx context.Context, orgID, boardID uuid.UUID, name string) (*models.BoardColumn, error)
	CreateTask(ctx context.Context, orgID uuid.UUID, actor kanban.Actor, req kanban.CreateTaskRequest) (*models.Task, error)
	GetTask(ctx context.Context, orgID, taskID uuid.UUID) (*models.Task, error)
	UpdateTask(ctx context.Context, orgID, taskID uuid.UUID, actor kanban.Actor, req kanban.UpdateTaskRequest) (*models.Task, error)
	MoveTask(ctx context.Context, orgID, taskID uuid.UUID, req kanban.MoveTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, orgID, taskID uuid.UUID) error
	AddComment(ctx context.Context, orgID, taskID uuid.UUID, actor kanban.Actor, body string) (*models.TaskComment, error)
	ListComments(ctx context.Context, orgID, taskID uuid.UUID) ([]*models.TaskComment, error)
	Handoff(ctx context.Context, orgID, taskID uuid.UUID, actor kanban.Actor, req kanban.HandoffRequest) (*kanban.HandoffResult, error)
}

type CreateBoardRequest struct {
	Name    string     `json:"name" validate:"required,max=120"`
	OwnerID *uuid.UUID `json:"owner_id"`
	Columns []string   `json:"columns" validate:"max=20,dive,required,max=60"`
}

type AddColumnRequest struct {
	Name string `json:"name" validate:"required,max=60"`
}

type CreateTaskRequest struct {
	BoardID     uuid.UUID           `json:"board_id" validate:"required"`
	ColumnID    *uuid.UUID          `json:"column_id"`
	ClientID    *uuid.UUID          `json:"client_id"`
	AssigneeID  *uuid.UUID          `json:"assignee_id"`
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"max=10000"`
	Priority    models.TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time          `json:"due_date"`
}

// UpdateTaskRequest patches a task. Send clear_assignee or clear_due_date
// to unset those fields.
type UpdateTaskRequest struct {
	Title         *string              `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string              `json:"description" validate:"omitempty,max=10000"`
	Priority      *models.TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status        *models.TaskStatus   `json:"status" validate:"omitempty,oneof=open done"`
	AssigneeID    *uuid.UUID           `json:"assignee_id"`
	ClearAssignee bool                 `json:"clear_assignee"`
	ClientID      *uuid.UUID           `json:"client_id"`
	DueDate       *time.Time           `json:"due_date"`
	ClearDueDate  bool                 `json:"clear_due_date"`
}

type MoveTaskRequest struct {
	ColumnID uuid.UUID `json:"column_id" validate:"required"`
	Position int       `json:"position" validate:"gte=0"`
}

type HandoffRequest struct {
	TargetBoardID  uuid.UUID  `json:"target_board_id" validate:"required"`
	TargetColumnID *uuid.UUID `json:"target_column_id"`
	AssigneeID     *uuid.UUID `json:"assignee_id"`
	Note           string     `json:"note" validate:"max=2000"`
}

type CommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// KanbanHandler serves boards, tasks, comments and handoffs
type KanbanHandler struct {
	service KanbanService
	logger  *zap.Logger
}

func NewKanbanHandler(service KanbanService, logger *zap.Logger) *KanbanHandler {
	return &KanbanHandler{service: service, logger: logger}
}

// HandleListBoards handles GET /api/v1/boards
func (h *KanbanHandler) HandleListBoards(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	boards, err := h.service.ListBoards(r.Context(), orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, boards, h.logger)
}

// HandleCreateBoard handles POST /api/v1/boards. The owner defaults to
// the caller.
func (h *KanbanHandler) HandleCreateBoard(w http.ResponseWriter, r *http.Request) {
	orgID, emp, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	var req CreateBoardRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	owner := req.OwnerID
	if owner == nil {
		id := emp.ID
		owner = &id
	}
	board, err := h.service.CreateBoard(r.Context(), orgID, kanban.CreateBoardRequest{
		Name:    req.Name,
		OwnerID: owner,
		Columns: req.Columns,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, board, h.logger)
}

// HandleGetBoard handles GET /api/v1/boards/{id}
func (h *KanbanHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	board, err := h.service.GetBoard(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, board, h.logger)
}

// HandleAddColumn handles POST /api/v1/boards/{id}/columns
func (h *KanbanHandler) HandleAddColumn(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AddColumnRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	col, err := h.service.AddColumn(r.Context(), orgID, id, req.Name)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, col, h.logger)
}

// HandleCreateTask handles POST /api/v1/tasks
func (h *KanbanHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	task, err := h.service.CreateTask(r.Context(), orgID, actorFrom(r), kanban.CreateTaskRequest{
		BoardID:     req.BoardID,
		ColumnID:    req.ColumnID,
		ClientID:    req.ClientID,
		AssigneeID:  req.AssigneeID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, task, h.logger)
}

// HandleGetTask handles GET /api/v1/tasks/{id}
func (h *KanbanHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.service.GetTask(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, task, h.logger)
}

// HandleUpdateTask handles PATCH /api/v1/tasks/{id}
func (h *KanbanHandler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	task, err := h.service.UpdateTask(r.Context(), orgID, id, actorFrom(r), kanban.UpdateTaskRequest{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		Status:        req.Status,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
		ClientID:      req.ClientID,
		DueDate:       req.DueDate,
		ClearDueDate:  req.ClearDueDate,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, task, h.logger)
}

// HandleMoveTask handles POST /api/v1/tasks/{id}/move
func (h *KanbanHandler) HandleMoveTask(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req MoveTaskRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	task, err := h.service.MoveTask(r.Context(), orgID, id, kanban.MoveTaskRequest{
		ColumnID: req.ColumnID,
		Position: req.Position,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, task, h.logger)
}

// HandleDeleteTask handles DELETE /api/v1/tasks/{id}
func (h *KanbanHandler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteTask(r.Context(), orgID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleHandoff handles POST /api/v1/tasks/{id}/handoff
func (h *KanbanHandler) HandleHandoff(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req HandoffRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	result, err := h.service.Handoff(r.Context(), orgID, id, actorFrom(r), kanban.HandoffRequest{
		TargetBoardID:  req.TargetBoardID,
		TargetColumnID: req.TargetColumnID,
		AssigneeID:     req.AssigneeID,
		Note:           req.Note,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.logger.Info("task handed off",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("source_task_id", result.Source.ID.String()),
		zap.String("task_id", result.Task.ID.String()),
		zap.String("target_board_id", req.TargetBoardID.String()))
	writeCreated(w, result, h.logger)
}

// HandleListComments handles GET /api/v1/tasks/{id}/comments
func (h *KanbanHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrg(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	comments, err := h.service.ListComments(r.Context(), orgID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, comments, h.logger)
}

// HandleAddComment handles POST /api/v1/tasks/{id}/comments
func (h *KanbanHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := requireEmployee(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	comment, err := h.service.AddComment(r.Context(), orgID, id, actorFrom(r), req.Body)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeCreated(w, comment, h.logger)
}
