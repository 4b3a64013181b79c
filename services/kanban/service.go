package kanban

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/services/notification"
	"go.uber.org/zap"
)

const (
	maxTitleLen   = 200
	maxCommentLen = 5000
	maxColumns    = 20
)

// Service manages boards, tasks, comments and handoffs
type Service struct {
	txMgr     repositories.TransactionManager
	boards    repositories.BoardRepository
	tasks     repositories.TaskRepository
	employees repositories.EmployeeRepository
	notifier  notification.Notifier
	recorder  audit.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new kanban service
func NewService(
	txMgr repositories.TransactionManager,
	boards repositories.BoardRepository,
	tasks repositories.TaskRepository,
	employees repositories.EmployeeRepository,
	notifier notification.Notifier,
	recorder audit.Recorder,
	logger *zap.Logger,
) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		txMgr:     txMgr,
		boards:    boards,
		tasks:     tasks,
		employees: employees,
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateBoard creates a board and its columns
func (s *Service) CreateBoard(ctx context.Context, orgID uuid.UUID, req CreateBoardRequest) (*models.BoardView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "board name is required", nil)
	}

	columns := make([]string, 0, len(req.Columns))
	for _, c := range req.Columns {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	if len(columns) > maxColumns {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "too many columns", nil).
			WithDetail("max", maxColumns)
	}

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.BoardView, error) {
		board := models.NewBoard(orgID, name, req.OwnerID)
		if err := s.boards.WithTx(tx).Create(ctx, board); err != nil {
			return nil, services.WrapInternal("failed to create board", err)
		}

		view := &models.BoardView{Board: board, Columns: make([]*models.ColumnView, 0, len(columns))}
		for i, colName := range columns {
			col := &models.BoardColumn{ID: uuid.New(), BoardID: board.ID, Name: colName, Position: i}
			if err := s.boards.WithTx(tx).CreateColumn(ctx, col); err != nil {
				return nil, services.WrapInternal("failed to create column", err)
			}
			view.Columns = append(view.Columns, &models.ColumnView{BoardColumn: col, Tasks: []*models.Task{}})
		}

		s.logger.Info("board created",
			zap.String("org_id", orgID.String()),
			zap.String("board_id", board.ID.String()),
			zap.Int("columns", len(columns)),
		)
		return view, nil
	})
}

// ListBoards returns the organization's boards
func (s *Service) ListBoards(ctx context.Context, orgID uuid.UUID) ([]*models.Board, error) {
	boards, err := s.boards.List(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to list boards", err)
	}
	if boards == nil {
		boards = []*models.Board{}
	}
	return boards, nil
}

// GetBoard returns the board with its columns and open tasks in display order
func (s *Service) GetBoard(ctx context.Context, orgID, boardID uuid.UUID) (*models.BoardView, error) {
	board, err := s.getBoard(ctx, s.boards, orgID, boardID)
	if err != nil {
		return nil, err
	}

	columns, err := s.boards.ListColumns(ctx, boardID)
	if err != nil {
		return nil, services.WrapInternal("failed to list columns", err)
	}
	tasks, err := s.tasks.ListByBoard(ctx, orgID, boardID)
	if err != nil {
		return nil, services.WrapInternal("failed to list tasks", err)
	}

	byColumn := make(map[uuid.UUID][]*models.Task, len(columns))
	for _, t := range tasks {
		byColumn[t.ColumnID] = append(byColumn[t.ColumnID], t)
	}

	view := &models.BoardView{Board: board, Columns: make([]*models.ColumnView, 0, len(columns))}
	for _, col := range columns {
		colTasks := byColumn[col.ID]
		if colTasks == nil {
			colTasks = []*models.Task{}
		}
		view.Columns = append(view.Columns, &models.ColumnView{BoardColumn: col, Tasks: colTasks})
	}
	return view, nil
}

// AddColumn appends a column to the board
func (s *Service) AddColumn(ctx context.Context, orgID, boardID uuid.UUID, name string) (*models.BoardColumn, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "column name is required", nil)
	}

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.BoardColumn, error) {
		boards := s.boards.WithTx(tx)
		if _, err := s.getBoard(ctx, boards, orgID, boardID); err != nil {
			return nil, err
		}

		pos, err := boards.NextColumnPosition(ctx, boardID)
		if err != nil {
			return nil, services.WrapInternal("failed to get column position", err)
		}
		if pos >= maxColumns {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "too many columns", nil).
				WithDetail("max", maxColumns)
		}

		col := &models.BoardColumn{ID: uuid.New(), BoardID: boardID, Name: name, Position: pos}
		if err := boards.CreateColumn(ctx, col); err != nil {
			return nil, services.WrapInternal("failed to create column", err)
		}
		return col, nil
	})
}

// CreateTask adds a task at the end of a column
func (s *Service) CreateTask(ctx context.Context, orgID uuid.UUID, actor Actor, req CreateTaskRequest) (*models.Task, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid priority", nil).
			WithDetail("priority", string(priority))
	}

	task, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Task, error) {
		boards, tasks := s.boards.WithTx(tx), s.tasks.WithTx(tx)

		if _, err := s.getBoard(ctx, boards, orgID, req.BoardID); err != nil {
			return nil, err
		}
		col, err := s.resolveColumn(ctx, boards, req.BoardID, req.ColumnID)
		if err != nil {
			return nil, err
		}
		if req.AssigneeID != nil {
			if err := s.checkEmployee(ctx, orgID, *req.AssigneeID); err != nil {
				return nil, err
			}
		}

		pos, err := tasks.NextPosition(ctx, col.ID)
		if err != nil {
			return nil, services.WrapInternal("failed to get task position", err)
		}

		now := s.now().UTC()
		creator := actor.EmployeeID
		task := &models.Task{
			ID:          uuid.New(),
			OrgID:       orgID,
			BoardID:     req.BoardID,
			ColumnID:    col.ID,
			ClientID:    req.ClientID,
			AssigneeID:  req.AssigneeID,
			Title:       title,
			Description: req.Description,
			Priority:    priority,
			Status:      models.TaskStatusOpen,
			Position:    pos,
			DueDate:     req.DueDate,
			CreatedBy:   &creator,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tasks.Create(ctx, task); err != nil {
			return nil, services.WrapInternal("failed to create task", err)
		}
		return task, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, task, actor)
	return task, nil
}

// GetTask returns one task of the organization
func (s *Service) GetTask(ctx context.Context, orgID, taskID uuid.UUID) (*models.Task, error) {
	return s.getTask(ctx, s.tasks, orgID, taskID)
}

// UpdateTask changes task fields. Handed-off tasks are read-only.
func (s *Service) UpdateTask(ctx context.Context, orgID, taskID uuid.UUID, actor Actor, req UpdateTaskRequest) (*models.Task, error) {
	var reassigned bool

	task, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Task, error) {
		tasks := s.tasks.WithTx(tx)
		task, err := s.lockTask(ctx, tasks, orgID, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status == models.TaskStatusHandedOff {
			return nil, services.ErrAlreadyHandedOff
		}

		if req.Title != nil {
			title, err := validateTitle(*req.Title)
			if err != nil {
				return nil, err
			}
			task.Title = title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Priority != nil {
			if !req.Priority.Valid() {
				return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid priority", nil).
					WithDetail("priority", string(*req.Priority))
			}
			task.Priority = *req.Priority
		}
		if req.Status != nil {
			// handed_off is only reachable through Handoff
			if *req.Status != models.TaskStatusOpen && *req.Status != models.TaskStatusDone {
				return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidTransition.Message, nil).
					WithDetail("status", string(*req.Status))
			}
			task.Status = *req.Status
		}
		switch {
		case req.ClearAssignee:
			task.AssigneeID = nil
		case req.AssigneeID != nil:
			if task.AssigneeID == nil || *task.AssigneeID != *req.AssigneeID {
				if err := s.checkEmployee(ctx, orgID, *req.AssigneeID); err != nil {
					return nil, err
				}
				reassigned = true
			}
			assignee := *req.AssigneeID
			task.AssigneeID = &assignee
		}
		if req.ClientID != nil {
			task.ClientID = req.ClientID
		}
		switch {
		case req.ClearDueDate:
			task.DueDate = nil
		case req.DueDate != nil:
			task.DueDate = req.DueDate
		}

		task.UpdatedAt = s.now().UTC()
		if err := tasks.Update(ctx, task); err != nil {
			return nil, services.WrapInternal("failed to update task", err)
		}
		return task, nil
	})
	if err != nil {
		return nil, err
	}

	if reassigned {
		s.notifyAssigned(ctx, task, actor)
	}
	return task, nil
}

// MoveTask places a task at a position in a column of the same board and
// renumbers the affected columns so positions stay contiguous
func (s *Service) MoveTask(ctx context.Context, orgID, taskID uuid.UUID, req MoveTaskRequest) (*models.Task, error) {
	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Task, error) {
		boards, tasks := s.boards.WithTx(tx), s.tasks.WithTx(tx)

		task, err := s.lockTask(ctx, tasks, orgID, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status == models.TaskStatusHandedOff {
			return nil, services.ErrAlreadyHandedOff
		}

		target, err := s.resolveColumn(ctx, boards, task.BoardID, &req.ColumnID)
		if err != nil {
			return nil, err
		}

		sourceColumn := task.ColumnID
		siblings, err := tasks.ListByColumn(ctx, target.ID)
		if err != nil {
			return nil, services.WrapInternal("failed to list column tasks", err)
		}

		ordered := make([]*models.Task, 0, len(siblings)+1)
		for _, t := range siblings {
			if t.ID != task.ID {
				ordered = append(ordered, t)
			}
		}
		pos := req.Position
		if pos < 0 {
			pos = 0
		}
		if pos > len(ordered) {
			pos = len(ordered)
		}
		ordered = append(ordered[:pos], append([]*models.Task{task}, ordered[pos:]...)...)

		if err := renumber(ctx, tasks, target.ID, ordered); err != nil {
			return nil, err
		}

		if sourceColumn != target.ID {
			remaining, err := tasks.ListByColumn(ctx, sourceColumn)
			if err != nil {
				return nil, services.WrapInternal("failed to list column tasks", err)
			}
			left := make([]*models.Task, 0, len(remaining))
			for _, t := range remaining {
				if t.ID != task.ID {
					left = append(left, t)
				}
			}
			if err := renumber(ctx, tasks, sourceColumn, left); err != nil {
				return nil, err
			}
		}

		task.ColumnID = target.ID
		task.Position = pos
		task.UpdatedAt = s.now().UTC()
		return task, nil
	})
}

// renumber writes positions 0..n-1 for tasks whose slot changed
func renumber(ctx context.Context, tasks repositories.TaskRepository, columnID uuid.UUID, ordered []*models.Task) error {
	for i, t := range ordered {
		if t.Position == i && t.ColumnID == columnID {
			continue
		}
		if err := tasks.UpdatePosition(ctx, t.ID, columnID, i); err != nil {
			return services.WrapInternal("failed to reorder tasks", err)
		}
	}
	return nil
}

// DeleteTask removes a task
func (s *Service) DeleteTask(ctx context.Context, orgID, taskID uuid.UUID) error {
	if err := s.tasks.Delete(ctx, orgID, taskID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrTaskNotFound
		}
		return services.WrapInternal("failed to delete task", err)
	}
	return nil
}

// AddComment stores a comment and notifies every mentioned colleague
func (s *Service) AddComment(ctx context.Context, orgID, taskID uuid.UUID, actor Actor, body string) (*models.TaskComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "comment cannot be empty", nil)
	}
	if len(body) > maxCommentLen {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "comment is too long", nil).
			WithDetail("max", maxCommentLen)
	}

	task, err := s.getTask(ctx, s.tasks, orgID, taskID)
	if err != nil {
		return nil, err
	}

	mentioned, err := s.resolveMentions(ctx, orgID, actor.EmployeeID, ExtractMentions(body))
	if err != nil {
		return nil, err
	}

	comment := &models.TaskComment{
		ID:        uuid.New(),
		TaskID:    taskID,
		AuthorID:  actor.EmployeeID,
		Body:      body,
		Mentions:  make([]uuid.UUID, 0, len(mentioned)),
		CreatedAt: s.now().UTC(),
	}
	for _, emp := range mentioned {
		comment.Mentions = append(comment.Mentions, emp.ID)
	}
	if err := s.tasks.CreateComment(ctx, comment); err != nil {
		return nil, services.WrapInternal("failed to create comment", err)
	}

	for _, emp := range mentioned {
		s.notify(ctx, notification.NotifyRequest{
			OrgID:       orgID,
			RecipientID: emp.ID,
			Kind:        models.KindMention,
			Title:       fmt.Sprintf("You were mentioned on %q", task.Title),
			Body:        body,
			Link:        taskLink(task.ID),
			Channels:    []models.Channel{models.ChannelEmail},
		})
	}
	return comment, nil
}

// resolveMentions maps handles to employees of the org in mention order,
// dropping unknown handles and the author
func (s *Service) resolveMentions(ctx context.Context, orgID, authorID uuid.UUID, handles []string) ([]*models.Employee, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	found, err := s.employees.GetByHandles(ctx, orgID, handles)
	if err != nil {
		return nil, services.WrapInternal("failed to resolve mentions", err)
	}

	byHandle := make(map[string]*models.Employee, len(found))
	for _, emp := range found {
		byHandle[strings.ToLower(emp.Handle)] = emp
	}

	out := make([]*models.Employee, 0, len(handles))
	for _, h := range handles {
		emp, ok := byHandle[h]
		if !ok || emp.ID == authorID {
			continue
		}
		out = append(out, emp)
	}
	return out, nil
}

// ListComments returns a task's comments oldest first
func (s *Service) ListComments(ctx context.Context, orgID, taskID uuid.UUID) ([]*models.TaskComment, error) {
	if _, err := s.getTask(ctx, s.tasks, orgID, taskID); err != nil {
		return nil, err
	}
	comments, err := s.tasks.ListComments(ctx, taskID)
	if err != nil {
		return nil, services.WrapInternal("failed to list comments", err)
	}
	if comments == nil {
		comments = []*models.TaskComment{}
	}
	return comments, nil
}

// Handoff clones a task onto another board and closes the original, in one
// transaction. The new owner is notified once the transaction commits.
func (s *Service) Handoff(ctx context.Context, orgID, taskID uuid.UUID, actor Actor, req HandoffRequest) (*HandoffResult, error) {
	var targetBoard *models.Board

	result, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*HandoffResult, error) {
		boards, tasks := s.boards.WithTx(tx), s.tasks.WithTx(tx)

		source, err := s.lockTask(ctx, tasks, orgID, taskID)
		if err != nil {
			return nil, err
		}
		if source.Status == models.TaskStatusHandedOff {
			return nil, services.ErrAlreadyHandedOff
		}

		targetBoard, err = s.getBoard(ctx, boards, orgID, req.TargetBoardID)
		if err != nil {
			return nil, err
		}
		column, err := s.resolveColumn(ctx, boards, targetBoard.ID, req.TargetColumnID)
		if err != nil {
			return nil, err
		}
		if column.ID == source.ColumnID {
			return nil, services.ErrSameColumn
		}
		if req.AssigneeID != nil {
			if err := s.checkEmployee(ctx, orgID, *req.AssigneeID); err != nil {
				return nil, err
			}
		}

		pos, err := tasks.NextPosition(ctx, column.ID)
		if err != nil {
			return nil, services.WrapInternal("failed to get task position", err)
		}

		clone := source.CloneForHandoff(targetBoard.ID, column.ID)
		now := s.now().UTC()
		creator := actor.EmployeeID
		clone.AssigneeID = req.AssigneeID
		clone.Position = pos
		clone.CreatedBy = &creator
		clone.CreatedAt = now
		clone.UpdatedAt = now
		if err := tasks.Create(ctx, clone); err != nil {
			return nil, services.WrapInternal("failed to create handed-off task", err)
		}

		source.Status = models.TaskStatusHandedOff
		source.UpdatedAt = now
		if err := tasks.Update(ctx, source); err != nil {
			return nil, services.WrapInternal("failed to close source task", err)
		}

		return &HandoffResult{Source: source, Task: clone}, nil
	})
	if err != nil {
		return nil, err
	}

	s.recordHandoff(orgID, actor, result, req)

	recipient := req.AssigneeID
	if recipient == nil {
		recipient = targetBoard.OwnerID
	}
	if recipient != nil {
		body := req.Note
		if body == "" {
			body = result.Task.Title
		}
		s.notify(ctx, notification.NotifyRequest{
			OrgID:       orgID,
			RecipientID: *recipient,
			Kind:        models.KindTaskHandoff,
			Title:       fmt.Sprintf("Task handed off to %s: %s", targetBoard.Name, result.Task.Title),
			Body:        body,
			Link:        taskLink(result.Task.ID),
			Channels:    []models.Channel{models.ChannelEmail, models.ChannelWhatsApp},
		})
	}

	s.logger.Info("task handed off",
		zap.String("org_id", orgID.String()),
		zap.String("source_task_id", result.Source.ID.String()),
		zap.String("task_id", result.Task.ID.String()),
		zap.String("target_board_id", targetBoard.ID.String()),
	)
	return result, nil
}

func (s *Service) recordHandoff(orgID uuid.UUID, actor Actor, result *HandoffResult, req HandoffRequest) {
	details := map[string]interface{}{
		"source_task_id":  result.Source.ID.String(),
		"target_board_id": result.Task.BoardID.String(),
		"target_column":   result.Task.ColumnID.String(),
	}
	if req.AssigneeID != nil {
		details["assignee_id"] = req.AssigneeID.String()
	}
	if req.Note != "" {
		details["note"] = req.Note
	}

	entry := actor.Stamp(models.NewAuditLog(orgID, models.AuditActionTaskHandoff, "task")).
		WithResource(result.Task.ID).
		WithDetails(details)
	if result.Task.ClientID != nil {
		entry.WithClient(*result.Task.ClientID)
	}
	s.recorder.Record(entry)
}

func (s *Service) notifyAssigned(ctx context.Context, task *models.Task, actor Actor) {
	if task.AssigneeID == nil || *task.AssigneeID == actor.EmployeeID {
		return
	}
	s.notify(ctx, notification.NotifyRequest{
		OrgID:       task.OrgID,
		RecipientID: *task.AssigneeID,
		Kind:        models.KindTaskAssigned,
		Title:       fmt.Sprintf("You were assigned %q", task.Title),
		Body:        task.Description,
		Link:        taskLink(task.ID),
		Channels:    []models.Channel{models.ChannelEmail},
	})
}

// notify never fails the caller; the change it reports is already committed
func (s *Service) notify(ctx context.Context, req notification.NotifyRequest) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, req); err != nil {
		s.logger.Warn("failed to send notification",
			zap.String("kind", req.Kind),
			zap.String("recipient_id", req.RecipientID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) getBoard(ctx context.Context, boards repositories.BoardRepository, orgID, boardID uuid.UUID) (*models.Board, error) {
	board, err := boards.GetByID(ctx, orgID, boardID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrBoardNotFound
		}
		return nil, services.WrapInternal("failed to get board", err)
	}
	return board, nil
}

func (s *Service) getTask(ctx context.Context, tasks repositories.TaskRepository, orgID, taskID uuid.UUID) (*models.Task, error) {
	task, err := tasks.GetByID(ctx, orgID, taskID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrTaskNotFound
		}
		return nil, services.WrapInternal("failed to get task", err)
	}
	return task, nil
}

// lockTask reads a task under a row lock held until the transaction ends
func (s *Service) lockTask(ctx context.Context, tasks repositories.TaskRepository, orgID, taskID uuid.UUID) (*models.Task, error) {
	task, err := tasks.GetByIDForUpdate(ctx, orgID, taskID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrTaskNotFound
		}
		return nil, services.WrapInternal("failed to lock task", err)
	}
	return task, nil
}

// resolveColumn returns the requested column when it belongs to the board,
// or the board's first column when none is requested
func (s *Service) resolveColumn(ctx context.Context, boards repositories.BoardRepository, boardID uuid.UUID, columnID *uuid.UUID) (*models.BoardColumn, error) {
	if columnID == nil {
		columns, err := boards.ListColumns(ctx, boardID)
		if err != nil {
			return nil, services.WrapInternal("failed to list columns", err)
		}
		if len(columns) == 0 {
			return nil, services.ErrColumnNotFound
		}
		return columns[0], nil
	}

	col, err := boards.GetColumn(ctx, *columnID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrColumnNotFound
		}
		return nil, services.WrapInternal("failed to get column", err)
	}
	if col.BoardID != boardID {
		return nil, services.ErrColumnNotOnBoard
	}
	return col, nil
}

func (s *Service) checkEmployee(ctx context.Context, orgID, employeeID uuid.UUID) error {
	if _, err := s.employees.GetByID(ctx, orgID, employeeID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrEmployeeNotFound
		}
		return services.WrapInternal("failed to get employee", err)
	}
	return nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", services.NewDomainError(services.ErrorTypeValidation, "task title is required", nil)
	}
	if len(title) > maxTitleLen {
		return "", services.NewDomainError(services.ErrorTypeValidation, "task title is too long", nil).
			WithDetail("max", maxTitleLen)
	}
	return title, nil
}

func taskLink(id uuid.UUID) string {
	return "/tasks/" + id.String()
}
