package kanban

import (
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
)

// DefaultColumns are created when a board is made without any
var DefaultColumns = []string{"To Do", "In Progress", "Review", "Done"}

// CreateBoardRequest describes a new board
type CreateBoardRequest struct {
	Name    string
	OwnerID *uuid.UUID
	Columns []string
}

// CreateTaskRequest describes a new task. ColumnID defaults to the board's first column.
type CreateTaskRequest struct {
	BoardID     uuid.UUID
	ColumnID    *uuid.UUID
	ClientID    *uuid.UUID
	AssigneeID  *uuid.UUID
	Title       string
	Description string
	Priority    models.TaskPriority
	DueDate     *time.Time
}

// UpdateTaskRequest carries the fields to change. Nil fields are left alone.
type UpdateTaskRequest struct {
	Title         *string
	Description   *string
	Priority      *models.TaskPriority
	Status        *models.TaskStatus
	AssigneeID    *uuid.UUID
	ClearAssignee bool
	ClientID      *uuid.UUID
	DueDate       *time.Time
	ClearDueDate  bool
}

// MoveTaskRequest places a task at a position in a column of its board
type MoveTaskRequest struct {
	ColumnID uuid.UUID
	Position int
}

// HandoffRequest sends a task to another board
type HandoffRequest struct {
	TargetBoardID  uuid.UUID
	TargetColumnID *uuid.UUID
	AssigneeID     *uuid.UUID
	Note           string
}

// HandoffResult holds both sides of a handoff
type HandoffResult struct {
	Source *models.Task `json:"source"`
	Task   *models.Task `json:"task"`
}

// Actor identifies who is making a change
type Actor = services.Actor
