package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskPriority represents the urgency of a kanban task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TaskStatus represents the lifecycle of a task row
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusHandedOff TaskStatus = "handed_off"
)

// Board is a kanban board owned by a team lead
type Board struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	OrgID     uuid.UUID  `json:"org_id" db:"org_id"`
	Name      string     `json:"name" db:"name"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Board model
func (Board) TableName() string {
	return "boards"
}

// NewBoard creates a new Board
func NewBoard(orgID uuid.UUID, name string, ownerID *uuid.UUID) *Board {
	return &Board{
		ID:        uuid.New(),
		OrgID:     orgID,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
}

// BoardColumn is an ordered lane on a board
type BoardColumn struct {
	ID       uuid.UUID `json:"id" db:"id"`
	BoardID  uuid.UUID `json:"board_id" db:"board_id"`
	Name     string    `json:"name" db:"name"`
	Position int       `json:"position" db:"position"`
}

// TableName returns the table name for the BoardColumn model
func (BoardColumn) TableName() string {
	return "board_columns"
}

// Task is a kanban card
type Task struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	OrgID         uuid.UUID    `json:"org_id" db:"org_id"`
	BoardID       uuid.UUID    `json:"board_id" db:"board_id"`
	ColumnID      uuid.UUID    `json:"column_id" db:"column_id"`
	ClientID      *uuid.UUID   `json:"client_id,omitempty" db:"client_id"`
	AssigneeID    *uuid.UUID   `json:"assignee_id,omitempty" db:"assignee_id"`
	Title         string       `json:"title" db:"title"`
	Description   string       `json:"description" db:"description"`
	Priority      TaskPriority `json:"priority" db:"priority"`
	Status        TaskStatus   `json:"status" db:"status"`
	Position      int          `json:"position" db:"position"`
	DueDate       *time.Time   `json:"due_date,omitempty" db:"due_date"`
	HandoffFromID *uuid.UUID   `json:"handoff_from_id,omitempty" db:"handoff_from_id"`
	CreatedBy     *uuid.UUID   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Task model
func (Task) TableName() string {
	return "tasks"
}

// CloneForHandoff copies the work description of t into a new open task on
// the target board/column. Ownership and position are left to the caller.
func (t *Task) CloneForHandoff(boardID, columnID uuid.UUID) *Task {
	now := time.Now().UTC()
	src := t.ID
	clone := &Task{
		ID:            uuid.New(),
		OrgID:         t.OrgID,
		BoardID:       boardID,
		ColumnID:      columnID,
		ClientID:      t.ClientID,
		Title:         t.Title,
		Description:   t.Description,
		Priority:      t.Priority,
		Status:        TaskStatusOpen,
		DueDate:       t.DueDate,
		HandoffFromID: &src,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return clone
}

// TaskComment is a comment on a task, with resolved @mentions
type TaskComment struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	TaskID    uuid.UUID   `json:"task_id" db:"task_id"`
	AuthorID  uuid.UUID   `json:"author_id" db:"author_id"`
	Body      string      `json:"body" db:"body"`
	Mentions  []uuid.UUID `json:"mentions" db:"mentions"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the TaskComment model
func (TaskComment) TableName() string {
	return "task_comments"
}

// BoardView is a board with its columns and tasks in display order
type BoardView struct {
	Board   *Board        `json:"board"`
	Columns []*ColumnView `json:"columns"`
}

// ColumnView is a column with its tasks
type ColumnView struct {
	*BoardColumn
	Tasks []*Task `json:"tasks"`
}
