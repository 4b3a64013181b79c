package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

const taskColumns = `id, org_id, board_id, column_id, client_id, assignee_id, title, description,
	priority, status, position, due_date, handoff_from_id, created_by, created_at, updated_at`

// TaskRepository implements the repositories.TaskRepository interface
type TaskRepository struct {
	conn
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB, logger *zap.Logger) repositories.TaskRepository {
	return &TaskRepository{conn{db: db, logger: logger}}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.exec(ctx).ExecContext(ctx, query,
		task.ID,
		task.OrgID,
		task.BoardID,
		task.ColumnID,
		task.ClientID,
		task.AssigneeID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.Position,
		task.DueDate,
		task.HandoffFromID,
		task.CreatedBy,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to create task", err)
	}

	r.logger.Debug("task created", zap.String("id", task.ID.String()), zap.String("column_id", task.ColumnID.String()))
	return nil
}

// GetByID retrieves a task of the organization
func (r *TaskRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE org_id = $1 AND id = $2`

	task, err := scanTask(r.exec(ctx).QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("task", id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetByIDForUpdate retrieves a task and locks its row for the rest of the
// transaction. Outside a transaction the lock is released immediately.
func (r *TaskRepository) GetByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE org_id = $1 AND id = $2 FOR UPDATE`

	task, err := scanTask(r.exec(ctx).QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("task", id)
		}
		return nil, fmt.Errorf("failed to lock task: %w", err)
	}
	return task, nil
}

// ListByBoard returns the board's visible tasks
func (r *TaskRepository) ListByBoard(ctx context.Context, orgID, boardID uuid.UUID) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE org_id = $1 AND board_id = $2 AND status <> $3
		ORDER BY position, created_at
	`
	return r.query(ctx, query, orgID, boardID, models.TaskStatusHandedOff)
}

// ListByColumn returns a column's tasks in position order
func (r *TaskRepository) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE column_id = $1 AND status <> $2
		ORDER BY position, created_at
	`
	return r.query(ctx, query, columnID, models.TaskStatusHandedOff)
}

// Update updates a task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET column_id = $3,
		    client_id = $4,
		    assignee_id = $5,
		    title = $6,
		    description = $7,
		    priority = $8,
		    status = $9,
		    position = $10,
		    due_date = $11,
		    updated_at = $12
		WHERE org_id = $1 AND id = $2
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		task.OrgID,
		task.ID,
		task.ColumnID,
		task.ClientID,
		task.AssigneeID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.Position,
		task.DueDate,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return expectOne(result, "task", task.ID)
}

// UpdatePosition moves a task to a column slot
func (r *TaskRepository) UpdatePosition(ctx context.Context, id, columnID uuid.UUID, position int) error {
	result, err := r.exec(ctx).ExecContext(ctx,
		`UPDATE tasks SET column_id = $2, position = $3, updated_at = NOW() WHERE id = $1`,
		id, columnID, position)
	if err != nil {
		return fmt.Errorf("failed to move task: %w", err)
	}
	return expectOne(result, "task", id)
}

// Delete deletes a task
func (r *TaskRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	result, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM tasks WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectOne(result, "task", id)
}

// NextPosition returns the slot after the column's last task
func (r *TaskRepository) NextPosition(ctx context.Context, columnID uuid.UUID) (int, error) {
	var next int
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE column_id = $1 AND status <> $2`,
		columnID, models.TaskStatusHandedOff,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to get next task position: %w", err)
	}
	return next, nil
}

// CountOpenByColumn groups an assignee's open tasks by board column
func (r *TaskRepository) CountOpenByColumn(ctx context.Context, orgID, assigneeID uuid.UUID) ([]repositories.ColumnTaskCount, error) {
	query := `
		SELECT b.id, b.name, c.id, c.name, COUNT(t.id)
		FROM tasks t
		JOIN board_columns c ON c.id = t.column_id
		JOIN boards b ON b.id = t.board_id
		WHERE t.org_id = $1 AND t.assignee_id = $2 AND t.status = $3
		GROUP BY b.id, b.name, c.id, c.name, c.position
		ORDER BY b.name, c.position
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, orgID, assigneeID, models.TaskStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to count open tasks: %w", err)
	}
	defer rows.Close()

	var counts []repositories.ColumnTaskCount
	for rows.Next() {
		var c repositories.ColumnTaskCount
		if err := rows.Scan(&c.BoardID, &c.BoardName, &c.ColumnID, &c.ColumnName, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CreateComment stores a task comment with its resolved mentions
func (r *TaskRepository) CreateComment(ctx context.Context, comment *models.TaskComment) error {
	mentions := make([]string, len(comment.Mentions))
	for i, id := range comment.Mentions {
		mentions[i] = id.String()
	}

	_, err := r.exec(ctx).ExecContext(ctx, `
		INSERT INTO task_comments (id, task_id, author_id, body, mentions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, comment.ID, comment.TaskID, comment.AuthorID, comment.Body, pq.Array(mentions), comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListComments returns a task's comments oldest first
func (r *TaskRepository) ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, `
		SELECT id, task_id, author_id, body, mentions, created_at
		FROM task_comments
		WHERE task_id = $1
		ORDER BY created_at
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.TaskComment
	for rows.Next() {
		c := &models.TaskComment{}
		var mentions []string
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, pq.Array(&mentions), &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Mentions = make([]uuid.UUID, 0, len(mentions))
		for _, m := range mentions {
			id, err := uuid.Parse(m)
			if err != nil {
				return nil, fmt.Errorf("invalid mention id %q: %w", m, err)
			}
			c.Mentions = append(c.Mentions, id)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// WithTx returns a new repository instance bound to the transaction
func (r *TaskRepository) WithTx(tx repositories.Transaction) repositories.TaskRepository {
	return &TaskRepository{r.bind(tx)}
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Task, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		clientID    uuid.NullUUID
		assigneeID  uuid.NullUUID
		handoffFrom uuid.NullUUID
		createdBy   uuid.NullUUID
		dueDate     sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.OrgID,
		&task.BoardID,
		&task.ColumnID,
		&clientID,
		&assigneeID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.Position,
		&dueDate,
		&handoffFrom,
		&createdBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.ClientID = nullUUID(clientID)
	task.AssigneeID = nullUUID(assigneeID)
	task.HandoffFromID = nullUUID(handoffFrom)
	task.CreatedBy = nullUUID(createdBy)
	task.DueDate = nullTime(dueDate)
	return task, nil
}
