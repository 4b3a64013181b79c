package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

// BoardRepository implements the repositories.BoardRepository interface
type BoardRepository struct {
	conn
}

// NewBoardRepository creates a new board repository
func NewBoardRepository(db *DB, logger *zap.Logger) repositories.BoardRepository {
	return &BoardRepository{conn{db: db, logger: logger}}
}

// Create creates a new board
func (r *BoardRepository) Create(ctx context.Context, board *models.Board) error {
	query := `
		INSERT INTO boards (id, org_id, name, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.exec(ctx).ExecContext(ctx, query, board.ID, board.OrgID, board.Name, board.OwnerID, board.CreatedAt)
	if err != nil {
		return wrapWriteErr("failed to create board", err)
	}

	r.logger.Debug("board created", zap.String("id", board.ID.String()))
	return nil
}

// GetByID retrieves a board of the organization
func (r *BoardRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Board, error) {
	query := `SELECT id, org_id, name, owner_id, created_at FROM boards WHERE org_id = $1 AND id = $2`

	board, err := scanBoard(r.exec(ctx).QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("board", id)
		}
		return nil, fmt.Errorf("failed to get board: %w", err)
	}
	return board, nil
}

// List retrieves every board of the organization
func (r *BoardRepository) List(ctx context.Context, orgID uuid.UUID) ([]*models.Board, error) {
	query := `SELECT id, org_id, name, owner_id, created_at FROM boards WHERE org_id = $1 ORDER BY created_at`

	rows, err := r.exec(ctx).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var boards []*models.Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, board)
	}
	return boards, rows.Err()
}

// CreateColumn adds a column to a board
func (r *BoardRepository) CreateColumn(ctx context.Context, col *models.BoardColumn) error {
	_, err := r.exec(ctx).ExecContext(ctx,
		`INSERT INTO board_columns (id, board_id, name, position) VALUES ($1, $2, $3, $4)`,
		col.ID, col.BoardID, col.Name, col.Position)
	if err != nil {
		return wrapWriteErr("failed to create column", err)
	}
	return nil
}

// GetColumn retrieves a column by ID
func (r *BoardRepository) GetColumn(ctx context.Context, id uuid.UUID) (*models.BoardColumn, error) {
	col := &models.BoardColumn{}
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT id, board_id, name, position FROM board_columns WHERE id = $1`, id,
	).Scan(&col.ID, &col.BoardID, &col.Name, &col.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("column", id)
		}
		return nil, fmt.Errorf("failed to get column: %w", err)
	}
	return col, nil
}

// ListColumns returns a board's columns ordered by position
func (r *BoardRepository) ListColumns(ctx context.Context, boardID uuid.UUID) ([]*models.BoardColumn, error) {
	rows, err := r.exec(ctx).QueryContext(ctx,
		`SELECT id, board_id, name, position FROM board_columns WHERE board_id = $1 ORDER BY position, name`,
		boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	var cols []*models.BoardColumn
	for rows.Next() {
		col := &models.BoardColumn{}
		if err := rows.Scan(&col.ID, &col.BoardID, &col.Name, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// NextColumnPosition returns the position after the board's last column
func (r *BoardRepository) NextColumnPosition(ctx context.Context, boardID uuid.UUID) (int, error) {
	var next int
	err := r.exec(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM board_columns WHERE board_id = $1`, boardID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to get next column position: %w", err)
	}
	return next, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *BoardRepository) WithTx(tx repositories.Transaction) repositories.BoardRepository {
	return &BoardRepository{r.bind(tx)}
}

func scanBoard(row rowScanner) (*models.Board, error) {
	board := &models.Board{}
	var ownerID uuid.NullUUID
	if err := row.Scan(&board.ID, &board.OrgID, &board.Name, &ownerID, &board.CreatedAt); err != nil {
		return nil, err
	}
	board.OwnerID = nullUUID(ownerID)
	return board, nil
}
