package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

type txKey struct{}

// uniqueViolation is the SQLSTATE postgres reports for unique constraint failures
const uniqueViolation = "23505"

// TransactionManager hands out transactions on the shared pool
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// Begin starts a transaction whose Context carries it, so repositories
// called with that context join it without being bound explicitly
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &Transaction{tx: sqlTx, logger: tm.logger}
	tx.ctx = context.WithValue(ctx, txKey{}, sqlTx)
	return tx, nil
}

// InTransaction commits when fn returns nil and rolls back otherwise
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) (err error) {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			tm.logger.Error("failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err))
		}
	}()

	if err = fn(tx.Context(), tx); err != nil {
		return err
	}
	return tx.Commit()
}

type Transaction struct {
	tx     *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback is a no-op once the transaction has been committed
func (t *Transaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (t *Transaction) Context() context.Context {
	return t.ctx
}

// executor is satisfied by both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// conn is embedded by every repository. A bound transaction wins over the
// one carried by the context.
type conn struct {
	db     *DB
	tx     *sql.Tx
	logger *zap.Logger
}

func (c conn) exec(ctx context.Context) executor {
	if c.tx != nil {
		return c.tx
	}
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return c.db.DB
}

func (c conn) bind(tx repositories.Transaction) conn {
	if pgTx, ok := tx.(*Transaction); ok {
		c.tx = pgTx.tx
	}
	return c
}

// notFound wraps repositories.ErrNotFound with the entity and key
func notFound(entity string, key interface{}) error {
	return fmt.Errorf("%s not found: %v: %w", entity, key, repositories.ErrNotFound)
}

// wrapWriteErr maps unique violations to repositories.ErrDuplicate
func wrapWriteErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectOne turns a zero-row update into a not-found error
func expectOne(result sql.Result, entity string, key interface{}) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound(entity, key)
	}
	return nil
}
