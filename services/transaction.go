package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/agency-backoffice/repositories"
)

// TxFunc is the body of a transaction. ctx is bound to tx so repository
// calls made with it join the transaction.
type TxFunc[T any] func(ctx context.Context, tx repositories.Transaction) (T, error)

// WithTransaction runs fn in a transaction, committing when it returns nil
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	_, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult runs fn in a transaction and hands back its result.
// The result is returned even when the commit fails.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn TxFunc[T]) (result T, err error) {
	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
	}()

	txCtx := tx.Context()
	if txCtx == nil {
		txCtx = ctx
	}
	if result, err = fn(txCtx, tx); err != nil {
		return result, err
	}

	committed = true
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}
