package mocks

import (
	"context"
	"sync"

	"github.com/upb/agency-backoffice/repositories"
)

// TxManager runs transactional functions inline and records the outcome
type TxManager struct {
	mu        sync.Mutex
	Commits   int
	Rollbacks int
	BeginErr  error
}

// Begin returns a no-op transaction
func (m *TxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	return &Tx{ctx: ctx, mgr: m}, nil
}

// InTransaction calls fn and commits or rolls back depending on its result
func (m *TxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Tx is the transaction handed out by TxManager
type Tx struct {
	ctx context.Context
	mgr *TxManager
}

func (t *Tx) Commit() error {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	t.mgr.Commits++
	return nil
}

func (t *Tx) Rollback() error {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	t.mgr.Rollbacks++
	return nil
}

func (t *Tx) Context() context.Context {
	return t.ctx
}
