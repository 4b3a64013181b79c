package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/upb/agency-backoffice/config"
	"go.uber.org/zap"
)

const (
	pingTimeout     = 5 * time.Second
	connectAttempts = 5
)

// DB is the shared connection pool every repository runs on
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB opens the pool and waits for Postgres to answer, retrying with
// exponential backoff while the database is still starting.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitForDB(ctx, pool, logger); err != nil {
		_ = pool.Close()
		return nil, err
	}

	logger.Info("database connection established", zap.String("connection", cfg.LogString()))
	return &DB{DB: pool, logger: logger}, nil
}

func waitForDB(ctx context.Context, pool *sql.DB, logger *zap.Logger) error {
	attempt := 0
	ping := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return pool.PingContext(pingCtx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectAttempts-1), ctx)
	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		return fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
	}
	return nil
}

// WrapDB adopts an already opened pool, e.g. a sqlmock connection in tests
func WrapDB(pool *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: pool, logger: logger}
}

// Close releases the pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}
