package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

const (
	insertTimeout = 5 * time.Second
	maxPageSize   = 500
	pageSize      = 100
)

var (
	errNotRunning = errors.New("audit service not running")
	errQueueFull  = errors.New("audit queue full")
)

// Recorder accepts audit entries without blocking the caller
type Recorder interface {
	Record(log *models.AuditLog)
}

// AuditService writes audit entries from a bounded queue on a fixed pool of
// workers so request paths never wait on the audit table
type AuditService struct {
	repo    repositories.AuditRepository
	logger  *zap.Logger
	queue   chan *models.AuditLog
	workers int
	dropped atomic.Int64
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// Config sizes the queue and the worker pool
type Config struct {
	BufferSize  int
	WorkerCount int
}

func DefaultConfig() Config {
	return Config{BufferSize: 10000, WorkerCount: 5}
}

func NewAuditService(repo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	return &AuditService{
		repo:    repo,
		logger:  logger,
		queue:   make(chan *models.AuditLog, config.BufferSize),
		workers: config.WorkerCount,
	}
}

// Start launches the workers. It can only be called once.
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.started = true
	s.logger.Info("audit service started",
		zap.Int("workers", s.workers),
		zap.Int("buffer_size", cap(s.queue)))
	return nil
}

// Stop closes the queue and waits up to timeout for the workers to drain it
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return errNotRunning
	}
	s.stopped = true
	close(s.queue)
	s.mu.Unlock()

	s.logger.Info("stopping audit service",
		zap.Int("pending", len(s.queue)),
		zap.Int64("dropped", s.dropped.Load()))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues an entry. When the queue is full or the service is not
// running the entry is dropped and logged.
func (s *AuditService) Record(log *models.AuditLog) {
	if err := s.enqueue(log); err != nil {
		s.logger.Warn("audit entry dropped",
			zap.Error(err),
			zap.String("action", string(log.Action)),
			zap.String("org_id", log.OrgID.String()))
	}
}

func (s *AuditService) enqueue(log *models.AuditLog) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return errNotRunning
	}
	select {
	case s.queue <- log:
		return nil
	default:
		s.dropped.Add(1)
		return errQueueFull
	}
}

// List returns the organization's audit trail, newest first
func (s *AuditService) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	limit, offset = page(limit, offset)
	return s.repo.GetByOrgID(ctx, orgID, limit, offset)
}

// ListForClient returns audit entries concerning one client
func (s *AuditService) ListForClient(ctx context.Context, orgID, clientID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	limit, offset = page(limit, offset)
	return s.repo.GetByClientID(ctx, orgID, clientID, limit, offset)
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = pageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		err := s.repo.Insert(ctx, entry)
		cancel()
		if err != nil {
			s.logger.Error("failed to write audit entry",
				zap.Int("worker_id", id),
				zap.String("action", string(entry.Action)),
				zap.String("org_id", entry.OrgID.String()),
				zap.Error(err))
		}
	}
}
