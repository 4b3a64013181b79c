package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories/mocks"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingRepo wraps the mock to count inserts safely across workers
type countingRepo struct {
	mocks.AuditRepository
	mu       sync.Mutex
	inserted []*models.AuditLog
}

func (r *countingRepo) Insert(ctx context.Context, log *models.AuditLog) error {
	err := r.AuditRepository.Insert(ctx, log)
	r.mu.Lock()
	r.inserted = append(r.inserted, log)
	r.mu.Unlock()
	return err
}

func (r *countingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserted)
}

func TestAuditService_StartStop(t *testing.T) {
	repo := new(countingRepo)
	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, service.Start())
	assert.Error(t, service.Start())

	require.NoError(t, service.Stop(5*time.Second))
	assert.ErrorIs(t, service.Stop(time.Second), errNotRunning)
	assert.ErrorIs(t, service.enqueue(models.NewAuditLog(uuid.New(), models.AuditActionTaskHandoff, "task")), errNotRunning)
}

func TestAuditService_RecordBeforeStart(t *testing.T) {
	repo := new(countingRepo)
	service := NewAuditService(repo, zap.NewNop(), DefaultConfig())

	service.Record(models.NewAuditLog(uuid.New(), models.AuditActionTaskHandoff, "task"))
	assert.ErrorIs(t, service.enqueue(models.NewAuditLog(uuid.New(), models.AuditActionTaskHandoff, "task")), errNotRunning)
	assert.Zero(t, repo.count())
}

func TestAuditService_StopDrainsBuffer(t *testing.T) {
	repo := new(countingRepo)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 100, WorkerCount: 3})
	require.NoError(t, service.Start())

	orgID := uuid.New()
	for i := 0; i < 50; i++ {
		service.Record(models.NewAuditLog(orgID, models.AuditActionAICompletion, "ai"))
	}

	require.NoError(t, service.Stop(5*time.Second))
	assert.Equal(t, 50, repo.count())
}

func TestAuditService_ConcurrentLogging(t *testing.T) {
	repo := new(countingRepo)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 1000, WorkerCount: 5})
	require.NoError(t, service.Start())

	orgID := uuid.New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, service.enqueue(models.NewAuditLog(orgID, models.AuditActionInvoicePaid, "invoice")))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, service.Stop(5*time.Second))
	assert.Equal(t, 100, repo.count())
}

func TestAuditService_InsertErrorDoesNotStopWorkers(t *testing.T) {
	repo := new(countingRepo)
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, service.Start())

	service.Record(models.NewAuditLog(uuid.New(), models.AuditActionPostPublished, "social_post"))
	service.Record(models.NewAuditLog(uuid.New(), models.AuditActionPostPublished, "social_post"))

	require.NoError(t, service.Stop(5*time.Second))
	assert.Equal(t, 2, repo.count())
}

func TestAuditService_BufferFull(t *testing.T) {
	repo := new(countingRepo)
	entered := make(chan struct{}, 10)
	release := make(chan struct{})
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		entered <- struct{}{}
		<-release
	})

	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 2, WorkerCount: 1})
	require.NoError(t, service.Start())

	orgID := uuid.New()
	service.Record(models.NewAuditLog(orgID, models.AuditActionTaskHandoff, "task"))
	<-entered

	var dropped int
	for i := 0; i < 10; i++ {
		if err := service.enqueue(models.NewAuditLog(orgID, models.AuditActionTaskHandoff, "task")); err != nil {
			assert.ErrorIs(t, err, errQueueFull)
			dropped++
		}
	}
	assert.Equal(t, 8, dropped)
	assert.Equal(t, int64(8), service.dropped.Load())

	close(release)
	require.NoError(t, service.Stop(5*time.Second))
	assert.Equal(t, 3, repo.count())
}

func TestAuditService_List(t *testing.T) {
	repo := new(countingRepo)
	orgID := uuid.New()
	logs := []*models.AuditLog{models.NewAuditLog(orgID, models.AuditActionProposalSent, "proposal")}
	repo.On("GetByOrgID", mock.Anything, orgID, 100, 0).Return(logs, nil)

	service := NewAuditService(repo, zap.NewNop(), DefaultConfig())

	got, err := service.List(context.Background(), orgID, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, logs, got)
	repo.AssertExpectations(t)
}

func TestAuditService_ListForClientCapsPage(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"oversized limit is clamped", 5000, 500},
		{"just over the cap", 501, 500},
		{"within the cap", 250, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(countingRepo)
			orgID, clientID := uuid.New(), uuid.New()
			repo.On("GetByClientID", mock.Anything, orgID, clientID, tt.want, 20).Return([]*models.AuditLog{}, nil)

			service := NewAuditService(repo, zap.NewNop(), DefaultConfig())

			_, err := service.ListForClient(context.Background(), orgID, clientID, tt.limit, 20)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestMemoryRecorder(t *testing.T) {
	var m Memory
	orgID := uuid.New()
	m.Record(models.NewAuditLog(orgID, models.AuditActionTaskHandoff, "task"))
	m.Record(models.NewAuditLog(orgID, models.AuditActionInvoicePaid, "invoice"))

	assert.Equal(t, []models.AuditAction{models.AuditActionTaskHandoff, models.AuditActionInvoicePaid}, m.Actions())
	assert.Len(t, m.Entries(), 2)
}
