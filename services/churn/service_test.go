package churn

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/repositories/mocks"
	"github.com/upb/agency-backoffice/services"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func newTestService(clients *mocks.ClientRepository) *Service {
	s := NewService(clients, NewScorer(DefaultWeights()), zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestScoreClient(t *testing.T) {
	ctx := context.Background()
	orgID, clientID := uuid.New(), uuid.New()

	clients := &mocks.ClientRepository{}
	clients.On("GetActivity", ctx, orgID, clientID, fixedNow).
		Return(&models.ClientActivity{ClientID: clientID}, nil)
	clients.On("UpdateChurn", ctx, orgID, clientID, 50, models.RiskHigh).Return(nil)

	score, err := newTestService(clients).ScoreClient(ctx, orgID, clientID)
	require.NoError(t, err)

	assert.Equal(t, 50, score.Score)
	assert.Equal(t, models.RiskHigh, score.Risk)
	assert.Equal(t, fixedNow, score.ScoredAt)
	clients.AssertExpectations(t)
}

func TestScoreClient_NotFound(t *testing.T) {
	ctx := context.Background()
	orgID, clientID := uuid.New(), uuid.New()

	clients := &mocks.ClientRepository{}
	clients.On("GetActivity", ctx, orgID, clientID, fixedNow).
		Return(nil, fmt.Errorf("client %s: %w", clientID, repositories.ErrNotFound))

	_, err := newTestService(clients).ScoreClient(ctx, orgID, clientID)
	assert.True(t, services.IsNotFoundError(err))
	clients.AssertNotCalled(t, "UpdateChurn", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScoreClient_StoreFailure(t *testing.T) {
	ctx := context.Background()
	orgID, clientID := uuid.New(), uuid.New()

	clients := &mocks.ClientRepository{}
	clients.On("GetActivity", ctx, orgID, clientID, fixedNow).
		Return(&models.ClientActivity{ClientID: clientID}, nil)
	clients.On("UpdateChurn", ctx, orgID, clientID, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	_, err := newTestService(clients).ScoreClient(ctx, orgID, clientID)
	assert.True(t, services.IsInternalError(err))
}

func TestRescoreAll(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	healthy, broken, fresh := uuid.New(), uuid.New(), uuid.New()

	clients := &mocks.ClientRepository{}
	clients.On("ListActiveIDs", ctx, orgID).Return([]uuid.UUID{healthy, broken, fresh}, nil)
	clients.On("GetActivity", ctx, orgID, healthy, fixedNow).Return(&models.ClientActivity{
		ClientID:              healthy,
		DaysSinceLastContact:  intp(2),
		DaysSinceLastLogin:    intp(2),
		SatisfactionScore:     floatp(5),
		ContractDaysRemaining: intp(300),
		ActivityLast30:        4,
		ActivityPrev30:        4,
		TenureMonths:          10,
	}, nil)
	clients.On("GetActivity", ctx, orgID, broken, fixedNow).Return(nil, errors.New("timeout"))
	clients.On("GetActivity", ctx, orgID, fresh, fixedNow).Return(&models.ClientActivity{ClientID: fresh}, nil)
	clients.On("UpdateChurn", ctx, orgID, healthy, 0, models.RiskLow).Return(nil)
	clients.On("UpdateChurn", ctx, orgID, fresh, 50, models.RiskHigh).Return(nil)

	summary, err := newTestService(clients).RescoreAll(ctx, orgID)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Scored)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, map[models.RiskLevel]int{models.RiskLow: 1, models.RiskHigh: 1}, summary.ByRisk)
	clients.AssertExpectations(t)
}

func TestRescoreAll_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	orgID := uuid.New()

	clients := &mocks.ClientRepository{}
	clients.On("ListActiveIDs", ctx, orgID).Return([]uuid.UUID{uuid.New()}, nil)

	summary, err := newTestService(clients).RescoreAll(ctx, orgID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Scored)
}

func TestAtRisk(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	active := models.ClientStatusActive
	high := models.RiskHigh
	want := []*models.Client{models.NewClient(orgID, "Acme", "Acme SA", "ops@acme.test")}

	clients := &mocks.ClientRepository{}
	clients.On("List", ctx, orgID, repositories.ClientFilter{Status: &active, MinRisk: &high}).Return(want, nil)

	got, err := newTestService(clients).AtRisk(ctx, orgID, models.RiskHigh)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = newTestService(clients).AtRisk(ctx, orgID, models.RiskLevel("extreme"))
	assert.True(t, services.IsValidationError(err))
}

func TestParseRisk(t *testing.T) {
	risk, err := ParseRisk("")
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, risk)

	risk, err = ParseRisk(" Critical ")
	require.NoError(t, err)
	assert.Equal(t, models.RiskCritical, risk)

	_, err = ParseRisk("severe")
	assert.True(t, services.IsValidationError(err))
}
