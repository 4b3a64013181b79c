package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/churn"
	"github.com/upb/agency-backoffice/services/directory"
	"go.uber.org/zap"
)

type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) CreateClient(ctx context.Context, orgID uuid.UUID, req directory.ClientRequest) (*models.Client, error) {
	args := m.Called(ctx, orgID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) GetClient(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) ListClients(ctx context.Context, orgID uuid.UUID, filter repositories.ClientFilter) ([]*models.Client, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Client), args.Error(1)
}

func (m *MockClientService) UpdateClient(ctx context.Context, orgID, id uuid.UUID, req directory.ClientUpdate) (*models.Client, error) {
	args := m.Called(ctx, orgID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) DeleteClient(ctx context.Context, orgID, id uuid.UUID) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func (m *MockClientService) RecordContact(ctx context.Context, orgID, id uuid.UUID, at *time.Time) (*models.Client, error) {
	args := m.Called(ctx, orgID, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) InvitePortalUser(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Client, error) {
	args := m.Called(ctx, orgID, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

type MockChurnService struct {
	mock.Mock
}

func (m *MockChurnService) ScoreClient(ctx context.Context, orgID, clientID uuid.UUID) (*churn.Score, error) {
	args := m.Called(ctx, orgID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*churn.Score), args.Error(1)
}

func (m *MockChurnService) RescoreAll(ctx context.Context, orgID uuid.UUID) (*churn.RescoreSummary, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*churn.RescoreSummary), args.Error(1)
}

func (m *MockChurnService) AtRisk(ctx context.Context, orgID uuid.UUID, minRisk models.RiskLevel) ([]*models.Client, error) {
	args := m.Called(ctx, orgID, minRisk)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Client), args.Error(1)
}

func TestClientHandler_List(t *testing.T) {
	logger := zap.NewNop()

	t.Run("filters", func(t *testing.T) {
		clients := new(MockClientService)
		h := NewClientHandler(clients, new(MockChurnService), logger)
		status := models.ClientStatusActive
		risk := models.RiskHigh
		clients.On("ListClients", mock.Anything, testOrgID, repositories.ClientFilter{
			Status:  &status,
			MinRisk: &risk,
			Limit:   20,
			Offset:  40,
		}).Return([]*models.Client{}, nil)

		w := httptest.NewRecorder()
		h.HandleList(w, staffRequest(http.MethodGet, "/api/v1/clients?status=active&min_risk=high&limit=20&offset=40", "", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[],"limit":20,"offset":40}`, w.Body.String())
		clients.AssertExpectations(t)
	})

	t.Run("bad status", func(t *testing.T) {
		clients := new(MockClientService)
		h := NewClientHandler(clients, new(MockChurnService), logger)

		w := httptest.NewRecorder()
		h.HandleList(w, staffRequest(http.MethodGet, "/api/v1/clients?status=gone", "", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestClientHandler_Create(t *testing.T) {
	logger := zap.NewNop()

	t.Run("created", func(t *testing.T) {
		clients := new(MockClientService)
		h := NewClientHandler(clients, new(MockChurnService), logger)
		client := models.NewClient(testOrgID, "Café Andino", "Café Andino SAS", "hola@andino.co")
		clients.On("CreateClient", mock.Anything, testOrgID, mock.MatchedBy(func(req directory.ClientRequest) bool {
			return req.Name == "Café Andino" && req.MonthlyRetainerCents == 450000000
		})).Return(client, nil)

		w := httptest.NewRecorder()
		h.HandleCreate(w, staffRequest(http.MethodPost, "/api/v1/clients", `{"name":"Café Andino","monthly_retainer_cents":450000000}`, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		clients.AssertExpectations(t)
	})

	t.Run("invalid satisfaction", func(t *testing.T) {
		clients := new(MockClientService)
		h := NewClientHandler(clients, new(MockChurnService), logger)

		w := httptest.NewRecorder()
		h.HandleCreate(w, staffRequest(http.MethodPost, "/api/v1/clients", `{"name":"X","satisfaction_score":7}`, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeErrorBody(t, w).Details, "satisfaction_score")
		clients.AssertNotCalled(t, "CreateClient", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestClientHandler_RecordContact(t *testing.T) {
	logger := zap.NewNop()
	id := uuid.New()

	t.Run("empty body stamps now", func(t *testing.T) {
		clients := new(MockClientService)
		h := NewClientHandler(clients, new(MockChurnService), logger)
		clients.On("RecordContact", mock.Anything, testOrgID, id, (*time.Time)(nil)).Return(&models.Client{ID: id}, nil)

		w := httptest.NewRecorder()
		h.HandleRecordContact(w, staffRequest(http.MethodPost, "/", "", map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
		clients.AssertExpectations(t)
	})

	t.Run("explicit time", func(t *testing.T) {
		clients := new(MockClientService)
		h := NewClientHandler(clients, new(MockChurnService), logger)
		at := time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)
		clients.On("RecordContact", mock.Anything, testOrgID, id, mock.MatchedBy(func(got *time.Time) bool {
			return got != nil && got.Equal(at)
		})).Return(&models.Client{ID: id}, nil)

		w := httptest.NewRecorder()
		h.HandleRecordContact(w, staffRequest(http.MethodPost, "/", `{"at":"2024-06-02T15:00:00Z"}`, map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
		clients.AssertExpectations(t)
	})
}

func TestClientHandler_PortalInviteConflict(t *testing.T) {
	clients := new(MockClientService)
	h := NewClientHandler(clients, new(MockChurnService), zap.NewNop())
	id := uuid.New()
	clients.On("InvitePortalUser", mock.Anything, testOrgID, id, mock.Anything).
		Return(nil, services.NewDomainError(services.ErrorTypeConflict, "client already has portal access", nil))

	w := httptest.NewRecorder()
	h.HandlePortalInvite(w, staffRequest(http.MethodPost, "/", "", map[string]string{"id": id.String()}))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClientHandler_Churn(t *testing.T) {
	logger := zap.NewNop()

	t.Run("score", func(t *testing.T) {
		scorer := new(MockChurnService)
		h := NewClientHandler(new(MockClientService), scorer, logger)
		id := uuid.New()
		scorer.On("ScoreClient", mock.Anything, testOrgID, id).Return(&churn.Score{
			ClientID:    id,
			Score:       55,
			Probability: 0.55,
			Risk:        models.RiskHigh,
			Factors:     []churn.Factor{{Code: "no_recent_contact", Points: 20}},
		}, nil)

		w := httptest.NewRecorder()
		h.HandleChurn(w, staffRequest(http.MethodGet, "/", "", map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
		var got churn.Score
		decodeData(t, w, &got)
		assert.Equal(t, models.RiskHigh, got.Risk)
		require.Len(t, got.Factors, 1)
	})

	t.Run("at risk defaults to high", func(t *testing.T) {
		scorer := new(MockChurnService)
		h := NewClientHandler(new(MockClientService), scorer, logger)
		scorer.On("AtRisk", mock.Anything, testOrgID, models.RiskHigh).Return([]*models.Client{}, nil)

		w := httptest.NewRecorder()
		h.HandleAtRisk(w, staffRequest(http.MethodGet, "/api/v1/clients/at-risk", "", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		scorer.AssertExpectations(t)
	})

	t.Run("at risk rejects unknown level", func(t *testing.T) {
		h := NewClientHandler(new(MockClientService), new(MockChurnService), logger)

		w := httptest.NewRecorder()
		h.HandleAtRisk(w, staffRequest(http.MethodGet, "/api/v1/clients/at-risk?min=severe", "", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
