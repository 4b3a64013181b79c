package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/middleware"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/directory"
	"github.com/upb/agency-backoffice/supabase"
	"github.com/upb/agency-backoffice/utils"
	"go.uber.org/zap"
)

type MockDirectoryService struct {
	mock.Mock
}

func (m *MockDirectoryService) GetOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockDirectoryService) UpdateOrganization(ctx context.Context, orgID uuid.UUID, req directory.OrganizationUpdate) (*models.Organization, error) {
	args := m.Called(ctx, orgID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockDirectoryService) CreateEmployee(ctx context.Context, orgID uuid.UUID, actor services.Actor, req directory.EmployeeRequest) (*models.Employee, error) {
	args := m.Called(ctx, orgID, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockDirectoryService) GetEmployee(ctx context.Context, orgID, id uuid.UUID) (*models.Employee, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockDirectoryService) ListEmployees(ctx context.Context, orgID uuid.UUID) ([]*models.Employee, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Employee), args.Error(1)
}

func (m *MockDirectoryService) UpdateEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor, req directory.EmployeeUpdate) (*models.Employee, error) {
	args := m.Called(ctx, orgID, id, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockDirectoryService) DeleteEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) error {
	return m.Called(ctx, orgID, id, actor).Error(0)
}

func (m *MockDirectoryService) InviteEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Employee, error) {
	args := m.Called(ctx, orgID, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockDirectoryService) Me(ctx context.Context, principal *supabase.Principal) (*directory.Profile, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Profile), args.Error(1)
}

func TestDirectoryHandler_CreateEmployee(t *testing.T) {
	body := `{"email":"luis@norte.test","full_name":"Luis Mejía","handle":"luis","role":"employee","invite":true}`
	want := directory.EmployeeRequest{Email: "luis@norte.test", FullName: "Luis Mejía", Handle: "luis", Role: models.RoleEmployee, Invite: true}

	t.Run("created", func(t *testing.T) {
		svc := new(MockDirectoryService)
		h := NewDirectoryHandler(svc, zap.NewNop())
		emp := models.NewEmployee(testOrgID, want.Email, want.FullName, want.Handle, want.Role)
		svc.On("CreateEmployee", mock.Anything, testOrgID, mock.Anything, want).Return(emp, nil)

		w := httptest.NewRecorder()
		h.HandleCreateEmployee(w, staffRequest(http.MethodPost, "/api/v1/employees", body, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("handle taken", func(t *testing.T) {
		svc := new(MockDirectoryService)
		h := NewDirectoryHandler(svc, zap.NewNop())
		svc.On("CreateEmployee", mock.Anything, testOrgID, mock.Anything, want).Return(nil, services.ErrDuplicateHandle)

		w := httptest.NewRecorder()
		h.HandleCreateEmployee(w, staffRequest(http.MethodPost, "/", body, nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invite failure keeps the record", func(t *testing.T) {
		svc := new(MockDirectoryService)
		h := NewDirectoryHandler(svc, zap.NewNop())
		emp := models.NewEmployee(testOrgID, want.Email, want.FullName, want.Handle, want.Role)
		svc.On("CreateEmployee", mock.Anything, testOrgID, mock.Anything, want).
			Return(emp, services.NewDomainError(services.ErrorTypeExternal, services.ErrAuthProvider.Message, nil))

		w := httptest.NewRecorder()
		h.HandleCreateEmployee(w, staffRequest(http.MethodPost, "/", body, nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("unknown role is rejected by field", func(t *testing.T) {
		svc := new(MockDirectoryService)
		h := NewDirectoryHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCreateEmployee(w, staffRequest(http.MethodPost, "/",
			`{"email":"luis@norte.test","full_name":"Luis","handle":"luis","role":"owner"}`, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Contains(t, resp.Details, "role")
		svc.AssertNotCalled(t, "CreateEmployee", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDirectoryHandler_UpdateOwnRole(t *testing.T) {
	svc := new(MockDirectoryService)
	h := NewDirectoryHandler(svc, zap.NewNop())
	me := testEmployee().ID
	admin := models.RoleAdmin
	svc.On("UpdateEmployee", mock.Anything, testOrgID, me, mock.Anything, directory.EmployeeUpdate{Role: &admin}).
		Return(nil, services.NewDomainError(services.ErrorTypeForbidden, "you cannot change your own role", nil))

	w := httptest.NewRecorder()
	h.HandleUpdateEmployee(w, staffRequest(http.MethodPatch, "/", `{"role":"admin"}`, map[string]string{"id": me.String()}))

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertExpectations(t)
}

func TestDirectoryHandler_Me(t *testing.T) {
	t.Run("requires a principal", func(t *testing.T) {
		svc := new(MockDirectoryService)
		h := NewDirectoryHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleMe(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("portal profile", func(t *testing.T) {
		svc := new(MockDirectoryService)
		h := NewDirectoryHandler(svc, zap.NewNop())
		clientID := testClientID
		principal := &supabase.Principal{UserID: uuid.New(), Email: "compras@andino.co", OrgID: testOrgID, Role: models.RoleClient, ClientID: &clientID}
		svc.On("Me", mock.Anything, principal).Return(&directory.Profile{
			UserID: principal.UserID,
			Email:  principal.Email,
			Role:   models.RoleClient,
			Client: &models.Client{ID: clientID, Name: "Café Andino"},
		}, nil)

		r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		r = r.WithContext(middleware.WithPrincipal(r.Context(), principal))
		w := httptest.NewRecorder()
		h.HandleMe(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var got directory.Profile
		decodeData(t, w, &got)
		require.NotNil(t, got.Client)
		assert.Equal(t, "Café Andino", got.Client.Name)
		assert.Nil(t, got.Employee)
	})
}

type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

func (m *MockAuditReader) ListForClient(ctx context.Context, orgID, clientID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, clientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

func TestAuditHandler_List(t *testing.T) {
	t.Run("whole tenant, empty page is an empty list", func(t *testing.T) {
		reader := new(MockAuditReader)
		h := NewAuditHandler(reader, zap.NewNop())
		reader.On("List", mock.Anything, testOrgID, 25, 50).Return(nil, nil)

		w := httptest.NewRecorder()
		h.HandleList(w, staffRequest(http.MethodGet, "/?limit=25&offset=50", "", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[],"limit":25,"offset":50}`, w.Body.String())
		reader.AssertExpectations(t)
	})

	t.Run("scoped to one client", func(t *testing.T) {
		reader := new(MockAuditReader)
		h := NewAuditHandler(reader, zap.NewNop())
		reader.On("ListForClient", mock.Anything, testOrgID, testClientID, defaultPageSize, 0).
			Return([]*models.AuditLog{}, nil)

		w := httptest.NewRecorder()
		h.HandleList(w, staffRequest(http.MethodGet, "/?client_id="+testClientID.String(), "", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		reader.AssertExpectations(t)
		reader.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad client id", func(t *testing.T) {
		reader := new(MockAuditReader)
		h := NewAuditHandler(reader, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleList(w, staffRequest(http.MethodGet, "/?client_id=42", "", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
