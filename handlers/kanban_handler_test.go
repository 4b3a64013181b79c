package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/kanban"
	"go.uber.org/zap"
)

// MockKanbanService is a mock implementation of KanbanService
type MockKanbanService struct {
	mock.Mock
}

func (m *MockKanbanService) CreateBoard(ctx context.Context, orgID uuid.UUID, req kanban.CreateBoardRequest) (*models.BoardView, error) {
	args := m.Called(ctx, orgID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BoardView), args.Error(1)
}

func (m *MockKanbanService) ListBoards(ctx context.Context, orgID uuid.UUID) ([]*models.Board, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Board), args.Error(1)
}

func (m *MockKanbanService) GetBoard(ctx context.Context, orgID, boardID uuid.UUID) (*models.BoardView, error) {
	args := m.Called(ctx, orgID, boardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BoardView), args.Error(1)
}

func (m *MockKanbanService) AddColumn(ctx context.Context, orgID, boardID uuid.UUID, name string) (*models.BoardColumn, error) {
	args := m.Called(ctx, orgID, boardID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BoardColumn), args.Error(1)
}

func (m *MockKanbanService) CreateTask(ctx context.Context, orgID uuid.UUID, actor kanban.Actor, req kanban.CreateTaskRequest) (*models.Task, error) {
	args := m.Called(ctx, orgID, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockKanbanService) GetTask(ctx context.Context, orgID, taskID uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, orgID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockKanbanService) UpdateTask(ctx context.Context, orgID, taskID uuid.UUID, actor kanban.Actor, req kanban.UpdateTaskRequest) (*models.Task, error) {
	args := m.Called(ctx, orgID, taskID, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockKanbanService) MoveTask(ctx context.Context, orgID, taskID uuid.UUID, req kanban.MoveTaskRequest) (*models.Task, error) {
	args := m.Called(ctx, orgID, taskID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockKanbanService) DeleteTask(ctx context.Context, orgID, taskID uuid.UUID) error {
	return m.Called(ctx, orgID, taskID).Error(0)
}

func (m *MockKanbanService) AddComment(ctx context.Context, orgID, taskID uuid.UUID, actor kanban.Actor, body string) (*models.TaskComment, error) {
	args := m.Called(ctx, orgID, taskID, actor, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskComment), args.Error(1)
}

func (m *MockKanbanService) ListComments(ctx context.Context, orgID, taskID uuid.UUID) ([]*models.TaskComment, error) {
	args := m.Called(ctx, orgID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TaskComment), args.Error(1)
}

func (m *MockKanbanService) Handoff(ctx context.Context, orgID, taskID uuid.UUID, actor kanban.Actor, req kanban.HandoffRequest) (*kanban.HandoffResult, error) {
	args := m.Called(ctx, orgID, taskID, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kanban.HandoffResult), args.Error(1)
}

func TestKanbanHandler_Handoff(t *testing.T) {
	logger := zap.NewNop()
	taskID := uuid.New()
	targetBoard := uuid.New()

	t.Run("clones the task onto the target board", func(t *testing.T) {
		svc := new(MockKanbanService)
		h := NewKanbanHandler(svc, logger)
		source := &models.Task{ID: taskID, OrgID: testOrgID, Status: models.TaskStatusHandedOff}
		clone := &models.Task{ID: uuid.New(), OrgID: testOrgID, BoardID: targetBoard, HandoffFromID: &taskID, Status: models.TaskStatusOpen}

		svc.On("Handoff", mock.Anything, testOrgID, taskID,
			mock.MatchedBy(func(a kanban.Actor) bool { return a.EmployeeID == testEmployee().ID && a.RequestID == "req-test" }),
			kanban.HandoffRequest{TargetBoardID: targetBoard, Note: "ready for copy review"},
		).Return(&kanban.HandoffResult{Source: source, Task: clone}, nil)

		body := `{"target_board_id":"` + targetBoard.String() + `","note":"ready for copy review"}`
		w := httptest.NewRecorder()
		h.HandleHandoff(w, staffRequest(http.MethodPost, "/api/v1/tasks/"+taskID.String()+"/handoff", body, map[string]string{"id": taskID.String()}))

		assert.Equal(t, http.StatusCreated, w.Code)
		var got kanban.HandoffResult
		decodeData(t, w, &got)
		require.NotNil(t, got.Task)
		assert.Equal(t, clone.ID, got.Task.ID)
		assert.Equal(t, models.TaskStatusHandedOff, got.Source.Status)
		svc.AssertExpectations(t)
	})

	t.Run("already handed off is a conflict", func(t *testing.T) {
		svc := new(MockKanbanService)
		h := NewKanbanHandler(svc, logger)
		svc.On("Handoff", mock.Anything, testOrgID, taskID, mock.Anything, mock.Anything).
			Return(nil, services.ErrAlreadyHandedOff)

		body := `{"target_board_id":"` + targetBoard.String() + `"}`
		w := httptest.NewRecorder()
		h.HandleHandoff(w, staffRequest(http.MethodPost, "/", body, map[string]string{"id": taskID.String()}))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing target board", func(t *testing.T) {
		svc := new(MockKanbanService)
		h := NewKanbanHandler(svc, logger)

		w := httptest.NewRecorder()
		h.HandleHandoff(w, staffRequest(http.MethodPost, "/", `{"note":"x"}`, map[string]string{"id": taskID.String()}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Handoff", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("portal callers cannot hand off", func(t *testing.T) {
		svc := new(MockKanbanService)
		h := NewKanbanHandler(svc, logger)

		body := `{"target_board_id":"` + targetBoard.String() + `"}`
		w := httptest.NewRecorder()
		h.HandleHandoff(w, portalRequest(http.MethodPost, "/", body, map[string]string{"id": taskID.String()}))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestKanbanHandler_CreateBoardDefaultsOwner(t *testing.T) {
	svc := new(MockKanbanService)
	h := NewKanbanHandler(svc, zap.NewNop())
	owner := testEmployee().ID
	view := &models.BoardView{Board: &models.Board{ID: uuid.New(), OrgID: testOrgID, Name: "Café Andino launch"}}

	svc.On("CreateBoard", mock.Anything, testOrgID, kanban.CreateBoardRequest{
		Name:    "Café Andino launch",
		OwnerID: &owner,
	}).Return(view, nil)

	w := httptest.NewRecorder()
	h.HandleCreateBoard(w, staffRequest(http.MethodPost, "/api/v1/boards", `{"name":"Café Andino launch"}`, nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestKanbanHandler_MoveTask(t *testing.T) {
	svc := new(MockKanbanService)
	h := NewKanbanHandler(svc, zap.NewNop())
	taskID, column := uuid.New(), uuid.New()

	svc.On("MoveTask", mock.Anything, testOrgID, taskID, kanban.MoveTaskRequest{ColumnID: column, Position: 2}).
		Return(nil, services.ErrColumnNotOnBoard)

	w := httptest.NewRecorder()
	body := `{"column_id":"` + column.String() + `","position":2}`
	h.HandleMoveTask(w, staffRequest(http.MethodPost, "/", body, map[string]string{"id": taskID.String()}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestKanbanHandler_AddComment(t *testing.T) {
	svc := new(MockKanbanService)
	h := NewKanbanHandler(svc, zap.NewNop())
	taskID := uuid.New()
	comment := &models.TaskComment{ID: uuid.New(), TaskID: taskID, Body: "@luis can you check the copy?"}

	svc.On("AddComment", mock.Anything, testOrgID, taskID, mock.Anything, "@luis can you check the copy?").Return(comment, nil)

	w := httptest.NewRecorder()
	h.HandleAddComment(w, staffRequest(http.MethodPost, "/", `{"body":"@luis can you check the copy?"}`, map[string]string{"id": taskID.String()}))

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestKanbanHandler_DeleteTaskNotFound(t *testing.T) {
	svc := new(MockKanbanService)
	h := NewKanbanHandler(svc, zap.NewNop())
	taskID := uuid.New()
	svc.On("DeleteTask", mock.Anything, testOrgID, taskID).Return(services.ErrTaskNotFound)

	w := httptest.NewRecorder()
	h.HandleDeleteTask(w, staffRequest(http.MethodDelete, "/", "", map[string]string{"id": taskID.String()}))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
