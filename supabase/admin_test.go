package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminClient_InviteUser(t *testing.T) {
	userID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/invite", r.URL.Path)
		assert.Equal(t, "https://portal.agency.test/welcome", r.URL.Query().Get("redirect_to"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Error(err)
		}
		assert.Equal(t, "lucia@cafenorte.test", body["email"])
		assert.Equal(t, map[string]interface{}{"name": "Lucia"}, body["data"])

		_, _ = w.Write([]byte(`{"id":"` + userID.String() + `","email":"lucia@cafenorte.test","invited_at":"2024-05-20T12:00:00Z"}`))
	}))
	defer server.Close()

	c := NewAdminClient(AdminConfig{ProjectURL: server.URL + "/", ServiceRoleKey: "service-key"})
	user, err := c.InviteUser(context.Background(), InviteRequest{
		Email:      "lucia@cafenorte.test",
		RedirectTo: "https://portal.agency.test/welcome",
		Data:       map[string]interface{}{"name": "Lucia"},
	})
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	require.NotNil(t, user.InvitedAt)
}

func TestAdminClient_InviteAlreadyRegistered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"error_code":"email_exists","msg":"A user with this email address has already been registered"}`))
	}))
	defer server.Close()

	c := NewAdminClient(AdminConfig{ProjectURL: server.URL, ServiceRoleKey: "k"})
	_, err := c.InviteUser(context.Background(), InviteRequest{Email: "dup@agency.test"})
	require.Error(t, err)

	var aerr *AdminError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "email_exists", aerr.Code)
	assert.True(t, aerr.AlreadyRegistered())
}

func TestAdminClient_UpdateAppMetadata(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/auth/v1/admin/users/"+userID.String(), r.URL.Path)

		var body struct {
			AppMetadata AppMetadata `json:"app_metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Error(err)
		}
		assert.Equal(t, orgID.String(), body.AppMetadata.OrgID)
		assert.Equal(t, "employee", body.AppMetadata.Role)
		_, _ = w.Write([]byte(`{"id":"` + userID.String() + `"}`))
	}))
	defer server.Close()

	c := NewAdminClient(AdminConfig{ProjectURL: server.URL, ServiceRoleKey: "k"})
	err := c.UpdateAppMetadata(context.Background(), userID, AppMetadata{OrgID: orgID.String(), Role: "employee"})
	require.NoError(t, err)
}

func TestAdminError_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{"gotrue msg", 400, `{"code":400,"msg":"Unable to validate email address"}`, "", "Unable to validate email address"},
		{"oauth style", 401, `{"error":"invalid_grant","error_description":"Invalid API key"}`, "invalid_grant", "Invalid API key"},
		{"plain message", 403, `{"message":"not admin"}`, "", "not admin"},
		{"text body", 502, `Bad Gateway`, "", "Bad Gateway"},
		{"empty body", 503, ``, "", "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := adminError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantMsg, e.Message)
			assert.False(t, e.AlreadyRegistered())
		})
	}
}
