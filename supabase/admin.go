package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the subset of a Supabase Auth user the back office reads
type User struct {
	ID          uuid.UUID              `json:"id"`
	Email       string                 `json:"email"`
	InvitedAt   *time.Time             `json:"invited_at,omitempty"`
	AppMetadata map[string]interface{} `json:"app_metadata,omitempty"`
}

// InviteRequest invites a user by email
type InviteRequest struct {
	Email      string
	RedirectTo string
	// Data lands in user_metadata
	Data map[string]interface{}
}

// AdminError is returned when the Auth admin API refuses a request
type AdminError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *AdminError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase auth returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase auth returned %d: %s", e.StatusCode, e.Message)
}

// AlreadyRegistered reports whether the email already has an account
func (e *AdminError) AlreadyRegistered() bool {
	if e.Code == "email_exists" || e.Code == "user_already_exists" {
		return true
	}
	return e.StatusCode == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(e.Message), "already been registered")
}

// AdminConfig configures an AdminClient
type AdminConfig struct {
	ProjectURL     string
	ServiceRoleKey string
	Timeout        time.Duration
}

// AdminClient calls the GoTrue admin endpoints with the service-role key
type AdminClient struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewAdminClient creates an Auth admin client
func NewAdminClient(config AdminConfig) *AdminClient {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &AdminClient{
		baseURL:    strings.TrimRight(config.ProjectURL, "/") + "/auth/v1",
		serviceKey: config.ServiceRoleKey,
		client:     &http.Client{Timeout: config.Timeout},
	}
}

// InviteUser sends a magic-link invite and returns the created user
func (c *AdminClient) InviteUser(ctx context.Context, req InviteRequest) (*User, error) {
	endpoint := c.baseURL + "/invite"
	if req.RedirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(req.RedirectTo)
	}
	body := map[string]interface{}{"email": req.Email}
	if len(req.Data) > 0 {
		body["data"] = req.Data
	}

	var user User
	if err := c.do(ctx, http.MethodPost, endpoint, body, &user); err != nil {
		return nil, err
	}
	if user.ID == uuid.Nil {
		return nil, &AdminError{StatusCode: http.StatusOK, Message: "invite response has no user id"}
	}
	return &user, nil
}

// UpdateAppMetadata merges meta into the user's app_metadata
func (c *AdminClient) UpdateAppMetadata(ctx context.Context, userID uuid.UUID, meta AppMetadata) error {
	body := map[string]interface{}{"app_metadata": meta}
	return c.do(ctx, http.MethodPut, c.baseURL+"/admin/users/"+userID.String(), body, nil)
}

func (c *AdminClient) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase auth request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adminError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// adminError reads the GoTrue error shapes: {"code","error_code","msg"},
// {"error","error_description"} and {"message"}
func adminError(status int, body []byte) *AdminError {
	var env struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	e := &AdminError{StatusCode: status}
	if err := json.Unmarshal(body, &env); err == nil {
		e.Code = env.ErrorCode
		if e.Code == "" {
			e.Code = env.Error
		}
		for _, m := range []string{env.Msg, env.Message, env.ErrorDescription} {
			if m != "" {
				e.Message = m
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
