package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/upb/agency-backoffice/models"
)

// Publisher pushes a due post to the network
type Publisher interface {
	Publish(ctx context.Context, post *models.SocialPost) (*PublishResult, error)
}

// PublishResult is what the network reported for a published post
type PublishResult struct {
	ExternalID string `json:"external_id"`
	URL        string `json:"url,omitempty"`
}

// PublishError is returned when the publishing endpoint refuses a post
type PublishError struct {
	StatusCode int
	Message    string
}

func (e *PublishError) Error() string {
	if e.StatusCode == 0 {
		return "publish failed: " + e.Message
	}
	return fmt.Sprintf("publish failed (%d): %s", e.StatusCode, e.Message)
}

// Temporary reports whether a retry may succeed
func (e *PublishError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// WebhookConfig configures a WebhookPublisher
type WebhookConfig struct {
	URL        string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// WebhookPublisher hands posts to an automation endpoint (Zapier, Make, n8n
// or an in-house bridge) that owns the network credentials
type WebhookPublisher struct {
	url        string
	token      string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewWebhookPublisher creates a publisher posting JSON to config.URL
func NewWebhookPublisher(config WebhookConfig) *WebhookPublisher {
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &WebhookPublisher{
		url:        config.URL,
		token:      config.Token,
		client:     &http.Client{Timeout: config.Timeout},
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}
}

type publishPayload struct {
	PostID      string    `json:"post_id"`
	OrgID       string    `json:"org_id"`
	ClientID    string    `json:"client_id"`
	Platform    string    `json:"platform"`
	Content     string    `json:"content"`
	MediaURLs   []string  `json:"media_urls"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Publish posts the content. The post ID doubles as the idempotency key so
// a retried delivery is not published twice.
func (p *WebhookPublisher) Publish(ctx context.Context, post *models.SocialPost) (*PublishResult, error) {
	media := post.MediaURLs
	if media == nil {
		media = []string{}
	}
	payload, err := json.Marshal(publishPayload{
		PostID:      post.ID.String(),
		OrgID:       post.OrgID.String(),
		ClientID:    post.ClientID.String(),
		Platform:    string(post.Platform),
		Content:     post.Content,
		MediaURLs:   media,
		ScheduledAt: post.ScheduledAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post: %w", err)
	}

	var result PublishResult
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", post.ID.String())
		if p.token != "" {
			req.Header.Set("Authorization", "Bearer "+p.token)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return &PublishError{Message: err.Error()}
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			perr := &PublishError{StatusCode: resp.StatusCode, Message: publishMessage(resp.StatusCode, body)}
			if !perr.Temporary() {
				return backoff.Permanent(perr)
			}
			return perr
		}

		result = PublishResult{}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		var raw struct {
			ExternalID string `json:"external_id"`
			ID         string `json:"id"`
			URL        string `json:"url"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode publish response: %w", err))
		}
		result.ExternalID = raw.ExternalID
		if result.ExternalID == "" {
			result.ExternalID = raw.ID
		}
		result.URL = raw.URL
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.retryDelay
	expo.MaxInterval = 8 * p.retryDelay
	expo.MaxElapsedTime = 0

	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return &result, nil
}

func publishMessage(status int, body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > 512 {
			text = text[:512]
		}
		return text
	}
	return http.StatusText(status)
}
