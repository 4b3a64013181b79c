package notification

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

// Envelope is one outbound message on an external channel
type Envelope struct {
	To        string
	ToName    string
	Subject   string
	Body      string
	FromEmail string
	FromName  string
	PhoneID   string
}

// Sender delivers envelopes over one external channel
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, env Envelope) error
}

// DeliveryError is returned when a channel API refuses a message
type DeliveryError struct {
	Channel    models.Channel
	StatusCode int
	Message    string
}

func (e *DeliveryError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s delivery failed: %s", e.Channel, e.Message)
	}
	return fmt.Sprintf("%s delivery failed (%d): %s", e.Channel, e.StatusCode, e.Message)
}

// Temporary reports whether a later attempt may succeed
func (e *DeliveryError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ClientConfig tunes the HTTP client shared by the senders
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// deliveryClient posts JSON and retries transport failures, 429 and 5xx
type deliveryClient struct {
	channel    models.Channel
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

func newDeliveryClient(channel models.Channel, config ClientConfig) *deliveryClient {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 250 * time.Millisecond
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &deliveryClient{
		channel:    channel,
		client:     &http.Client{Timeout: config.Timeout},
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}
}

func (c *deliveryClient) postJSON(ctx context.Context, url string, headers map[string]string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", c.channel, err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return &DeliveryError{Channel: c.channel, Message: err.Error()}
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		derr := &DeliveryError{
			Channel:    c.channel,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, respBody),
		}
		if !derr.Temporary() {
			return backoff.Permanent(derr)
		}
		return derr
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryDelay
	expo.MaxInterval = 8 * c.retryDelay
	expo.MaxElapsedTime = 0

	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.maxRetries)), ctx)
	return backoff.Retry(op, bo)
}

// errorMessage pulls a readable message out of SendGrid
// ({"errors":[{"message"}]}) and Graph ({"error":{"message"}}) error bodies
func errorMessage(status int, body []byte) string {
	var env struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if len(env.Errors) > 0 && env.Errors[0].Message != "" {
			return env.Errors[0].Message
		}
		if env.Error != nil && env.Error.Message != "" {
			return env.Error.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(status)
}
