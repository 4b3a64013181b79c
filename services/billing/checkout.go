package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const defaultPaymentsBaseURL = "https://api.stripe.com"

// CheckoutRequest describes a hosted checkout for one invoice
type CheckoutRequest struct {
	InvoiceID     uuid.UUID
	Description   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the processor's hosted payment page
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutProvider starts hosted checkouts
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// ProcessorError is returned when the payment API refuses a request
type ProcessorError struct {
	StatusCode int
	Message    string
}

func (e *ProcessorError) Error() string {
	if e.StatusCode == 0 {
		return "payment processor request failed: " + e.Message
	}
	return fmt.Sprintf("payment processor returned %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether a retry may succeed
func (e *ProcessorError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// PaymentsClient talks to a Stripe-compatible checkout API
type PaymentsClient struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// PaymentsConfig configures a PaymentsClient
type PaymentsConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// NewPaymentsClient creates a checkout client
func NewPaymentsClient(config PaymentsConfig) *PaymentsClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultPaymentsBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 300 * time.Millisecond
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &PaymentsClient{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		client:     &http.Client{Timeout: config.Timeout},
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}
}

// CreateSession opens a one-line payment-mode checkout session. Retries
// share one idempotency key so the processor never creates two sessions.
func (c *PaymentsClient) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.InvoiceID.String())
	form.Set("metadata[invoice_id]", req.InvoiceID.String())
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	body := form.Encode()
	idempotencyKey := uuid.NewString()

	var session CheckoutSession
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)

		resp, err := c.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return &ProcessorError{Message: err.Error()}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return &ProcessorError{Message: err.Error()}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			perr := &ProcessorError{StatusCode: resp.StatusCode, Message: processorMessage(resp.StatusCode, respBody)}
			if !perr.Temporary() {
				return backoff.Permanent(perr)
			}
			return perr
		}

		if err := json.Unmarshal(respBody, &session); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode checkout session: %w", err))
		}
		if session.ID == "" || session.URL == "" {
			return backoff.Permanent(&ProcessorError{StatusCode: resp.StatusCode, Message: "checkout session is missing id or url"})
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryDelay
	expo.MaxInterval = 8 * c.retryDelay
	expo.MaxElapsedTime = 0

	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return &session, nil
}

func processorMessage(status int, body []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > 512 {
			text = text[:512]
		}
		return text
	}
	return http.StatusText(status)
}
