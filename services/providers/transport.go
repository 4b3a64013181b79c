package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 4096

// Transport is the HTTP plumbing shared by the adapters. Transport-level
// failures are retried with exponential backoff up to MaxRetries; any HTTP
// response, success or not, ends the retry loop.
type Transport struct {
	provider   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewTransport creates a transport for the named provider
func NewTransport(provider string, config ProviderConfig) *Transport {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 200 * time.Millisecond
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Transport{
		provider:   provider,
		client:     &http.Client{Timeout: config.Timeout},
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}
}

func (t *Transport) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = t.retryDelay
	expo.MaxInterval = 8 * t.retryDelay
	expo.MaxElapsedTime = 0
	return expo
}

// PostJSON marshals body, POSTs it to url with the given headers and decodes a
// 2xx response into out. Non-2xx responses become a *ProviderError carrying the
// status code and the provider's error message.
func (t *Transport) PostJSON(ctx context.Context, url string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return NewProviderError(t.provider, "marshal_error", "failed to marshal request", 0, false, err)
	}

	var (
		status   int
		respBody []byte
	)
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		status = resp.StatusCode
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(t.backoffConfig(), uint64(t.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return t.transportError(ctx, err)
	}

	if status < 200 || status > 299 {
		return ParseErrorBody(t.provider, status, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return NewProviderError(t.provider, "unmarshal_error", "failed to decode response", status, false, err)
	}
	return nil
}

func (t *Transport) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return NewProviderError(t.provider, "timeout", "request timed out", 0, true, ctxErr)
		}
		return NewProviderError(t.provider, "canceled", "request canceled", 0, false, ctxErr)
	}
	return NewProviderError(t.provider, "http_error", "HTTP request failed", 0, true, err)
}

// errorEnvelope covers the error shapes of the supported APIs:
// {"error":{"message","type","code","status"}} and {"type":"error","error":{...}}.
type errorEnvelope struct {
	Error *struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Status  string          `json:"status"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseErrorBody converts a non-2xx response into a ProviderError
func ParseErrorBody(provider string, statusCode int, body []byte) *ProviderError {
	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests || statusCode == http.StatusRequestTimeout

	code := fmt.Sprintf("http_%d", statusCode)
	message := http.StatusText(statusCode)

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		switch {
		case env.Error != nil:
			if env.Error.Message != "" {
				message = env.Error.Message
			}
			switch {
			case env.Error.Type != "":
				code = env.Error.Type
			case env.Error.Status != "":
				code = env.Error.Status
			case len(env.Error.Code) > 0 && string(env.Error.Code) != "null":
				code = strings.Trim(string(env.Error.Code), `"`)
			}
		case env.Message != "":
			message = env.Message
		}
	} else if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		if len(trimmed) > maxErrorBody {
			trimmed = trimmed[:maxErrorBody]
		}
		message = trimmed
	}

	return NewProviderError(provider, code, message, statusCode, retryable, nil)
}
