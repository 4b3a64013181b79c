package providers

import (
	"context"
	"errors"
	"time"
)

// Provider names understood by the router
const (
	OpenRouter = "openrouter"
	Anthropic  = "anthropic"
	OpenAI     = "openai"
	Gemini     = "gemini"
)

// KnownProviders lists every adapter name, in default fallback order
var KnownProviders = []string{OpenRouter, Anthropic, OpenAI, Gemini}

// IsKnown reports whether name is an adapter this service ships
func IsKnown(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}

// Provider represents a unified LLM provider interface
type Provider interface {
	// Name returns the provider name (e.g., "openai", "anthropic")
	Name() string

	// Complete performs a chat completion request
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is the provider-neutral chat request
type CompletionRequest struct {
	// Model identifier; empty selects the provider's default model
	Model string `json:"model"`

	// Messages in the conversation, system first when present
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64 `json:"temperature,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// CompletionResponse is the provider-neutral chat response
type CompletionResponse struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Content      string        `json:"content"`
	FinishReason string        `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Latency      time.Duration `json:"latency"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// DefaultModel is used when a request names no model
	DefaultModel string

	// Timeout for a single HTTP exchange
	Timeout time.Duration

	// MaxRetries for transport failures; HTTP error statuses are never retried here
	MaxRetries int

	// RetryDelay is the initial backoff interval
	RetryDelay time.Duration

	// Additional headers
	Headers map[string]string
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the provider's error type or code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code, 0 when no response arrived
	StatusCode int

	// Retryable indicates another provider may succeed where this one failed
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := e.Provider + ": " + e.Message
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

// StatusCode extracts the HTTP status from a provider error, or 0
func StatusCode(err error) int {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode
	}
	return 0
}
