package openai

import (
	"context"
	"strings"
	"time"

	"github.com/upb/agency-backoffice/services/providers"
)

const (
	defaultBaseURL           = "https://api.openai.com/v1"
	defaultModel             = "gpt-4o-mini"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "openrouter/auto"
)

// OpenAIAdapter implements the Provider interface for OpenAI-compatible
// chat completion APIs (OpenAI itself and OpenRouter)
type OpenAIAdapter struct {
	name      string
	config    providers.ProviderConfig
	transport *providers.Transport
}

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(config providers.ProviderConfig) *OpenAIAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.DefaultModel == "" {
		config.DefaultModel = defaultModel
	}
	return newAdapter(providers.OpenAI, config)
}

// NewOpenRouterAdapter creates an adapter for OpenRouter. referer and title
// identify the calling app to OpenRouter and may be empty.
func NewOpenRouterAdapter(config providers.ProviderConfig, referer, title string) *OpenAIAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultOpenRouterBaseURL
	}
	if config.DefaultModel == "" {
		config.DefaultModel = defaultOpenRouterModel
	}
	headers := make(map[string]string, len(config.Headers)+2)
	for k, v := range config.Headers {
		headers[k] = v
	}
	if referer != "" {
		headers["HTTP-Referer"] = referer
	}
	if title != "" {
		headers["X-Title"] = title
	}
	config.Headers = headers
	return newAdapter(providers.OpenRouter, config)
}

func newAdapter(name string, config providers.ProviderConfig) *OpenAIAdapter {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &OpenAIAdapter{
		name:      name,
		config:    config,
		transport: providers.NewTransport(name, config),
	}
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return a.name
}

// Complete performs a chat completion request
func (a *OpenAIAdapter) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	startTime := time.Now()

	openaiReq := a.buildOpenAIRequest(req)

	headers := map[string]string{"Authorization": "Bearer " + a.config.APIKey}
	for k, v := range a.config.Headers {
		headers[k] = v
	}

	var openaiResp OpenAIChatResponse
	if err := a.transport.PostJSON(ctx, a.config.BaseURL+"/chat/completions", headers, openaiReq, &openaiResp); err != nil {
		return nil, err
	}

	if len(openaiResp.Choices) == 0 {
		return nil, providers.NewProviderError(a.name, "empty_response", "response contained no choices", 200, true, nil)
	}

	return a.convertToUnifiedResponse(&openaiResp, openaiReq.Model, time.Since(startTime)), nil
}

// buildOpenAIRequest converts unified request to OpenAI format
func (a *OpenAIAdapter) buildOpenAIRequest(req *providers.CompletionRequest) *OpenAIChatRequest {
	model := req.Model
	if model == "" {
		model = a.config.DefaultModel
	}

	openaiReq := &OpenAIChatRequest{
		Model:    model,
		Messages: make([]OpenAIMessage, len(req.Messages)),
	}
	for i, msg := range req.Messages {
		openaiReq.Messages[i] = OpenAIMessage{Role: msg.Role, Content: msg.Content}
	}

	if req.MaxTokens > 0 {
		openaiReq.MaxTokens = &req.MaxTokens
	}
	if req.Temperature > 0 {
		openaiReq.Temperature = &req.Temperature
	}
	return openaiReq
}

// convertToUnifiedResponse converts OpenAI response to unified format
func (a *OpenAIAdapter) convertToUnifiedResponse(openaiResp *OpenAIChatResponse, requested string, latency time.Duration) *providers.CompletionResponse {
	model := openaiResp.Model
	if model == "" {
		model = requested
	}
	choice := openaiResp.Choices[0]
	return &providers.CompletionResponse{
		Provider:     a.name,
		Model:        model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: providers.Usage{
			PromptTokens:     openaiResp.Usage.PromptTokens,
			CompletionTokens: openaiResp.Usage.CompletionTokens,
			TotalTokens:      openaiResp.Usage.TotalTokens,
		},
		Latency: latency,
	}
}

// OpenAI-specific request/response types

type OpenAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIChatResponse struct {
	ID      string         `json:"id"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
