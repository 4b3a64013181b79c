package anthropic

import (
	"context"
	"strings"
	"time"

	"github.com/upb/agency-backoffice/services/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-3-5-haiku-latest"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

// Adapter implements the Provider interface for the Anthropic Messages API
type Adapter struct {
	config    providers.ProviderConfig
	transport *providers.Transport
}

// NewAdapter creates a new Anthropic adapter
func NewAdapter(config providers.ProviderConfig) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.DefaultModel == "" {
		config.DefaultModel = defaultModel
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Adapter{
		config:    config,
		transport: providers.NewTransport(providers.Anthropic, config),
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return providers.Anthropic
}

// Complete performs a chat completion request
func (a *Adapter) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	startTime := time.Now()

	body := a.buildRequest(req)
	headers := map[string]string{
		"x-api-key":         a.config.APIKey,
		"anthropic-version": apiVersion,
	}
	for k, v := range a.config.Headers {
		headers[k] = v
	}

	var resp messagesResponse
	if err := a.transport.PostJSON(ctx, a.config.BaseURL+"/v1/messages", headers, body, &resp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, providers.NewProviderError(providers.Anthropic, "empty_response", "response contained no text", 200, true, nil)
	}

	model := resp.Model
	if model == "" {
		model = body.Model
	}
	return &providers.CompletionResponse{
		Provider:     providers.Anthropic,
		Model:        model,
		Content:      text.String(),
		FinishReason: resp.StopReason,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Latency: time.Since(startTime),
	}, nil
}

// buildRequest moves system messages to the top-level system field
func (a *Adapter) buildRequest(req *providers.CompletionRequest) *messagesRequest {
	out := &messagesRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if out.Model == "" {
		out.Model = a.config.DefaultModel
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = defaultMaxTokens
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}

	var system []string
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		out.Messages = append(out.Messages, message{Role: msg.Role, Content: msg.Content})
	}
	out.System = strings.Join(system, "\n\n")
	return out
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
