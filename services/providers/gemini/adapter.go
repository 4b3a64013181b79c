package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upb/agency-backoffice/services/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-1.5-flash"
)

// Adapter implements the Provider interface for the Gemini generateContent API
type Adapter struct {
	config    providers.ProviderConfig
	transport *providers.Transport
}

// NewAdapter creates a new Gemini adapter
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
		transport: providers.NewTransport(providers.Gemini, config),
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return providers.Gemini
}

// Complete performs a chat completion request
func (a *Adapter) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	startTime := time.Now()

	model := req.Model
	if model == "" {
		model = a.config.DefaultModel
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		a.config.BaseURL, url.PathEscape(model), url.QueryEscape(a.config.APIKey))

	var resp generateResponse
	if err := a.transport.PostJSON(ctx, endpoint, a.config.Headers, buildRequest(req), &resp); err != nil {
		return nil, normalizeKeyError(err)
	}

	if len(resp.Candidates) == 0 {
		return nil, providers.NewProviderError(providers.Gemini, "empty_response", "response contained no candidates", 200, true, nil)
	}
	candidate := resp.Candidates[0]

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		// blocked by safety filters or similar
		return nil, providers.NewProviderError(providers.Gemini, "empty_response",
			"candidate contained no text (finish reason "+candidate.FinishReason+")", 200, true, nil)
	}

	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}
	out := &providers.CompletionResponse{
		Provider:     providers.Gemini,
		Model:        model,
		Content:      text.String(),
		FinishReason: strings.ToLower(candidate.FinishReason),
		Latency:      time.Since(startTime),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = providers.Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return out, nil
}

// normalizeKeyError reports a rejected API key as 401. Gemini answers 400
// INVALID_ARGUMENT for it, which would otherwise read as a bad request.
func normalizeKeyError(err error) error {
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) && provErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(provErr.Message), "api key") {
		provErr.StatusCode = http.StatusUnauthorized
	}
	return err
}

// buildRequest maps roles onto Gemini's user/model pair and lifts system
// messages into systemInstruction
func buildRequest(req *providers.CompletionRequest) *generateRequest {
	out := &generateRequest{}

	var system []part
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = append(system, part{Text: msg.Content})
		case "assistant":
			out.Contents = append(out.Contents, content{Role: "model", Parts: []part{{Text: msg.Content}}})
		default:
			out.Contents = append(out.Contents, content{Role: "user", Parts: []part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		out.SystemInstruction = &content{Parts: system}
	}

	if req.MaxTokens > 0 || req.Temperature > 0 {
		out.GenerationConfig = &generationConfig{MaxOutputTokens: req.MaxTokens}
		if req.Temperature > 0 {
			t := req.Temperature
			out.GenerationConfig.Temperature = &t
		}
	}
	return out
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	ModelVersion string `json:"modelVersion,omitempty"`
}
