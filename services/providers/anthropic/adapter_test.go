package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/upb/agency-backoffice/services/providers"
)

func TestAdapter_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.System != "You are helpful" {
			t.Errorf("system = %q", req.System)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "user" || req.Messages[1].Role != "assistant" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.MaxTokens != defaultMaxTokens {
			t.Errorf("max_tokens = %d, want default %d", req.MaxTokens, defaultMaxTokens)
		}
		if req.Model != defaultModel {
			t.Errorf("model = %s, want %s", req.Model, defaultModel)
		}

		w.Write([]byte(`{
			"id":"msg_1","model":"claude-3-5-haiku-20241022","stop_reason":"end_turn",
			"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],
			"usage":{"input_tokens":12,"output_tokens":3}
		}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{APIKey: "ak", BaseURL: server.URL})
	resp, err := adapter.Complete(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: "system", Content: "You are helpful"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hello there" {
		t.Errorf("Content = %q, want joined text blocks", resp.Content)
	}
	if resp.Provider != "anthropic" || resp.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}
	if resp.FinishReason != "end_turn" {
		t.Errorf("FinishReason = %s", resp.FinishReason)
	}
}

func TestAdapter_Complete_Overloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{APIKey: "ak", BaseURL: server.URL})
	_, err := adapter.Complete(context.Background(), &providers.CompletionRequest{
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})

	provErr, ok := err.(*providers.ProviderError)
	if !ok {
		t.Fatalf("Expected ProviderError, got %T", err)
	}
	if provErr.StatusCode != 529 || provErr.Code != "overloaded_error" {
		t.Errorf("provErr = %+v", provErr)
	}
	if provErr.Provider != "anthropic" {
		t.Errorf("Provider = %s", provErr.Provider)
	}
}

func TestBuildRequest_KeepsExplicitSettings(t *testing.T) {
	adapter := NewAdapter(providers.ProviderConfig{})
	req := adapter.buildRequest(&providers.CompletionRequest{
		Model:       "claude-3-opus-latest",
		MaxTokens:   300,
		Temperature: 0.2,
		Messages: []providers.Message{
			{Role: "system", Content: "a"},
			{Role: "system", Content: "b"},
			{Role: "user", Content: "q"},
		},
	})

	if req.Model != "claude-3-opus-latest" || req.MaxTokens != 300 {
		t.Errorf("req = %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Error("temperature not forwarded")
	}
	if req.System != "a\n\nb" {
		t.Errorf("System = %q", req.System)
	}
	if len(req.Messages) != 1 {
		t.Errorf("Messages = %+v", req.Messages)
	}
}
