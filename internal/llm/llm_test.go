package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func init() {
	baseDelay = time.Millisecond
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewDefaults(t *testing.T) {
	tests := []struct {
		provider string
		model    string
	}{
		{"gemini", "gemini-2.5-flash"},
		{"claude", "claude-sonnet-4-20250514"},
		{"openai", "gpt-4o-mini"},
		{"kimi", "kimi-k2-0711-preview"},
		{"ollama", "qwen2:0.5b"},
	}

	for _, tt := range tests {
		m, err := New(Config{Provider: tt.provider, APIKey: "k"})
		if err != nil {
			t.Fatalf("New(%s): %v", tt.provider, err)
		}
		if m.Provider() != tt.provider {
			t.Errorf("Provider() = %s, want %s", m.Provider(), tt.provider)
		}
		if m.Model() != tt.model {
			t.Errorf("Model() for %s = %s, want %s", tt.provider, m.Model(), tt.model)
		}
	}
}

func TestIsKnownProvider(t *testing.T) {
	for _, p := range KnownProviders() {
		if !IsKnownProvider(p) {
			t.Errorf("%s should be known", p)
		}
	}
	if IsKnownProvider("unknown") {
		t.Error("unknown should not be known")
	}
}

func TestGeminiChat(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)

		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Vectors "}, {"text": "have direction."}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
		}`))
	}))
	defer srv.Close()

	m := newGemini("secret", srv.URL, "models/gemini-2.5-flash", srv.Client())

	resp, err := m.Chat(context.Background(), "be a tutor", []Message{
		{Role: "user", Content: "what is a vector?"},
		{Role: "assistant", Content: "earlier answer"},
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	if resp.Content != "Vectors have direction." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}

	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be a tutor" {
		t.Errorf("system instruction not sent: %+v", got.SystemInstruction)
	}
	if len(got.Contents) != 2 || got.Contents[1].Role != "model" {
		t.Errorf("assistant role should map to model: %+v", got.Contents)
	}
}

func TestGeminiBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": [], "promptFeedback": {"blockReason": "SAFETY"}}`))
	}))
	defer srv.Close()

	m := newGemini("k", srv.URL, "", srv.Client())
	_, err := m.Chat(context.Background(), "", []Message{{Role: "user", Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Errorf("expected blocked prompt error, got %v", err)
	}
}

func TestOpenAICompatibleChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}

		var req openaiRequest
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("system prompt should lead messages: %+v", req.Messages)
		}

		w.Write([]byte(`{"choices": [{"message": {"content": "42"}, "finish_reason": "stop"}], "usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}}`))
	}))
	defer srv.Close()

	m := newOpenAICompatible("openai", "key", srv.URL, "gpt-4o-mini", srv.Client())
	resp, err := m.Chat(context.Background(), "sys", []Message{{Role: "user", Content: "answer?"}})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if resp.Content != "42" || resp.StopReason != "stop" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Usage.TotalTokens != 4 {
		t.Errorf("expected 4 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestRetryOnTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("busy"))
			return
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer srv.Close()

	m := newOpenAICompatible("openai", "key", srv.URL, "m", srv.Client())
	resp, err := m.Chat(context.Background(), "", []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestNoRetryOnAuthError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))
	defer srv.Close()

	m := newGemini("bad", srv.URL, "", srv.Client())
	_, err := m.Chat(context.Background(), "", []Message{{Role: "user", Content: "hi"}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.Status)
	}
	if calls.Load() != 1 {
		t.Errorf("auth errors should not be retried, got %d calls", calls.Load())
	}
}

func TestContextDeadlineStopsBackoff(t *testing.T) {
	old := baseDelay
	baseDelay = time.Second
	defer func() { baseDelay = old }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	m := newOpenAICompatible("openai", "key", srv.URL, "m", srv.Client())
	_, err := m.Chat(ctx, "", []Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("permanent")

	err := withRetry(context.Background(), func() (bool, error) {
		calls++
		return false, permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryReturnsLastError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() (bool, error) {
		calls++
		return true, errors.New("overloaded")
	})
	if err == nil || err.Error() != "overloaded" {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != maxRetries {
		t.Errorf("expected %d calls, got %d", maxRetries, calls)
	}
}

func TestNewOllamaBaseURL(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if got := r.Header.Get("Authorization"); got != "Bearer ollama" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "hi"}}]}`))
	}))
	defer srv.Close()

	m, err := New(Config{Provider: "ollama", APIKey: "ignored", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Chat(context.Background(), "", []Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if path != "/v1/chat/completions" {
		t.Errorf("unexpected path %q", path)
	}
}
