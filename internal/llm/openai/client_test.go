package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sergey0107/verification-products/internal/llm"
)

const completionBody = `{
  "id": "cmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "openai/gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"comparisons\": [], \"summary\": \"ok\"}"}}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestCompleteSendsJSONModeRequest(t *testing.T) {
	var got map[string]any
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "key", BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	out, err := client.Complete(context.Background(), []llm.Message{llm.System("sys"), llm.User("items")})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(out, `"summary": "ok"`) {
		t.Fatalf("unexpected content: %s", out)
	}
	if auth != "Bearer key" {
		t.Fatalf("expected bearer auth, got %q", auth)
	}
	if !strings.HasSuffix(path, "/chat/completions") {
		t.Fatalf("unexpected path: %s", path)
	}
	if got["model"] != DefaultModel {
		t.Fatalf("expected default model, got %v", got["model"])
	}
	if got["temperature"] != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", got["temperature"])
	}
	format, _ := got["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", got["response_format"])
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Fatalf("expected system message first, got %v", first["role"])
	}
}

func TestCompleteMapsHTTPErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream down", "type": "server_error"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Complete(context.Background(), []llm.Message{llm.User("x")})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "openai http status 502") {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
