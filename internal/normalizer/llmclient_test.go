package normalizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLLMClientChatReturnsMessageContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-test" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: `{"ok":true}`}}},
		})
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "gpt-test", "")
	content, err := client.Chat(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestLLMClientChatReturnsRateLimitError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "gpt-test", "")
	_, err := client.Chat(context.Background(), "system", "user")

	rl, ok := err.(*RateLimitError)
	if !ok {
		t.Fatalf("expected *RateLimitError, got %T: %v", err, err)
	}
	if rl.RetryAfter.Seconds() != 2 {
		t.Fatalf("unexpected retry-after: %v", rl.RetryAfter)
	}
}

func TestLLMClientChatRejectsMissingConfig(t *testing.T) {
	t.Parallel()

	client := &LLMClient{}
	_, err := client.Chat(context.Background(), "s", "u")
	if err == nil {
		t.Fatalf("expected an error for an unconfigured client")
	}
}
