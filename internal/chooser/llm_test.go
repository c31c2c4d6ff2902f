package chooser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatSendsDeterministicRequest(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Stream  bool `json:"stream"`
		Options struct {
			Temperature float64 `json:"temperature"`
		} `json:"options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "  /pets get  "}})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL + "/", Model: "mistral"}
	text, err := c.Chat(context.Background(), "pick one")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if text != "/pets get" {
		t.Fatalf("text = %q", text)
	}
	if captured.Model != "mistral" {
		t.Fatalf("model = %q", captured.Model)
	}
	if captured.Stream {
		t.Fatalf("expected stream=false")
	}
	if captured.Options.Temperature != 0 {
		t.Fatalf("temperature = %v", captured.Options.Temperature)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" || captured.Messages[0].Content != "pick one" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
}

func TestChatFallsBackToResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "NONE"})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Model: "mistral"}
	text, err := c.Chat(context.Background(), "q")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if text != "NONE" {
		t.Fatalf("text = %q", text)
	}
}

func TestChatMissingAnswerFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"done": true})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Model: "mistral"}
	text, err := c.Chat(context.Background(), "q")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty answer, got %q", text)
	}
}

func TestChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Model: "mistral"}
	if _, err := c.Chat(context.Background(), "q"); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}
