package chooser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client calls an Ollama-compatible chat backend. Decoding is deterministic
// (temperature 0) and every request is bounded by the client timeout.
type Client struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Chat sends one user prompt and returns the assistant text. The answer is
// read from message.content, falling back to the top-level response field;
// a 2xx body carrying neither yields an empty string.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	client := c.HTTPClient
	if client == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/api/chat"
	payload := map[string]interface{}{
		"model":    c.Model,
		"messages": []map[string]string{{"role": "user", "content": prompt}},
		"stream":   false,
		"options":  map[string]interface{}{"temperature": 0},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if c.Logger != nil {
		c.Logger.Debug("llm request", "url", endpoint, "model", c.Model)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm error status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.Message.Content)
	if text == "" {
		text = strings.TrimSpace(out.Response)
	}
	if c.Logger != nil {
		c.Logger.Debug("llm response", "content", text)
	}
	return text, nil
}
