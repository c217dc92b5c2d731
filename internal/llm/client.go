// Package llm generates AI country plans through a language model. The
// engine only depends on the Planner port; the HTTP client and worker pool
// here are one implementation of it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	messagesURL  = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-haiku-4-5-20251001"

	maxCallsPerMinute = 20
	maxAttempts       = 3
)

// Client calls the Anthropic Messages API with a per-minute call budget
// and retry on transient overload.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	retryDelay time.Duration
	http       *http.Client

	mu       sync.Mutex
	calls    int
	windowAt time.Time
}

// NewClient creates a client. Returns nil when apiKey is empty, which
// disables model-backed planning.
func NewClient(apiKey, model string) *Client {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    messagesURL,
		retryDelay: 2 * time.Second,
		http:       &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether the client can make API calls.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// reserve takes one slot from the current one-minute window.
func (c *Client) reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.After(c.windowAt) {
		c.calls = 0
		c.windowAt = now.Add(time.Minute)
	}
	if c.calls >= maxCallsPerMinute {
		return fmt.Errorf("call budget exhausted (%d/min)", maxCallsPerMinute)
	}
	c.calls++
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends a prompt and returns the response text. Overloaded and
// rate-limited responses are retried with backoff; other errors return
// immediately.
func (c *Client) Complete(ctx context.Context, system, userPrompt string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("llm client not configured")
	}
	if err := c.reserve(); err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []chatMessage{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * c.retryDelay
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, retryable, err := c.send(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		slog.Debug("plan model call retrying", "attempt", attempt, "error", err)
	}
	return "", lastErr
}

func (c *Client) send(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("model call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", true, fmt.Errorf("model unavailable (%d): %s", resp.StatusCode, raw)
	default:
		return "", false, fmt.Errorf("model error (%d): %s", resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", false, fmt.Errorf("empty completion")
	}

	slog.Debug("plan model call",
		"input_tokens", parsed.Usage.InputTokens,
		"output_tokens", parsed.Usage.OutputTokens,
	)
	return parsed.Content[0].Text, false, nil
}
