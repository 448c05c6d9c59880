package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.aimuz.me/filipimo/internal/types"
)

const (
	defaultClaudeURL       = "https://api.anthropic.com/v1/messages"
	claudeAPIVersion       = "2023-06-01"
	defaultClaudeMaxTokens = 1024
)

// ErrNoContent is returned when a model response carries no text.
var ErrNoContent = errors.New("translate: no content in response")

// Claude translates through the Anthropic Messages API.
type Claude struct {
	opts LLMOptions
	url  string
	http *http.Client
}

// NewClaude creates a Claude provider. opts.BaseURL, when set, is the full
// messages endpoint.
func NewClaude(opts LLMOptions, timeout time.Duration) *Claude {
	url := opts.BaseURL
	if url == "" {
		url = defaultClaudeURL
	}
	return &Claude{opts: opts, url: url, http: &http.Client{Timeout: timeout}}
}

// Name implements Provider.
func (c *Claude) Name() string { return "claude:" + c.opts.Model }

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	System      string          `json:"system,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Translate implements Provider.
func (c *Claude) Translate(ctx context.Context, text string, src, dst types.LanguageCode) (string, error) {
	body, err := json.Marshal(claudeRequest{
		Model:       c.opts.Model,
		Messages:    []claudeMessage{{Role: "user", Content: userPrompt(text, src, dst)}},
		System:      c.opts.SystemPrompt,
		MaxTokens:   defaultClaudeMaxTokens,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.opts.APIKey)
	req.Header.Set("anthropic-version", claudeAPIVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result claudeResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error (status %d): %s - %s", resp.StatusCode, result.Error.Type, result.Error.Message)
	}

	var sb strings.Builder
	for _, part := range result.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrNoContent
	}
	return out, nil
}
