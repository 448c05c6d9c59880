package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.aimuz.me/filipimo/internal/types"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini translates through the Gemini generateContent API.
type Gemini struct {
	opts LLMOptions
	base string
	http *http.Client
}

// NewGemini creates a Gemini provider. opts.BaseURL, when set, replaces the
// models endpoint prefix.
func NewGemini(opts LLMOptions, timeout time.Duration) *Gemini {
	base := opts.BaseURL
	if base == "" {
		base = defaultGeminiURL
	}
	return &Gemini{opts: opts, base: strings.TrimSuffix(base, "/"), http: &http.Client{Timeout: timeout}}
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini:" + g.opts.Model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature    float64 `json:"temperature,omitempty"`
		ThinkingConfig struct {
			ThinkingBudget int `json:"thinkingBudget"`
		} `json:"thinkingConfig"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *Gemini) buildRequest(text string, src, dst types.LanguageCode) geminiRequest {
	var req geminiRequest
	req.Contents = []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: userPrompt(text, src, dst)}},
	}}
	if g.opts.SystemPrompt != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: g.opts.SystemPrompt}}}
	}
	req.GenerationConfig.Temperature = g.opts.Temperature
	// Disable thinking.
	req.GenerationConfig.ThinkingConfig.ThinkingBudget = 0
	return req
}

// Translate implements Provider.
func (g *Gemini) Translate(ctx context.Context, text string, src, dst types.LanguageCode) (string, error) {
	body, err := json.Marshal(g.buildRequest(text, src, dst))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.base, url.PathEscape(g.opts.Model), url.QueryEscape(g.opts.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result geminiResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error (status %d): %s", result.Error.Code, result.Error.Message)
	}
	if len(result.Candidates) == 0 {
		return "", ErrNoContent
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrNoContent
	}
	return out, nil
}
