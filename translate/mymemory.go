package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/locale"
)

// DefaultMyMemoryURL is the public MyMemory endpoint.
const DefaultMyMemoryURL = "https://api.mymemory.translated.net/get"

// ErrMissingTranslation is returned when a 2xx response lacks
// responseData.translatedText.
var ErrMissingTranslation = errors.New("translate: response missing translated text")

// MyMemory calls the MyMemory HTTP GET API.
type MyMemory struct {
	baseURL string
	email   string
	http    *http.Client
}

// NewMyMemory creates a MyMemory provider. An empty baseURL selects the
// public endpoint; email is sent as the optional "de" contact parameter;
// timeout 0 means no transport timeout.
func NewMyMemory(baseURL, email string, timeout time.Duration) *MyMemory {
	if baseURL == "" {
		baseURL = DefaultMyMemoryURL
	}
	return &MyMemory{
		baseURL: baseURL,
		email:   email,
		http:    &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (m *MyMemory) Name() string { return "mymemory" }

type myMemoryResponse struct {
	ResponseData *struct {
		TranslatedText *string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

// Translate implements Provider.
func (m *MyMemory) Translate(ctx context.Context, text string, src, dst types.LanguageCode) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", locale.ProviderCode(src)+"|"+locale.ProviderCode(dst))
	if m.email != "" {
		q.Set("de", m.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}

	var result myMemoryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if result.ResponseData == nil || result.ResponseData.TranslatedText == nil {
		return "", ErrMissingTranslation
	}

	return *result.ResponseData.TranslatedText, nil
}
