package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/locale"
)

// ErrNoChoices is returned when the completion has no choices.
var ErrNoChoices = errors.New("translate: no choices in response")

// LLMOptions configures the chat-completion provider.
type LLMOptions struct {
	APIKey       string
	BaseURL      string // Empty for the OpenAI default
	Model        string
	SystemPrompt string
	Temperature  float64
}

// LLM translates through an OpenAI compatible chat completion endpoint.
type LLM struct {
	client openai.Client
	opts   LLMOptions
}

// NewLLM creates an LLM provider.
func NewLLM(opts LLMOptions) *LLM {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &LLM{
		client: openai.NewClient(reqOpts...),
		opts:   opts,
	}
}

// Name implements Provider.
func (l *LLM) Name() string { return "openai:" + l.opts.Model }

// Translate implements Provider.
func (l *LLM) Translate(ctx context.Context, text string, src, dst types.LanguageCode) (string, error) {
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(l.opts.Model),
		Messages:    buildMessages(l.opts.SystemPrompt, text, src, dst),
		Temperature: openai.Float(l.opts.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildMessages(systemPrompt, text string, src, dst types.LanguageCode) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt(text, src, dst)),
	}
}

// userPrompt is the instruction shared by all chat-model providers.
func userPrompt(text string, src, dst types.LanguageCode) string {
	return fmt.Sprintf(
		"please translate the following text from %s to %s:\n\n%s",
		locale.Name(src), locale.Name(dst), text,
	)
}
