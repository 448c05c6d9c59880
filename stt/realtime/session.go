package realtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/realtime"
)

// CallsEndpoint is the endpoint for WebRTC SDP exchange.
const CallsEndpoint = "https://api.openai.com/v1/realtime/calls"

// SessionToken holds the ephemeral key used for the SDP exchange.
type SessionToken struct {
	Value     string
	ExpiresAt int64
}

// httpClient is a package-level client with connection reuse.
var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// SessionConfig holds configuration for creating a transcription session.
type SessionConfig struct {
	Model    string // Transcription model, e.g. "gpt-4o-transcribe"
	Language string // ISO-639-1 code; empty lets the model detect
	Prompt   string // Optional transcription prompt
}

// CreateSession creates an ephemeral WebRTC transcription session token.
func CreateSession(ctx context.Context, apiKey string, cfg SessionConfig) (*SessionToken, error) {
	model := cfg.Model
	if model == "" {
		model = string(realtime.AudioTranscriptionModelGPT4oTranscribe)
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	transcription := realtime.AudioTranscriptionParam{
		Model: realtime.AudioTranscriptionModel(model),
	}
	if cfg.Language != "" {
		transcription.Language = openai.String(cfg.Language)
	}
	if cfg.Prompt != "" {
		transcription.Prompt = openai.String(cfg.Prompt)
	}

	params := realtime.ClientSecretNewParams{
		Session: realtime.ClientSecretNewParamsSessionUnion{
			OfTranscription: &realtime.RealtimeTranscriptionSessionCreateRequestParam{
				Audio: realtime.RealtimeTranscriptionSessionAudioParam{
					Input: realtime.RealtimeTranscriptionSessionAudioInputParam{
						TurnDetection: realtime.RealtimeTranscriptionSessionAudioInputTurnDetectionUnionParam{
							OfSemanticVad: &realtime.RealtimeTranscriptionSessionAudioInputTurnDetectionSemanticVadParam{
								Type:      "semantic_vad",
								Eagerness: string(VADEagernessHigh),
							},
						},
						Transcription: transcription,
					},
				},
			},
		},
	}
	resp, err := client.Realtime.ClientSecrets.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create client secret: %w", err)
	}

	return &SessionToken{
		Value:     resp.Value,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// ExchangeSDP posts the local SDP offer and returns the SDP answer.
func ExchangeSDP(ctx context.Context, endpoint, offer, ephemeralKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(offer))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+ephemeralKey)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		slog.Error("SDP exchange failed", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}

	return string(body), nil
}
