// Package realtime implements a streaming speech engine over the OpenAI
// Realtime transcription API.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.aimuz.me/filipimo/audiocapture"
	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/locale"
	"go.aimuz.me/filipimo/stt"
)

// EngineName identifies the engine in the stt registry and in config.
const EngineName = "openai-realtime"

// ErrRunning is returned by Start on a recognizer that is already running.
var ErrRunning = errors.New("realtime: recognizer already running")

// Config configures the engine.
type Config struct {
	APIKey string
	Model  string
	Prompt string

	// NewCapturer creates the microphone source for each run.
	// Defaults to PortAudio at 48kHz.
	NewCapturer func() audiocapture.Capturer
}

// Engine implements stt.Engine.
type Engine struct {
	cfg Config
}

// NewEngine creates a Realtime engine.
func NewEngine(cfg Config) *Engine {
	if cfg.NewCapturer == nil {
		cfg.NewCapturer = func() audiocapture.Capturer {
			return audiocapture.New(audiocapture.DefaultSampleRate)
		}
	}
	return &Engine{cfg: cfg}
}

// Name implements stt.Engine.
func (e *Engine) Name() string { return EngineName }

// Available implements stt.Engine.
func (e *Engine) Available() bool { return e.cfg.APIKey != "" }

// Close implements stt.Engine.
func (e *Engine) Close() error { return nil }

// Open implements stt.Engine.
func (e *Engine) Open(lang types.LanguageCode) (stt.Recognizer, error) {
	if !e.Available() {
		return nil, stt.ErrUnavailable
	}
	return &recognizer{engine: e, lang: lang}, nil
}

// transcriptionLanguage returns the ISO-639-1 hint for lang, or empty when
// the model has no two-letter code for it and must detect the language.
func transcriptionLanguage(lang types.LanguageCode) string {
	base := locale.Base(lang)
	if len(base) != 2 {
		return ""
	}
	return base
}

type recognizer struct {
	engine *Engine
	lang   types.LanguageCode

	mu       sync.Mutex
	gen      uint64 // current run, 0 when stopped
	next     uint64
	cancel   context.CancelFunc
	client   *Client
	capturer audiocapture.Capturer
}

// Start returns at once. The connection is established in the background;
// a failure is reported as an error event.
func (r *recognizer) Start(ctx context.Context) (<-chan stt.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != 0 {
		return nil, ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	r.next++
	r.gen = r.next
	r.cancel = cancel

	out := make(chan stt.Event, 64)
	go r.run(ctx, r.gen, out)
	return out, nil
}

func (r *recognizer) run(ctx context.Context, gen uint64, out chan<- stt.Event) {
	defer close(out)

	client, capturer, err := r.connect(ctx)
	if err != nil {
		cancelled := ctx.Err() != nil
		r.stop(gen)
		if !cancelled {
			out <- stt.Event{Kind: stt.EventError, Err: err}
		}
		return
	}

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		capturer.Stop()
		client.Close()
		return
	}
	r.client = client
	r.capturer = capturer
	r.mu.Unlock()

	slog.Info("realtime recognizer started", "lang", r.lang)
	r.pump(ctx, gen, client, out)
}

func (r *recognizer) connect(ctx context.Context) (*Client, audiocapture.Capturer, error) {
	client := NewClient(ClientConfig{
		APIKey: r.engine.cfg.APIKey,
		Session: SessionConfig{
			Model:    r.engine.cfg.Model,
			Language: transcriptionLanguage(r.lang),
			Prompt:   r.engine.cfg.Prompt,
		},
	})
	if err := client.Connect(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	capturer := r.engine.cfg.NewCapturer()
	var stereo []float32
	err := capturer.Start(func(samples []float32) {
		stereo = audiocapture.Upmix(stereo, samples)
		if err := client.SendAudio(stereo); err != nil && !errors.Is(err, ErrClosed) {
			slog.Warn("failed to send audio", "error", err)
		}
	})
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("start audio: %w", err)
	}
	return client, capturer, nil
}

// pump translates Realtime events into stt events until the client closes.
func (r *recognizer) pump(ctx context.Context, gen uint64, client *Client, out chan<- stt.Event) {
	partial := make(map[string]string)
	send := func(ev stt.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			r.stop(gen)
			return
		case <-client.Done():
			send(stt.Event{Kind: stt.EventEnd})
			return
		case err := <-client.Errors():
			r.stop(gen)
			send(stt.Event{Kind: stt.EventError, Err: err})
			return
		case msg := <-client.Messages():
			ev, ok := translateEvent(msg, partial)
			if !ok {
				continue
			}
			if !send(ev) {
				r.stop(gen)
				return
			}
			if ev.Kind == stt.EventError {
				r.stop(gen)
				return
			}
		}
	}
}

// translateEvent maps a Realtime event onto an stt event. partial holds the
// accumulated delta text per item.
func translateEvent(msg Event, partial map[string]string) (stt.Event, bool) {
	switch e := msg.(type) {
	case TranscriptDeltaEvent:
		partial[e.ItemID] += e.Delta
		return stt.Event{Kind: stt.EventResult, Result: stt.Result{
			ID:   e.ItemID,
			Text: partial[e.ItemID],
		}}, true
	case TranscriptEvent:
		delete(partial, e.ItemID)
		return stt.Event{Kind: stt.EventResult, Result: stt.Result{
			ID:    e.ItemID,
			Text:  e.Transcript,
			Final: true,
		}}, true
	case TranscriptFailedEvent:
		slog.Warn("transcription failed", "item", e.ItemID, "error", e.Error.Message)
		delete(partial, e.ItemID)
		// Retract the item's interim text.
		return stt.Event{Kind: stt.EventResult, Result: stt.Result{
			ID:    e.ItemID,
			Final: true,
		}}, true
	case ErrorEvent:
		return stt.Event{
			Kind: stt.EventError,
			Err:  fmt.Errorf("api error: %s (%s)", e.Error.Message, e.Error.Code),
		}, true
	default:
		return stt.Event{}, false
	}
}

// Stop tears down audio and the peer connection. The event channel then
// reports end and closes.
func (r *recognizer) Stop() error {
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()
	return r.stop(gen)
}

// stop ends run gen if it is still the current one.
func (r *recognizer) stop(gen uint64) error {
	r.mu.Lock()
	if gen == 0 || gen != r.gen {
		r.mu.Unlock()
		return nil
	}
	client := r.client
	capturer := r.capturer
	cancel := r.cancel
	r.client = nil
	r.capturer = nil
	r.cancel = nil
	r.gen = 0
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var errs []error
	if capturer != nil {
		if err := capturer.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop audio: %w", err))
		}
	}
	if client != nil {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *recognizer) Close() error {
	return r.Stop()
}
