// Package tts reads translations aloud through a speech synthesis engine.
package tts

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"go.aimuz.me/filipimo/internal/types"
)

// Voice is a synthesis voice offered by an engine.
type Voice struct {
	Name    string             `json:"name"`
	Lang    types.LanguageCode `json:"lang"`
	Default bool               `json:"default,omitempty"`
}

// Utterance is one synthesis request. An empty Voice lets the platform
// choose a voice for Lang.
type Utterance struct {
	Text  string
	Lang  types.LanguageCode
	Voice string
}

// Engine synthesizes speech.
type Engine interface {
	Name() string
	Available() bool
	Voices() []Voice
	// Speak blocks until the utterance finishes or ctx is cancelled.
	Speak(ctx context.Context, u Utterance) error
}

// Adapter speaks text without blocking the caller. A new utterance
// interrupts the one in progress.
type Adapter struct {
	engine Engine
	policy Policy
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdapter creates an Adapter. engine may be nil, in which case Speak
// only logs.
func NewAdapter(engine Engine, policy Policy, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		engine: engine,
		policy: policy,
		logger: logger.With("component", "tts"),
	}
}

// Available reports whether an engine is present and usable.
func (a *Adapter) Available() bool {
	return a.engine != nil && a.engine.Available()
}

// Speak reads text aloud in lang. Empty text is a no-op. Failures are
// logged, never returned.
func (a *Adapter) Speak(text string, lang types.LanguageCode) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if !a.Available() {
		a.logger.Warn("speech synthesis not available")
		return
	}

	u := Utterance{Text: text, Lang: lang}
	if v, ok := a.policy.Select(a.engine.Voices(), lang); ok {
		u.Voice = v.Name
	}

	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = cancel
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		defer cancel()

		a.logger.Debug("speaking", "lang", lang, "voice", u.Voice, "chars", len(text))
		if err := a.engine.Speak(ctx, u); err != nil && ctx.Err() == nil {
			a.logger.Error("speak failed", "lang", lang, "voice", u.Voice, "error", err)
		}
	}()
}

// Stop interrupts the current utterance, if any.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
}

// Close interrupts speech and waits for the engine to return.
func (a *Adapter) Close() {
	a.Stop()
	a.wg.Wait()
}
