package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.aimuz.me/filipimo/internal/types"
)

// Sentinel errors. Callers treat both as a no-op.
var (
	ErrUnavailable      = errors.New("stt: speech recognition unavailable")
	ErrAlreadyListening = errors.New("stt: already listening")
)

// Update is delivered through the OnUpdate callback whenever the transcript
// or listening state of a run changes.
type Update struct {
	Run        uint64
	Transcript string
	Listening  bool
	Err        error
}

// Session drives one continuous recognition at a time.
//
// The transcript is the concatenation of every result received since the
// last Start, keyed by result id, and is reset on each Start. Every Start
// gets a new run number; events from earlier runs are dropped.
type Session struct {
	engine Engine
	logger *slog.Logger

	mu        sync.Mutex
	lang      types.LanguageCode
	rec       Recognizer
	listening bool
	run       uint64
	cancel    context.CancelFunc
	order     []string
	segments  map[string]string
	onUpdate  func(Update)
}

// NewSession creates a session for engine in lang. engine may be nil, in
// which case the session is permanently unavailable.
func NewSession(engine Engine, lang types.LanguageCode, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		engine:   engine,
		lang:     lang,
		logger:   logger.With("component", "stt"),
		segments: make(map[string]string),
	}
}

// OnUpdate sets the update callback. It is invoked without internal locks held.
func (s *Session) OnUpdate(fn func(Update)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Available reports whether an engine is present and usable.
func (s *Session) Available() bool {
	return s.engine != nil && s.engine.Available()
}

// Language returns the configured recognition language.
func (s *Session) Language() types.LanguageCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Listening reports whether a run is active.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Run returns the current run number.
func (s *Session) Run() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// Transcript returns the transcript of the current or last run.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptLocked()
}

// SetLanguage releases the current recognizer and acquires one for lang.
// An active run is stopped first; listening is not restarted.
func (s *Session) SetLanguage(lang types.LanguageCode) error {
	if err := s.Stop(); err != nil {
		s.logger.Warn("stop before language change", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lang == s.lang && s.rec != nil {
		return nil
	}
	s.lang = lang
	s.releaseLocked()

	if !s.Available() {
		return nil
	}

	rec, err := s.engine.Open(lang)
	if err != nil {
		s.logger.Error("open recognizer", "lang", lang, "error", err)
		return fmt.Errorf("open recognizer: %w", err)
	}
	s.rec = rec
	return nil
}

// Start begins listening and returns the run number. The transcript is
// reset. Returns ErrUnavailable or ErrAlreadyListening without side effects.
func (s *Session) Start(ctx context.Context) (uint64, error) {
	s.mu.Lock()

	if !s.Available() {
		s.mu.Unlock()
		s.logger.Warn("speech recognition not available")
		return 0, ErrUnavailable
	}
	if s.listening {
		run := s.run
		s.mu.Unlock()
		s.logger.Debug("start ignored, already listening", "run", run)
		return 0, ErrAlreadyListening
	}

	if s.rec == nil {
		rec, err := s.engine.Open(s.lang)
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("open recognizer", "lang", s.lang, "error", err)
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		s.rec = rec
	}

	runCtx, cancel := context.WithCancel(ctx)
	events, err := s.rec.Start(runCtx)
	if err != nil {
		cancel()
		s.mu.Unlock()
		s.logger.Error("start recognizer", "lang", s.lang, "error", err)
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.run++
	run := s.run
	s.cancel = cancel
	s.listening = true
	s.order = s.order[:0]
	clear(s.segments)
	lang := s.lang
	fn := s.onUpdate
	s.mu.Unlock()

	s.logger.Info("listening", "run", run, "lang", lang)
	go s.consume(run, events)

	if fn != nil {
		fn(Update{Run: run, Listening: true})
	}
	return run, nil
}

// Stop ends the current run. Safe to call when not listening.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = false
	run := s.run
	transcript := s.transcriptLocked()
	rec := s.rec
	cancel := s.cancel
	s.cancel = nil
	fn := s.onUpdate
	s.mu.Unlock()

	var err error
	if rec != nil {
		err = rec.Stop()
	}
	if cancel != nil {
		cancel()
	}

	s.logger.Info("stopped listening", "run", run)
	if fn != nil {
		fn(Update{Run: run, Transcript: transcript})
	}
	if err != nil {
		return fmt.Errorf("stop recognizer: %w", err)
	}
	return nil
}

// Close stops listening and releases the recognizer.
func (s *Session) Close() error {
	err := s.Stop()

	s.mu.Lock()
	s.releaseLocked()
	s.mu.Unlock()
	return err
}

func (s *Session) releaseLocked() {
	if s.rec == nil {
		return
	}
	if err := s.rec.Close(); err != nil {
		s.logger.Warn("close recognizer", "error", err)
	}
	s.rec = nil
}

func (s *Session) consume(run uint64, events <-chan Event) {
	for ev := range events {
		if !s.handle(run, ev) {
			// Drain so the recognizer never blocks on a dead run.
			for range events {
			}
			return
		}
	}
	s.handle(run, Event{Kind: EventEnd})
}

// handle applies ev and reports whether the run is still live.
func (s *Session) handle(run uint64, ev Event) bool {
	s.mu.Lock()
	if run != s.run || !s.listening {
		s.mu.Unlock()
		s.logger.Debug("dropping event from finished run", "run", run, "kind", ev.Kind)
		return false
	}

	u := Update{Run: run, Listening: true}
	switch ev.Kind {
	case EventResult:
		if _, ok := s.segments[ev.Result.ID]; !ok {
			s.order = append(s.order, ev.Result.ID)
		}
		s.segments[ev.Result.ID] = ev.Result.Text
	case EventError, EventEnd:
		s.listening = false
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		u.Listening = false
		u.Err = ev.Err
	}
	u.Transcript = s.transcriptLocked()
	fn := s.onUpdate
	s.mu.Unlock()

	if ev.Kind == EventError {
		s.logger.Error("recognition failed", "run", run, "error", ev.Err)
	}
	if fn != nil {
		fn(u)
	}
	return u.Listening
}

func (s *Session) transcriptLocked() string {
	parts := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if text := strings.TrimSpace(s.segments[id]); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
