package stt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/filipimo/internal/types"
)

// fakeRecognizer implements Recognizer for testing. Events are pushed by
// the test through emit.
type fakeRecognizer struct {
	lang types.LanguageCode

	mu      sync.Mutex
	events  chan Event
	starts  int
	stops   int
	closed  bool
	failErr error
}

func (r *fakeRecognizer) Start(_ context.Context) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.starts++
	r.events = make(chan Event, 16)
	return r.events, nil
}

func (r *fakeRecognizer) Stop() error {
	r.mu.Lock()
	r.stops++
	r.mu.Unlock()
	return nil
}

func (r *fakeRecognizer) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeRecognizer) channel() chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}

func (r *fakeRecognizer) emit(ev Event) { r.channel() <- ev }

func (r *fakeRecognizer) result(id, text string, final bool) {
	r.emit(Event{Kind: EventResult, Result: Result{ID: id, Text: text, Final: final}})
}

// fakeEngine implements Engine for testing.
type fakeEngine struct {
	available bool

	mu     sync.Mutex
	opened []*fakeRecognizer
}

func (e *fakeEngine) Name() string    { return "fake" }
func (e *fakeEngine) Available() bool { return e.available }
func (e *fakeEngine) Close() error    { return nil }

func (e *fakeEngine) Open(lang types.LanguageCode) (Recognizer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := &fakeRecognizer{lang: lang}
	e.opened = append(e.opened, r)
	return r, nil
}

func (e *fakeEngine) last() *fakeRecognizer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.opened) == 0 {
		return nil
	}
	return e.opened[len(e.opened)-1]
}

func newTestSession(t *testing.T) (*Session, *fakeEngine, chan Update) {
	t.Helper()
	eng := &fakeEngine{available: true}
	s := NewSession(eng, types.LangKorean, nil)
	updates := make(chan Update, 64)
	s.OnUpdate(func(u Update) { updates <- u })
	t.Cleanup(func() { s.Close() })
	return s, eng, updates
}

// waitFor returns the first update satisfying ok.
func waitFor(t *testing.T, updates <-chan Update, ok func(Update) bool) Update {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u := <-updates:
			if ok(u) {
				return u
			}
		case <-timeout:
			t.Fatal("timed out waiting for update")
			return Update{}
		}
	}
}

func TestSession_StartUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		engine Engine
	}{
		{"nil engine", nil},
		{"engine not available", &fakeEngine{available: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(tt.engine, types.LangEnglish, nil)
			if _, err := s.Start(context.Background()); !errors.Is(err, ErrUnavailable) {
				t.Fatalf("Start() error = %v, want ErrUnavailable", err)
			}
			if s.Listening() {
				t.Error("session should not be listening")
			}
		})
	}
}

func TestSession_StartTwice(t *testing.T) {
	s, _, _ := newTestSession(t)

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyListening) {
		t.Fatalf("second Start error = %v, want ErrAlreadyListening", err)
	}
}

func TestSession_TranscriptConcatenation(t *testing.T) {
	s, eng, updates := newTestSession(t)

	run, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec := eng.last()

	rec.result("a", "Hello", true)
	rec.result("b", "wor", false)
	rec.result("b", "world", true)

	u := waitFor(t, updates, func(u Update) bool { return u.Transcript == "Hello world" })
	if u.Run != run || !u.Listening {
		t.Errorf("update = %+v, want run %d listening", u, run)
	}
}

func TestSession_RetractedSegmentLeavesTranscript(t *testing.T) {
	s, eng, updates := newTestSession(t)

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec := eng.last()

	rec.result("a", "um", false)
	waitFor(t, updates, func(u Update) bool { return u.Transcript == "um" })

	rec.result("a", "", true)
	u := waitFor(t, updates, func(u Update) bool { return u.Transcript == "" })
	if !u.Listening {
		t.Error("retracting a segment should not end the run")
	}
}

func TestSession_TranscriptResetOnStart(t *testing.T) {
	s, eng, updates := newTestSession(t)

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eng.last().result("a", "first run", true)
	waitFor(t, updates, func(u Update) bool { return u.Transcript == "first run" })

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	run2, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if got := s.Transcript(); got != "" {
		t.Errorf("Transcript after Start = %q, want empty", got)
	}

	eng.last().result("x", "second", true)
	u := waitFor(t, updates, func(u Update) bool { return u.Run == run2 && u.Transcript != "" })
	if u.Transcript != "second" {
		t.Errorf("Transcript = %q, want %q", u.Transcript, "second")
	}
}

func TestSession_StaleRunIgnored(t *testing.T) {
	s, eng, updates := newTestSession(t)

	run1, _ := s.Start(context.Background())
	rec := eng.last()
	old := rec.channel()
	s.Stop()

	run2, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run2 == run1 {
		t.Fatal("run numbers must differ between starts")
	}

	old <- Event{Kind: EventResult, Result: Result{ID: "late", Text: "late words"}}
	rec.result("new", "fresh", false)

	u := waitFor(t, updates, func(u Update) bool { return u.Transcript != "" })
	if u.Run != run2 || u.Transcript != "fresh" {
		t.Errorf("update = %+v, want run %d transcript %q", u, run2, "fresh")
	}
	if got := s.Transcript(); got != "fresh" {
		t.Errorf("Transcript = %q, want %q", got, "fresh")
	}
}

func TestSession_ErrorStopsListening(t *testing.T) {
	s, eng, updates := newTestSession(t)

	s.Start(context.Background())
	eng.last().emit(Event{Kind: EventError, Err: errors.New("network")})

	u := waitFor(t, updates, func(u Update) bool { return !u.Listening })
	if u.Err == nil {
		t.Error("expected error in update")
	}
	if s.Listening() {
		t.Error("session should not be listening after error")
	}

	// A new Start is allowed after failure.
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start after error: %v", err)
	}
}

func TestSession_NaturalEnd(t *testing.T) {
	s, eng, updates := newTestSession(t)

	s.Start(context.Background())
	rec := eng.last()
	rec.result("a", "done", true)
	close(rec.channel())

	u := waitFor(t, updates, func(u Update) bool { return !u.Listening })
	if u.Err != nil {
		t.Errorf("unexpected error %v", u.Err)
	}
	if u.Transcript != "done" {
		t.Errorf("Transcript = %q, want %q", u.Transcript, "done")
	}
}

func TestSession_StopIdempotent(t *testing.T) {
	s, eng, _ := newTestSession(t)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}

	s.Start(context.Background())
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("double Stop: %v", err)
	}

	rec := eng.last()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.stops != 1 {
		t.Errorf("recognizer stops = %d, want 1", rec.stops)
	}
}

func TestSession_SetLanguage(t *testing.T) {
	s, eng, _ := newTestSession(t)

	s.Start(context.Background())
	first := eng.last()

	if err := s.SetLanguage(types.LangCebuano); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}

	if s.Listening() {
		t.Error("SetLanguage must not restart listening")
	}
	if s.Language() != types.LangCebuano {
		t.Errorf("Language() = %s, want %s", s.Language(), types.LangCebuano)
	}

	first.mu.Lock()
	closed := first.closed
	first.mu.Unlock()
	if !closed {
		t.Error("previous recognizer should be released")
	}

	second := eng.last()
	if second == first || second.lang != types.LangCebuano {
		t.Errorf("expected new recognizer for %s, got %+v", types.LangCebuano, second)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Get("fake") != nil {
		t.Fatal("expected empty registry")
	}

	e := &fakeEngine{available: true}
	r.Register(e)

	if r.Get("fake") != e {
		t.Error("Get did not return registered engine")
	}
	if got := len(r.List()); got != 1 {
		t.Errorf("List() len = %d, want 1", got)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
