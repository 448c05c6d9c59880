// Package pipeline arbitrates between speech and scan input, debounces the
// canonical input text, issues translations and publishes one coherent
// Snapshot for the presentation layer.
//
// A single goroutine owns all pipeline state. Commands and engine callbacks
// reach it as messages, so no state is shared with engine goroutines.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/stt"
)

// DefaultDebounce is the settle interval.
const DefaultDebounce = 800 * time.Millisecond

// Sentinel errors.
var (
	ErrClosed          = errors.New("pipeline: closed")
	ErrNoTranslator    = errors.New("pipeline: translator required")
	ErrScanUnavailable = errors.New("pipeline: image scanning unavailable")
	ErrNoScanText      = errors.New("pipeline: no text in image")
)

// SpeechSession is the speech capture capability. *stt.Session implements it.
type SpeechSession interface {
	Available() bool
	Start(ctx context.Context) (uint64, error)
	Stop() error
	SetLanguage(lang types.LanguageCode) error
	OnUpdate(fn func(stt.Update))
}

// Extractor is the OCR capability. *ocr.Extractor implements it.
type Extractor interface {
	Available() bool
	Extract(ctx context.Context, image []byte, hint types.LanguageCode) (string, error)
}

// Translator is the translation capability. *translate.Client implements it.
// It must convert every failure into a result.
type Translator interface {
	Translate(ctx context.Context, text string, src, dst types.LanguageCode) types.TranslateResult
}

// Speaker is the speech synthesis capability. *tts.Adapter implements it.
type Speaker interface {
	Speak(text string, lang types.LanguageCode)
}

// DetectFunc guesses the language of text among candidates.
type DetectFunc func(text string, candidates ...types.LanguageCode) (types.LanguageCode, bool)

// Options configures a Controller. Only Translator is required.
type Options struct {
	Languages  types.LanguagePair
	Direction  types.Direction
	Debounce   time.Duration
	Speech     SpeechSession
	Extractor  Extractor
	Translator Translator
	Speaker    Speaker
	Detect     DetectFunc
	Logger     *slog.Logger
}

// Controller is the input arbiter and translation pipeline.
type Controller struct {
	speech     SpeechSession
	extractor  Extractor
	translator Translator
	speaker    Speaker
	detect     DetectFunc
	debounce   time.Duration
	logger     *slog.Logger
	inst       *instruments

	ctx    context.Context
	cancel context.CancelFunc

	// ─── Mailbox ─────────────────────────────────────────────────────────────
	mu     sync.Mutex
	queue  []any
	wake   chan struct{}
	closed bool
	done   chan struct{}

	// ─── Published state ─────────────────────────────────────────────────────
	snapMu sync.RWMutex
	snap   types.Snapshot
	subs   map[chan types.Snapshot]struct{}

	// ─── Loop-owned state ────────────────────────────────────────────────────
	state      types.State
	channel    types.Channel
	languages  types.LanguagePair
	direction  types.Direction
	input      string
	translated string
	detected   types.LanguageCode
	lastErr    string

	speechRun uint64 // run accepted from the speech session, 0 when none
	scanID    uint64 // id of the scan whose result may be adopted
	scanning  bool

	timer     *time.Timer
	settleGen uint64

	seq      uint64 // last issued request sequence
	inFlight bool   // whether request seq may still be adopted
}

// New creates a Controller and starts its event loop.
func New(opts Options) (*Controller, error) {
	if opts.Translator == nil {
		return nil, ErrNoTranslator
	}
	if err := validatePair(opts.Languages); err != nil {
		return nil, err
	}
	if opts.Direction == "" {
		opts.Direction = types.HomeToForeign
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		speech:     opts.Speech,
		extractor:  opts.Extractor,
		translator: opts.Translator,
		speaker:    opts.Speaker,
		detect:     opts.Detect,
		debounce:   opts.Debounce,
		logger:     opts.Logger.With("component", "pipeline"),
		inst:       newInstruments(opts.Logger),
		ctx:        ctx,
		cancel:     cancel,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		subs:       make(map[chan types.Snapshot]struct{}),
		state:      types.StateIdle,
		channel:    types.ChannelIdle,
		languages:  opts.Languages,
		direction:  opts.Direction,
	}

	if c.speech != nil {
		c.speech.OnUpdate(func(u stt.Update) { c.post(msgSpeech{u}) })
		if err := c.speech.SetLanguage(c.source()); err != nil {
			c.logger.Warn("set speech language", "lang", c.source(), "error", err)
		}
	}

	c.publish()
	go c.loop()
	return c, nil
}

// Close stops capture and waits for the event loop to exit. In-flight
// translations and scans are abandoned.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.signal()
	<-c.done
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Mailbox
// ─────────────────────────────────────────────────────────────────────────────

// post enqueues m without blocking. Messages are handled in order.
func (c *Controller) post(m any) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.queue = append(c.queue, m)
	c.mu.Unlock()

	c.signal()
	return true
}

func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// call posts a command and waits for the loop to handle it.
func (c *Controller) call(fn func() error) error {
	reply := make(chan error, 1)
	if !c.post(msgCommand{fn: fn, reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrClosed
	}
}

func (c *Controller) loop() {
	defer close(c.done)

	for range c.wake {
		for {
			c.mu.Lock()
			if len(c.queue) == 0 {
				closed := c.closed
				c.mu.Unlock()
				if closed {
					c.shutdown()
					return
				}
				break
			}
			m := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()

			c.handle(m)
		}
	}
}

func (c *Controller) shutdown() {
	c.stopSpeech()
	c.cancelDebounce()
	c.cancel()

	c.snapMu.Lock()
	for ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.snapMu.Unlock()

	c.logger.Debug("pipeline stopped")
}

// ─────────────────────────────────────────────────────────────────────────────
// Messages
// ─────────────────────────────────────────────────────────────────────────────

type msgCommand struct {
	fn    func() error
	reply chan error
}

type msgSpeech struct {
	update stt.Update
}

type msgScan struct {
	id   uint64
	text string
	err  error
}

type msgSettle struct {
	gen uint64
}

type msgTranslated struct {
	req      types.TranslateRequest
	result   types.TranslateResult
	elapsed  time.Duration
	detected types.LanguageCode
}

func (c *Controller) handle(m any) {
	switch m := m.(type) {
	case msgCommand:
		err := m.fn()
		c.publish()
		m.reply <- err
		return
	case msgSpeech:
		c.onSpeech(m.update)
	case msgScan:
		c.onScan(m)
	case msgSettle:
		c.onSettle(m.gen)
	case msgTranslated:
		c.onTranslated(m)
	default:
		c.logger.Error("unknown message", "type", m)
		return
	}
	c.publish()
}

// fire applies event to the state machine. Invalid transitions are logged
// and leave the state unchanged.
func (c *Controller) fire(event Event) bool {
	next, err := Transition(c.state, event)
	if err != nil {
		c.logger.Debug("transition rejected", "state", c.state, "event", event, "error", err)
		return false
	}
	if next != c.state {
		c.logger.Debug("transition", "from", c.state, "to", next, "event", event)
	}
	c.state = next
	return true
}
