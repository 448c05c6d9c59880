package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/filipimo/cache"
	"go.aimuz.me/filipimo/config"
	"go.aimuz.me/filipimo/hotkey"
	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/langdetect"
	"go.aimuz.me/filipimo/locale"
	"go.aimuz.me/filipimo/pipeline"
	"go.aimuz.me/filipimo/screenshot"
	"go.aimuz.me/filipimo/stt"
	"go.aimuz.me/filipimo/tts"
)

// ErrNotReady is returned by commands issued before Init.
var ErrNotReady = errors.New("app: service not initialized")

// Service provides application functionality bound to Wails.
// This struct focuses on orchestration; the pipeline owns all text state.
type Service struct {
	cfg    *config.Config
	cache  *cache.Cache
	hotkey *hotkey.Manager

	// UI references - set via Init
	app    *application.App
	window application.Window
	emitFn func(name string, data any)

	engines *stt.Registry
	speech  *stt.Session
	speaker *tts.Adapter
	shots   *screenshot.Capturer
	ctrl    *pipeline.Controller

	stopForward func()
	forwardDone chan struct{}

	cfgMu    sync.Mutex
	shutdown sync.Once

	// Version info (set by caller)
	version string
}

// New creates a new Service. Call Init() after Wails app is created.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init initializes the service with app and window references.
// Must be called after Wails application is created.
func (s *Service) Init(app *application.App, window application.Window) {
	s.app = app
	s.window = window
	s.emitFn = func(name string, data any) {
		if s.app != nil {
			s.app.Event.Emit(name, data)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = config.Default()
	}

	if err := s.start(cfg); err != nil {
		slog.Error("start pipeline", "error", err)
		return
	}
	s.setupHotkey()
}

// start builds the engines and the pipeline from cfg.
func (s *Service) start(cfg *config.Config) error {
	s.cfg = cfg
	logger := slog.Default()

	s.cache = openCache(cfg)
	translator := newTranslator(cfg, s.cache, logger)

	source := cfg.Languages.Source(cfg.Direction)
	s.engines, s.speech = newSpeech(cfg, source, logger)
	s.speaker = newSpeaker(cfg, logger)
	s.shots = newScreenshot(cfg)

	ctrl, err := pipeline.New(pipeline.Options{
		Languages:  cfg.Languages,
		Direction:  cfg.Direction,
		Debounce:   cfg.Debounce(),
		Speech:     s.speech,
		Extractor:  newExtractor(cfg, logger),
		Translator: translator,
		Speaker:    s.speaker,
		Detect:     langdetect.Detect,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	s.ctrl = ctrl

	snapshots, cancel := ctrl.Subscribe()
	s.stopForward = cancel
	s.forwardDone = make(chan struct{})
	go s.forward(snapshots)

	slog.Info("pipeline started",
		"home", cfg.Languages.Home,
		"foreign", cfg.Languages.Foreign,
		"direction", cfg.Direction,
		"speech", s.speech.Available(),
		"speaker", s.speaker.Available())
	return nil
}

// forward emits every published snapshot until the subscription closes.
func (s *Service) forward(snapshots <-chan types.Snapshot) {
	defer close(s.forwardDone)
	for snap := range snapshots {
		s.emit(EventPipelineState, snap)
	}
}

// Shutdown cleans up resources. Calls after the first are no-ops.
func (s *Service) Shutdown() {
	s.shutdown.Do(s.close)
}

func (s *Service) close() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	if s.ctrl != nil {
		if err := s.ctrl.Close(); err != nil {
			slog.Error("close pipeline", "error", err)
		}
		s.stopForward()
		<-s.forwardDone
	}
	if s.speaker != nil {
		s.speaker.Close()
	}
	if s.speech != nil {
		if err := s.speech.Close(); err != nil {
			slog.Error("close speech session", "error", err)
		}
	}
	if s.engines != nil {
		if err := s.engines.Close(); err != nil {
			slog.Error("close speech engines", "error", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
}

func (s *Service) setupHotkey() {
	if !s.cfg.Hotkeys.Enabled {
		return
	}
	s.hotkey = hotkey.New(slog.Default())

	bindings := []struct {
		name   string
		combo  []string
		action func() error
	}{
		{"toggle-listening", s.cfg.Hotkeys.ToggleListening, s.ToggleListening},
		{"clear", s.cfg.Hotkeys.Clear, s.Clear},
		{"scan-screen", s.cfg.Hotkeys.ScanScreen, s.ScanScreen},
	}
	for _, b := range bindings {
		if len(b.combo) == 0 {
			continue
		}
		action := b.action
		name := b.name
		err := s.hotkey.Bind(name, b.combo, func() {
			if err := action(); err != nil {
				slog.Warn("hotkey action", "name", name, "error", err)
				s.emit(EventAppError, AppError{Action: name, Message: err.Error()})
			}
		})
		if err != nil {
			slog.Error("bind hotkey", "name", name, "error", err)
		}
	}

	if err := s.hotkey.Start(); err != nil {
		slog.Error("start hotkey", "error", err)
	}
}

// emit is a safe wrapper around app.Event.Emit
func (s *Service) emit(name string, data any) {
	if s.emitFn != nil {
		s.emitFn(name, data)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline State
// ─────────────────────────────────────────────────────────────────────────────

// GetState returns the current pipeline snapshot.
func (s *Service) GetState() types.Snapshot {
	if s.ctrl == nil {
		return types.Snapshot{}
	}
	return s.ctrl.Snapshot()
}

// GetLanguageOptions returns the selectable languages.
func (s *Service) GetLanguageOptions() []types.LanguageOption {
	return locale.Options()
}

// ─────────────────────────────────────────────────────────────────────────────
// Speech
// ─────────────────────────────────────────────────────────────────────────────

// StartListening starts speech capture in the source language.
func (s *Service) StartListening() error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	return s.ctrl.StartListening()
}

// StopListening stops speech capture and keeps the transcript.
func (s *Service) StopListening() error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	return s.ctrl.StopListening()
}

// ToggleListening starts or stops speech capture.
func (s *Service) ToggleListening() error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	return s.ctrl.ToggleListening()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

// ScanImage extracts text from an encoded image (e.g. a camera photo).
func (s *Service) ScanImage(image []byte) error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	return s.ctrl.SubmitImage(image)
}

// ScanScreen lets the user select a screen region and scans it.
func (s *Service) ScanScreen() error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	if s.shots == nil || !s.shots.Available() {
		return screenshot.ErrUnsupported
	}

	if s.window != nil {
		s.window.Hide()
	}
	time.Sleep(100 * time.Millisecond)

	image, err := s.shots.Capture(context.Background())
	s.showWindow()
	if errors.Is(err, screenshot.ErrCancelled) {
		slog.Info("screen scan cancelled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("capture screen: %w", err)
	}
	return s.ctrl.SubmitImage(image)
}

func (s *Service) showWindow() {
	if s.window != nil {
		s.window.Show()
		s.window.Focus()
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Languages
// ─────────────────────────────────────────────────────────────────────────────

// SetDirection sets which language of the pair is spoken or scanned.
func (s *Service) SetDirection(d types.Direction) error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	if err := s.ctrl.SetDirection(d); err != nil {
		return err
	}
	return s.persist()
}

// ToggleDirection swaps source and target language.
func (s *Service) ToggleDirection() error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	if err := s.ctrl.ToggleDirection(); err != nil {
		return err
	}
	return s.persist()
}

// SetForeignLanguage selects the language of the visited country. lang
// may be any spelling locale.Parse accepts ("tl", "ceb_PH", "ko-KR").
func (s *Service) SetForeignLanguage(lang string) error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	code, err := locale.Parse(lang)
	if err != nil {
		return err
	}
	if err := s.ctrl.SetForeignLanguage(code); err != nil {
		return err
	}
	return s.persist()
}

// persist saves the controller's languages and direction.
func (s *Service) persist() error {
	snap := s.ctrl.Snapshot()

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if snap.Languages == s.cfg.Languages && snap.Direction == s.cfg.Direction {
		return nil
	}
	s.cfg.Languages = snap.Languages
	if err := s.cfg.SetDirection(snap.Direction); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

// Speak reads the current translation aloud.
func (s *Service) Speak() error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	return s.ctrl.Speak()
}

// CopyTranslation puts the current translation on the clipboard.
func (s *Service) CopyTranslation() error {
	text := s.GetState().TranslatedText
	if text == "" {
		return nil
	}
	if s.app == nil {
		return ErrNotReady
	}
	if !s.app.Clipboard.SetText(text) {
		return errors.New("app: set clipboard text failed")
	}
	return nil
}

// Clear resets input, translation and capture.
func (s *Service) Clear() error {
	if s.ctrl == nil {
		return ErrNotReady
	}
	return s.ctrl.Clear()
}
