package app

import (
	"log/slog"

	"go.aimuz.me/filipimo/audiocapture"
	"go.aimuz.me/filipimo/cache"
	"go.aimuz.me/filipimo/config"
	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/ocr"
	"go.aimuz.me/filipimo/screenshot"
	"go.aimuz.me/filipimo/stt"
	"go.aimuz.me/filipimo/stt/realtime"
	"go.aimuz.me/filipimo/translate"
	"go.aimuz.me/filipimo/tts"
)

func openCache(cfg *config.Config) *cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		slog.Error("get cache dir", "error", err)
		return nil
	}
	c, err := cache.New(dir)
	if err != nil {
		slog.Error("init cache", "error", err)
		return nil
	}
	slog.Info("cache initialized", "path", dir)
	return c
}

func newTranslator(cfg *config.Config, c *cache.Cache, logger *slog.Logger) *translate.Client {
	llmOpts := translate.LLMOptions{
		APIKey:       cfg.Translation.APIKey,
		BaseURL:      cfg.Translation.BaseURL,
		Model:        cfg.Translation.Model,
		SystemPrompt: cfg.Translation.SystemPrompt,
		Temperature:  cfg.Translation.Temperature,
	}

	var p translate.Provider
	switch cfg.Translation.Provider {
	case config.ProviderOpenAI:
		p = translate.NewLLM(llmOpts)
	case config.ProviderClaude:
		p = translate.NewClaude(llmOpts, cfg.TranslationTimeout())
	case config.ProviderGemini:
		p = translate.NewGemini(llmOpts, cfg.TranslationTimeout())
	default:
		p = translate.NewMyMemory(cfg.TranslationURL(), cfg.Translation.Email, cfg.TranslationTimeout())
	}

	opts := []translate.Option{translate.WithLogger(logger)}
	if c != nil {
		opts = append(opts, translate.WithCache(c, cfg.CacheTTL()))
	}
	client := translate.NewClient(p, opts...)
	slog.Info("translation provider", "name", client.Provider())
	return client
}

func newSpeech(cfg *config.Config, lang types.LanguageCode, logger *slog.Logger) (*stt.Registry, *stt.Session) {
	registry := stt.NewRegistry()
	registry.Register(realtime.NewEngine(realtime.Config{
		APIKey: cfg.Speech.APIKey,
		Model:  cfg.Speech.Model,
		Prompt: cfg.Speech.Prompt,
		NewCapturer: func() audiocapture.Capturer {
			return audiocapture.New(audiocapture.DefaultSampleRate)
		},
	}))

	engine := registry.Get(cfg.Speech.Engine)
	if engine == nil {
		slog.Warn("speech engine not found", "engine", cfg.Speech.Engine)
	} else if !engine.Available() {
		slog.Warn("speech engine unavailable", "engine", engine.Name())
	}
	return registry, stt.NewSession(engine, lang, logger)
}

func newExtractor(cfg *config.Config, logger *slog.Logger) *ocr.Extractor {
	engine, err := ocr.NewTesseract(cfg.OCR.Command)
	if err != nil {
		slog.Error("init ocr engine", "error", err)
		return ocr.NewExtractor(nil, logger)
	}
	if !engine.Available() {
		slog.Warn("ocr engine not installed", "command", cfg.OCR.Command)
	}
	return ocr.NewExtractor(engine, logger)
}

func newSpeaker(cfg *config.Config, logger *slog.Logger) *tts.Adapter {
	policy, err := tts.ParsePolicy(cfg.Synthesis.Policy, cfg.Synthesis.Fallbacks)
	if err != nil {
		slog.Warn("invalid voice policy, using default", "error", err)
		policy = tts.DefaultPolicy(cfg.Synthesis.Fallbacks)
	}

	voices := make([]tts.Voice, 0, len(cfg.Synthesis.Voices))
	for _, v := range cfg.Synthesis.Voices {
		voices = append(voices, tts.Voice(v))
	}

	engine, err := tts.NewExec(cfg.Synthesis.Command, voices)
	if err != nil {
		slog.Error("init speech synthesis", "error", err)
		return tts.NewAdapter(nil, policy, logger)
	}
	return tts.NewAdapter(engine, policy, logger)
}

func newScreenshot(cfg *config.Config) *screenshot.Capturer {
	c, err := screenshot.New(cfg.Screenshot.Command)
	if err != nil {
		slog.Warn("screen scan disabled", "error", err)
		return nil
	}
	return c
}
