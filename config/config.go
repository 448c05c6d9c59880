// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/locale"
)

const (
	appName        = "filipimo"
	configFileName = "config.json"
)

// Translation providers.
const (
	ProviderMyMemory = "mymemory"
	ProviderOpenAI   = "openai"
	ProviderClaude   = "claude"
	ProviderGemini   = "gemini"
)

// Defaults.
const (
	DefaultDebounce       = 800 * time.Millisecond
	DefaultMyMemoryURL    = "https://api.mymemory.translated.net/get"
	DefaultCacheTTL       = 7 * 24 * time.Hour
	DefaultOCRCommand     = "tesseract stdin stdout -l {lang}"
	DefaultSpeechEngine   = "openai-realtime"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultClaudeModel    = "claude-3-5-haiku-latest"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultLLMTemperature = 0.3
	DefaultSystemPrompt   = "You are a professional translator for travelers. Output only the translated text."
)

// Config represents the application configuration.
type Config struct {
	Languages   types.LanguagePair `json:"languages"`
	Direction   types.Direction    `json:"direction"`
	DebounceMS  int                `json:"debounce_ms,omitempty"`
	Translation TranslationConfig  `json:"translation"`
	Cache       CacheConfig        `json:"cache"`
	Speech      SpeechConfig       `json:"speech"`
	OCR         OCRConfig          `json:"ocr"`
	Screenshot  ScreenshotConfig   `json:"screenshot"`
	Synthesis   SynthesisConfig    `json:"synthesis"`
	Hotkeys     HotkeyConfig       `json:"hotkeys"`

	path string
}

// TranslationConfig selects and configures the translation provider.
type TranslationConfig struct {
	Provider       string  `json:"provider"` // "mymemory", "openai", "claude", "gemini"
	BaseURL        string  `json:"base_url,omitempty"`
	Email          string  `json:"email,omitempty"` // MyMemory "de" parameter, raises the daily quota
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
	APIKey         string  `json:"api_key,omitempty"`
	Model          string  `json:"model,omitempty"`
	SystemPrompt   string  `json:"system_prompt,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
}

// CacheConfig controls the on-disk translation cache.
type CacheConfig struct {
	Enabled  bool   `json:"enabled"`
	Dir      string `json:"dir,omitempty"` // Default: <config dir>/filipimo/cache
	TTLHours int    `json:"ttl_hours,omitempty"`
}

// SpeechConfig configures the speech recognition engine.
type SpeechConfig struct {
	Engine string `json:"engine"`
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// OCRConfig configures the OCR engine command. {lang} expands to the model id.
type OCRConfig struct {
	Command string `json:"command"`
}

// ScreenshotConfig configures the screen region capture tool. {path} expands
// to the output file; empty selects the platform default.
type ScreenshotConfig struct {
	Command string `json:"command,omitempty"`
}

// Voice is one entry of the synthesis voice catalog.
type Voice struct {
	Name    string             `json:"name"`
	Lang    types.LanguageCode `json:"lang"`
	Default bool               `json:"default,omitempty"`
}

// SynthesisConfig configures speech synthesis and voice selection.
type SynthesisConfig struct {
	Command   string                                      `json:"command,omitempty"` // {voice} and {lang} are expanded
	Voices    []Voice                                     `json:"voices,omitempty"`
	Policy    []string                                    `json:"policy,omitempty"` // "exact", "fallback", "regional", "default"
	Fallbacks map[types.LanguageCode][]types.LanguageCode `json:"fallbacks,omitempty"`
}

// HotkeyConfig binds global hotkeys to pipeline commands.
type HotkeyConfig struct {
	Enabled         bool     `json:"enabled"`
	ToggleListening []string `json:"toggle_listening,omitempty"`
	Clear           []string `json:"clear,omitempty"`
	ScanScreen      []string `json:"scan_screen,omitempty"`
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, returning defaults if it doesn't exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	if c.path == "" {
		path, err := configPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		c.path = path
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := locale.ValidatePair(c.Languages); err != nil {
		return err
	}
	if c.Direction != types.HomeToForeign && c.Direction != types.ForeignToHome {
		return fmt.Errorf("invalid direction: %q", c.Direction)
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	switch c.Translation.Provider {
	case ProviderMyMemory:
	case ProviderOpenAI, ProviderClaude, ProviderGemini:
		if c.Translation.APIKey == "" {
			return fmt.Errorf("api key required for %s translation", c.Translation.Provider)
		}
	default:
		return fmt.Errorf("unknown translation provider: %q", c.Translation.Provider)
	}
	for _, name := range c.Synthesis.Policy {
		if !validPolicyRule(name) {
			return fmt.Errorf("unknown voice policy rule: %q", name)
		}
	}
	return nil
}

// SetLanguages updates the language pair and saves.
func (c *Config) SetLanguages(p types.LanguagePair) error {
	if err := locale.ValidatePair(p); err != nil {
		return err
	}
	c.Languages = p
	return c.Save()
}

// SetDirection updates the persisted direction and saves.
func (c *Config) SetDirection(d types.Direction) error {
	if d != types.HomeToForeign && d != types.ForeignToHome {
		return fmt.Errorf("invalid direction: %q", d)
	}
	c.Direction = d
	return c.Save()
}

// Debounce returns the settle interval.
func (c *Config) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return DefaultDebounce
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// CacheTTL returns the translation cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLHours <= 0 {
		return DefaultCacheTTL
	}
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// CacheDir returns the translation cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, "cache"), nil
}

// TranslationURL returns the provider endpoint, defaulting MyMemory's.
func (c *Config) TranslationURL() string {
	if c.Translation.BaseURL == "" && c.Translation.Provider == ProviderMyMemory {
		return DefaultMyMemoryURL
	}
	return c.Translation.BaseURL
}

// TranslationTimeout returns the HTTP timeout for translation calls; zero means none.
func (c *Config) TranslationTimeout() time.Duration {
	return time.Duration(c.Translation.TimeoutSeconds) * time.Second
}

// Helper functions

var defaultModels = map[string]string{
	ProviderOpenAI: DefaultLLMModel,
	ProviderClaude: DefaultClaudeModel,
	ProviderGemini: DefaultGeminiModel,
}

func validPolicyRule(name string) bool {
	switch name {
	case "exact", "fallback", "regional", "default":
		return true
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.Direction == "" {
		c.Direction = types.HomeToForeign
	}
	if c.Translation.Provider == "" {
		c.Translation.Provider = ProviderMyMemory
	}
	if c.Translation.Provider != ProviderMyMemory {
		if c.Translation.Model == "" {
			c.Translation.Model = defaultModels[c.Translation.Provider]
		}
		if c.Translation.Temperature == 0 {
			c.Translation.Temperature = DefaultLLMTemperature
		}
		if c.Translation.SystemPrompt == "" {
			c.Translation.SystemPrompt = DefaultSystemPrompt
		}
	}
	if c.Speech.Engine == "" {
		c.Speech.Engine = DefaultSpeechEngine
	}
	if c.OCR.Command == "" {
		c.OCR.Command = DefaultOCRCommand
	}
	if len(c.Synthesis.Policy) == 0 {
		c.Synthesis.Policy = []string{"exact", "fallback", "regional", "default"}
	}
	if c.Synthesis.Fallbacks == nil {
		c.Synthesis.Fallbacks = defaultFallbacks()
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Default returns the default configuration, saved to the user config dir.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	cfg := &Config{
		Languages: types.LanguagePair{
			Home:    types.LangKorean,
			Foreign: types.LangCebuano,
		},
		Cache: CacheConfig{Enabled: true},
		Hotkeys: HotkeyConfig{
			ToggleListening: []string{"space", "ctrl", "shift"},
			Clear:           []string{"backspace", "ctrl", "shift"},
			ScanScreen:      []string{"s", "ctrl", "shift"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// defaultFallbacks lists alternate voices for languages platforms rarely ship.
func defaultFallbacks() map[types.LanguageCode][]types.LanguageCode {
	return map[types.LanguageCode][]types.LanguageCode{
		types.LangCebuano: {"fil-PH", types.LangTagalog},
		types.LangTagalog: {"fil-PH"},
	}
}
