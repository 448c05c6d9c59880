// Package translate turns settled text into a uniform TranslateResult.
//
// A Client never returns an error: provider failures, bad responses and
// transport errors all become a result carrying an Error marker and empty
// text. Empty input short-circuits without touching the provider.
package translate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.aimuz.me/filipimo/cache"
	"go.aimuz.me/filipimo/internal/types"
)

// Provider performs a single remote translation.
type Provider interface {
	// Name identifies the provider in cache keys and results.
	Name() string
	Translate(ctx context.Context, text string, src, dst types.LanguageCode) (string, error)
}

// Client translates text through a Provider with an optional cache in front.
// Zero value is not useful; create via NewClient.
type Client struct {
	provider Provider
	cache    *cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache puts c in front of the provider. A nil cache disables caching.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.ttl = ttl
	}
}

// WithLogger sets the logger used for cache and provider failures.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a Client for p.
func NewClient(p Provider, opts ...Option) *Client {
	c := &Client{
		provider: p,
		ttl:      cache.DefaultTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "translate", "provider", p.Name())
	return c
}

// Provider returns the name of the underlying provider.
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Translate performs one translation attempt. It is safe to call concurrently.
func (c *Client) Translate(ctx context.Context, text string, src, dst types.LanguageCode) types.TranslateResult {
	if strings.TrimSpace(text) == "" {
		return types.TranslateResult{}
	}

	key := cache.GenerateKey(c.provider.Name(), string(src), string(dst), text)
	if result, ok := c.getCached(key); ok {
		return result
	}

	out, err := c.provider.Translate(ctx, text, src, dst)
	if err != nil {
		c.logger.Error("translate failed", "src", src, "dst", dst, "error", err)
		return types.TranslateResult{Error: err.Error(), Provider: c.provider.Name()}
	}

	c.setCache(key, out)
	return types.TranslateResult{Text: out, Provider: c.provider.Name()}
}

func (c *Client) getCached(key string) (types.TranslateResult, bool) {
	if c.cache == nil {
		return types.TranslateResult{}, false
	}

	entry, found := c.cache.Get(key)
	if !found {
		return types.TranslateResult{}, false
	}

	return types.TranslateResult{
		Text:     entry.Text,
		Provider: entry.Provider,
		CacheHit: true,
	}, true
}

func (c *Client) setCache(key, text string) {
	if c.cache == nil || text == "" {
		return
	}

	entry := &cache.Entry{
		Text:      text,
		Provider:  c.provider.Name(),
		CreatedAt: time.Now(),
	}

	// Best effort
	if err := c.cache.Set(key, entry, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}
