// Package stt provides the continuous speech recognition session and the
// engine capability interfaces it drives.
package stt

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.aimuz.me/filipimo/internal/types"
)

// EventKind discriminates recognizer events.
type EventKind int

const (
	// EventResult carries an interim or final recognition result.
	EventResult EventKind = iota
	// EventError reports an engine failure. The recognizer stops.
	EventError
	// EventEnd reports that recognition ended naturally.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Result is a recognition result. Results with the same ID replace each
// other; a Final result is not revised again.
type Result struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Event is emitted by a running Recognizer.
type Event struct {
	Kind   EventKind
	Result Result
	Err    error
}

// Recognizer is a language-bound recognition handle.
type Recognizer interface {
	// Start begins continuous recognition. The returned channel is closed
	// when recognition ends for any reason.
	Start(ctx context.Context) (<-chan Event, error)

	// Stop requests the end of recognition. Safe to call when not running.
	Stop() error

	// Close releases the handle.
	Close() error
}

// Engine creates recognizers.
type Engine interface {
	// Name returns the engine identifier.
	Name() string

	// Available reports whether the engine can be used on this host.
	Available() bool

	// Open acquires a recognizer for lang.
	Open(lang types.LanguageCode) (Recognizer, error)

	// Close releases resources held by the engine.
	Close() error
}

// Registry holds registered speech engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates a new engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an engine to the registry, replacing any with the same name.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// Get returns an engine by name, or nil.
func (r *Registry) Get(name string) Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engines[name]
}

// List returns all registered engines ordered by name.
func (r *Registry) List() []Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Engine, 0, len(r.engines))
	for _, e := range r.engines {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Close releases all engines.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, e := range r.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
