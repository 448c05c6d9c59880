// Package hotkey binds global keyboard shortcuts to application actions.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
	"github.com/vcaesar/keycode"
)

// RepeatInterval suppresses key-repeat presses of a held shortcut.
const RepeatInterval = 300 * time.Millisecond

// Sentinel errors.
var (
	ErrRunning    = errors.New("hotkey: already running")
	ErrNoKey      = errors.New("hotkey: combination has no key")
	ErrUnknownKey = errors.New("hotkey: unknown key")
)

var modifiers = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"cmd":     "cmd",
	"command": "cmd",
	"super":   "cmd",
}

// Normalize turns a combination such as ["Ctrl", "Shift", "Space"] or
// ["ctrl+shift+space"] into gohook order: the key first, then modifiers.
func Normalize(combo []string) ([]string, error) {
	var (
		key  string
		mods []string
		seen = make(map[string]bool)
	)
	for _, part := range combo {
		for _, k := range strings.Split(part, "+") {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			if mod, ok := modifiers[k]; ok {
				if !seen[mod] {
					seen[mod] = true
					mods = append(mods, mod)
				}
				continue
			}
			if key != "" {
				return nil, fmt.Errorf("hotkey: %q has more than one key", strings.Join(combo, "+"))
			}
			if _, ok := keycode.Keycode[k]; !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownKey, k)
			}
			key = k
		}
	}
	if key == "" {
		return nil, ErrNoKey
	}
	return append([]string{key}, mods...), nil
}

type binding struct {
	name   string
	keys   []string
	action func()
	guard  *repeatGuard
}

// Manager owns the global keyboard hook.
type Manager struct {
	logger *slog.Logger

	mu       sync.Mutex
	bindings []*binding
	running  bool
	done     chan struct{}
}

// New creates a Manager.
func New(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger.With("component", "hotkey")}
}

// Bind registers action for combo. Bindings take effect on the next Start.
func (m *Manager) Bind(name string, combo []string, action func()) error {
	keys, err := Normalize(combo)
	if err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings = append(m.bindings, &binding{
		name:   name,
		keys:   keys,
		action: action,
		guard:  newRepeatGuard(RepeatInterval, time.Now),
	})
	return nil
}

// Start installs the hook and dispatches key presses until Stop.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrRunning
	}

	for _, b := range m.bindings {
		hook.Register(hook.KeyDown, b.keys, func(hook.Event) {
			if !b.guard.allow() {
				return
			}
			m.logger.Debug("hotkey pressed", "name", b.name, "keys", strings.Join(b.keys, "+"))
			go b.action()
		})
		m.logger.Info("hotkey registered", "name", b.name, "keys", strings.Join(b.keys, "+"))
	}

	events := hook.Start()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-hook.Process(events)
	}()

	m.running = true
	m.done = done
	return nil
}

// Stop removes the hook. It is safe to call when not running.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.done
	m.mu.Unlock()

	hook.End()
	select {
	case <-done:
	case <-time.After(time.Second):
		m.logger.Warn("hotkey hook did not stop in time")
	}
}

// repeatGuard admits one press per interval.
type repeatGuard struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

func newRepeatGuard(interval time.Duration, now func() time.Time) *repeatGuard {
	return &repeatGuard{interval: interval, now: now}
}

func (g *repeatGuard) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.now()
	if !g.last.IsZero() && t.Sub(g.last) < g.interval {
		return false
	}
	g.last = t
	return true
}
