package pipeline

import (
	"go.aimuz.me/filipimo/internal/types"
)

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() types.Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Subscribe returns a channel receiving every published snapshot, latest
// wins: a slow reader only ever misses intermediate states. The channel is
// closed by cancel or by Close.
func (c *Controller) Subscribe() (<-chan types.Snapshot, func()) {
	ch := make(chan types.Snapshot, 1)

	c.snapMu.Lock()
	if c.subs == nil {
		c.snapMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	ch <- c.snap
	c.snapMu.Unlock()

	cancel := func() {
		c.snapMu.Lock()
		defer c.snapMu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// publish builds a snapshot from loop-owned state and fans it out.
func (c *Controller) publish() {
	s := types.Snapshot{
		State:           c.state,
		Channel:         c.channel,
		IsListening:     c.state == types.StateCapturingSpeech,
		IsScanning:      c.scanning,
		IsTranslating:   c.inFlight,
		InputText:       c.input,
		TranslatedText:  c.translated,
		Direction:       c.direction,
		Languages:       c.languages,
		SourceLang:      c.source(),
		TargetLang:      c.target(),
		DetectedLang:    c.detected,
		Error:           c.lastErr,
		SpeechAvailable: c.speech != nil && c.speech.Available(),
		ScanAvailable:   c.extractor != nil && c.extractor.Available(),
		LastSeq:         c.seq,
	}

	c.snapMu.Lock()
	defer c.snapMu.Unlock()

	if s == c.snap {
		return
	}
	c.snap = s
	for ch := range c.subs {
		select {
		case ch <- s:
		default:
			// Drop the stale snapshot and replace it.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
