package pipeline

import (
	"errors"
	"fmt"

	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/locale"
	"go.aimuz.me/filipimo/stt"
)

// StartListening begins a speech capture. Scan text is discarded and the
// translation cleared. Unavailable or already-running speech engines are a
// no-op; the returned error says which.
func (c *Controller) StartListening() error {
	return c.call(c.startListening)
}

// StopListening ends the speech capture and keeps its transcript as input.
func (c *Controller) StopListening() error {
	return c.call(func() error {
		if c.state != types.StateCapturingSpeech {
			return nil
		}
		c.stopSpeech()
		c.endSpeech(nil)
		return nil
	})
}

// ToggleListening starts or stops listening.
func (c *Controller) ToggleListening() error {
	return c.call(func() error {
		if c.state == types.StateCapturingSpeech {
			c.stopSpeech()
			c.endSpeech(nil)
			return nil
		}
		return c.startListening()
	})
}

// SubmitImage scans image for text. An active speech capture is stopped
// first and its transcript discarded.
func (c *Controller) SubmitImage(image []byte) error {
	return c.call(func() error { return c.submitImage(image) })
}

// SetDirection sets which language of the pair is the source.
func (c *Controller) SetDirection(d types.Direction) error {
	if d != types.HomeToForeign && d != types.ForeignToHome {
		return fmt.Errorf("invalid direction %q", d)
	}
	return c.call(func() error {
		if d == c.direction {
			return nil
		}
		c.retarget(c.languages, d)
		return nil
	})
}

// ToggleDirection swaps source and target.
func (c *Controller) ToggleDirection() error {
	return c.call(func() error {
		c.retarget(c.languages, c.direction.Flip())
		return nil
	})
}

// SetForeignLanguage changes the foreign language of the pair.
func (c *Controller) SetForeignLanguage(lang types.LanguageCode) error {
	return c.call(func() error {
		pair := types.LanguagePair{Home: c.languages.Home, Foreign: lang}
		if err := validatePair(pair); err != nil {
			return err
		}
		if pair == c.languages {
			return nil
		}
		c.retarget(pair, c.direction)
		return nil
	})
}

// Speak reads the current translation aloud in the target language.
func (c *Controller) Speak() error {
	return c.call(func() error {
		if c.speaker == nil || c.translated == "" {
			return nil
		}
		c.speaker.Speak(c.translated, c.target())
		return nil
	})
}

// Clear empties input and translation, stops capture and returns to idle.
func (c *Controller) Clear() error {
	return c.call(func() error {
		c.stopSpeech()
		c.resetInput()
		c.scanID++
		c.scanning = false
		c.lastErr = ""
		c.channel = types.ChannelIdle
		c.fire(EventClear)
		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Command bodies (loop goroutine)
// ─────────────────────────────────────────────────────────────────────────────

func (c *Controller) startListening() error {
	if c.speech == nil || !c.speech.Available() {
		c.logger.Warn("start listening ignored, speech unavailable")
		return stt.ErrUnavailable
	}
	if c.state == types.StateCapturingSpeech {
		return nil
	}

	run, err := c.speech.Start(c.ctx)
	if err != nil {
		if errors.Is(err, stt.ErrAlreadyListening) {
			c.logger.Debug("start listening ignored", "error", err)
		} else {
			c.logger.Error("start listening", "error", err)
		}
		return err
	}

	c.scanning = false
	c.scanID++
	c.resetInput()
	c.lastErr = ""
	c.speechRun = run
	c.channel = types.ChannelSpeech
	c.fire(EventStartSpeech)
	return nil
}

func (c *Controller) submitImage(image []byte) error {
	if c.extractor == nil || !c.extractor.Available() {
		c.logger.Warn("scan ignored, ocr unavailable")
		return ErrScanUnavailable
	}

	c.stopSpeech()
	c.resetInput()
	c.lastErr = ""
	c.scanID++
	c.scanning = true
	c.channel = types.ChannelScan
	c.fire(EventStartScan)

	id := c.scanID
	hint := c.source()
	c.logger.Info("scan started", "scan", id, "hint", hint, "bytes", len(image))

	go func() {
		text, err := c.extractor.Extract(c.ctx, image, hint)
		c.post(msgScan{id: id, text: text, err: err})
	}()
	return nil
}

// retarget switches to pair and d. The speech session follows the new
// source language; a running capture is stopped first. Non-empty input is
// translated again after a fresh debounce.
func (c *Controller) retarget(pair types.LanguagePair, d types.Direction) {
	oldSource := c.source()

	if c.state == types.StateCapturingSpeech {
		c.stopSpeech()
		c.endSpeech(nil)
	}

	c.languages = pair
	c.direction = d

	if src := c.source(); src != oldSource && c.speech != nil {
		if err := c.speech.SetLanguage(src); err != nil {
			c.logger.Warn("set speech language", "lang", src, "error", err)
		}
	}

	c.logger.Info("languages changed", "source", c.source(), "target", c.target())

	if c.input == "" || c.state == types.StateCapturingScan {
		return
	}
	c.invalidateTranslation()
	c.translated = ""
	c.fire(EventRetarget)
	c.restartDebounce()
}

// stopSpeech stops the session and stops accepting its updates.
func (c *Controller) stopSpeech() {
	if c.speechRun == 0 {
		return
	}
	c.speechRun = 0
	if err := c.speech.Stop(); err != nil {
		c.logger.Warn("stop listening", "error", err)
	}
}

// resetInput clears canonical and translated text and abandons pending work.
func (c *Controller) resetInput() {
	c.cancelDebounce()
	c.invalidateTranslation()
	c.input = ""
	c.translated = ""
	c.detected = ""
}

func (c *Controller) invalidateTranslation() {
	c.inFlight = false
}

func (c *Controller) source() types.LanguageCode { return c.languages.Source(c.direction) }
func (c *Controller) target() types.LanguageCode { return c.languages.Target(c.direction) }

func validatePair(p types.LanguagePair) error {
	if err := locale.ValidatePair(p); err != nil {
		return fmt.Errorf("invalid language pair: %w", err)
	}
	return nil
}
