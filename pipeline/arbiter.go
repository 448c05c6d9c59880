package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/stt"
)

// onSpeech applies a speech session update. Updates of runs the controller
// no longer accepts are dropped.
func (c *Controller) onSpeech(u stt.Update) {
	if u.Run == 0 || u.Run != c.speechRun || c.state != types.StateCapturingSpeech {
		c.logger.Debug("dropping stale speech update", "run", u.Run, "current", c.speechRun)
		return
	}

	if !u.Listening {
		c.speechRun = 0
		if u.Err != nil {
			c.lastErr = u.Err.Error()
		}
		c.endSpeech(&u.Transcript)
		return
	}

	if u.Transcript == c.input {
		return
	}
	c.fire(EventTranscript)
	if strings.TrimSpace(u.Transcript) == "" {
		// The recognizer retracted everything heard so far.
		c.resetInput()
		return
	}
	c.input = u.Transcript
	c.restartDebounce()
}

// endSpeech leaves speech capture, keeping transcript (or the current input
// when nil) as the canonical text.
func (c *Controller) endSpeech(transcript *string) {
	if transcript != nil && *transcript != c.input {
		c.input = *transcript
		if c.input != "" {
			c.restartDebounce()
		}
	}

	if strings.TrimSpace(c.input) == "" {
		c.resetInput()
		c.channel = types.ChannelIdle
		c.fire(EventClear)
		return
	}

	c.fire(EventSpeechEnd)
	if c.inFlight {
		c.fire(EventPending)
	}
}

func (c *Controller) onScan(m msgScan) {
	if m.id != c.scanID || c.state != types.StateCapturingScan {
		c.logger.Debug("dropping stale scan result", "scan", m.id, "current", c.scanID)
		return
	}
	c.scanning = false

	if m.err == nil && strings.TrimSpace(m.text) == "" {
		m.err = ErrNoScanText
	}
	if m.err != nil {
		c.inst.scanFailed(c.ctx)
		c.logger.Error("scan failed", "scan", m.id, "error", m.err)
		c.resetInput()
		c.lastErr = m.err.Error()
		c.channel = types.ChannelIdle
		c.fire(EventScanFailed)
		return
	}

	c.input = m.text
	c.fire(EventScanDone)
	c.restartDebounce()
}

// ─────────────────────────────────────────────────────────────────────────────
// Debounce
// ─────────────────────────────────────────────────────────────────────────────

// restartDebounce resets the settle timer. A settle message from an earlier
// generation is ignored.
func (c *Controller) restartDebounce() {
	c.settleGen++
	gen := c.settleGen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.post(msgSettle{gen: gen})
	})
}

func (c *Controller) cancelDebounce() {
	c.settleGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) onSettle(gen uint64) {
	if gen != c.settleGen {
		return
	}
	c.timer = nil

	text := c.input
	if strings.TrimSpace(text) == "" {
		return
	}
	if !c.fire(EventSettle) {
		return
	}

	c.seq++
	c.inFlight = true
	req := types.TranslateRequest{
		ID:         uuid.NewString(),
		Seq:        c.seq,
		Text:       text,
		SourceLang: c.source(),
		TargetLang: c.target(),
	}

	c.inst.issued(c.ctx, req)
	c.logger.Debug("translation issued", "seq", req.Seq, "id", req.ID, "src", req.SourceLang, "dst", req.TargetLang)

	go c.runTranslation(req, c.languages)
}

// runTranslation translates req off the loop. Language detection runs here
// too since the detector loads its models on first use.
func (c *Controller) runTranslation(req types.TranslateRequest, pair types.LanguagePair) {
	ctx, span := c.inst.tracer.Start(c.ctx, "pipeline.translate", trace.WithAttributes(
		attribute.String("request.id", req.ID),
		attribute.Int64("request.seq", int64(req.Seq)),
		attribute.String("source", string(req.SourceLang)),
		attribute.String("target", string(req.TargetLang)),
	))
	defer span.End()

	start := time.Now()
	result := c.translator.Translate(ctx, req.Text, req.SourceLang, req.TargetLang)
	if result.Failed() {
		span.SetStatus(codes.Error, result.Error)
	}
	span.SetAttributes(attribute.Bool("cache.hit", result.CacheHit))

	elapsed := time.Since(start)

	var detected types.LanguageCode
	if c.detect != nil {
		detected, _ = c.detect(req.Text, pair.Home, pair.Foreign)
	}

	c.post(msgTranslated{req: req, result: result, elapsed: elapsed, detected: detected})
}

func (c *Controller) onTranslated(m msgTranslated) {
	if !c.inFlight || m.req.Seq != c.seq {
		c.inst.stale(c.ctx, m.req)
		c.logger.Debug("dropping stale translation", "seq", m.req.Seq, "latest", c.seq)
		return
	}
	c.inFlight = false
	c.detected = m.detected
	c.inst.completed(c.ctx, m.req, m.result, m.elapsed)

	if m.result.Failed() {
		c.logger.Warn("translation failed", "seq", m.req.Seq, "error", m.result.Error)
		c.translated = ""
	} else {
		c.translated = m.result.Text
	}
	c.fire(EventTranslated)
}
