// Package ocr extracts text from images through a pluggable OCR engine.
//
// Every Extract call acquires a fresh worker for the language hint and
// always terminates it, whether initialization, recognition or
// normalization fails.
package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/locale"
)

// Sentinel errors.
var (
	ErrUnavailable = errors.New("ocr: engine unavailable")
	ErrNoText      = errors.New("ocr: no text recognized")
	ErrEmptyImage  = errors.New("ocr: empty image")
	ErrTerminated  = errors.New("ocr: worker terminated")
)

// ExtractionError reports which step of an extraction failed.
type ExtractionError struct {
	Op  string // "read", "init" or "recognize"
	Err error
}

func (e *ExtractionError) Error() string {
	return "ocr " + e.Op + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Worker is a language-bound recognition handle.
type Worker interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	// Terminate releases the worker. It must be safe to call at any point.
	Terminate() error
}

// Engine creates workers for an OCR language model (e.g. "eng", "kor").
type Engine interface {
	Name() string
	Available() bool
	NewWorker(ctx context.Context, model string) (Worker, error)
}

// Extractor runs one OCR job per call.
type Extractor struct {
	engine Engine
	logger *slog.Logger
}

// NewExtractor creates an Extractor. engine may be nil, in which case every
// call fails with ErrUnavailable.
func NewExtractor(engine Engine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{engine: engine, logger: logger.With("component", "ocr")}
}

// Available reports whether an engine is present and usable.
func (x *Extractor) Available() bool {
	return x.engine != nil && x.engine.Available()
}

// Extract recognizes the text in image using the model for hint and returns
// it with whitespace runs collapsed and ends trimmed.
func (x *Extractor) Extract(ctx context.Context, image []byte, hint types.LanguageCode) (string, error) {
	if !x.Available() {
		x.logger.Warn("ocr engine not available")
		return "", ErrUnavailable
	}
	if len(image) == 0 {
		return "", &ExtractionError{Op: "read", Err: ErrEmptyImage}
	}

	model := locale.OCRModel(hint)
	w, err := x.engine.NewWorker(ctx, model)
	if err != nil {
		x.logger.Error("init worker", "model", model, "error", err)
		return "", &ExtractionError{Op: "init", Err: err}
	}
	defer func() {
		if err := w.Terminate(); err != nil {
			x.logger.Warn("terminate worker", "model", model, "error", err)
		}
	}()

	raw, err := w.Recognize(ctx, image)
	if err != nil {
		x.logger.Error("recognize", "model", model, "error", err)
		return "", &ExtractionError{Op: "recognize", Err: err}
	}

	text := Normalize(raw)
	if text == "" {
		return "", &ExtractionError{Op: "recognize", Err: ErrNoText}
	}

	x.logger.Debug("extracted text", "model", model, "chars", len(text))
	return text, nil
}

// Normalize collapses every whitespace run to a single space and trims.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsExtractionError reports whether err is an *ExtractionError.
func IsExtractionError(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}
