// Package audiocapture provides microphone capture for streaming speech engines.
package audiocapture

import "errors"

// Sentinel errors.
var (
	ErrRunning     = errors.New("audiocapture: already running")
	ErrNilHandler  = errors.New("audiocapture: nil handler")
	ErrUnsupported = errors.New("audiocapture: no input device")
)

// AudioHandler receives mono float32 samples in [-1, 1]. The slice is only
// valid for the duration of the call.
type AudioHandler func(samples []float32)

// Capturer streams microphone audio to a handler.
type Capturer interface {
	// Start begins capture. Returns ErrRunning if already started.
	Start(handler AudioHandler) error
	// Stop ends capture. Safe to call when not running.
	Stop() error
	// SampleRate is the rate of the samples passed to the handler.
	SampleRate() int
}

// Upmix duplicates mono samples into interleaved stereo, reusing dst when
// it has enough capacity.
func Upmix(dst, mono []float32) []float32 {
	n := len(mono) * 2
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i, s := range mono {
		dst[2*i] = s
		dst[2*i+1] = s
	}
	return dst
}
