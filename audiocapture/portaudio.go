package audiocapture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	// DefaultSampleRate matches the Opus clock rate used by WebRTC.
	DefaultSampleRate = 48000
	// FramesPerBuffer is 20ms at 48kHz, one Opus frame.
	FramesPerBuffer = 960
)

// PortAudio captures the default input device.
type PortAudio struct {
	sampleRate int
	frames     int

	mu      sync.Mutex
	stream  *portaudio.Stream
	handler AudioHandler
	running bool
}

// New creates a PortAudio capturer. sampleRate <= 0 selects DefaultSampleRate.
// The frame count scales so each callback carries 20ms of audio.
func New(sampleRate int) *PortAudio {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &PortAudio{
		sampleRate: sampleRate,
		frames:     sampleRate / 50,
	}
}

// SampleRate implements Capturer.
func (p *PortAudio) SampleRate() int { return p.sampleRate }

// Start implements Capturer.
func (p *PortAudio) Start(handler AudioHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrRunning
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	if _, err := portaudio.DefaultInputDevice(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	p.handler = handler
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(p.sampleRate), p.frames, p.process)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start stream: %w", err)
	}

	p.stream = stream
	p.running = true
	slog.Debug("audio capture started", "sampleRate", p.sampleRate, "frames", p.frames)
	return nil
}

// process runs on the PortAudio callback thread.
func (p *PortAudio) process(in []float32) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()

	if h != nil {
		h(in)
	}
}

// Stop implements Capturer.
func (p *PortAudio) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stream := p.stream
	p.stream = nil
	p.handler = nil
	p.mu.Unlock()

	var err error
	if stream != nil {
		if stopErr := stream.Stop(); stopErr != nil {
			err = fmt.Errorf("stop stream: %w", stopErr)
		}
		stream.Close()
	}
	portaudio.Terminate()
	return err
}
