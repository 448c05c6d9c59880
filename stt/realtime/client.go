package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	opuscodec "github.com/jj11hh/opus"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Sentinel errors.
var (
	ErrNotReady = errors.New("realtime: client not ready")
	ErrClosed   = errors.New("realtime: client closed")
)

const (
	opusSampleRate = 48000
	opusChannels   = 2
	maxOpusPacket  = 1275
)

// Client carries microphone audio to the Realtime API over WebRTC and
// receives transcription events on the data channel.
type Client struct {
	// ─── Hot path (audio encoding) ───────────────────────────────────────────
	opusEncoder *opuscodec.Encoder
	audioTrack  *webrtc.TrackLocalStaticSample
	opusBuffer  []byte

	// ─── Synchronization ─────────────────────────────────────────────────────
	mu     sync.Mutex
	closed bool

	// ─── Cold path (connection state) ────────────────────────────────────────
	apiKey         string
	endpoint       string
	sessionCfg     SessionConfig
	peerConnection *webrtc.PeerConnection
	msgChan        chan Event
	errChan        chan error
	done           chan struct{}
}

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	APIKey   string
	Endpoint string // SDP exchange endpoint; empty for CallsEndpoint
	Session  SessionConfig
}

// NewClient creates a new WebRTC Realtime client.
func NewClient(cfg ClientConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = CallsEndpoint
	}
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		sessionCfg: cfg.Session,
		msgChan:    make(chan Event, 100),
		errChan:    make(chan error, 1),
		done:       make(chan struct{}),
		opusBuffer: make([]byte, maxOpusPacket),
	}
}

// Connect creates a transcription session and establishes the peer connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	token, err := CreateSession(ctx, c.apiKey, c.sessionCfg)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	slog.Debug("transcription session created", "expires", time.Unix(token.ExpiresAt, 0))

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return fmt.Errorf("register codecs: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}

	if err := c.setup(pc); err != nil {
		pc.Close()
		return err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-webrtc.GatheringCompletePromise(pc):
	case <-ctx.Done():
		pc.Close()
		return ctx.Err()
	}

	answer, err := ExchangeSDP(ctx, c.endpoint, pc.LocalDescription().SDP, token.Value)
	if err != nil {
		pc.Close()
		return fmt.Errorf("exchange SDP: %w", err)
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		pc.Close()
		return fmt.Errorf("set remote description: %w", err)
	}

	return nil
}

func (c *Client) setup(pc *webrtc.PeerConnection) error {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: opusSampleRate,
			Channels:  opusChannels,
		},
		"audio",
		"filipimo-mic",
	)
	if err != nil {
		return fmt.Errorf("create audio track: %w", err)
	}

	if _, err := pc.AddTrack(track); err != nil {
		return fmt.Errorf("add audio track: %w", err)
	}

	enc, err := opuscodec.NewEncoder(opusSampleRate, opusChannels, opuscodec.AppRestrictedLowdelay)
	if err != nil {
		return fmt.Errorf("create opus encoder: %w", err)
	}

	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	dc.OnOpen(func() { slog.Debug("data channel opened") })
	dc.OnMessage(c.handleDataMessage)

	// No audio comes back for transcription sessions; drain anyway.
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := track.Read(buf); err != nil {
					return
				}
			}
		}()
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		if state == webrtc.ICEConnectionStateFailed || state == webrtc.ICEConnectionStateDisconnected {
			c.sendError(fmt.Errorf("ICE connection %s", state.String()))
		}
	})

	c.mu.Lock()
	c.peerConnection = pc
	c.audioTrack = track
	c.opusEncoder = enc
	c.mu.Unlock()
	return nil
}

func (c *Client) handleDataMessage(msg webrtc.DataChannelMessage) {
	event, err := ParseEvent(msg.Data)
	if err != nil {
		slog.Warn("failed to parse event", "error", err)
		return
	}

	select {
	case c.msgChan <- event:
	case <-c.done:
	case <-time.After(50 * time.Millisecond):
		slog.Warn("msg channel full", "type", event.eventType())
	}
}

func (c *Client) sendError(err error) {
	select {
	case c.errChan <- err:
	default:
	}
}

// SendAudio encodes and sends one frame of stereo interleaved float32
// samples at 48kHz.
func (c *Client) SendAudio(samples []float32) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	track := c.audioTrack
	encoder := c.opusEncoder
	c.mu.Unlock()

	if track == nil || encoder == nil {
		return ErrNotReady
	}

	n, err := encoder.EncodeFloat32(samples, c.opusBuffer)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}

	return track.WriteSample(media.Sample{
		Data:     c.opusBuffer[:n],
		Duration: time.Duration(len(samples)/opusChannels) * time.Second / opusSampleRate,
	})
}

// Messages returns the channel of parsed events. It is never closed; watch Done.
func (c *Client) Messages() <-chan Event {
	return c.msgChan
}

// Errors returns the channel of connection errors.
func (c *Client) Errors() <-chan error {
	return c.errChan
}

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close shuts down the client and releases resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	if c.peerConnection != nil {
		return c.peerConnection.Close()
	}
	return nil
}
