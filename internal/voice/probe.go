// internal/voice/probe.go
// Voice channel capture probe. The probe asks an injected capture
// device for an audio stream and tracks whether the channel is joined;
// failures are folded into a small set of user-facing categories.

package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPermissionDenied = errors.New("microphone access denied")
	ErrDeviceNotFound   = errors.New("no microphone found")
	ErrDeviceBusy       = errors.New("microphone is in use by another application")
	ErrUnsupported      = errors.New("audio capture is not supported on this device")
	ErrAlreadyJoined    = errors.New("already joined the voice channel")
	ErrNotJoined        = errors.New("not in the voice channel")
)

// Track is a single live capture track.
type Track interface {
	Stop()
}

// Stream is an open capture session.
type Stream interface {
	Tracks() []Track
}

// CaptureDevice opens audio capture streams. Implementations return one
// of the sentinel errors above (possibly wrapped) on failure.
type CaptureDevice interface {
	Capture(ctx context.Context) (Stream, error)
}

// Sink receives the captured stream while joined: the local monitor the
// original voice channel muted and looped back to the speaker. Nil means
// no monitor.
type Sink interface {
	Attach(Stream) error
	Detach()
}

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
)

// Status is a snapshot of the probe.
type Status struct {
	State    State      `json:"state"`
	Error    string     `json:"error,omitempty"`
	JoinedAt *time.Time `json:"joinedAt,omitempty"`
	Tracks   int        `json:"tracks"`
}

// Probe owns the join/leave lifecycle of the local voice channel.
type Probe struct {
	mu       sync.Mutex
	device   CaptureDevice
	sink     Sink
	stream   Stream
	joinedAt time.Time
	lastErr  error
	log      *zap.SugaredLogger
}

func NewProbe(device CaptureDevice, log *zap.SugaredLogger) *Probe {
	return &Probe{device: device, log: log}
}

// WithSink attaches a monitor sink to future joins.
func (p *Probe) WithSink(sink Sink) *Probe {
	p.sink = sink
	return p
}

// Join opens a capture stream and enters the connected state. Joining
// while connected fails without touching the existing stream.
func (p *Probe) Join(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return ErrAlreadyJoined
	}

	stream, err := p.device.Capture(ctx)
	if err != nil {
		p.lastErr = categorize(err)
		p.log.Warnw("voice capture failed", "error", err)
		return p.lastErr
	}

	if p.sink != nil {
		if err := p.sink.Attach(stream); err != nil {
			for _, t := range stream.Tracks() {
				t.Stop()
			}
			p.lastErr = ErrUnsupported
			p.log.Warnw("voice monitor attach failed", "error", err)
			return p.lastErr
		}
	}

	p.stream = stream
	p.joinedAt = time.Now().UTC()
	p.lastErr = nil
	p.log.Infow("joined voice channel", "tracks", len(stream.Tracks()))
	return nil
}

// Leave stops every track and returns to disconnected. Leaving while
// disconnected is reported but leaves no residue.
func (p *Probe) Leave(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotJoined
	}

	if p.sink != nil {
		p.sink.Detach()
	}
	for _, t := range p.stream.Tracks() {
		t.Stop()
	}
	p.stream = nil
	p.joinedAt = time.Time{}
	p.log.Infow("left voice channel")
	return nil
}

// Status reports the current probe state.
func (p *Probe) Status(ctx context.Context) Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{State: StateDisconnected}
	if p.stream != nil {
		joined := p.joinedAt
		st.State = StateConnected
		st.JoinedAt = &joined
		st.Tracks = len(p.stream.Tracks())
	}
	if p.lastErr != nil {
		st.Error = p.lastErr.Error()
	}
	return st
}

// categorize maps a capture failure onto the user-facing taxonomy.
// Unknown failures read as unsupported hardware.
func categorize(err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ErrPermissionDenied
	case errors.Is(err, ErrDeviceNotFound):
		return ErrDeviceNotFound
	case errors.Is(err, ErrDeviceBusy):
		return ErrDeviceBusy
	default:
		return ErrUnsupported
	}
}
