// internal/voice/device.go

package voice

import (
	"context"
	"sync/atomic"
)

// loopbackTrack is a capture track with no real hardware behind it.
type loopbackTrack struct {
	stopped atomic.Bool
}

func (t *loopbackTrack) Stop() { t.stopped.Store(true) }

type loopbackStream struct {
	tracks []Track
}

func (s *loopbackStream) Tracks() []Track { return s.tracks }

// LoopbackDevice is the capture device used when no hardware bridge is
// configured. It always grants a single audio track, so the join/leave
// lifecycle stays exercisable end to end.
type LoopbackDevice struct{}

func (LoopbackDevice) Capture(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &loopbackStream{tracks: []Track{&loopbackTrack{}}}, nil
}

// FailingDevice always fails with a fixed error. Useful for rehearsing
// the denial paths.
type FailingDevice struct {
	Err error
}

func (d FailingDevice) Capture(ctx context.Context) (Stream, error) {
	return nil, d.Err
}
