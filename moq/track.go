package moq

import (
	"context"
	"sync"
)

// Track identifies a track within a broadcast. Subscriptions match on both fields.
type Track struct {
	Name     string
	Priority uint8
}

// trackState is the shared closed-signal between a producer and its consumers.
type trackState struct {
	closed chan struct{}
	once   sync.Once
	err    error
}

func newTrackState() *trackState {
	return &trackState{closed: make(chan struct{})}
}

func (s *trackState) close(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.closed)
	})
}

// TrackProducer is the publishing side of a track.
type TrackProducer struct {
	Track Track
	state *trackState
}

func newTrackProducer(t Track) *TrackProducer {
	return &TrackProducer{Track: t, state: newTrackState()}
}

// Close ends the track cleanly.
func (p *TrackProducer) Close() {
	p.state.close(nil)
}

// Abort ends the track with err. A nil err is replaced with ErrTrackAborted.
func (p *TrackProducer) Abort(err error) {
	if err == nil {
		err = ErrTrackAborted
	}
	p.state.close(err)
}

// Consume returns a new subscription to the track.
func (p *TrackProducer) Consume() *TrackConsumer {
	return &TrackConsumer{Track: p.Track, state: p.state}
}

// TrackConsumer is a subscription to a track.
type TrackConsumer struct {
	Track Track
	state *trackState
}

func closedTrackConsumer(t Track, err error) *TrackConsumer {
	s := newTrackState()
	s.close(err)
	return &TrackConsumer{Track: t, state: s}
}

// Closed blocks until the track is closed and returns the error it was closed
// with (nil for a clean close), or ctx.Err() if ctx is done first.
func (c *TrackConsumer) Closed(ctx context.Context) error {
	select {
	case <-c.state.closed:
		return c.state.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the track is closed.
func (c *TrackConsumer) Done() <-chan struct{} {
	return c.state.closed
}
