package moq

import (
	"fmt"
	"sync"
)

// Broadcast is the producing side of a named collection of tracks.
type Broadcast struct {
	mu     sync.Mutex
	tracks map[Track]*TrackProducer
	closed chan struct{}
	once   sync.Once
}

// NewBroadcast creates an empty, open broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{
		tracks: make(map[Track]*TrackProducer),
		closed: make(chan struct{}),
	}
}

// CreateTrack adds a track to the broadcast. Creating the same track twice
// returns the existing producer.
func (b *Broadcast) CreateTrack(t Track) *TrackProducer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.tracks[t]; ok {
		return p
	}
	p := newTrackProducer(t)
	b.tracks[t] = p
	return p
}

// Consume returns a handle that can be published into an Origin and used to
// subscribe to the broadcast's tracks.
func (b *Broadcast) Consume() *BroadcastConsumer {
	return &BroadcastConsumer{b: b}
}

// Close unpublishes the broadcast: every origin it was published into
// announces its removal and all of its tracks are closed. Close is idempotent.
func (b *Broadcast) Close() {
	b.once.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, p := range b.tracks {
			p.Close()
		}
		close(b.closed)
	})
}

func (b *Broadcast) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

// BroadcastConsumer is a read-only handle to a broadcast.
type BroadcastConsumer struct {
	b *Broadcast
}

// SubscribeTrack subscribes to the track matching t by name and priority. The
// returned consumer is already closed with an error when the track does not
// exist or the broadcast has been closed.
func (c *BroadcastConsumer) SubscribeTrack(t Track) *TrackConsumer {
	if c.b.isClosed() {
		return closedTrackConsumer(t, ErrBroadcastClosed)
	}
	c.b.mu.Lock()
	p, ok := c.b.tracks[t]
	c.b.mu.Unlock()
	if !ok {
		return closedTrackConsumer(t, fmt.Errorf("%w: %s (priority %d)", ErrTrackNotFound, t.Name, t.Priority))
	}
	return p.Consume()
}

// Closed is closed when the broadcast is unpublished.
func (c *BroadcastConsumer) Closed() <-chan struct{} {
	return c.b.closed
}
