package moq

import (
	"context"
	"sort"
	"sync"
)

// Announcement reports that Path now has a broadcast, or no longer has one
// when Broadcast is nil.
type Announcement struct {
	Path      string
	Broadcast *BroadcastConsumer
}

// Active reports whether the announcement carries a broadcast.
func (a Announcement) Active() bool {
	return a.Broadcast != nil
}

// Origin maps namespace paths to broadcasts. Sessions publish the broadcasts
// of an Origin and deliver announcements into it when consuming.
type Origin struct {
	mu        sync.Mutex
	active    map[string]*BroadcastConsumer
	consumers map[*OriginConsumer]struct{}
	done      chan struct{}
	closed    bool
}

// NewOrigin creates an empty origin.
func NewOrigin() *Origin {
	return &Origin{
		active:    make(map[string]*BroadcastConsumer),
		consumers: make(map[*OriginConsumer]struct{}),
		done:      make(chan struct{}),
	}
}

// PublishBroadcast announces bc under path, replacing any previous broadcast.
// The path is unannounced automatically when bc is closed.
func (o *Origin) PublishBroadcast(path string, bc *BroadcastConsumer) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.active[path] = bc
	o.broadcastLocked(Announcement{Path: path, Broadcast: bc})
	o.mu.Unlock()

	go func() {
		select {
		case <-bc.Closed():
			o.unpublish(path, bc)
		case <-o.done:
		}
	}()
}

// Unpublish removes whatever broadcast is announced under path.
func (o *Origin) Unpublish(path string) {
	o.unpublish(path, nil)
}

// unpublish removes path if it still maps to bc, or unconditionally when bc is nil.
func (o *Origin) unpublish(path string, bc *BroadcastConsumer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cur, ok := o.active[path]
	if !ok || (bc != nil && cur != bc) {
		return
	}
	delete(o.active, path)
	o.broadcastLocked(Announcement{Path: path})
}

func (o *Origin) broadcastLocked(a Announcement) {
	for c := range o.consumers {
		c.push(a)
	}
}

// Consume returns a fresh consumer. It first yields the currently announced
// broadcasts (ordered by path) and then every subsequent change.
func (o *Origin) Consume() *OriginConsumer {
	c := &OriginConsumer{
		origin: o,
		notify: make(chan struct{}, 1),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		c.close()
		return c
	}
	paths := make([]string, 0, len(o.active))
	for p := range o.active {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		c.push(Announcement{Path: p, Broadcast: o.active[p]})
	}
	o.consumers[c] = struct{}{}
	return c
}

// Close closes the origin and all of its consumers. It is idempotent.
func (o *Origin) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.done)
	for c := range o.consumers {
		c.close()
	}
	o.consumers = nil
}

func (o *Origin) removeConsumer(c *OriginConsumer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.consumers, c)
}

// OriginConsumer is a restartable, lazily consumed sequence of announcements.
type OriginConsumer struct {
	origin *Origin

	mu     sync.Mutex
	queue  []Announcement
	notify chan struct{}
	closed bool
}

func (c *OriginConsumer) push(a Announcement) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, a)
	c.mu.Unlock()
	c.wake()
}

func (c *OriginConsumer) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *OriginConsumer) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wake()
}

// Announced blocks until the next announcement. It returns ErrOriginClosed once
// the consumer is closed and every queued announcement has been delivered.
func (c *OriginConsumer) Announced(ctx context.Context) (Announcement, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			a := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return a, nil
		}
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return Announcement{}, ErrOriginClosed
		}

		select {
		case <-c.notify:
		case <-ctx.Done():
			return Announcement{}, ctx.Err()
		}
	}
}

// Close stops delivery to this consumer.
func (c *OriginConsumer) Close() {
	c.origin.removeConsumer(c)
	c.close()
}
