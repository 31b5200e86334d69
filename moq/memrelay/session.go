package memrelay

import (
	"context"
	"sync"

	"github.com/sandarsh/moq-interop-runner/moq"
)

var _ moq.Session = (*session)(nil)

type session struct {
	id     string
	relay  *Relay
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeMu sync.Mutex
	closed  bool
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Close(code moq.ErrorCode) error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return moq.ErrSessionClosed
	}
	s.closed = true
	s.closeMu.Unlock()

	s.cancel()
	s.wg.Wait()

	for _, path := range s.relay.ownedBy(s.id) {
		s.relay.unannounce(s, path)
	}
	s.relay.remove(s)
	s.relay.record(EventClosed, s.id, "")
	s.relay.log.Debug("Session closed", "connection_id", s.id, "code", code)
	return nil
}

// publish forwards the announcements of the session's origin to the relay.
func (s *session) publish(ctx context.Context, pub *moq.OriginConsumer) {
	defer s.wg.Done()
	for {
		a, err := pub.Announced(ctx)
		if err != nil {
			return
		}
		if a.Active() {
			s.relay.announce(s, a.Path, a.Broadcast)
		} else {
			s.relay.unannounce(s, a.Path)
		}
	}
}

// consume delivers the relay's announcements into the session's origin.
func (s *session) consume(ctx context.Context, into *moq.Origin) {
	defer s.wg.Done()
	announcements := s.relay.origin.Consume()
	defer announcements.Close()

	for {
		a, err := announcements.Announced(ctx)
		if err != nil {
			return
		}
		if s.relay.cfg.DropAnnouncements {
			continue
		}
		if !a.Active() {
			into.Unpublish(a.Path)
			continue
		}

		bc := a.Broadcast
		if s.relay.cfg.RejectSubscriptions {
			bc = moq.NewBroadcast().Consume()
		}
		// Recorded first so the event precedes any observer of the announcement.
		s.relay.record(EventDelivered, s.id, a.Path)
		into.PublishBroadcast(a.Path, bc)
	}
}
