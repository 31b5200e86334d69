// Package memrelay implements an in-process relay reachable through the "mem"
// URL scheme. It forwards the announcements of publishing sessions to every
// consuming session, which is enough to exercise the harness end to end
// without a network relay. Fault injection knobs make the failure paths of
// each scenario reproducible.
package memrelay

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/sandarsh/moq-interop-runner/moq"
)

// Scheme is the URL scheme served by the relay.
const Scheme = "mem"

var _ moq.Transport = (*Relay)(nil)

// Config holds relay behaviour, including fault injection.
type Config struct {
	Log log.Logger

	// RejectConnect, when non-nil, fails every handshake with this error.
	RejectConnect error
	// ConnectDelay delays every handshake.
	ConnectDelay time.Duration
	// DropAnnouncements stops announcements from reaching consuming sessions.
	DropAnnouncements bool
	// RejectSubscriptions hands consumers broadcasts that carry no tracks, so
	// every subscription closes with moq.ErrTrackNotFound.
	RejectSubscriptions bool
}

// Relay is an in-process relay. The zero value is not usable; use New.
type Relay struct {
	cfg    Config
	log    log.Logger
	origin *moq.Origin

	mu       sync.Mutex
	owners   map[string]string // path -> connection id
	sessions map[string]*session
	events   []Event
}

// New creates a relay.
func New(cfg Config) *Relay {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Relay{
		cfg:      cfg,
		log:      cfg.Log,
		origin:   moq.NewOrigin(),
		owners:   make(map[string]string),
		sessions: make(map[string]*session),
	}
}

// Dial implements moq.Transport.
func (r *Relay) Dial(ctx context.Context, relay *url.URL, cfg moq.SessionConfig) (moq.Session, error) {
	if relay.Scheme != Scheme {
		return nil, fmt.Errorf("%w %q", moq.ErrUnsupportedScheme, relay.Scheme)
	}
	if r.cfg.ConnectDelay > 0 {
		select {
		case <-time.After(r.cfg.ConnectDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("handshake aborted: %w", ctx.Err())
		}
	}
	if r.cfg.RejectConnect != nil {
		return nil, fmt.Errorf("handshake rejected: %w", r.cfg.RejectConnect)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.New().String(),
		relay:  r,
		cancel: cancel,
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	r.record(EventConnected, s.id, "")
	r.log.Debug("Session connected", "connection_id", s.id, "relay", relay.Host,
		"publish", cfg.Publish != nil, "consume", cfg.Consume != nil)

	if cfg.Publish != nil {
		s.wg.Add(1)
		go s.publish(sctx, cfg.Publish)
	}
	if cfg.Consume != nil {
		s.wg.Add(1)
		go s.consume(sctx, cfg.Consume)
	}
	return s, nil
}

// Sessions returns the number of open sessions.
func (r *Relay) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Announced returns whether path is currently announced on the relay.
func (r *Relay) Announced(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owners[path]
	return ok
}

// Close closes every open session and the relay's origin.
func (r *Relay) Close() {
	r.mu.Lock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close(moq.CodeCancel)
	}
	r.origin.Close()
}

func (r *Relay) announce(s *session, path string, bc *moq.BroadcastConsumer) {
	r.mu.Lock()
	r.owners[path] = s.id
	r.mu.Unlock()

	r.record(EventAnnounced, s.id, path)
	r.origin.PublishBroadcast(path, bc)
	r.log.Debug("Broadcast announced", "connection_id", s.id, "path", path)
}

func (r *Relay) unannounce(s *session, path string) {
	r.mu.Lock()
	owner, ok := r.owners[path]
	if !ok || owner != s.id {
		r.mu.Unlock()
		return
	}
	delete(r.owners, path)
	r.mu.Unlock()

	r.record(EventUnannounced, s.id, path)
	r.origin.Unpublish(path)
	r.log.Debug("Broadcast unannounced", "connection_id", s.id, "path", path)
}

func (r *Relay) ownedBy(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var paths []string
	for p, owner := range r.owners {
		if owner == id {
			paths = append(paths, p)
		}
	}
	return paths
}

func (r *Relay) remove(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.id)
}
