package memrelay

import "time"

// EventKind classifies relay events.
type EventKind string

const (
	EventConnected   EventKind = "connected"
	EventAnnounced   EventKind = "announced"
	EventUnannounced EventKind = "unannounced"
	EventDelivered   EventKind = "delivered"
	EventClosed      EventKind = "closed"
)

// Event is an entry of the relay's ordered event log.
type Event struct {
	Kind         EventKind
	ConnectionID string
	Path         string
	At           time.Time
}

func (r *Relay) record(kind EventKind, id, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: kind, ConnectionID: id, Path: path, At: time.Now()})
}

// Events returns a copy of the event log in the order events happened.
func (r *Relay) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
