package registry

import (
	"errors"
	"fmt"
)

// ReasonAnnounceBeforeSubscribe explains why speculative-subscribe scenarios are skipped:
// a track can only be subscribed on a broadcast that was already announced.
const ReasonAnnounceBeforeSubscribe = "session API requires announcement before subscribe"

// SkipEntry marks a scenario as never executed.
type SkipEntry struct {
	Name   string
	Reason string
}

// DefaultSkips returns the built-in skip entries.
func DefaultSkips() []SkipEntry {
	return []SkipEntry{
		{Name: SubscribeError, Reason: ReasonAnnounceBeforeSubscribe},
		{Name: SubscribeBeforeAnnounce, Reason: ReasonAnnounceBeforeSubscribe},
	}
}

// SkipPolicy maps scenario names to skip reasons.
type SkipPolicy struct {
	reasons map[string]string
}

func newSkipPolicy(entries []SkipEntry, registered func(string) bool) (SkipPolicy, error) {
	reasons := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Reason == "" {
			return SkipPolicy{}, errors.New("skip reason cannot be empty")
		}
		if !registered(e.Name) {
			return SkipPolicy{}, fmt.Errorf("skip entry for unregistered scenario %q", e.Name)
		}
		reasons[e.Name] = e.Reason
	}
	return SkipPolicy{reasons: reasons}, nil
}

// Reason returns the skip reason for name.
func (p SkipPolicy) Reason(name string) (string, bool) {
	reason, ok := p.reasons[name]
	return reason, ok
}

// Len returns the number of skipped scenarios.
func (p SkipPolicy) Len() int {
	return len(p.reasons)
}
