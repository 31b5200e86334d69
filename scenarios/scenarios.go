// Package scenarios contains the protocol scripts run against a relay. Each
// scenario drives the session capability through a fixed sequence of
// connect / publish / subscribe / close steps and returns the diagnostics of
// a successful run or the error that failed it.
package scenarios

import (
	"context"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sandarsh/moq-interop-runner/moq"
	"github.com/sandarsh/moq-interop-runner/registry"
	"github.com/sandarsh/moq-interop-runner/types"
)

const (
	// TestNamespace is the namespace path every scenario publishes under.
	TestNamespace = "moq-test/interop"
	// TestTrack is the track published and subscribed by announce-subscribe.
	TestTrack = "test-track"
)

var testTrack = moq.Track{Name: TestTrack, Priority: 0}

// Timings holds the fixed grace and wait intervals of the scenarios.
type Timings struct {
	AnnounceGrace    time.Duration // after announcing, before closing or unpublishing
	DoneGrace        time.Duration // after unpublishing, for the done notification to propagate
	PublisherGrace   time.Duration // after the publisher connects, before the subscriber connects
	AnnouncementWait time.Duration // subscriber wait for the announcement
	SubscriptionWait time.Duration // wait for an error on the subscribed track
}

// DefaultTimings returns the intervals used against real relays.
func DefaultTimings() Timings {
	return Timings{
		AnnounceGrace:    500 * time.Millisecond,
		DoneGrace:        200 * time.Millisecond,
		PublisherGrace:   300 * time.Millisecond,
		AnnouncementWait: 1500 * time.Millisecond,
		SubscriptionWait: 1000 * time.Millisecond,
	}
}

// Env is what a scenario runs against. It is shared read-only between runs.
type Env struct {
	Client  moq.Connector
	Relay   *url.URL
	Timings Timings
	Log     log.Logger
}

// Func is a scenario body.
type Func func(ctx context.Context, env Env) (types.Diagnostics, error)

// All returns the scenario bodies keyed by registry name. Skipped scenarios
// have no body.
func All() map[string]Func {
	return map[string]Func{
		registry.SetupOnly:            SetupOnly,
		registry.AnnounceOnly:         AnnounceOnly,
		registry.PublishNamespaceDone: PublishNamespaceDone,
		registry.AnnounceSubscribe:    AnnounceSubscribe,
	}
}

// closeSession closes s with a cancel code. Close failures are not scenario
// failures and are only logged.
func closeSession(l log.Logger, role string, s moq.Session) {
	if s == nil {
		return
	}
	if err := s.Close(moq.CodeCancel); err != nil {
		l.Debug("Failed to close session", "role", role, "connection_id", s.ID(), "err", err)
	}
}
