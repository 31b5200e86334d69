package scenarios

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandarsh/moq-interop-runner/moq"
	"github.com/sandarsh/moq-interop-runner/moq/memrelay"
	"github.com/sandarsh/moq-interop-runner/registry"
	"github.com/sandarsh/moq-interop-runner/supervise"
	"github.com/sandarsh/moq-interop-runner/types"
)

func fastTimings() Timings {
	return Timings{
		AnnounceGrace:    20 * time.Millisecond,
		DoneGrace:        10 * time.Millisecond,
		PublisherGrace:   20 * time.Millisecond,
		AnnouncementWait: 200 * time.Millisecond,
		SubscriptionWait: 100 * time.Millisecond,
	}
}

func setupEnv(t *testing.T, cfg memrelay.Config) (Env, *memrelay.Relay) {
	t.Helper()
	logger := testlog.Logger(t, log.LevelDebug)
	cfg.Log = logger

	relay := memrelay.New(cfg)
	t.Cleanup(relay.Close)

	client, err := moq.NewClient(moq.ClientConfig{
		Transports: map[string]moq.Transport{memrelay.Scheme: relay},
		Log:        logger,
	})
	require.NoError(t, err)

	u, err := url.Parse("mem://local")
	require.NoError(t, err)

	return Env{Client: client, Relay: u, Timings: fastTimings(), Log: logger}, relay
}

func kinds(events []memrelay.Event) []memrelay.EventKind {
	out := make([]memrelay.EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestAllCoversRunnableScenarios(t *testing.T) {
	all := All()
	reg := registry.Default()
	for _, s := range reg.Scenarios() {
		_, hasBody := all[s.Name]
		_, skipped := reg.SkipReason(s.Name)
		assert.True(t, hasBody != skipped, "scenario %s: body=%v skipped=%v", s.Name, hasBody, skipped)
	}
}

func TestSetupOnly(t *testing.T) {
	env, relay := setupEnv(t, memrelay.Config{})

	diag, err := SetupOnly(context.Background(), env)
	require.NoError(t, err)
	assert.NotEmpty(t, diag[types.DiagConnectionID])
	assert.Equal(t, 0, relay.Sessions())
	assert.Equal(t, []memrelay.EventKind{memrelay.EventConnected, memrelay.EventClosed}, kinds(relay.Events()))
}

func TestSetupOnlyRejected(t *testing.T) {
	env, _ := setupEnv(t, memrelay.Config{RejectConnect: errors.New("bad version")})

	diag, err := SetupOnly(context.Background(), env)
	require.Error(t, err)
	assert.Nil(t, diag)
	assert.True(t, IsConnectFailure(err))
	assert.Contains(t, err.Error(), "failed to connect")
	assert.Contains(t, err.Error(), "bad version")
}

func TestSetupOnlyUnsupportedScheme(t *testing.T) {
	env, _ := setupEnv(t, memrelay.Config{})
	u, err := url.Parse("https://localhost:4443")
	require.NoError(t, err)
	env.Relay = u

	_, err = SetupOnly(context.Background(), env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, moq.ErrUnsupportedScheme))
}

func TestAnnounceOnly(t *testing.T) {
	env, relay := setupEnv(t, memrelay.Config{})

	diag, err := AnnounceOnly(context.Background(), env)
	require.NoError(t, err)
	assert.NotEmpty(t, diag[types.DiagConnectionID])

	events := relay.Events()
	require.Len(t, events, 4)
	assert.Equal(t, []memrelay.EventKind{
		memrelay.EventConnected,
		memrelay.EventAnnounced,
		memrelay.EventUnannounced,
		memrelay.EventClosed,
	}, kinds(events))
	assert.Equal(t, TestNamespace, events[1].Path)
	assert.False(t, relay.Announced(TestNamespace))
}

func TestPublishNamespaceDone(t *testing.T) {
	env, relay := setupEnv(t, memrelay.Config{})

	diag, err := PublishNamespaceDone(context.Background(), env)
	require.NoError(t, err)
	assert.NotEmpty(t, diag[types.DiagConnectionID])

	// The unannouncement happens while the session is still open.
	assert.Equal(t, []memrelay.EventKind{
		memrelay.EventConnected,
		memrelay.EventAnnounced,
		memrelay.EventUnannounced,
		memrelay.EventClosed,
	}, kinds(relay.Events()))
}

func TestAnnounceOnlyCancelled(t *testing.T) {
	env, relay := setupEnv(t, memrelay.Config{})
	env.Timings.AnnounceGrace = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := AnnounceOnly(ctx, env)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, relay.Sessions(), "abandoned scenario must not leak sessions")
}

func TestAnnounceSubscribe(t *testing.T) {
	env, relay := setupEnv(t, memrelay.Config{})

	diag, err := AnnounceSubscribe(context.Background(), env)
	require.NoError(t, err)
	assert.NotEmpty(t, diag[types.DiagPublisherConnectionID])
	assert.NotEmpty(t, diag[types.DiagSubscriberConnectionID])
	assert.NotEqual(t, diag[types.DiagPublisherConnectionID], diag[types.DiagSubscriberConnectionID])
	assert.Equal(t, 0, relay.Sessions())

	pubID := diag[types.DiagPublisherConnectionID]
	subID := diag[types.DiagSubscriberConnectionID]

	var (
		pubConnected, subConnected, delivered, pubClosed, subClosed = -1, -1, -1, -1, -1
	)
	for i, e := range relay.Events() {
		switch {
		case e.Kind == memrelay.EventConnected && e.ConnectionID == pubID:
			pubConnected = i
		case e.Kind == memrelay.EventConnected && e.ConnectionID == subID:
			subConnected = i
		case e.Kind == memrelay.EventDelivered && e.ConnectionID == subID && delivered < 0:
			delivered = i
			assert.Equal(t, TestNamespace, e.Path)
		case e.Kind == memrelay.EventClosed && e.ConnectionID == pubID:
			pubClosed = i
		case e.Kind == memrelay.EventClosed && e.ConnectionID == subID:
			subClosed = i
		}
	}
	require.GreaterOrEqual(t, pubConnected, 0)
	assert.Less(t, pubConnected, subConnected, "publisher connects first")
	assert.Less(t, subConnected, delivered)
	assert.Less(t, pubClosed, subClosed, "publisher closes before subscriber")
}

func TestAnnounceSubscribeNoAnnouncement(t *testing.T) {
	env, relay := setupEnv(t, memrelay.Config{DropAnnouncements: true})

	start := time.Now()
	_, err := AnnounceSubscribe(context.Background(), env)
	require.Error(t, err)
	assert.True(t, IsProtocolFailure(err))
	assert.Contains(t, err.Error(), "timeout waiting for announcement")
	assert.GreaterOrEqual(t, time.Since(start), env.Timings.AnnouncementWait)
	assert.Equal(t, 0, relay.Sessions())
}

func TestAnnounceSubscribeTrackRejected(t *testing.T) {
	env, _ := setupEnv(t, memrelay.Config{RejectSubscriptions: true})

	_, err := AnnounceSubscribe(context.Background(), env)
	require.Error(t, err)
	assert.True(t, IsProtocolFailure(err))
	assert.Contains(t, err.Error(), "track closed")
	assert.ErrorIs(t, err, moq.ErrTrackNotFound)
}

func TestAnnounceSubscribePublisherRejected(t *testing.T) {
	env, _ := setupEnv(t, memrelay.Config{RejectConnect: errors.New("no")})

	_, err := AnnounceSubscribe(context.Background(), env)
	require.Error(t, err)
	var connectErr *ConnectError
	require.ErrorAs(t, err, &connectErr)
	assert.Equal(t, "publisher", connectErr.Role)
	assert.Contains(t, err.Error(), "publisher failed to connect")
}

type fixedAnnouncements struct {
	announced moq.Announcement
	err       error
}

func (f fixedAnnouncements) Announced(context.Context) (moq.Announcement, error) {
	return f.announced, f.err
}

func TestAwaitAnnouncementRejectsUnannouncement(t *testing.T) {
	env, _ := setupEnv(t, memrelay.Config{})

	_, err := awaitAnnouncement(context.Background(), env, fixedAnnouncements{
		announced: moq.Announcement{Path: TestNamespace},
	})
	require.Error(t, err)
	assert.True(t, IsProtocolFailure(err))
	assert.Equal(t, "unexpected unannouncement: "+TestNamespace, err.Error())
}

func TestAwaitAnnouncementConsumerClosed(t *testing.T) {
	env, _ := setupEnv(t, memrelay.Config{})

	_, err := awaitAnnouncement(context.Background(), env, fixedAnnouncements{err: moq.ErrOriginClosed})
	require.Error(t, err)
	assert.True(t, IsProtocolFailure(err))
	assert.Contains(t, err.Error(), "consumer closed")
	assert.ErrorIs(t, err, moq.ErrOriginClosed)
}

func TestAwaitAnnouncementActive(t *testing.T) {
	env, _ := setupEnv(t, memrelay.Config{})
	bc := moq.NewBroadcast()
	defer bc.Close()

	announced, err := awaitAnnouncement(context.Background(), env, fixedAnnouncements{
		announced: moq.Announcement{Path: TestNamespace, Broadcast: bc.Consume()},
	})
	require.NoError(t, err)
	assert.True(t, announced.Active())
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", &supervise.TimeoutError{Duration: time.Second}, FailureTimeout},
		{"connect", &ConnectError{Role: "publisher", Err: errors.New("refused")}, FailureConnect},
		{"protocol", &ProtocolError{Msg: "track closed"}, FailureProtocol},
		{"wrapped protocol", fmt.Errorf("subscriber: %w", &ProtocolError{Msg: "x"}), FailureProtocol},
		{"other", errors.New("boom"), FailureOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFailure(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"connect", &ConnectError{Err: cause}, "failed to connect: boom"},
		{"subscriber connect", &ConnectError{Role: "subscriber", Err: cause}, "subscriber failed to connect: boom"},
		{"protocol", &ProtocolError{Msg: "unexpected unannouncement: a/b"}, "unexpected unannouncement: a/b"},
		{"protocol with cause", &ProtocolError{Msg: "track closed", Err: cause}, "track closed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
