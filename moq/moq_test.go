package moq

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func announced(t *testing.T, c *OriginConsumer) Announcement {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a, err := c.Announced(ctx)
	require.NoError(t, err)
	return a
}

func TestOriginConsumeSnapshotThenUpdates(t *testing.T) {
	o := NewOrigin()
	defer o.Close()

	b1, b2 := NewBroadcast(), NewBroadcast()
	o.PublishBroadcast("b", b1.Consume())
	o.PublishBroadcast("a", b2.Consume())

	c := o.Consume()
	defer c.Close()
	assert.Equal(t, "a", announced(t, c).Path)
	assert.Equal(t, "b", announced(t, c).Path)

	b3 := NewBroadcast()
	o.PublishBroadcast("c", b3.Consume())
	a := announced(t, c)
	assert.Equal(t, "c", a.Path)
	assert.True(t, a.Active())
}

func TestBroadcastCloseUnannounces(t *testing.T) {
	o := NewOrigin()
	defer o.Close()
	c := o.Consume()
	defer c.Close()

	b := NewBroadcast()
	o.PublishBroadcast("live", b.Consume())
	require.True(t, announced(t, c).Active())

	b.Close()
	b.Close()
	a := announced(t, c)
	assert.Equal(t, "live", a.Path)
	assert.False(t, a.Active())
}

func TestReplacedBroadcastCloseIsIgnored(t *testing.T) {
	o := NewOrigin()
	defer o.Close()

	old, cur := NewBroadcast(), NewBroadcast()
	o.PublishBroadcast("p", old.Consume())
	o.PublishBroadcast("p", cur.Consume())
	c := o.Consume()
	defer c.Close()
	require.True(t, announced(t, c).Active())

	old.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Announced(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOriginCloseDrainsConsumers(t *testing.T) {
	o := NewOrigin()
	c := o.Consume()
	o.PublishBroadcast("x", NewBroadcast().Consume())
	o.Close()
	o.Close()

	assert.Equal(t, "x", announced(t, c).Path)
	_, err := c.Announced(context.Background())
	assert.ErrorIs(t, err, ErrOriginClosed)

	_, err = o.Consume().Announced(context.Background())
	assert.ErrorIs(t, err, ErrOriginClosed)
}

func TestSubscribeTrack(t *testing.T) {
	track := Track{Name: "video", Priority: 1}
	b := NewBroadcast()
	p := b.CreateTrack(track)
	assert.Same(t, p, b.CreateTrack(track))
	bc := b.Consume()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	sub := bc.SubscribeTrack(track)
	assert.ErrorIs(t, sub.Closed(ctx), context.DeadlineExceeded)

	missing := bc.SubscribeTrack(Track{Name: "video", Priority: 2})
	err := missing.Closed(context.Background())
	assert.ErrorIs(t, err, ErrTrackNotFound)
	assert.Contains(t, err.Error(), "video (priority 2)")

	b.Close()
	assert.NoError(t, sub.Closed(context.Background()))
	select {
	case <-bc.Closed():
	default:
		t.Fatal("broadcast consumer not closed")
	}
	assert.ErrorIs(t, bc.SubscribeTrack(track).Closed(context.Background()), ErrBroadcastClosed)
}

func TestTrackAbort(t *testing.T) {
	b := NewBroadcast()
	p := b.CreateTrack(Track{Name: "t"})
	c := p.Consume()
	p.Abort(nil)
	p.Close()
	<-c.Done()
	assert.ErrorIs(t, c.Closed(context.Background()), ErrTrackAborted)

	want := errors.New("gone")
	p2 := b.CreateTrack(Track{Name: "u"})
	p2.Abort(want)
	assert.ErrorIs(t, p2.Consume().Closed(context.Background()), want)
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "cancel", CodeCancel.String())
	assert.Equal(t, "internal", CodeInternal.String())
	assert.Equal(t, "protocol violation", CodeProtocol.String())
	assert.Equal(t, "code(42)", ErrorCode(42).String())
}

type fakeSession struct{ id string }

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Close(ErrorCode) error { return nil }

type fakeTransport struct {
	cfg SessionConfig
	err error
}

func (f *fakeTransport) Dial(_ context.Context, _ *url.URL, cfg SessionConfig) (Session, error) {
	f.cfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	return &fakeSession{id: "conn-1"}, nil
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.ErrorContains(t, err, "at least one transport")

	_, err = NewClient(ClientConfig{Transports: map[string]Transport{"mem": nil}})
	assert.ErrorContains(t, err, `transport for scheme "mem" is nil`)
}

func TestClientConnect(t *testing.T) {
	logger := testlog.Logger(t, log.LevelDebug)
	ft := &fakeTransport{}
	c, err := NewClient(ClientConfig{
		TLSDisableVerify: true,
		Transports:       map[string]Transport{"moqt": ft, "mem": &fakeTransport{}},
		Log:              logger,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mem", "moqt"}, c.Schemes())

	origin := NewOrigin()
	defer origin.Close()
	pub := origin.Consume()
	defer pub.Close()

	relay, _ := url.Parse("moqt://relay.example:4443")
	s, err := c.Connect(context.Background(), relay, WithPublish(pub), WithConsume(origin))
	require.NoError(t, err)
	assert.Equal(t, "conn-1", s.ID())
	assert.Same(t, pub, ft.cfg.Publish)
	assert.Same(t, origin, ft.cfg.Consume)
	require.NotNil(t, ft.cfg.TLS)
	assert.True(t, ft.cfg.TLS.InsecureSkipVerify)

	_, err = c.Connect(context.Background(), nil)
	assert.ErrorContains(t, err, "relay URL is required")

	https, _ := url.Parse("https://relay.example")
	_, err = c.Connect(context.Background(), https)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
	assert.Contains(t, err.Error(), "supported: [mem moqt]")

	ft.err = errors.New("refused")
	_, err = c.Connect(context.Background(), relay)
	assert.EqualError(t, err, "refused")
}
