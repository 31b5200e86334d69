package scenarios

import (
	"context"
	"fmt"

	"github.com/sandarsh/moq-interop-runner/moq"
	"github.com/sandarsh/moq-interop-runner/supervise"
	"github.com/sandarsh/moq-interop-runner/types"
)

// AnnounceSubscribe connects a publisher carrying one track, then an
// independent subscriber that waits for the announcement and subscribes to the
// track. A subscription that reports no error within the wait is accepted.
func AnnounceSubscribe(ctx context.Context, env Env) (types.Diagnostics, error) {
	pubOrigin := moq.NewOrigin()
	defer pubOrigin.Close()
	broadcast := moq.NewBroadcast()
	defer broadcast.Close()
	broadcast.CreateTrack(testTrack)
	pubOrigin.PublishBroadcast(TestNamespace, broadcast.Consume())

	subOrigin := moq.NewOrigin()
	defer subOrigin.Close()
	announcements := subOrigin.Consume()
	defer announcements.Close()

	// Sessions close before their origins, publisher first.
	var pub, sub moq.Session
	defer func() {
		closeSession(env.Log, "publisher", pub)
		closeSession(env.Log, "subscriber", sub)
	}()

	diag := types.Diagnostics{}

	var err error
	pub, err = env.Client.Connect(ctx, env.Relay, moq.WithPublish(pubOrigin.Consume()))
	if err != nil {
		return nil, &ConnectError{Role: "publisher", Err: err}
	}
	diag.Set(types.DiagPublisherConnectionID, pub.ID())

	// Let the relay register the announcement before anyone asks for it.
	if err := supervise.Sleep(ctx, env.Timings.PublisherGrace); err != nil {
		return nil, err
	}

	sub, err = env.Client.Connect(ctx, env.Relay, moq.WithConsume(subOrigin))
	if err != nil {
		return nil, &ConnectError{Role: "subscriber", Err: err}
	}
	diag.Set(types.DiagSubscriberConnectionID, sub.ID())

	announced, err := awaitAnnouncement(ctx, env, announcements)
	if err != nil {
		return nil, err
	}
	env.Log.Debug("Broadcast announced to subscriber", "path", announced.Path)

	track := announced.Broadcast.SubscribeTrack(testTrack)
	_, branch, err := supervise.Race(ctx, env.Timings.SubscriptionWait, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, track.Closed(ctx)
	})
	switch branch {
	case supervise.BranchTimer:
		// No error within the window: the subscription was accepted.
		env.Log.Debug("Subscription accepted", "track", testTrack.Name)
	case supervise.BranchCancelled:
		return nil, err
	default:
		if err != nil {
			return nil, &ProtocolError{Msg: "track closed", Err: err}
		}
	}

	return diag, nil
}

// announcementSource yields announcements in delivery order.
type announcementSource interface {
	Announced(ctx context.Context) (moq.Announcement, error)
}

func awaitAnnouncement(ctx context.Context, env Env, announcements announcementSource) (moq.Announcement, error) {
	announced, branch, err := supervise.Race(ctx, env.Timings.AnnouncementWait, announcements.Announced)
	switch branch {
	case supervise.BranchTimer:
		return moq.Announcement{}, &ProtocolError{
			Msg: fmt.Sprintf("timeout waiting for announcement after %dms", env.Timings.AnnouncementWait.Milliseconds()),
		}
	case supervise.BranchCancelled:
		return moq.Announcement{}, err
	}
	if err != nil {
		return moq.Announcement{}, &ProtocolError{Msg: "consumer closed", Err: err}
	}
	if !announced.Active() {
		return moq.Announcement{}, &ProtocolError{Msg: fmt.Sprintf("unexpected unannouncement: %s", announced.Path)}
	}
	return announced, nil
}
