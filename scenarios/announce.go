package scenarios

import (
	"context"

	"github.com/sandarsh/moq-interop-runner/moq"
	"github.com/sandarsh/moq-interop-runner/supervise"
	"github.com/sandarsh/moq-interop-runner/types"
)

// AnnounceOnly publishes a broadcast under the test namespace, connects,
// gives the relay time to process the announcement and closes the session.
// Only the handshake is verified.
func AnnounceOnly(ctx context.Context, env Env) (types.Diagnostics, error) {
	return announce(ctx, env, false)
}

// PublishNamespaceDone behaves like AnnounceOnly but unpublishes the broadcast
// after the grace interval and waits for the done notification to propagate
// before closing.
func PublishNamespaceDone(ctx context.Context, env Env) (types.Diagnostics, error) {
	return announce(ctx, env, true)
}

func announce(ctx context.Context, env Env, unpublish bool) (types.Diagnostics, error) {
	origin := moq.NewOrigin()
	defer origin.Close()

	// The broadcast exists before the session does.
	broadcast := moq.NewBroadcast()
	defer broadcast.Close()
	origin.PublishBroadcast(TestNamespace, broadcast.Consume())

	session, err := env.Client.Connect(ctx, env.Relay, moq.WithPublish(origin.Consume()))
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	defer closeSession(env.Log, "session", session)

	diag := types.Diagnostics{}
	diag.Set(types.DiagConnectionID, session.ID())

	if err := supervise.Sleep(ctx, env.Timings.AnnounceGrace); err != nil {
		return nil, err
	}

	if unpublish {
		env.Log.Debug("Unpublishing broadcast", "namespace", TestNamespace)
		broadcast.Close()
		if err := supervise.Sleep(ctx, env.Timings.DoneGrace); err != nil {
			return nil, err
		}
	}

	return diag, nil
}
