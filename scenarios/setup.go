package scenarios

import (
	"context"

	"github.com/sandarsh/moq-interop-runner/types"
)

// SetupOnly opens a session and immediately closes it. It passes iff the
// handshake completes.
func SetupOnly(ctx context.Context, env Env) (types.Diagnostics, error) {
	session, err := env.Client.Connect(ctx, env.Relay)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}

	diag := types.Diagnostics{}
	diag.Set(types.DiagConnectionID, session.ID())
	closeSession(env.Log, "session", session)
	return diag, nil
}
