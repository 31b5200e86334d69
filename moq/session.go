package moq

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
)

// ErrorCode is the application error code a session is closed with.
type ErrorCode uint32

const (
	CodeCancel   ErrorCode = 0x0
	CodeInternal ErrorCode = 0x1
	CodeProtocol ErrorCode = 0x3
)

func (c ErrorCode) String() string {
	switch c {
	case CodeCancel:
		return "cancel"
	case CodeInternal:
		return "internal"
	case CodeProtocol:
		return "protocol violation"
	default:
		return fmt.Sprintf("code(%d)", uint32(c))
	}
}

// Session is an established connection to a relay.
type Session interface {
	// ID returns a transport specific connection identifier, or "" if none is known.
	ID() string
	// Close closes the session with the given code.
	Close(code ErrorCode) error
}

// SessionConfig is what a Transport needs to establish a session.
type SessionConfig struct {
	// Publish, if set, is announced to the relay for the lifetime of the session.
	Publish *OriginConsumer
	// Consume, if set, receives the relay's announcements.
	Consume *Origin
	TLS     *tls.Config
}

// Transport dials a relay for one URL scheme.
type Transport interface {
	Dial(ctx context.Context, relay *url.URL, cfg SessionConfig) (Session, error)
}

// ConnectOption configures a single Connect call.
type ConnectOption func(*SessionConfig)

// WithPublish publishes the broadcasts of origin through the session.
func WithPublish(origin *OriginConsumer) ConnectOption {
	return func(cfg *SessionConfig) {
		cfg.Publish = origin
	}
}

// WithConsume delivers the relay's announcements into origin.
func WithConsume(origin *Origin) ConnectOption {
	return func(cfg *SessionConfig) {
		cfg.Consume = origin
	}
}
