package moq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/ethereum/go-ethereum/log"
)

// Connector opens sessions to a relay.
type Connector interface {
	Connect(ctx context.Context, relay *url.URL, opts ...ConnectOption) (Session, error)
}

var _ Connector = (*Client)(nil)

// ClientConfig holds the configuration for a Client.
type ClientConfig struct {
	TLSDisableVerify bool
	Transports       map[string]Transport // keyed by URL scheme
	Log              log.Logger
}

// Client opens sessions through the Transport registered for the relay URL's
// scheme. It holds no per-session state and is safe for concurrent use.
type Client struct {
	log        log.Logger
	tls        *tls.Config
	transports map[string]Transport
}

// NewClient creates a new client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if len(cfg.Transports) == 0 {
		return nil, errors.New("at least one transport is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}

	transports := make(map[string]Transport, len(cfg.Transports))
	for scheme, t := range cfg.Transports {
		if t == nil {
			return nil, fmt.Errorf("transport for scheme %q is nil", scheme)
		}
		transports[scheme] = t
	}

	if cfg.TLSDisableVerify {
		cfg.Log.Warn("TLS certificate verification disabled")
	}

	return &Client{
		log: cfg.Log,
		tls: &tls.Config{
			MinVersion:         tls.VersionTLS13,
			InsecureSkipVerify: cfg.TLSDisableVerify, //nolint:gosec
		},
		transports: transports,
	}, nil
}

// Schemes returns the URL schemes the client can dial.
func (c *Client) Schemes() []string {
	schemes := make([]string, 0, len(c.transports))
	for s := range c.transports {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Connect opens a new, independent session to relay.
func (c *Client) Connect(ctx context.Context, relay *url.URL, opts ...ConnectOption) (Session, error) {
	if relay == nil {
		return nil, errors.New("relay URL is required")
	}
	t, ok := c.transports[relay.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %v)", ErrUnsupportedScheme, relay.Scheme, c.Schemes())
	}

	cfg := SessionConfig{TLS: c.tls.Clone()}
	for _, opt := range opts {
		opt(&cfg)
	}

	c.log.Debug("Connecting to relay", "relay", relay.String(),
		"publish", cfg.Publish != nil, "consume", cfg.Consume != nil)
	session, err := t.Dial(ctx, relay, cfg)
	if err != nil {
		return nil, err
	}
	c.log.Debug("Connected to relay", "relay", relay.String(), "connection_id", session.ID())
	return session, nil
}
