// Package wtransport dials relays over WebTransport (HTTP/3 over QUIC) for the
// "https" URL scheme.
//
// It establishes and tears down the WebTransport session, which is enough for
// handshake-level scenarios and makes relay TLS settings take effect. It does
// not speak the MoQ session protocol on top, so it rejects connections that
// ask to publish or consume broadcasts.
package wtransport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/webtransport-go"

	"github.com/sandarsh/moq-interop-runner/moq"
)

// Scheme is the URL scheme served by the transport.
const Scheme = "https"

const defaultPort = "443"

// ErrBroadcastsUnsupported is returned for connections that publish or consume.
var ErrBroadcastsUnsupported = errors.New("webtransport sessions cannot publish or consume broadcasts")

var _ moq.Transport = (*Transport)(nil)

// session is the part of a WebTransport session the transport drives.
type session interface {
	CloseWithError(code webtransport.SessionErrorCode, msg string) error
}

// dialFunc opens a WebTransport session to rawURL.
type dialFunc func(ctx context.Context, tlsConf *tls.Config, rawURL string) (session, error)

// Config holds the configuration for a Transport.
type Config struct {
	Log log.Logger
}

// Transport implements moq.Transport over WebTransport.
type Transport struct {
	log  log.Logger
	dial dialFunc
}

// New creates a new Transport.
func New(cfg Config) *Transport {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Transport{log: cfg.Log, dial: dialWebTransport}
}

// Dial implements moq.Transport. cfg.TLS is used for the QUIC handshake.
func (t *Transport) Dial(ctx context.Context, relay *url.URL, cfg moq.SessionConfig) (moq.Session, error) {
	if relay.Scheme != Scheme {
		return nil, fmt.Errorf("%w %q", moq.ErrUnsupportedScheme, relay.Scheme)
	}
	if cfg.Publish != nil || cfg.Consume != nil {
		return nil, ErrBroadcastsUnsupported
	}

	tlsConf := cfg.TLS
	if tlsConf == nil {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS13}
	}
	target := *relay
	if target.Port() == "" {
		target.Host = net.JoinHostPort(target.Hostname(), defaultPort)
	}
	s, err := t.dial(ctx, tlsConf, target.String())
	if err != nil {
		return nil, fmt.Errorf("webtransport handshake with %s: %w", relay.Host, err)
	}
	t.log.Debug("WebTransport session established", "relay", relay.Host,
		"insecure", tlsConf.InsecureSkipVerify)
	return &wtSession{s: s, log: t.log}, nil
}

// dialWebTransport dials with a dedicated Dialer. The Dialer keeps waiting
// for the server's HTTP/3 settings after ctx ends, so the dial runs in the
// background; if ctx finishes first it is abandoned and cleaned up later.
func dialWebTransport(ctx context.Context, tlsConf *tls.Config, rawURL string) (session, error) {
	// entered is closed once Dial is past initialisation, when Close becomes safe.
	entered := make(chan struct{})
	d := &webtransport.Dialer{
		TLSClientConfig: tlsConf,
		DialAddr: func(ctx context.Context, addr string, tlsCfg *tls.Config, cfg *quic.Config) (*quic.Conn, error) {
			close(entered)
			return quic.DialAddrEarly(ctx, addr, tlsCfg, cfg)
		},
	}

	type result struct {
		s   *webtransport.Session
		err error
	}
	done := make(chan result, 1)
	go func() {
		_, s, err := d.Dial(ctx, rawURL, nil)
		done <- result{s: s, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			_ = d.Close()
			return nil, r.err
		}
		return &dialedSession{Session: r.s, dialer: d}, nil
	case <-ctx.Done():
		go func() {
			var r result
			select {
			case <-entered:
				_ = d.Close()
				r = <-done
			case r = <-done:
				_ = d.Close()
			}
			if r.s != nil {
				_ = r.s.CloseWithError(webtransport.SessionErrorCode(moq.CodeCancel), "abandoned")
			}
		}()
		return nil, ctx.Err()
	}
}

// dialedSession releases its Dialer together with the session.
type dialedSession struct {
	*webtransport.Session
	dialer *webtransport.Dialer
}

func (s *dialedSession) CloseWithError(code webtransport.SessionErrorCode, msg string) error {
	err := s.Session.CloseWithError(code, msg)
	_ = s.dialer.Close()
	return err
}

var _ moq.Session = (*wtSession)(nil)

type wtSession struct {
	s   session
	log log.Logger

	mu     sync.Mutex
	closed bool
}

// ID is empty: WebTransport exposes no connection identifier.
func (w *wtSession) ID() string {
	return ""
}

func (w *wtSession) Close(code moq.ErrorCode) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return moq.ErrSessionClosed
	}
	w.closed = true
	w.mu.Unlock()

	w.log.Debug("Closing WebTransport session", "code", code)
	return w.s.CloseWithError(webtransport.SessionErrorCode(code), code.String())
}
