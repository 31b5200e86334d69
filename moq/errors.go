package moq

import "errors"

var (
	// ErrUnsupportedScheme is returned when no Transport is registered for a relay URL scheme.
	ErrUnsupportedScheme = errors.New("unsupported relay scheme")
	// ErrOriginClosed is returned by OriginConsumer.Announced once the origin is closed and drained.
	ErrOriginClosed = errors.New("origin closed")
	// ErrTrackNotFound closes a subscription to a track the broadcast does not carry.
	ErrTrackNotFound = errors.New("track not found")
	// ErrBroadcastClosed closes a subscription made after the broadcast was unpublished.
	ErrBroadcastClosed = errors.New("broadcast closed")
	// ErrTrackAborted is the default error for TrackProducer.Abort.
	ErrTrackAborted = errors.New("track aborted")
	// ErrSessionClosed is returned when closing a session twice.
	ErrSessionClosed = errors.New("session closed")
)
