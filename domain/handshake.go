package domain

import (
	"chat-presence/errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	ProtocolV1 = 1

	ProtocolParam = "v"
	TimeoutParam  = "timeout"
)

var supportedProtocols = map[int]struct{}{ProtocolV1: {}}

// Handshake holds what a client declares when it opens a connection.
type Handshake struct {
	ProtocolVersion int
	IdleTimeout     time.Duration
}

// HandshakeBounds are the server side limits applied to a Handshake.
type HandshakeBounds struct {
	DefaultIdleTimeout time.Duration
	MinIdleTimeout     time.Duration
	MaxIdleTimeout     time.Duration
}

// ParseHandshake reads the protocol version and the optional liveness timeout
// override from the upgrade request query.
func ParseHandshake(query url.Values, bounds HandshakeBounds) (Handshake, error) {
	handshake := Handshake{ProtocolVersion: ProtocolV1, IdleTimeout: bounds.DefaultIdleTimeout}

	if raw := query.Get(ProtocolParam); raw != "" {
		version, err := strconv.Atoi(raw)
		if err != nil {
			return Handshake{}, fmt.Errorf("%w: %q", errors.ErrUnsupportedProtocol, raw)
		}
		if _, ok := supportedProtocols[version]; !ok {
			return Handshake{}, fmt.Errorf("%w: %d", errors.ErrUnsupportedProtocol, version)
		}
		handshake.ProtocolVersion = version
	}

	if raw := query.Get(TimeoutParam); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return Handshake{}, fmt.Errorf("%w: %q", errors.ErrInvalidTimeout, raw)
		}
		if timeout < bounds.MinIdleTimeout || timeout > bounds.MaxIdleTimeout {
			return Handshake{}, fmt.Errorf("%w: %s not in [%s, %s]",
				errors.ErrInvalidTimeout, timeout, bounds.MinIdleTimeout, bounds.MaxIdleTimeout)
		}
		handshake.IdleTimeout = timeout
	}
	return handshake, nil
}
