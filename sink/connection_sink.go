package sink

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var _ contract.Connection = (*ConnectionSink)(nil)

// ConnectionSink is the server side of a single client session.
// The transport reader pushes raw frames into the inbound queue and the
// transport writer drains the outbound buffer. Both are bounded.
type ConnectionSink struct {
	id          domain.ConnectionID
	inbound     chan []byte
	outbound    chan domain.OutboundEvent
	done        chan struct{}
	alive       atomic.Bool
	lastSeen    atomic.Int64
	idleTimeout time.Duration
}

func NewConnectionSink(inboundSize, outboundSize int, idleTimeout time.Duration) *ConnectionSink {
	c := &ConnectionSink{
		id:          domain.ConnectionID(uuid.NewString()),
		inbound:     make(chan []byte, inboundSize),
		outbound:    make(chan domain.OutboundEvent, outboundSize),
		done:        make(chan struct{}),
		idleTimeout: idleTimeout,
	}
	c.alive.Store(true)
	c.Touch()
	return c
}

func (c *ConnectionSink) ID() domain.ConnectionID { return c.id }

// Send is called by the router during fan-out.
// It never blocks: when the recipient is not keeping up the event is dropped.
func (c *ConnectionSink) Send(evt domain.OutboundEvent) error {
	if !c.alive.Load() {
		return errors.ErrConnectionClosed
	}
	select {
	case c.outbound <- evt:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
		return errors.ErrOutboundBufferFull
	}
}

func (c *ConnectionSink) Alive() bool { return c.alive.Load() }

// Close marks the session dead. Only the first call returns true.
// The channels are left open so that late senders never panic.
func (c *ConnectionSink) Close() bool {
	if !c.alive.CompareAndSwap(true, false) {
		return false
	}
	close(c.done)
	return true
}

// Enqueue hands a frame read from the transport to the connection's worker.
// It blocks while the inbound queue is full, which applies backpressure to
// this connection's reader only.
func (c *ConnectionSink) Enqueue(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.inbound <- frame:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ConnectionSink) Inbound() <-chan []byte { return c.inbound }

func (c *ConnectionSink) Outbound() <-chan domain.OutboundEvent { return c.outbound }

func (c *ConnectionSink) Done() <-chan struct{} { return c.done }

// Touch records traffic from the client, liveness probes included.
func (c *ConnectionSink) Touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *ConnectionSink) IdleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastSeen.Load()))
}

func (c *ConnectionSink) IdleTimeout() time.Duration { return c.idleTimeout }
