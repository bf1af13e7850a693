package workers

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/sink"
	"context"
	"log/slog"
	"time"
)

const minIdleCheckInterval = 10 * time.Millisecond

// InboundWorker drains the inbound queue of a single connection.
// One worker per connection keeps the events of that connection in order,
// while different connections are routed concurrently.
// It also enforces the idle window: no traffic for too long tears the connection down.
type InboundWorker struct {
	log       *slog.Logger
	conn      *sink.ConnectionSink
	router    contract.IRouter
	lifecycle contract.ILifecycle
}

func NewInboundWorker(log *slog.Logger, conn *sink.ConnectionSink,
	router contract.IRouter, lifecycle contract.ILifecycle) *InboundWorker {
	return &InboundWorker{log: log, conn: conn, router: router, lifecycle: lifecycle}
}

func (w InboundWorker) ConnectionID() domain.ConnectionID { return w.conn.ID() }

func (w InboundWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(idleCheckInterval(w.conn.IdleTimeout()))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.lifecycle.Disconnect(w.conn, domain.ReasonShutdown)
			return nil
		case <-w.conn.Done():
			return nil
		case frame := <-w.conn.Inbound():
			w.router.Route(ctx, w.conn, frame)
		case now := <-ticker.C:
			if w.conn.IdleFor(now) > w.conn.IdleTimeout() {
				w.log.Debug("Connection idle, closing", "connection", w.conn.ID())
				w.lifecycle.Disconnect(w.conn, domain.ReasonIdleTimeout)
				return nil
			}
		}
	}
}

func idleCheckInterval(idleTimeout time.Duration) time.Duration {
	return max(idleTimeout/4, minIdleCheckInterval)
}
