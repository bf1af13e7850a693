package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	apperrors "chat-presence/errors"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

var _ contract.IRouter = (*Router)(nil)

// Router validates inbound events and computes their fan-out.
// It never holds a registry lock while sending: targets are snapshots.
type Router struct {
	emitter
	connections contract.IConnectionRegistry
	rooms       contract.IRoomRegistry
	lifecycle   contract.ILifecycle
}

func NewRouter(log *slog.Logger, connections contract.IConnectionRegistry,
	rooms contract.IRoomRegistry, lifecycle contract.ILifecycle,
	telemetry chan<- event.Event) *Router {
	return &Router{
		emitter:     emitter{log: log, telemetry: telemetry},
		connections: connections,
		rooms:       rooms,
		lifecycle:   lifecycle,
	}
}

// Route decodes a raw frame and handles it. A frame that does not match any
// known variant is dropped and reported, the connection stays open.
func (r *Router) Route(ctx context.Context, conn contract.Connection, frame []byte) {
	evt, err := domain.Decode(frame)
	if err != nil {
		r.malformed(conn.ID(), err)
		return
	}
	if err := r.Handle(ctx, conn, evt); err != nil {
		r.log.Debug("Event not handled", "connection", conn.ID(), "kind", evt.Kind(), "error", err)
	}
}

func (r *Router) Handle(ctx context.Context, conn contract.Connection, evt domain.InboundEvent) error {
	switch e := evt.(type) {
	case domain.Setup:
		return r.setup(conn, e)
	case domain.JoinRoom:
		return r.join(conn, e)
	case domain.Typing:
		r.toRoom(conn, e.RoomID, domain.NewTypingStarted())
		return nil
	case domain.StopTyping:
		r.toRoom(conn, e.RoomID, domain.NewTypingStopped())
		return nil
	case domain.NewMessage:
		return r.message(conn, e)
	case domain.Ping:
		r.deliver(conn.ID(), []contract.Connection{conn}, domain.NewPong())
		return nil
	case domain.Disconnect:
		r.lifecycle.Disconnect(conn, e.Reason)
		return nil
	default:
		err := fmt.Errorf("%w: %T", apperrors.ErrUnknownEvent, evt)
		r.malformed(conn.ID(), err)
		return err
	}
}

func (r *Router) setup(conn contract.Connection, e domain.Setup) error {
	if err := r.lifecycle.Setup(conn, e.UserID); err != nil {
		return r.rejected(conn, "setup", err)
	}
	r.deliver(conn.ID(), []contract.Connection{conn}, domain.NewConnected())
	return nil
}

// join is silent: nobody is told about the new member.
func (r *Router) join(conn contract.Connection, e domain.JoinRoom) error {
	if _, ok := r.connections.Lookup(conn.ID()); !ok && conn.Alive() {
		err := fmt.Errorf("%w: join from unregistered connection", apperrors.ErrRegistryInvariant)
		return r.rejected(conn, "join", err)
	}
	if err := r.rooms.Join(conn, e.RoomID); err != nil {
		return r.rejected(conn, "join", err)
	}
	r.log.Debug("Room joined", "connection", conn.ID(), "room", e.RoomID)
	return nil
}

// toRoom sends to every member of the room except the originating connection.
func (r *Router) toRoom(conn contract.Connection, room domain.RoomID, out domain.OutboundEvent) {
	targets := lo.Reject(r.rooms.MembersOf(room), func(c contract.Connection, _ int) bool {
		return c.ID() == conn.ID()
	})
	r.deliver(conn.ID(), targets, out)
}

// message sends to every connection bound to a listed member, except the
// connections of the sender's identity. The sender's other devices get nothing.
func (r *Router) message(conn contract.Connection, e domain.NewMessage) error {
	if len(e.Room.Members) == 0 || e.Sender.ID == "" {
		err := fmt.Errorf("%w: new_message without members or sender", apperrors.ErrMalformedEvent)
		r.malformed(conn.ID(), err)
		return err
	}
	payload, err := e.Payload()
	if err != nil {
		err = fmt.Errorf("%w: %v", apperrors.ErrMalformedEvent, err)
		r.malformed(conn.ID(), err)
		return err
	}

	var targets []contract.Connection
	for _, member := range e.MemberIDs() {
		if member == e.Sender.ID {
			continue
		}
		targets = append(targets, r.connections.ConnectionsFor(member)...)
	}
	r.deliver(conn.ID(), targets, domain.NewMessageReceived(payload))
	return nil
}

// deliver hands the event to each target without blocking. A slow recipient
// loses the event, a broken one is torn down. No target is ever sent to twice.
func (r *Router) deliver(origin domain.ConnectionID, targets []contract.Connection, out domain.OutboundEvent) {
	targets = lo.UniqBy(targets, func(c contract.Connection) domain.ConnectionID { return c.ID() })

	delivered := 0
	for _, target := range targets {
		err := target.Send(out)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, apperrors.ErrOutboundBufferFull):
			r.log.Warn("Outbound buffer full, event dropped",
				"connection", target.ID(), "kind", out.Kind)
			r.emit(event.DeliveryDroppedType, event.DeliveryDropped{
				ConnectionID: target.ID(),
				Kind:         out.Kind,
				Reason:       err.Error(),
			})
		case errors.Is(err, apperrors.ErrConnectionClosed):
			// Already being torn down
			r.log.Debug("Target already closed", "connection", target.ID(), "kind", out.Kind)
		default:
			r.log.Warn("Send failed, closing connection", "connection", target.ID(), "error", err)
			r.lifecycle.Disconnect(target, domain.ReasonTransportFailure)
		}
	}

	r.emit(event.FanoutType, event.Fanout{
		Kind:      out.Kind,
		Origin:    origin,
		Targets:   len(targets),
		Delivered: delivered,
	})
}

func (r *Router) malformed(id domain.ConnectionID, err error) {
	r.log.Warn("Malformed event dropped", "connection", id, "error", err)
	r.emit(event.MalformedEventType, event.MalformedEvent{ConnectionID: id, Reason: err.Error()})
}

// rejected logs a refused operation. A closed connection is expected during
// teardown, anything else is a registry problem.
func (r *Router) rejected(conn contract.Connection, operation string, err error) error {
	if errors.Is(err, apperrors.ErrConnectionClosed) {
		r.log.Debug("Operation on closed connection ignored", "connection", conn.ID(), "operation", operation)
		return err
	}
	r.log.Error("Operation rejected", "connection", conn.ID(), "operation", operation, "error", err)
	r.emit(event.RegistryInvariantType, event.RegistryInvariant{
		ConnectionID: conn.ID(),
		Operation:    operation,
		Reason:       err.Error(),
	})
	return err
}
