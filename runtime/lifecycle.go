package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"log/slog"
)

var _ contract.ILifecycle = (*Lifecycle)(nil)

// Lifecycle wraps connection creation and destruction.
// Teardown always runs in the same order: close, leave every room, unbind,
// deregister. It runs once per connection whatever triggered it.
type Lifecycle struct {
	emitter
	connections contract.IConnectionRegistry
	rooms       contract.IRoomRegistry
}

func NewLifecycle(log *slog.Logger, connections contract.IConnectionRegistry,
	rooms contract.IRoomRegistry, telemetry chan<- event.Event) *Lifecycle {
	return &Lifecycle{
		emitter:     emitter{log: log, telemetry: telemetry},
		connections: connections,
		rooms:       rooms,
	}
}

// Open registers a new, unauthenticated connection.
func (l *Lifecycle) Open(conn contract.Connection) {
	l.connections.Register(conn)
	l.log.Debug("Connection opened", "connection", conn.ID())
	l.emit(event.ConnectionOpenedType, event.ConnectionOpened{ConnectionID: conn.ID()})
}

// Setup binds the connection to the identity it declared.
func (l *Lifecycle) Setup(conn contract.Connection, user domain.UserID) error {
	if err := l.connections.Bind(conn, user); err != nil {
		return err
	}
	l.log.Debug("Identity bound", "connection", conn.ID(), "user", user)
	l.emit(event.IdentityBoundType, event.IdentityBound{ConnectionID: conn.ID(), UserID: user})
	return nil
}

// Disconnect tears the connection down. It returns false when another caller
// already did it.
func (l *Lifecycle) Disconnect(conn contract.Connection, reason string) bool {
	// Once closed, registries refuse any new join or bind for this connection,
	// so nothing can be added back after the cleanup below.
	if !conn.Close() {
		return false
	}

	id := conn.ID()
	user, _ := l.connections.IdentityOf(id)

	left, err := l.rooms.LeaveAll(id)
	if err != nil {
		l.violation(id, "leave_all", err)
	}
	l.connections.Unbind(id)
	if err := l.connections.Deregister(id); err != nil {
		l.violation(id, "deregister", err)
	}

	l.log.Info("Connection closed",
		"connection", id, "user", user, "reason", reason, "rooms_left", len(left))
	l.emit(event.ConnectionClosedType, event.ConnectionClosed{
		ConnectionID: id,
		UserID:       user,
		Reason:       reason,
		RoomsLeft:    len(left),
	})
	return true
}

// DisconnectAll tears down every registered connection and returns how many it closed.
func (l *Lifecycle) DisconnectAll(reason string) int {
	closed := 0
	for _, conn := range l.connections.All() {
		if l.Disconnect(conn, reason) {
			closed++
		}
	}
	return closed
}

func (l *Lifecycle) violation(id domain.ConnectionID, operation string, err error) {
	l.log.Error("Registry invariant violated", "connection", id, "operation", operation, "error", err)
	l.emit(event.RegistryInvariantType, event.RegistryInvariant{
		ConnectionID: id,
		Operation:    operation,
		Reason:       err.Error(),
	})
}
