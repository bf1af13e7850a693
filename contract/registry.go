package contract

import (
	"chat-presence/domain"
	"context"
)

// IConnectionRegistry owns the live connections and the identity bound to each of them.
type IConnectionRegistry interface {
	Register(conn Connection)
	Deregister(id domain.ConnectionID) error
	Bind(conn Connection, user domain.UserID) error
	Unbind(id domain.ConnectionID)
	IdentityOf(id domain.ConnectionID) (domain.UserID, bool)
	ConnectionsFor(user domain.UserID) []Connection
	Lookup(id domain.ConnectionID) (Connection, bool)
	All() []Connection
	Count() int
}

// IRoomRegistry owns room membership.
type IRoomRegistry interface {
	Join(conn Connection, room domain.RoomID) error
	LeaveAll(id domain.ConnectionID) ([]domain.RoomID, error)
	MembersOf(room domain.RoomID) []Connection
	RoomsOf(id domain.ConnectionID) []domain.RoomID
	RoomCount() int
}

type ILifecycle interface {
	Open(conn Connection)
	Setup(conn Connection, user domain.UserID) error
	Disconnect(conn Connection, reason string) bool
}

type IRouter interface {
	Route(ctx context.Context, conn Connection, frame []byte)
	Handle(ctx context.Context, conn Connection, evt domain.InboundEvent) error
}
