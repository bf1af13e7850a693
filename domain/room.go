package domain

// RoomID identifies a room. A room exists implicitly while at least one
// connection has joined it; it carries no other state.
type RoomID string
