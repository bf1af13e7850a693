package event

import (
	"chat-presence/domain"
	"time"
)

type Type string

const (
	ConnectionOpenedType  Type = "CONNECTION_OPENED"
	ConnectionClosedType  Type = "CONNECTION_CLOSED"
	IdentityBoundType     Type = "IDENTITY_BOUND"
	FanoutType            Type = "FANOUT"
	DeliveryDroppedType   Type = "DELIVERY_DROPPED"
	MalformedEventType    Type = "MALFORMED_EVENT"
	RegistryInvariantType Type = "REGISTRY_INVARIANT_VIOLATION"

	// Derived totals, only ever found in a Counter.
	DeliveredCount               Type = "DELIVERED"
	IdleTimeoutCount             Type = "IDLE_TIMEOUT"
	ConnectionWorkerRestartCount Type = "CONNECTION_WORKER_RESTARTED"
)

// Event is a telemetry record. It never carries message content.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

type ConnectionOpened struct {
	ConnectionID domain.ConnectionID
}

type ConnectionClosed struct {
	ConnectionID domain.ConnectionID
	UserID       domain.UserID
	Reason       string
	RoomsLeft    int
}

type IdentityBound struct {
	ConnectionID domain.ConnectionID
	UserID       domain.UserID
}

type Fanout struct {
	Kind      domain.OutboundKind
	Origin    domain.ConnectionID
	Targets   int
	Delivered int
}

type DeliveryDropped struct {
	ConnectionID domain.ConnectionID
	Kind         domain.OutboundKind
	Reason       string
}

type MalformedEvent struct {
	ConnectionID domain.ConnectionID
	Reason       string
}

type RegistryInvariant struct {
	ConnectionID domain.ConnectionID
	Operation    string
	Reason       string
}
