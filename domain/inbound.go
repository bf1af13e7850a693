package domain

import (
	"chat-presence/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type InboundKind string

const (
	KindSetup      InboundKind = "setup"
	KindJoinRoom   InboundKind = "join_room"
	KindTyping     InboundKind = "typing"
	KindStopTyping InboundKind = "stop_typing"
	KindNewMessage InboundKind = "new_message"
	KindPing       InboundKind = "ping"
	// KindDisconnect is produced by the transport, never decoded from a frame.
	KindDisconnect InboundKind = "disconnect"
)

// InboundEvent is one of the tagged variants a client may send.
type InboundEvent interface {
	Kind() InboundKind
}

type Setup struct {
	UserID UserID `json:"userId" validate:"required"`
}

type JoinRoom struct {
	RoomID RoomID `json:"roomId" validate:"required"`
}

type Typing struct {
	RoomID RoomID `json:"roomId" validate:"required"`
}

type StopTyping struct {
	RoomID RoomID `json:"roomId" validate:"required"`
}

// Ping is the application level liveness probe.
type Ping struct{}

// Reasons a connection is torn down.
const (
	ReasonClientClosed     = "client_closed"
	ReasonClientRequest    = "client_request"
	ReasonTransportFailure = "transport_failure"
	ReasonIdleTimeout      = "idle_timeout"
	ReasonShutdown         = "shutdown"
)

type Disconnect struct {
	Reason string
}

func (Setup) Kind() InboundKind      { return KindSetup }
func (JoinRoom) Kind() InboundKind   { return KindJoinRoom }
func (Typing) Kind() InboundKind     { return KindTyping }
func (StopTyping) Kind() InboundKind { return KindStopTyping }
func (Ping) Kind() InboundKind       { return KindPing }
func (Disconnect) Kind() InboundKind { return KindDisconnect }

// Frame is the wire envelope shared by inbound and outbound traffic.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var validate = validator.New()

// Decode turns a raw frame into a typed inbound event.
// Every failure wraps errors.ErrMalformedEvent.
func Decode(raw []byte) (InboundEvent, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}

	switch InboundKind(frame.Event) {
	case KindSetup:
		return decode[Setup](frame.Data)
	case KindJoinRoom:
		return decode[JoinRoom](frame.Data)
	case KindTyping:
		return decode[Typing](frame.Data)
	case KindStopTyping:
		return decode[StopTyping](frame.Data)
	case KindPing:
		return Ping{}, nil
	case KindNewMessage:
		evt, err := decode[NewMessage](frame.Data)
		if err != nil {
			return nil, err
		}
		msg := evt.(NewMessage)
		msg.Raw = append(json.RawMessage(nil), frame.Data...)
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
	}
}

func decode[T InboundEvent](data json.RawMessage) (InboundEvent, error) {
	var payload T
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("%w: %s without data", errors.ErrMalformedEvent, payload.Kind())
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrMalformedEvent, payload.Kind(), err)
	}
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrMalformedEvent, payload.Kind(), err)
	}
	return payload, nil
}
