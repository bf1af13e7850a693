package domain

import "encoding/json"

type OutboundKind string

const (
	KindConnected       OutboundKind = "connected"
	KindTypingStarted   OutboundKind = "typing"
	KindTypingStopped   OutboundKind = "stop_typing"
	KindMessageReceived OutboundKind = "message_received"
	KindPong            OutboundKind = "pong"
)

var emptyPayload = json.RawMessage(`{}`)

// OutboundEvent only lives for the duration of a dispatch.
type OutboundEvent struct {
	Kind    OutboundKind
	Payload json.RawMessage
}

func NewConnected() OutboundEvent     { return OutboundEvent{Kind: KindConnected, Payload: emptyPayload} }
func NewTypingStarted() OutboundEvent { return OutboundEvent{Kind: KindTypingStarted, Payload: emptyPayload} }
func NewTypingStopped() OutboundEvent { return OutboundEvent{Kind: KindTypingStopped, Payload: emptyPayload} }
func NewPong() OutboundEvent          { return OutboundEvent{Kind: KindPong, Payload: emptyPayload} }

func NewMessageReceived(payload json.RawMessage) OutboundEvent {
	return OutboundEvent{Kind: KindMessageReceived, Payload: payload}
}

// Encode renders the event as a wire frame.
func (e OutboundEvent) Encode() ([]byte, error) {
	payload := e.Payload
	if len(payload) == 0 {
		payload = emptyPayload
	}
	return json.Marshal(Frame{Event: string(e.Kind), Data: payload})
}
