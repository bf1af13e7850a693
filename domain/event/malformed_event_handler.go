package event

import (
	"chat-presence/errors"
	"log/slog"
)

// MalformedEventHandler counts rejected inbound frames and registry invariant violations.
// Both are already logged where they happen; this keeps the totals.
type MalformedEventHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewMalformedEventHandler(log *slog.Logger, counter *Counter) *MalformedEventHandler {
	return &MalformedEventHandler{log: log, counter: counter}
}

func (h *MalformedEventHandler) Handle(event Event) {
	switch event.Type {
	case MalformedEventType:
		if _, ok := event.Payload.(MalformedEvent); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(MalformedEventType)
	case RegistryInvariantType:
		if _, ok := event.Payload.(RegistryInvariant); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(RegistryInvariantType)
	}
}
