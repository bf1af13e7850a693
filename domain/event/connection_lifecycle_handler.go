package event

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"log/slog"
)

// ConnectionLifecycleHandler counts opened, bound and closed connections.
type ConnectionLifecycleHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewConnectionLifecycleHandler(log *slog.Logger, counter *Counter) *ConnectionLifecycleHandler {
	return &ConnectionLifecycleHandler{log: log, counter: counter}
}

func (h *ConnectionLifecycleHandler) Handle(event Event) {
	switch event.Type {
	case ConnectionOpenedType:
		if _, ok := event.Payload.(ConnectionOpened); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(ConnectionOpenedType)
	case IdentityBoundType:
		if _, ok := event.Payload.(IdentityBound); !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(IdentityBoundType)
	case ConnectionClosedType:
		payload, ok := event.Payload.(ConnectionClosed)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(ConnectionClosedType)
		if payload.Reason == domain.ReasonIdleTimeout {
			h.counter.Increment(IdleTimeoutCount)
		}
	}
}
