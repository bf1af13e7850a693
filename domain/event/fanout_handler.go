package event

import (
	"chat-presence/errors"
	"log/slog"
)

// FanoutHandler handles events emitted after each broadcast.
// It accumulates how many deliveries were attempted and how many were accepted
// by the recipients' outbound buffers.
type FanoutHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewFanoutHandler(log *slog.Logger, counter *Counter) *FanoutHandler {
	return &FanoutHandler{log: log, counter: counter}
}

func (h *FanoutHandler) Handle(event Event) {
	switch event.Type {
	case FanoutType:
		payload, ok := event.Payload.(Fanout)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(FanoutType)
		h.counter.Add(DeliveredCount, uint64(payload.Delivered))
		h.log.Debug("Fanout done",
			"kind", payload.Kind,
			"origin", payload.Origin,
			"targets", payload.Targets,
			"delivered", payload.Delivered)
	}
}
