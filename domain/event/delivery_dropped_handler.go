package event

import (
	"chat-presence/errors"
	"log/slog"
)

// DeliveryDroppedHandler counts deliveries lost because a recipient was not keeping up
// or was already gone.
type DeliveryDroppedHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewDeliveryDroppedHandler(log *slog.Logger, counter *Counter) *DeliveryDroppedHandler {
	return &DeliveryDroppedHandler{log: log, counter: counter}
}

func (h *DeliveryDroppedHandler) Handle(event Event) {
	switch event.Type {
	case DeliveryDroppedType:
		payload, ok := event.Payload.(DeliveryDropped)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(DeliveryDroppedType)
		h.log.Debug("Delivery dropped",
			"connection_id", payload.ConnectionID,
			"kind", payload.Kind,
			"reason", payload.Reason,
			"total", h.counter.Get(DeliveryDroppedType))
	}
}
