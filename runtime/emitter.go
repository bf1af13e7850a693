package runtime

import (
	"chat-presence/domain/event"
	"log/slog"
)

// emitter pushes telemetry without ever blocking the hot path.
// A nil channel disables telemetry.
type emitter struct {
	log       *slog.Logger
	telemetry chan<- event.Event
}

func (e emitter) emit(t event.Type, payload any) {
	if e.telemetry == nil {
		return
	}
	select {
	case e.telemetry <- event.New(t, payload):
	default:
		e.log.Debug("Telemetry event lost", "type", t)
	}
}
