package event

import (
	"chat-presence/errors"
	"fmt"
	"log/slog"
)

type ProcessTrackerHandler struct {
	log *slog.Logger
}

func NewProcessTrackerHandler(log *slog.Logger) *ProcessTrackerHandler {
	return &ProcessTrackerHandler{log: log}
}

func (h ProcessTrackerHandler) Handle(event Event) {
	switch event.Type {
	case ProcessStatsType:
		payload, ok := event.Payload.(ProcessStats)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.log.Debug(fmt.Sprintf("[PRESENCE] PID %d | STATUS %s | CPU %.2f%% | RAM %d B | GOROUTINES %d | CONNECTIONS %d | ROOMS %d",
			payload.PID, payload.Status, payload.Cpu, payload.Ram, payload.Goroutines, payload.Connections, payload.Rooms))
	}
}
