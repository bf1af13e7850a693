package event

import (
	"chat-presence/errors"
	"log/slog"
)

// WorkerRestartedAfterPanicHandler counts workers the Supervisor brought back after a panic.
// A restart of a connection's inbound worker is counted apart: it points at a frame
// the router could not survive.
type WorkerRestartedAfterPanicHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewWorkerRestartedAfterPanicHandler(log *slog.Logger, counter *Counter) *WorkerRestartedAfterPanicHandler {
	return &WorkerRestartedAfterPanicHandler{log: log, counter: counter}
}

func (h *WorkerRestartedAfterPanicHandler) Handle(event Event) {
	switch event.Type {
	case RestartedAfterPanicType:
		payload, ok := event.Payload.(WorkerRestartedAfterPanic)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(RestartedAfterPanicType)
		if payload.ConnectionID == "" {
			h.log.Warn("Worker restarted after panic",
				"worker", payload.WorkerName,
				"total", h.counter.Get(RestartedAfterPanicType))
			return
		}
		h.counter.Increment(ConnectionWorkerRestartCount)
		h.log.Warn("Connection worker restarted after panic",
			"worker", payload.WorkerName,
			"connection", payload.ConnectionID,
			"total", h.counter.Get(ConnectionWorkerRestartCount))
	}
}
