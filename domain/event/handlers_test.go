package event

import (
	"chat-presence/domain"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHandlers_Count_Events(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	counter := NewCounter()
	handlers := []Handler{
		NewConnectionLifecycleHandler(log, counter),
		NewFanoutHandler(log, counter),
		NewDeliveryDroppedHandler(log, counter),
		NewMalformedEventHandler(log, counter),
		NewWorkerRestartedAfterPanicHandler(log, counter),
	}
	events := []Event{
		New(ConnectionOpenedType, ConnectionOpened{ConnectionID: "c1"}),
		New(IdentityBoundType, IdentityBound{ConnectionID: "c1", UserID: "alice"}),
		New(FanoutType, Fanout{Kind: domain.KindMessageReceived, Origin: "c1", Targets: 3, Delivered: 2}),
		New(FanoutType, Fanout{Kind: domain.KindTypingStarted, Origin: "c1", Targets: 1, Delivered: 1}),
		New(DeliveryDroppedType, DeliveryDropped{ConnectionID: "c2", Kind: domain.KindMessageReceived}),
		New(MalformedEventType, MalformedEvent{ConnectionID: "c1", Reason: "bad"}),
		New(ConnectionClosedType, ConnectionClosed{ConnectionID: "c1", Reason: domain.ReasonIdleTimeout}),
		New(RestartedAfterPanicType, WorkerRestartedAfterPanic{WorkerName: "w"}),
		New(RestartedAfterPanicType, WorkerRestartedAfterPanic{WorkerName: "InboundWorker", ConnectionID: "c1"}),
	}

	// When the chain sees every event
	for _, evt := range events {
		Chain(handlers).Handle(evt)
	}

	// Then each handler only counts its own types
	req.Equal(uint64(1), counter.Get(ConnectionOpenedType))
	req.Equal(uint64(1), counter.Get(IdentityBoundType))
	req.Equal(uint64(2), counter.Get(FanoutType))
	req.Equal(uint64(3), counter.Get(DeliveredCount))
	req.Equal(uint64(1), counter.Get(DeliveryDroppedType))
	req.Equal(uint64(1), counter.Get(MalformedEventType))
	req.Equal(uint64(1), counter.Get(ConnectionClosedType))
	req.Equal(uint64(1), counter.Get(IdleTimeoutCount))
	req.Equal(uint64(2), counter.Get(RestartedAfterPanicType))
	req.Equal(uint64(1), counter.Get(ConnectionWorkerRestartCount))
	req.Zero(counter.Get(RegistryInvariantType))
}

func TestHandlers_Ignore_Invalid_Payload(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	counter := NewCounter()

	NewFanoutHandler(log, counter).Handle(New(FanoutType, "not a fanout"))
	NewConnectionLifecycleHandler(log, counter).Handle(New(ConnectionClosedType, 42))

	req.Empty(counter.Snapshot())
}

func TestCounter_Snapshot_Is_A_Copy(t *testing.T) {
	req := require.New(t)
	counter := NewCounter()
	counter.Increment(FanoutType)

	snapshot := counter.Snapshot()
	counter.Increment(FanoutType)

	req.Equal(uint64(1), snapshot[FanoutType])
	req.Equal(uint64(2), counter.Get(FanoutType))
}
