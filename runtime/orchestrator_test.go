package runtime_test

import (
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/errors"
	"chat-presence/mocks"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/sink"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newOrchestrator() *runtime.Orchestrator {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetry := make(chan event.Event, 100)
	supervisor := workers.NewSupervisor(log, telemetry, 50*time.Millisecond)
	return runtime.NewOrchestrator(log, supervisor, telemetry, event.NewCounter(), 20*time.Millisecond, 1)
}

func TestOrchestrator_Open_Before_Start(t *testing.T) {
	req := require.New(t)
	orchestrator := newOrchestrator()
	conn := newConn()

	req.ErrorIs(orchestrator.Open(conn), errors.ErrNotRunning)
	req.False(conn.Alive())
	req.Zero(orchestrator.Stats().Connections)
}

func TestOrchestrator_Drives_Supervisor(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	supervisor := mocks.NewMockISupervisor(ctrl)
	extra := mocks.NewMockWorker(ctrl)
	orchestrator := runtime.NewOrchestrator(log, supervisor, make(chan event.Event, 10), event.NewCounter(), time.Second, 1)
	orchestrator.Add(extra)

	t.Run("should add built-in workers then extras and run", func(t *testing.T) {
		supervisor.EXPECT().Add(gomock.Any()).Return(supervisor).Times(3)
		supervisor.EXPECT().Add(extra).Return(supervisor).Times(1)
		supervisor.EXPECT().Run(gomock.Any()).Times(1)

		orchestrator.Start(context.Background())
	})

	t.Run("should tear the connection down when no worker can be spawned", func(t *testing.T) {
		req := require.New(t)
		conn := newConn()
		supervisor.EXPECT().Spawn(gomock.Any()).Return(errors.ErrNotRunning).Times(1)

		req.ErrorIs(orchestrator.Open(conn), errors.ErrNotRunning)
		req.False(conn.Alive())
		req.Zero(orchestrator.Stats().Connections)
	})

	t.Run("should register the connection once its worker is spawned", func(t *testing.T) {
		req := require.New(t)
		conn := newConn()
		supervisor.EXPECT().Spawn(gomock.Any()).Return(nil).Times(1)

		req.NoError(orchestrator.Open(conn))
		req.True(conn.Alive())
		req.Equal(1, orchestrator.Stats().Connections)

		// Stop closes it before stopping the workers
		supervisor.EXPECT().Stop().Do(func() {
			req.False(conn.Alive())
			req.Zero(orchestrator.Stats().Connections)
		}).Times(1)
		orchestrator.Stop()
	})
}

func TestOrchestrator_End_To_End(t *testing.T) {
	req := require.New(t)
	orchestrator := newOrchestrator()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		orchestrator.Start(ctx)
		close(done)
	}()

	open := func(user string) *sink.ConnectionSink {
		var conn *sink.ConnectionSink
		req.Eventually(func() bool {
			conn = newConn()
			return orchestrator.Open(conn) == nil
		}, time.Second, 5*time.Millisecond)
		req.NoError(conn.Enqueue(ctx, frame(domain.KindSetup, `{"userId":"`+user+`"}`)))
		req.NoError(conn.Enqueue(ctx, frame(domain.KindJoinRoom, `{"roomId":"r1"}`)))
		return conn
	}

	// Given A as u1 and B as u2 in r1
	a := open("u1")
	b := open("u2")
	req.Eventually(func() bool { return len(a.Outbound()) == 1 && len(b.Outbound()) == 1 }, time.Second, 5*time.Millisecond)
	received(a)
	received(b)
	req.Eventually(func() bool { return orchestrator.Stats().Rooms == 1 }, time.Second, 5*time.Millisecond)
	req.Len(orchestrator.ConnectionsFor("u2"), 1)

	// When A types
	req.NoError(a.Enqueue(ctx, frame(domain.KindTyping, `{"roomId":"r1"}`)))

	// Then B is told
	req.Eventually(func() bool { return len(b.Outbound()) == 1 }, time.Second, 5*time.Millisecond)
	req.Equal(domain.KindTypingStarted, (<-b.Outbound()).Kind)

	// Telemetry reaches the counters
	req.Eventually(func() bool {
		return orchestrator.Stats().Counters[string(event.ConnectionOpenedType)] == 2
	}, time.Second, 5*time.Millisecond)

	// When A goes away
	req.True(orchestrator.Disconnect(a, domain.ReasonClientClosed))
	req.False(orchestrator.Disconnect(a, domain.ReasonClientClosed))
	req.Equal(1, orchestrator.Stats().Connections)

	// Then stopping closes B and returns
	orchestrator.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("orchestrator did not stop")
	}
	req.False(b.Alive())
	req.Zero(orchestrator.Stats().Connections)
	req.Zero(orchestrator.Stats().Rooms)
}
