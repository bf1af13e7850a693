package websocket_test

import (
	"chat-presence/domain"
	"chat-presence/domain/event"
	transport "chat-presence/infrastructure/websocket"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/sink"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *runtime.Orchestrator) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetry := make(chan event.Event, 100)
	supervisor := workers.NewSupervisor(log, telemetry, 50*time.Millisecond)
	orchestrator := runtime.NewOrchestrator(log, supervisor, telemetry, event.NewCounter(), time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go orchestrator.Start(ctx)
	require.Eventually(t, func() bool {
		probe := sink.NewConnectionSink(1, 1, time.Minute)
		if orchestrator.Open(probe) != nil {
			return false
		}
		orchestrator.Disconnect(probe, domain.ReasonClientClosed)
		return true
	}, time.Second, 5*time.Millisecond)

	handler := transport.NewHandler(log, orchestrator, transport.Settings{
		InboundBufferSize:  8,
		OutboundBufferSize: 8,
		Bounds: domain.HandshakeBounds{
			DefaultIdleTimeout: time.Minute,
			MinIdleTimeout:     10 * time.Millisecond,
			MaxIdleTimeout:     time.Hour,
		},
		PingInterval:   time.Second,
		WriteTimeout:   time.Second,
		MaxFrameSize:   64 * 1024,
		AllowedOrigins: []string{"http://chat.example"},
	})
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		orchestrator.Stop()
		cancel()
	})
	return server, orchestrator
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, kind domain.InboundKind, data any) {
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(domain.Frame{Event: string(kind), Data: raw})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
}

func read(t *testing.T, ws *websocket.Conn, timeout time.Duration) (domain.Frame, error) {
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return domain.Frame{}, err
	}
	var frame domain.Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame, nil
}

func online(t *testing.T, server *httptest.Server, user string) *websocket.Conn {
	ws := dial(t, server, "")
	send(t, ws, domain.KindSetup, map[string]string{"userId": user})
	frame, err := read(t, ws, time.Second)
	require.NoError(t, err)
	require.Equal(t, string(domain.KindConnected), frame.Event)
	send(t, ws, domain.KindJoinRoom, map[string]string{"roomId": "r1"})
	return ws
}

func TestHandler_Message_Fanout(t *testing.T) {
	req := require.New(t)
	server, orchestrator := newServer(t)

	// Given A as u1 and B as u2, both in r1
	a := online(t, server, "u1")
	b := online(t, server, "u2")
	req.Eventually(func() bool { return orchestrator.Stats().Rooms == 1 }, time.Second, 10*time.Millisecond)

	// When A sends a message naming both
	message := map[string]any{
		"room":    map[string]any{"id": "r1", "members": []map[string]string{{"id": "u1"}, {"id": "u2"}}},
		"sender":  map[string]string{"id": "u1"},
		"content": "hello",
	}
	send(t, a, domain.KindNewMessage, message)

	// Then B receives it, A does not
	frame, err := read(t, b, time.Second)
	req.NoError(err)
	req.Equal(string(domain.KindMessageReceived), frame.Event)
	expected, _ := json.Marshal(message)
	req.JSONEq(string(expected), string(frame.Data))

	_, err = read(t, a, 100*time.Millisecond)
	req.Error(err)
}

func TestHandler_Client_Close_Tears_Down(t *testing.T) {
	req := require.New(t)
	server, orchestrator := newServer(t)
	a := online(t, server, "u1")
	_ = online(t, server, "u2")
	req.Eventually(func() bool { return len(orchestrator.ConnectionsFor("u2")) == 1 }, time.Second, 10*time.Millisecond)

	req.NoError(a.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	req.Eventually(func() bool {
		return len(orchestrator.ConnectionsFor("u1")) == 0 && orchestrator.Stats().Connections == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandler_Idle_Timeout_Override(t *testing.T) {
	req := require.New(t)
	server, orchestrator := newServer(t)
	ws := dial(t, server, "?v=1&timeout=50ms")
	// A client that never answers pings
	ws.SetPingHandler(func(string) error { return nil })

	// Silence makes the server close the socket
	for {
		_, err := read(t, ws, 2*time.Second)
		if err != nil {
			req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure))
			break
		}
	}
	req.Eventually(func() bool { return orchestrator.Stats().Connections == 0 }, time.Second, 10*time.Millisecond)
}

func TestHandler_Quiet_Client_Answering_Pings_Stays_Connected(t *testing.T) {
	req := require.New(t)
	server, orchestrator := newServer(t)

	// Given a client with an idle window shorter than the server ping interval
	ws := dial(t, server, "?v=1&timeout=300ms")
	send(t, ws, domain.KindSetup, map[string]string{"userId": "quiet"})
	frame, err := read(t, ws, time.Second)
	req.NoError(err)
	req.Equal(string(domain.KindConnected), frame.Event)

	// When it sends nothing but keeps reading, so pings get their pong
	_, err = read(t, ws, 1500*time.Millisecond)

	// Then only the read deadline fired and the session is still there
	req.Error(err)
	req.False(websocket.IsCloseError(err, websocket.CloseNormalClosure))
	req.Len(orchestrator.ConnectionsFor("quiet"), 1)
}

func TestHandler_Handshake_Refused(t *testing.T) {
	server, _ := newServer(t)
	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	for _, query := range []string{"?v=2", "?v=abc", "?timeout=1ms", "?timeout=forever"} {
		t.Run(query, func(t *testing.T) {
			req := require.New(t)
			_, response, err := websocket.DefaultDialer.Dial(base+query, nil)
			req.Error(err)
			req.NotNil(response)
			req.Equal(http.StatusBadRequest, response.StatusCode)
		})
	}
}

func TestHandler_Origin_Check(t *testing.T) {
	server, _ := newServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	t.Run("should refuse an unknown origin", func(t *testing.T) {
		req := require.New(t)
		_, response, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
		req.Error(err)
		req.Equal(http.StatusForbidden, response.StatusCode)
	})

	t.Run("should accept an allowed origin", func(t *testing.T) {
		req := require.New(t)
		ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://chat.example"}})
		req.NoError(err)
		_ = ws.Close()
	})
}
