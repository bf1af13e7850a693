// Package websocket is the transport: it upgrades HTTP requests and pumps
// frames between the socket and the connection's queues.
// The read goroutine pushes inbound frames, the write goroutine drains the
// outbound buffer. Separating them keeps a slow browser from blocking reads.
package websocket

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/sink"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const anyOrigin = "*"

// Hub is where accepted connections are handed over.
type Hub interface {
	Open(conn *sink.ConnectionSink) error
	Disconnect(conn contract.Connection, reason string) bool
}

type Settings struct {
	InboundBufferSize  int
	OutboundBufferSize int
	Bounds             domain.HandshakeBounds
	PingInterval       time.Duration
	WriteTimeout       time.Duration
	MaxFrameSize       int64
	AllowedOrigins     []string
}

type Handler struct {
	log      *slog.Logger
	hub      Hub
	settings Settings
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, hub Hub, settings Settings) *Handler {
	h := &Handler{log: log, hub: hub, settings: settings}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// Non browser clients send no origin
	if origin == "" {
		return true
	}
	return lo.Contains(h.settings.AllowedOrigins, anyOrigin) || lo.Contains(h.settings.AllowedOrigins, origin)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handshake, err := domain.ParseHandshake(r.URL.Query(), h.settings.Bounds)
	if err != nil {
		h.log.Debug("Handshake refused", "error", err, "remote", r.RemoteAddr)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the client
		h.log.Debug("Upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	conn := sink.NewConnectionSink(h.settings.InboundBufferSize, h.settings.OutboundBufferSize, handshake.IdleTimeout)
	if err := h.hub.Open(conn); err != nil {
		h.log.Warn("Connection refused", "error", err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(h.settings.WriteTimeout))
		_ = ws.Close()
		return
	}
	h.log.Debug("Connection accepted", "connection", conn.ID(),
		"protocol", handshake.ProtocolVersion, "idle_timeout", handshake.IdleTimeout)

	go h.writePump(ws, conn)
	h.readPump(r.Context(), ws, conn)
}

// readPump pumps frames from the socket to the connection's inbound queue.
func (h *Handler) readPump(ctx context.Context, ws *websocket.Conn, conn *sink.ConnectionSink) {
	reason := domain.ReasonTransportFailure
	defer func() {
		h.hub.Disconnect(conn, reason)
	}()

	ws.SetReadLimit(h.settings.MaxFrameSize)
	ws.SetPongHandler(func(string) error {
		conn.Touch()
		return nil
	})

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = domain.ReasonClientClosed
			} else if conn.Alive() {
				h.log.Debug("Read failed", "connection", conn.ID(), "error", err)
			}
			return
		}
		conn.Touch()
		if messageType != websocket.TextMessage {
			continue
		}
		if err := conn.Enqueue(ctx, data); err != nil {
			return
		}
	}
}

// writePump pumps events from the outbound buffer to the socket.
// gorilla/websocket allows a single writer per connection, this is the one.
func (h *Handler) writePump(ws *websocket.Conn, conn *sink.ConnectionSink) {
	ticker := time.NewTicker(h.pingPeriod(conn))
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case evt := <-conn.Outbound():
			if err := h.write(ws, evt); err != nil {
				h.log.Debug("Write failed", "connection", conn.ID(), "error", err)
				h.hub.Disconnect(conn, domain.ReasonTransportFailure)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.settings.WriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.hub.Disconnect(conn, domain.ReasonTransportFailure)
				return
			}
		case <-conn.Done():
			h.flush(ws, conn)
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.settings.WriteTimeout))
			return
		}
	}
}

// pingPeriod keeps at least two pings inside the connection's idle window,
// so a quiet client answering pings is never taken for idle.
func (h *Handler) pingPeriod(conn *sink.ConnectionSink) time.Duration {
	return max(min(h.settings.PingInterval, conn.IdleTimeout()/2), time.Millisecond)
}

// flush writes what was already buffered when the connection was closed.
func (h *Handler) flush(ws *websocket.Conn, conn *sink.ConnectionSink) {
	for {
		select {
		case evt := <-conn.Outbound():
			if err := h.write(ws, evt); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (h *Handler) write(ws *websocket.Conn, evt domain.OutboundEvent) error {
	data, err := evt.Encode()
	if err != nil {
		return err
	}
	if err := ws.SetWriteDeadline(time.Now().Add(h.settings.WriteTimeout)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}
