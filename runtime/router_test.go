package runtime_test

import (
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/errors"
	"chat-presence/mocks"
	"chat-presence/sink"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func frame(kind domain.InboundKind, data string) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"data":%s}`, kind, data))
}

// received drains everything currently buffered for the connection.
func received(conn *sink.ConnectionSink) []domain.OutboundEvent {
	var events []domain.OutboundEvent
	for {
		select {
		case evt := <-conn.Outbound():
			events = append(events, evt)
		default:
			return events
		}
	}
}

// online opens a connection, sets it up as user and joins the rooms.
func (h harness) online(t *testing.T, user string, rooms ...string) *sink.ConnectionSink {
	conn := newConn()
	h.lifecycle.Open(conn)
	ctx := context.Background()
	h.router.Route(ctx, conn, frame(domain.KindSetup, fmt.Sprintf(`{"userId":%q}`, user)))
	for _, room := range rooms {
		h.router.Route(ctx, conn, frame(domain.KindJoinRoom, fmt.Sprintf(`{"roomId":%q}`, room)))
	}
	connected := received(conn)
	require.Len(t, connected, 1)
	require.Equal(t, domain.KindConnected, connected[0].Kind)
	return conn
}

func messageFrame(sender string, members ...string) []byte {
	list := make([]map[string]string, 0, len(members))
	for _, m := range members {
		list = append(list, map[string]string{"id": m})
	}
	data, _ := json.Marshal(map[string]any{
		"room":    map[string]any{"id": "r1", "members": list},
		"sender":  map[string]string{"id": sender},
		"content": "hello",
		"sentAt":  "2026-10-17T10:00:00Z",
	})
	return frame(domain.KindNewMessage, string(data))
}

func TestRouter_NewMessage_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	ctx := context.Background()

	// Given A as u1 and B as u2, both in r1
	a := h.online(t, "u1", "r1")
	b := h.online(t, "u2", "r1")

	// When A sends a message to [u1, u2]
	msg := messageFrame("u1", "u1", "u2")
	h.router.Route(ctx, a, msg)

	// Then B receives it verbatim and A receives nothing
	toB := received(b)
	req.Len(toB, 1)
	req.Equal(domain.KindMessageReceived, toB[0].Kind)
	var envelope domain.Frame
	req.NoError(json.Unmarshal(msg, &envelope))
	req.JSONEq(string(envelope.Data), string(toB[0].Payload))
	req.Contains(string(toB[0].Payload), "sentAt")
	req.Empty(received(a))
}

func TestRouter_NewMessage_Multi_Device(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	ctx := context.Background()

	a := h.online(t, "u1", "r1")
	aOther := h.online(t, "u1")
	b := h.online(t, "u2")
	bOther := h.online(t, "u2")

	// Duplicated members do not produce duplicated deliveries
	h.router.Route(ctx, a, messageFrame("u1", "u1", "u2", "u2", "u3"))

	req.Empty(received(a))
	req.Empty(received(aOther))
	req.Len(received(b), 1)
	req.Len(received(bOther), 1)

	fanout := h.events(event.FanoutType)
	last := fanout[len(fanout)-1].Payload.(event.Fanout)
	req.Equal(2, last.Targets)
	req.Equal(2, last.Delivered)
}

func TestRouter_NewMessage_Without_Members_Is_Dropped(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	ctx := context.Background()
	a := h.online(t, "u1", "r1")
	b := h.online(t, "u2", "r1")

	h.router.Route(ctx, a, frame(domain.KindNewMessage, `{"room":{"id":"r1"},"sender":{"id":"u1"}}`))
	h.router.Route(ctx, a, frame(domain.KindNewMessage, `{"room":{"id":"r1","members":[]},"sender":{"id":"u1"}}`))

	req.Empty(received(b))
	req.True(a.Alive())
	req.Len(h.events(event.MalformedEventType), 2)
}

func TestRouter_Malformed_Frames_Keep_Connection_Open(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	ctx := context.Background()
	a := h.online(t, "u1", "r1")

	h.router.Route(ctx, a, []byte(`not json`))
	h.router.Route(ctx, a, frame("shout", `{}`))
	h.router.Route(ctx, a, frame(domain.KindJoinRoom, `{}`))
	h.router.Route(ctx, a, frame(domain.KindSetup, `null`))

	req.True(a.Alive())
	req.Len(h.events(event.MalformedEventType), 4)
	req.Equal([]domain.RoomID{"r1"}, h.rooms.RoomsOf(a.ID()))
}

func TestRouter_Typing_Excludes_Originating_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	ctx := context.Background()
	a := h.online(t, "u1", "r1")
	aOther := h.online(t, "u1", "r1")
	b := h.online(t, "u2", "r1")
	outsider := h.online(t, "u3", "r2")

	h.router.Route(ctx, a, frame(domain.KindTyping, `{"roomId":"r1"}`))
	h.router.Route(ctx, a, frame(domain.KindStopTyping, `{"roomId":"r1"}`))

	req.Empty(received(a))
	req.Empty(received(outsider))
	for _, conn := range []*sink.ConnectionSink{aOther, b} {
		events := received(conn)
		req.Len(events, 2)
		req.Equal(domain.KindTypingStarted, events[0].Kind)
		req.Equal(domain.KindTypingStopped, events[1].Kind)
		req.JSONEq(`{}`, string(events[0].Payload))
	}
}

func TestRouter_Typing_Empty_Room_Is_Noop(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	a := newConn()
	h.lifecycle.Open(a)

	// join_room does not require setup
	h.router.Route(context.Background(), a, frame(domain.KindJoinRoom, `{"roomId":"r1"}`))
	h.router.Route(context.Background(), a, frame(domain.KindTyping, `{"roomId":"r1"}`))
	h.router.Route(context.Background(), a, frame(domain.KindTyping, `{"roomId":"nobody"}`))

	req.Empty(received(a))
	req.Empty(h.events(event.MalformedEventType))
}

func TestRouter_Disconnect_Then_Broadcast(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	ctx := context.Background()
	a := h.online(t, "u1", "r1")
	b := h.online(t, "u2", "r1")
	c := h.online(t, "u3", "r1")

	req.NoError(h.router.Handle(ctx, a, domain.Disconnect{Reason: domain.ReasonClientClosed}))

	req.ElementsMatch(idsOf(h.rooms.MembersOf("r1")), idsOf(h.connections.All()))
	req.NotContains(idsOf(h.rooms.MembersOf("r1")), a.ID())

	h.router.Route(ctx, c, frame(domain.KindTyping, `{"roomId":"r1"}`))
	req.Len(received(b), 1)
	req.Empty(received(a))
}

func TestRouter_Slow_Recipient_Drops_Event(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	ctx := context.Background()
	a := h.online(t, "u1", "r1")

	slow := sink.NewConnectionSink(1, 1, time.Minute)
	h.lifecycle.Open(slow)
	req.NoError(h.rooms.Join(slow, "r1"))
	req.NoError(slow.Send(domain.NewPong()))

	h.router.Route(ctx, a, frame(domain.KindTyping, `{"roomId":"r1"}`))

	// The slow connection keeps its buffered event, loses the new one and stays open
	req.True(slow.Alive())
	req.Len(slow.Outbound(), 1)
	dropped := h.events(event.DeliveryDroppedType)
	req.Len(dropped, 1)
	req.Equal(slow.ID(), dropped[0].Payload.(event.DeliveryDropped).ConnectionID)
}

func TestRouter_Transport_Failure_Tears_Down_Target(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	a := h.online(t, "u1", "r1")

	broken := mocks.NewMockConnection(ctrl)
	broken.EXPECT().ID().Return(domain.ConnectionID("broken")).AnyTimes()
	broken.EXPECT().Alive().Return(true).AnyTimes()
	broken.EXPECT().Send(gomock.Any()).Return(errors.ErrTransportFailure).Times(1)
	broken.EXPECT().Close().Return(true).Times(1)
	h.lifecycle.Open(broken)
	req.NoError(h.rooms.Join(broken, "r1"))

	h.router.Route(ctx, a, frame(domain.KindTyping, `{"roomId":"r1"}`))

	req.Empty(h.rooms.RoomsOf("broken"))
	_, ok := h.connections.Lookup("broken")
	req.False(ok)
}

func TestRouter_Ping_Answers_Pong(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	a := h.online(t, "u1")

	h.router.Route(context.Background(), a, frame(domain.KindPing, `{}`))

	events := received(a)
	req.Len(events, 1)
	req.Equal(domain.KindPong, events[0].Kind)
}
