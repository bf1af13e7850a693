// Command probe opens a few websocket clients against a running presence
// server and checks that a message reaches every member but its sender.
package main

import (
	"chat-presence/domain"
	"chat-presence/infrastructure/grpc/client"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type probeClient struct {
	user     domain.UserID
	ws       *websocket.Conn
	received map[string]int
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Probe failed: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	cfg, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if cfg.Clients < 2 {
		return exitConfig, fmt.Errorf("PROBE_CLIENTS must be at least 2")
	}
	timeout := cfg.Timeout

	if cfg.AdminAddr != "" {
		if err := checkHealth(cfg.AdminAddr, timeout); err != nil {
			return exitRuntime, err
		}
		header(cfg, "Admin health SERVING")
	}

	clients := make([]*probeClient, 0, cfg.Clients)
	defer func() {
		for _, c := range clients {
			_ = c.ws.Close()
		}
	}()

	// 1. Connect, setup and join
	for i := 0; i < cfg.Clients; i++ {
		c, err := connect(cfg, timeout)
		if err != nil {
			return exitRuntime, fmt.Errorf("client %d: %w", i, err)
		}
		clients = append(clients, c)
	}
	header(cfg, fmt.Sprintf("%d clients connected to room %s", len(clients), cfg.Room))
	// join_room is silent, leave the server a moment to apply it
	time.Sleep(100 * time.Millisecond)

	// 2. Client 0 types then sends a message naming everyone
	sender := clients[0]
	members := make([]domain.Member, 0, len(clients))
	for _, c := range clients {
		members = append(members, domain.Member{ID: c.user})
	}
	if err := write(sender.ws, domain.KindTyping, domain.Typing{RoomID: domain.RoomID(cfg.Room)}); err != nil {
		return exitRuntime, err
	}
	message := domain.NewMessage{
		Room:    domain.MessageRoom{ID: domain.RoomID(cfg.Room), Members: members},
		Sender:  domain.Member{ID: sender.user},
		Content: "probe " + time.Now().UTC().Format(time.RFC3339),
	}
	if err := write(sender.ws, domain.KindNewMessage, message); err != nil {
		return exitRuntime, err
	}

	// 3. Collect what everyone got
	for _, c := range clients {
		collect(c, timeout)
	}

	// 4. Report
	missed := report(clients)
	if missed > 0 {
		return exitRuntime, fmt.Errorf("%d clients missed the message", missed)
	}
	header(cfg, "Fan-out OK")
	return exitOK, nil
}

func checkHealth(address string, timeout time.Duration) error {
	health, err := client.NewHealthClient(address, timeout)
	if err != nil {
		return err
	}
	defer health.Close()
	status, err := health.Check(context.Background(), "")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("server is %s", status)
	}
	return nil
}

func connect(cfg Config, timeout time.Duration) (*probeClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	ws, _, err := dialer.Dial(cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	c := &probeClient{user: domain.UserID(uuid.NewString()), ws: ws, received: make(map[string]int)}

	if err := write(ws, domain.KindSetup, domain.Setup{UserID: c.user}); err != nil {
		return nil, err
	}
	frame, err := read(ws, timeout)
	if err != nil {
		return nil, err
	}
	if frame.Event != string(domain.KindConnected) {
		return nil, fmt.Errorf("expected %s, got %s", domain.KindConnected, frame.Event)
	}
	if err := write(ws, domain.KindJoinRoom, domain.JoinRoom{RoomID: domain.RoomID(cfg.Room)}); err != nil {
		return nil, err
	}
	return c, nil
}

// collect counts the frames received until the connection stays quiet.
func collect(c *probeClient, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frame, err := read(c.ws, 300*time.Millisecond)
		if err != nil {
			return
		}
		c.received[frame.Event]++
	}
}

func report(clients []*probeClient) int {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Client", "User", "Typing", "Message", "Expected", "Status"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	missed := 0
	for i, c := range clients {
		// The sender's connection gets nothing back
		expected := 1
		if i == 0 {
			expected = 0
		}
		got := c.received[string(domain.KindMessageReceived)]
		status := "OK"
		if got != expected {
			status = "MISSED"
			missed++
		}
		table.Append([]string{
			strconv.Itoa(i),
			string(c.user)[:8],
			strconv.Itoa(c.received[string(domain.KindTypingStarted)]),
			strconv.Itoa(got),
			strconv.Itoa(expected),
			status,
		})
	}
	table.Render()
	return missed
}

func header(cfg Config, text string) {
	text = fmt.Sprintf("  ====== %s ======", text)
	if cfg.Colours {
		text = color.New(color.BgBlack, color.FgGreen).Render(text)
	}
	fmt.Println(text)
}

func write(ws *websocket.Conn, kind domain.InboundKind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(domain.Frame{Event: string(kind), Data: data})
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, frame)
}

func read(ws *websocket.Conn, timeout time.Duration) (domain.Frame, error) {
	if err := ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return domain.Frame{}, err
	}
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return domain.Frame{}, err
	}
	var frame domain.Frame
	err = json.Unmarshal(raw, &frame)
	return frame, err
}
