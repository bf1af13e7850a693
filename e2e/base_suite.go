package e2e

import (
	"chat-presence/domain"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

const readTimeout = 3 * time.Second

type BaseSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.BaseURL == "" {
		s.T().Skip("E2E_BASE_URL not set")
	}
}

func (s *BaseSuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// GrpcConn dials the admin endpoint with a logging interceptor
func (s *BaseSuite) GrpcConn(t *testing.T, name string, addr string) *grpc.ClientConn {
	s.header(t, name)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))

			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}

// WithHealth provides a health client on the admin endpoint
func (s *BaseSuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	if s.Config.AdminAddr == "" {
		s.T().Skip("E2E_ADMIN_ADDR not set")
	}
	conn := s.GrpcConn(s.T(), name, s.Config.AdminAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}

// Dial opens a websocket session and sends setup for the user
func (s *BaseSuite) Dial(user domain.UserID) *websocket.Conn {
	url := strings.Replace(s.Config.BaseURL, "http", "ws", 1) + "/ws?v=1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to dial "+url)
	s.T().Cleanup(func() { _ = ws.Close() })

	s.Send(ws, domain.KindSetup, domain.Setup{UserID: user})
	s.Require().Equal(string(domain.KindConnected), s.Next(ws).Event)
	return ws
}

func (s *BaseSuite) Send(ws *websocket.Conn, kind domain.InboundKind, payload any) {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.Require().NoError(ws.WriteJSON(domain.Frame{Event: string(kind), Data: data}))
}

// Next reads one frame or fails the test after readTimeout
func (s *BaseSuite) Next(ws *websocket.Conn) domain.Frame {
	s.Require().NoError(ws.SetReadDeadline(time.Now().Add(readTimeout)))
	var frame domain.Frame
	s.Require().NoError(ws.ReadJSON(&frame))
	return frame
}

func (s *BaseSuite) GetJSON(path string, target any) int {
	resp, err := http.Get(s.Config.BaseURL + path)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(target))
	}
	return resp.StatusCode
}
