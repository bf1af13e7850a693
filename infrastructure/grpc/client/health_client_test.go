package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthClient_Check(t *testing.T) {
	req := require.New(t)
	listener := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(server, h)
	h.SetServingStatus("presence", healthpb.HealthCheckResponse_SERVING)
	go func() { _ = server.Serve(listener) }()
	defer server.Stop()

	client, err := NewHealthClient("passthrough:///bufnet", time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}))
	req.NoError(err)
	defer client.Close()

	status, err := client.Check(context.Background(), "presence")
	req.NoError(err)
	req.Equal(healthpb.HealthCheckResponse_SERVING, status)

	// Unknown services are reported as errors by the health server
	_, err = client.Check(context.Background(), "unknown")
	req.Error(err)
}
