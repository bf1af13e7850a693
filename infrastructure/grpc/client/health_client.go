package client

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthClient asks a presence server's admin port whether it is serving.
type HealthClient struct {
	conn    *grpc.ClientConn
	Client  healthpb.HealthClient
	Timeout time.Duration
}

func NewHealthClient(address string, timeout time.Duration, opts ...grpc.DialOption) (*HealthClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, err
	}
	return &HealthClient{conn: conn, Client: healthpb.NewHealthClient(conn), Timeout: timeout}, nil
}

// Check returns the serving status of service, "" being the whole server.
func (c *HealthClient) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	response, err := c.Client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return response.GetStatus(), nil
}

func (c *HealthClient) Close() error {
	return c.conn.Close()
}
