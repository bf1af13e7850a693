package server

import (
	"context"
	"log/slog"
	"net"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// PresenceService is the service name reported by the health checks.
const PresenceService = "presence.v1.Presence"

// HealthServer exposes grpc.health.v1.Health on the admin port.
// Run is a supervised worker: the status is SERVING while it runs.
type HealthServer struct {
	log    *slog.Logger
	server *grpc.Server
	health *health.Server
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(log)))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(PresenceService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{log: log, server: s, health: h}
}

func (s *HealthServer) Run(ctx context.Context) error {
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	<-ctx.Done()
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return nil
}

func (s *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(PresenceService, status)
	s.log.Info("Health status changed", "status", status.String())
}

// Shutdown reports NOT_SERVING for good, later status changes are ignored.
// Call it first when the process is going away so that clients stop routing to it.
func (s *HealthServer) Shutdown() {
	s.health.Shutdown()
	s.log.Info("Health status changed", "status", healthpb.HealthCheckResponse_NOT_SERVING.String())
}

// Serve blocks until Stop is called.
func (s *HealthServer) Serve(listener net.Listener) error {
	return s.server.Serve(listener)
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
