package main

import (
	"chat-presence/domain/event"
	"chat-presence/infrastructure/grpc/server"
	httpapi "chat-presence/infrastructure/http"
	"chat-presence/infrastructure/storage"
	"chat-presence/infrastructure/translator"
	"chat-presence/infrastructure/websocket"
	"chat-presence/internal"
	"chat-presence/observability"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/services"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Presence server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every defer (badger first) run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Translation cache (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Supervision & Orchestration
	telemetry := make(chan event.Event, config.TelemetryBufferSize)
	supervisor := workers.NewSupervisor(log, telemetry, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, supervisor, telemetry, event.NewCounter(),
		config.MetricInterval, config.LowCapacityThreshold)

	monitor := observability.NewPresenceMonitor(log, orchestrator.Stats, config.MetricInterval)
	healthServer := server.NewHealthServer(log)
	orchestrator.Add(monitor, healthServer)

	// 4. Services & HTTP
	presenceService := services.NewPresenceService(log, orchestrator)
	translationService := services.NewTranslationService(log,
		translator.NewClient(log, config.TranslatorURL, config.TranslatorTimeout),
		storage.NewTranslationRepository(db, log, config.TranslationCacheTTL))

	wsHandler := websocket.NewHandler(log, orchestrator, websocket.Settings{
		InboundBufferSize:  config.InboundBufferSize,
		OutboundBufferSize: config.OutboundBufferSize,
		Bounds:             config.HandshakeBounds(),
		PingInterval:       config.PingInterval,
		WriteTimeout:       config.WriteTimeout,
		MaxFrameSize:       config.MaxFrameSize,
		AllowedOrigins:     config.Origins(),
	})
	api := httpapi.NewAPI(log, presenceService, translationService, monitor)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)
	runtimeDone := make(chan struct{})
	go func() {
		defer close(runtimeDone)
		orchestrator.Start(ctx)
	}()

	// 6. Admin gRPC (health)
	adminAddress := fmt.Sprintf("%s:%d", config.Host, config.AdminPort)
	adminListener, err := net.Listen("tcp", adminAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", adminAddress, err)
	}
	go func() {
		log.Info("Starting admin gRPC server", "address", adminAddress)
		if err := healthServer.Serve(adminListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("admin server error: %w", err)
		}
	}()

	// 7. Websocket + REST
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           api.Routes(wsHandler),
		ReadHeaderTimeout: config.WriteTimeout,
	}
	go func() {
		log.Info("Starting presence server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 9. Graceful Shutdown
	log.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	healthServer.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	orchestrator.Stop()
	<-runtimeDone
	healthServer.Stop()
	log.Info("Program stopped cleanly")

	return code, runErr
}
