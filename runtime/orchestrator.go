// Package runtime holds the presence state and moves events between connections.
// It owns the registries, the router and the workers, but no transport.
package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/runtime/workers"
	"chat-presence/sink"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

const telemetryChannelName = "telemetry"

// Stats is a point in time view of the presence layer.
type Stats struct {
	Connections int               `json:"connections"`
	Rooms       int               `json:"rooms"`
	Counters    map[string]uint64 `json:"counters"`
}

type Orchestrator struct {
	log                  *slog.Logger
	connections          *ConnectionRegistry
	rooms                *RoomRegistry
	lifecycle            *Lifecycle
	router               *Router
	supervisor           contract.ISupervisor
	telemetry            chan event.Event
	counter              *event.Counter
	metricInterval       time.Duration
	lowCapacityThreshold int
	extraWorkers         []contract.Worker
}

type buffered interface {
	Outbound() <-chan domain.OutboundEvent
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	telemetry chan event.Event, counter *event.Counter,
	metricInterval time.Duration, lowCapacityThreshold int) *Orchestrator {
	connections := NewConnectionRegistry()
	rooms := NewRoomRegistry()
	lifecycle := NewLifecycle(log, connections, rooms, telemetry)
	return &Orchestrator{
		log:                  log,
		connections:          connections,
		rooms:                rooms,
		lifecycle:            lifecycle,
		router:               NewRouter(log, connections, rooms, lifecycle, telemetry),
		supervisor:           supervisor,
		telemetry:            telemetry,
		counter:              counter,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

// Add registers workers supervised alongside the built-in ones. Call it before Start.
func (o *Orchestrator) Add(worker ...contract.Worker) {
	o.extraWorkers = append(o.extraWorkers, worker...)
}

// Start runs every permanent worker and blocks until ctx is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	handlers := []event.Handler{
		event.NewConnectionLifecycleHandler(o.log, o.counter),
		event.NewFanoutHandler(o.log, o.counter),
		event.NewDeliveryDroppedHandler(o.log, o.counter),
		event.NewMalformedEventHandler(o.log, o.counter),
		event.NewWorkerRestartedAfterPanicHandler(o.log, o.counter),
		event.NewChannelCapacityHandler(o.log, o.lowCapacityThreshold),
		event.NewProcessTrackerHandler(o.log),
	}

	o.supervisor.
		Add(workers.NewTelemetryWorker(o.log, o.telemetry, handlers)).
		Add(workers.NewChannelCapacityWorker(o.log, o.namedChannels, o.telemetry, o.metricInterval)).
		Add(workers.NewProcessStatsWorker(o.log, o.gauges, o.telemetry, o.metricInterval)).
		Add(o.extraWorkers...)

	o.log.Info("Presence runtime started")
	o.supervisor.Run(ctx)
	o.log.Info("Presence runtime stopped")
}

// Open registers a new connection and starts the worker draining its inbound queue.
func (o *Orchestrator) Open(conn *sink.ConnectionSink) error {
	o.lifecycle.Open(conn)

	if err := o.supervisor.Spawn(workers.NewInboundWorker(o.log, conn, o.router, o.lifecycle)); err != nil {
		o.Disconnect(conn, domain.ReasonShutdown)
		return err
	}
	return nil
}

// Disconnect tears the connection down. Safe to call from any goroutine, any number of times.
func (o *Orchestrator) Disconnect(conn contract.Connection, reason string) bool {
	return o.lifecycle.Disconnect(conn, reason)
}

// Stop closes every connection, then stops the workers.
func (o *Orchestrator) Stop() {
	closed := o.lifecycle.DisconnectAll(domain.ReasonShutdown)
	o.log.Info(fmt.Sprintf("Closed %d connections", closed))
	o.supervisor.Stop()
}

// ConnectionsFor returns the live connections bound to user.
func (o *Orchestrator) ConnectionsFor(user domain.UserID) []contract.Connection {
	return o.connections.ConnectionsFor(user)
}

func (o *Orchestrator) Stats() Stats {
	counters := lo.MapKeys(o.counter.Snapshot(), func(_ uint64, t event.Type) string {
		return string(t)
	})
	return Stats{
		Connections: o.connections.Count(),
		Rooms:       o.rooms.RoomCount(),
		Counters:    counters,
	}
}

func (o *Orchestrator) gauges() workers.Gauges {
	return workers.Gauges{Connections: o.connections.Count(), Rooms: o.rooms.RoomCount()}
}

// namedChannels lists the telemetry channel and the outbound buffer of every registered connection.
func (o *Orchestrator) namedChannels() []workers.NamedChannel {
	channels := []workers.NamedChannel{{Name: telemetryChannelName, Channel: o.telemetry}}
	for _, conn := range o.connections.All() {
		if b, ok := conn.(buffered); ok {
			channels = append(channels, workers.NamedChannel{
				Name:    fmt.Sprintf("outbound:%s", conn.ID()),
				Channel: b.Outbound(),
			})
		}
	}
	return channels
}
