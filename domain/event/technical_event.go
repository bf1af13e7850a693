package event

import "chat-presence/domain"

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
	ProcessStatsType        Type = "PROCESS_STATS"
)

// WorkerRestartedAfterPanic carries the connection when the worker serves a single one.
type WorkerRestartedAfterPanic struct {
	WorkerName   string
	ConnectionID domain.ConnectionID
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type ProcessStats struct {
	PID         int32
	Status      string
	Cpu         float64
	Ram         uint64
	Goroutines  int
	Connections int
	Rooms       int
}
