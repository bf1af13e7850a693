package observability

import (
	"chat-presence/runtime"
	"context"
	"log/slog"
	goruntime "runtime"
	"sync"
	"time"
)

// PresenceStats aggregates the presence gauges, the telemetry counters and
// a few Go runtime metrics. This is what the stats endpoint serves.
type PresenceStats struct {
	Connections int               `json:"connections"`
	Rooms       int               `json:"rooms"`
	Counters    map[string]uint64 `json:"counters"`
	AllocMemMb  uint64            `json:"alloc_mem_mb"`
	NumGC       uint32            `json:"num_gc"`
	Goroutines  int               `json:"goroutines"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// PresenceMonitor refreshes a snapshot on a fixed interval so that readers
// never touch the registries directly.
type PresenceMonitor struct {
	log         *slog.Logger
	mu          sync.RWMutex
	latestStats PresenceStats
	stats       func() runtime.Stats
	interval    time.Duration
}

func NewPresenceMonitor(log *slog.Logger, stats func() runtime.Stats, interval time.Duration) *PresenceMonitor {
	mm := &PresenceMonitor{log: log, stats: stats, interval: interval}
	mm.updateStats()
	return mm
}

// Run is the worker loop.
func (mm *PresenceMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Presence monitor stopped")
			return nil
		case <-ticker.C:
			mm.updateStats()
		}
	}
}

func (mm *PresenceMonitor) updateStats() {
	stats := mm.stats()

	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)

	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats = PresenceStats{
		Connections: stats.Connections,
		Rooms:       stats.Rooms,
		Counters:    stats.Counters,
		AllocMemMb:  m.Alloc / 1024 / 1024,
		NumGC:       m.NumGC,
		Goroutines:  goruntime.NumGoroutine(),
		UpdatedAt:   time.Now().UTC(),
	}

	mm.log.Debug("Stats updated",
		"connections", stats.Connections,
		"rooms", stats.Rooms,
		"mem_mb", mm.latestStats.AllocMemMb,
	)
}

func (mm *PresenceMonitor) GetLatest() PresenceStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
