package workers

import (
	"chat-presence/domain/event"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Gauges is what the presence layer currently holds in memory.
type Gauges struct {
	Connections int
	Rooms       int
}

// ProcessStatsWorker samples the process health (CPU, RAM, status) along
// with the presence gauges and publishes them as telemetry.
type ProcessStatsWorker struct {
	log            *slog.Logger
	gauges         func() Gauges
	telemetryChan  chan<- event.Event
	metricInterval time.Duration
}

func NewProcessStatsWorker(log *slog.Logger, gauges func() Gauges,
	telemetryChan chan<- event.Event, metricInterval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{
		log:            log,
		gauges:         gauges,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
	}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			gauges := w.gauges()
			select {
			case w.telemetryChan <- event.New(event.ProcessStatsType, event.ProcessStats{
				PID:         pid,
				Status:      status,
				Cpu:         cpu,
				Ram:         rss,
				Goroutines:  runtime.NumGoroutine(),
				Connections: gauges.Connections,
				Rooms:       gauges.Rooms,
			}):
			default:
				w.log.Debug("Observability telemetry event lost")
			}
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	// Depending on the platform the status is a single letter or a list of them
	return memInfo.RSS, cpuPercent, strings.Trim(fmt.Sprint(status), "[]"), nil
}
