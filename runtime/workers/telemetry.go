package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-mesh/observability"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker periodically logs process health (CPU, RAM, status)
// together with the session delivery counters.
type TelemetryWorker struct {
	log      *slog.Logger
	userID   string
	tracker  *observability.Tracker
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, userID string,
	tracker *observability.Tracker, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, userID: userID, tracker: tracker, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			stats := w.tracker.Snapshot()
			w.log.Info("Session telemetry",
				"userId", w.userID,
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"messages_sent", stats.MessagesSent,
				"messages_delivered", stats.MessagesDelivered,
				"events_published", stats.EventsPublished,
				"events_relayed", stats.EventsRelayed,
				"calls_started", stats.CallsStarted,
				"alloc_mb", stats.AllocMemMb,
				"num_gc", stats.NumGC)
		}
	}
}

// selfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
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
	return memInfo.RSS, cpuPercent, status, nil
}
