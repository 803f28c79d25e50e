// Package observability aggregates runtime telemetry for the client.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// MonitoringStats is a point-in-time snapshot of the client's counters
// and resource usage.
type MonitoringStats struct {
	MessagesSent   uint64  `json:"messages_sent"`
	ItemsDelivered uint64  `json:"items_delivered"`
	EmptyPolls     uint64  `json:"empty_polls"`
	PollErrors     uint64  `json:"poll_errors"`
	AllocMemMb     uint64  `json:"alloc_mem_mb"`
	RssMemMb       uint64  `json:"rss_mem_mb"`
	CPUPercent     float64 `json:"cpu_percent"`
	NumGoroutine   int     `json:"num_goroutine"`
}

// MonitoringManager collects counters from the session and periodically
// logs a stats line. Counters are atomic; the manager is safe for
// concurrent use.
type MonitoringManager struct {
	log      *slog.Logger
	interval time.Duration

	messagesSent   uint64
	itemsDelivered uint64
	emptyPolls     uint64
	pollErrors     uint64
}

func NewMonitoringManager(log *slog.Logger, interval time.Duration) *MonitoringManager {
	return &MonitoringManager{log: log, interval: interval}
}

func (mm *MonitoringManager) IncrMessagesSent() {
	atomic.AddUint64(&mm.messagesSent, 1)
}

func (mm *MonitoringManager) IncrItemsDelivered() {
	atomic.AddUint64(&mm.itemsDelivered, 1)
}

func (mm *MonitoringManager) IncrEmptyPolls() {
	atomic.AddUint64(&mm.emptyPolls, 1)
}

func (mm *MonitoringManager) IncrPollErrors() {
	atomic.AddUint64(&mm.pollErrors, 1)
}

// Snapshot reads the counters plus Go and OS process memory figures.
func (mm *MonitoringManager) Snapshot(proc *process.Process) MonitoringStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := MonitoringStats{
		MessagesSent:   atomic.LoadUint64(&mm.messagesSent),
		ItemsDelivered: atomic.LoadUint64(&mm.itemsDelivered),
		EmptyPolls:     atomic.LoadUint64(&mm.emptyPolls),
		PollErrors:     atomic.LoadUint64(&mm.pollErrors),
		AllocMemMb:     mem.Alloc / 1024 / 1024,
		NumGoroutine:   runtime.NumGoroutine(),
	}

	if proc != nil {
		if info, err := proc.MemoryInfo(); err == nil {
			stats.RssMemMb = info.RSS / 1024 / 1024
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	}

	return stats
}

// Run logs a stats line at the configured interval until the context is
// canceled.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		mm.log.Warn("Process stats unavailable", "error", err)
		proc = nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := mm.Snapshot(proc)
			mm.log.Info("Client stats",
				"sent", stats.MessagesSent,
				"delivered", stats.ItemsDelivered,
				"empty_polls", stats.EmptyPolls,
				"poll_errors", stats.PollErrors,
				"alloc_mb", stats.AllocMemMb,
				"rss_mb", stats.RssMemMb,
				"cpu_pct", stats.CPUPercent,
				"goroutines", stats.NumGoroutine,
			)
		}
	}
}
