package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"channel-hub/observability"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker samples the server's own CPU and memory usage on a fixed
// interval and feeds the monitoring snapshot. Sampling failures are logged
// and skipped; the worker only stops on context cancellation.
type TelemetryWorker struct {
	log            *slog.Logger
	monitoring     *observability.Manager
	metricInterval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, monitoring *observability.Manager,
	metricInterval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		monitoring:     monitoring,
		metricInterval: metricInterval,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	w.log.Info("Starting telemetry worker", "interval", w.metricInterval)
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry worker")
			return nil
		case <-ticker.C:
			cpu, rss, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.monitoring.SetProcessMetrics(cpu, rss/1024/1024)
		}
	}
}

// selfStats retrieves CPU percentage and resident memory for the given process.
func selfStats(p *process.Process) (float64, uint64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return cpuPercent, memInfo.RSS, nil
}
