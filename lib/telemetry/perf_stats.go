package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("go.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var rssGauge, _ = meter.Int64Gauge("rss_mb")
var liveObjectsGauge, _ = meter.Int64Gauge("live_objects")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// PerfSample is one reading of the process' resource usage.
type PerfSample struct {
	CPUPercent  float64
	AllocatedMB int64
	RSSMB       int64
	LiveObjects int64
	Goroutines  int64
}

// SamplePerfStats reads the current resource usage, `window` is how long cpu
// usage is measured over.
func SamplePerfStats(window time.Duration) PerfSample {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	sample := PerfSample{
		AllocatedMB: int64(memStats.Alloc / 1_000_000),
		LiveObjects: int64(memStats.Mallocs) - int64(memStats.Frees),
		Goroutines:  int64(runtime.NumGoroutine()),
	}

	cpuUsage, err := cpu.Percent(window, false)
	if err == nil && len(cpuUsage) > 0 {
		sample.CPUPercent = cpuUsage[0]
	} else if err != nil {
		slog.Warn("failed to read cpu usage", "err", err)
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		mem, err := proc.MemoryInfo()
		if err == nil {
			sample.RSSMB = int64(mem.RSS / 1_000_000)
		}
	}
	return sample
}

// InstrumentPerfStats records a PerfSample every `interval` until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s := SamplePerfStats(time.Second)
				cpuGauge.Record(ctx, s.CPUPercent)
				memoryGauge.Record(ctx, s.AllocatedMB)
				rssGauge.Record(ctx, s.RSSMB)
				liveObjectsGauge.Record(ctx, s.LiveObjects)
				goroutineGauge.Record(ctx, s.Goroutines)
				slog.Debug(
					"perf stats",
					"cpu", s.CPUPercent,
					"allocated_mb", s.AllocatedMB,
					"rss_mb", s.RSSMB,
					"goroutines", s.Goroutines,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
