package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var countGauge, _ = otel.Meter("internal/components/telemetry").Int64Gauge("report.count")

// SlogAPI implements API using the log/slog package, counts are also recorded
// on an otel gauge keyed by id.
type SlogAPI struct{}

// errors are logged under "err" so they read the same as the rest of the
// codebase's slog calls, other params are positional.
func (SlogAPI) attrs(id string, params []any) []any {
	out := []any{}
	if id != "" {
		out = append(out, "id", id)
	}
	for i, p := range params {
		if err, ok := p.(error); ok {
			out = append(out, "err", err.Error())
			continue
		}
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", s.attrs(id, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", s.attrs(id, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, s.attrs("", params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	countGauge.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	slog.Debug("count", "id", id, "n", count)
}
