package etl

import (
	"context"
	"fmt"
	"time"

	"rosteretl/internal/components/telemetry"
	"rosteretl/internal/sink"
	"rosteretl/internal/table"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("internal/etl")
var meter = otel.Meter("internal/etl")
var rowsCounter, _ = meter.Int64Counter("etl.rows", metric.WithDescription("rows seen per pipeline stage"))
var runsCounter, _ = meter.Int64Counter("etl.runs", metric.WithDescription("pipeline runs by outcome"))

// Fetcher retrieves the roster and work tables.
type Fetcher interface {
	FetchPair(ctx context.Context, rosterURL, workURL string) (roster, work table.Table, err error)
}

// SinkOpener opens the destination of a run, it is only called once there are
// rows to write.
type SinkOpener func(ctx context.Context) (sink.Sink, error)

// Pipeline runs fetch -> clean -> merge -> write.
type Pipeline struct {
	Config    Config
	Fetcher   Fetcher
	OpenSink  SinkOpener
	Telemetry telemetry.API
}

// NewPipeline builds a pipeline that writes to the destination described in cfg.
func NewPipeline(cfg Config, fetcher Fetcher, tel telemetry.API) Pipeline {
	return Pipeline{
		Config:  cfg,
		Fetcher: fetcher,
		OpenSink: func(ctx context.Context) (sink.Sink, error) {
			return sink.Open(ctx, cfg.Destination)
		},
		Telemetry: tel,
	}
}

func startStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, stage)
}

func endStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Run executes one pipeline run. It never panics on bad input, every failure
// is reported through the returned Result.
func (p Pipeline) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}

	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", res.RunID))

	stage, err := p.run(ctx, &res)
	res.Duration = time.Since(start)
	res.Outcome = classify(err)
	if err != nil {
		res.Stage = stage
		res.Err = err
	}

	span.SetAttributes(attribute.String("outcome", res.Outcome.String()))
	runsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", res.Outcome.String())))

	switch res.Outcome {
	case OutcomeSuccess:
		p.Telemetry.ReportDebug("run finished", res.RunID, res.JoinedRows, res.Duration)
	case OutcomeEmpty:
		p.Telemetry.ReportWarning("pipeline.run-empty", res.RunID, err.Error())
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.Telemetry.ReportBroken("pipeline.run", res.RunID, err)
	}
	return res
}

// shape renders the dimensions of a table as "rows x columns".
func shape(t table.Table) string {
	rows, cols := t.Shape()
	return fmt.Sprintf("%d x %d", rows, cols)
}

func (p Pipeline) countRows(ctx context.Context, id string, n int) {
	p.Telemetry.ReportCount(id, int64(n))
	rowsCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stage", id)))
}

func (p Pipeline) run(ctx context.Context, res *Result) (string, error) {
	cfg := p.Config

	fetchCtx, span := startStage(ctx, StageFetch)
	roster, work, err := p.Fetcher.FetchPair(fetchCtx, cfg.RosterURL, cfg.WorkURL)
	endStage(span, err)
	if err != nil {
		return StageFetch, fmt.Errorf("fetch: %w", err)
	}
	res.RosterRows = roster.Len()
	res.WorkRows = work.Len()
	p.countRows(ctx, "roster-rows", roster.Len())
	p.countRows(ctx, "work-rows", work.Len())
	p.Telemetry.ReportDebug("fetched roster", shape(roster))
	p.Telemetry.ReportDebug("fetched work", shape(work))

	if roster.Empty() || work.Empty() {
		return StageFetch, fmt.Errorf(
			"%s: roster has %d rows, work has %d rows: %w",
			StageFetch, roster.Len(), work.Len(), ErrEmptyResult,
		)
	}

	_, span = startStage(ctx, StageNormalize)
	roster, err = NormalizeColumns(roster)
	if err == nil {
		work, err = NormalizeColumns(work)
	}
	endStage(span, err)
	if err != nil {
		return StageNormalize, fmt.Errorf("normalize columns: %w", err)
	}
	res.RosterColumns = roster.Columns
	res.WorkColumns = work.Columns
	p.Telemetry.ReportDebug("cleaned roster columns", roster.Columns)
	p.Telemetry.ReportDebug("cleaned work columns", work.Columns)

	_, span = startStage(ctx, StageCoerce)
	work, err = cfg.Coercer().Apply(work)
	endStage(span, err)
	if err != nil {
		return StageCoerce, fmt.Errorf("coerce work types: %w", err)
	}

	_, span = startStage(ctx, StageJoin)
	joined, err := InnerJoin(roster, work, cfg.JoinKey)
	endStage(span, err)
	if err != nil {
		return StageJoin, fmt.Errorf("join on %q: %w", cfg.JoinKey, err)
	}
	res.JoinedRows = joined.Len()
	p.countRows(ctx, "joined-rows", joined.Len())
	p.Telemetry.ReportDebug("joined", shape(joined))

	if joined.Empty() {
		return StageJoin, fmt.Errorf("%s: no %s shared by roster and work: %w", StageJoin, cfg.JoinKey, ErrEmptyResult)
	}

	writeCtx, span := startStage(ctx, StageWrite)
	err = p.write(writeCtx, joined, res)
	endStage(span, err)
	if err != nil {
		return StageWrite, fmt.Errorf("write: %w", err)
	}
	return "", nil
}

func (p Pipeline) write(ctx context.Context, joined table.Table, res *Result) error {
	s, err := p.OpenSink(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			p.Telemetry.ReportWarning("sink.close", s.String(), cerr)
		}
	}()

	res.Destination = s.String()
	return s.Write(ctx, joined)
}
