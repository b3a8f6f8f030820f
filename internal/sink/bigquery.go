package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"rosteretl/internal/table"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"
)

// tableLoader replaces the contents of one warehouse table.
type tableLoader interface {
	// Load runs a truncating load job of newline delimited JSON rows and
	// waits for it to finish.
	Load(ctx context.Context, ndjson []byte, schema bigquery.Schema) error
	Close() error
}

type clientLoader struct {
	client *bigquery.Client
	table  *bigquery.Table
}

func (l clientLoader) Load(ctx context.Context, ndjson []byte, schema bigquery.Schema) error {
	source := bigquery.NewReaderSource(bytes.NewReader(ndjson))
	source.SourceFormat = bigquery.JSON
	source.Schema = schema

	loader := l.table.LoaderFrom(source)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("start load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for load job %s: %w", job.ID(), err)
	}
	if status.Err() != nil {
		return fmt.Errorf("load job %s: %w", job.ID(), status.Err())
	}
	return nil
}

func (l clientLoader) Close() error {
	return l.client.Close()
}

// BigQuery writes to a warehouse table with a truncating load job.
type BigQuery struct {
	loader tableLoader
	cfg    BigQueryConfig
}

func OpenBigQuery(ctx context.Context, cfg BigQueryConfig) (*BigQuery, error) {
	if cfg.BillingProject == "" {
		cfg.BillingProject = cfg.Project
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := bigquery.NewClient(ctx, cfg.BillingProject, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	loader := clientLoader{
		client: client,
		table:  client.DatasetInProject(cfg.Project, cfg.Dataset).Table(cfg.Table),
	}
	return newBigQuery(loader, cfg), nil
}

func newBigQuery(loader tableLoader, cfg BigQueryConfig) *BigQuery {
	return &BigQuery{loader: loader, cfg: cfg}
}

func (b *BigQuery) String() string {
	return fmt.Sprintf("bigquery table %s.%s.%s", b.cfg.Project, b.cfg.Dataset, b.cfg.Table)
}

func (b *BigQuery) Close() error {
	return b.loader.Close()
}

func bigqueryType(t table.FieldType) bigquery.FieldType {
	switch t {
	case table.TypeFloat:
		return bigquery.FloatFieldType
	case table.TypeInt:
		return bigquery.IntegerFieldType
	case table.TypeDate:
		return bigquery.DateFieldType
	case table.TypeBool:
		return bigquery.BooleanFieldType
	}
	return bigquery.StringFieldType
}

func bigquerySchema(fields []table.Field) bigquery.Schema {
	out := make(bigquery.Schema, len(fields))
	for i, f := range fields {
		out[i] = &bigquery.FieldSchema{
			Name: f.Name,
			Type: bigqueryType(f.Type),
		}
	}
	return out
}

// encodeNDJSON renders one JSON object per row, Missing values are null.
func encodeNDJSON(fields []table.Field, rows [][]table.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		obj := make(map[string]any, len(fields))
		for c, f := range fields {
			obj[f.Name] = table.JSONValue(row[c])
		}
		err := enc.Encode(obj)
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (b *BigQuery) Write(ctx context.Context, t table.Table) error {
	ctx, span := tracer.Start(ctx, "BigQuery:Write")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", b.String()),
		attribute.Int("rows", t.Len()),
	)

	err := b.write(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (b *BigQuery) write(ctx context.Context, t table.Table) error {
	if len(b.cfg.Schema) == 0 {
		return fmt.Errorf("bigquery destination requires an explicit schema")
	}
	schema, err := b.cfg.Schema.Normalize()
	if err != nil {
		return err
	}
	fields, rows, err := schema.Conform(t)
	if err != nil {
		return err
	}

	ndjson, err := encodeNDJSON(fields, rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	// the whole declared schema is loaded so absent columns become null
	return b.loader.Load(ctx, ndjson, bigquerySchema(schema))
}
