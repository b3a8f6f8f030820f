package sink

import (
	"context"
	"fmt"
	"time"

	"rosteretl/internal/table"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Postgres writes to a postgres table, replacing it inside one transaction.
type Postgres struct {
	pool   *pgxpool.Pool
	table  string
	schema table.Schema
}

// NewPool builds a pgxpool.Pool and eagerly verifies connectivity.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("conn string is required")
	}
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	pool, err := NewPool(ctx, cfg.ConnString)
	if err != nil {
		return nil, err
	}
	return NewPostgres(pool, cfg.Table, cfg.Schema), nil
}

func NewPostgres(pool *pgxpool.Pool, tableName string, schema table.Schema) *Postgres {
	return &Postgres{pool: pool, table: tableName, schema: schema}
}

func (p *Postgres) String() string {
	cfg := p.pool.Config().ConnConfig
	return fmt.Sprintf("postgres table %q in %s:%d/%s", p.table, cfg.Host, cfg.Port, cfg.Database)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func postgresType(t table.FieldType) string {
	switch t {
	case table.TypeFloat:
		return "DOUBLE PRECISION"
	case table.TypeInt:
		return "BIGINT"
	case table.TypeDate:
		return "DATE"
	case table.TypeBool:
		return "BOOLEAN"
	}
	return "TEXT"
}

func postgresArg(v table.Value) any {
	switch v.Kind() {
	case table.KindString:
		s, _ := v.Str()
		return s
	case table.KindFloat:
		f, _ := v.Number()
		return f
	case table.KindInt:
		i, _ := v.Integer()
		return i
	case table.KindBool:
		b, _ := v.Boolean()
		return b
	case table.KindDate:
		d, _ := v.CivilDate()
		return d.In(time.UTC)
	}
	return nil
}

func (p *Postgres) Write(ctx context.Context, t table.Table) error {
	ctx, span := tracer.Start(ctx, "Postgres:Write")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", p.table),
		attribute.Int("rows", t.Len()),
	)

	err := p.write(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (p *Postgres) write(ctx context.Context, t table.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("cannot write a table with no columns")
	}
	schema, err := resolveSchema(p.schema, t)
	if err != nil {
		return err
	}
	fields, rows, err := schema.Conform(t)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, dropTableSQL(p.table))
	if err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	_, err = tx.Exec(ctx, createTableSQL(p.table, fields, postgresType))
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{p.table},
		columns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			values := make([]any, len(rows[i]))
			for c, v := range rows[i] {
				values[c] = postgresArg(v)
			}
			return values, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	if int(copied) != len(rows) {
		return fmt.Errorf("copied %d rows, expected %d", copied, len(rows))
	}

	return tx.Commit(ctx)
}
