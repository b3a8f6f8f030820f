package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rosteretl/internal/table"
	configlibsql "rosteretl/lib/configutil/libsql"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/sink")

// sqliteMaxVariables is the bound parameter limit of older sqlite builds,
// insert batches are sized to stay under it.
const sqliteMaxVariables = 999

// SQLite writes to a local sqlite file or a remote libsql server.
type SQLite struct {
	db     *sql.DB
	table  string
	schema table.Schema
	where  string
}

func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLite, error) {
	dbcfg := configlibsql.Struct{
		File:      cfg.File,
		URL:       cfg.URL,
		AuthToken: cfg.AuthToken,
	}
	db, err := dbcfg.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbcfg, err)
	}
	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s: %w", dbcfg, err)
	}
	return NewSQLite(db, cfg.Table, cfg.Schema, dbcfg.String()), nil
}

// NewSQLite wraps an already opened database, `schema` can be empty in which
// case the column types are inferred from each written table.
func NewSQLite(db *sql.DB, tableName string, schema table.Schema, where string) *SQLite {
	return &SQLite{db: db, table: tableName, schema: schema, where: where}
}

func (s *SQLite) String() string {
	return fmt.Sprintf("sqlite table %q in %s", s.table, s.where)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func sqliteType(t table.FieldType) string {
	switch t {
	case table.TypeFloat:
		return "REAL"
	case table.TypeInt, table.TypeBool:
		return "INTEGER"
	case table.TypeDate:
		return "DATE"
	}
	return "TEXT"
}

// sqliteArg converts a value into a driver argument, dates are stored as
// YYYY-MM-DD text and bools as 0/1.
func sqliteArg(v table.Value) any {
	switch v.Kind() {
	case table.KindString:
		s, _ := v.Str()
		return s
	case table.KindFloat, table.KindInt:
		if i, ok := v.Integer(); ok {
			return i
		}
		f, _ := v.Number()
		return f
	case table.KindBool:
		b, _ := v.Boolean()
		if b {
			return int64(1)
		}
		return int64(0)
	case table.KindDate:
		d, _ := v.CivilDate()
		return d.String()
	}
	return nil
}

func insertSQL(name string, fields []table.Field, rows int) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f.Name)
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ") + ")"
	values := make([]string, rows)
	for i := range values {
		values[i] = placeholder
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		quoteIdent(name),
		strings.Join(cols, ", "),
		strings.Join(values, ", "),
	)
}

func (s *SQLite) Write(ctx context.Context, t table.Table) error {
	ctx, span := tracer.Start(ctx, "SQLite:Write")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", s.table),
		attribute.Int("rows", t.Len()),
	)

	err := s.write(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *SQLite) write(ctx context.Context, t table.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("cannot write a table with no columns")
	}
	schema, err := resolveSchema(s.schema, t)
	if err != nil {
		return err
	}
	fields, rows, err := schema.Conform(t)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, dropTableSQL(s.table))
	if err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	_, err = tx.ExecContext(ctx, createTableSQL(s.table, fields, sqliteType))
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	batchSize := max(1, sqliteMaxVariables/len(fields))
	for start := 0; start < len(rows); start += batchSize {
		batch := rows[start:min(start+batchSize, len(rows))]
		args := make([]any, 0, len(batch)*len(fields))
		for _, row := range batch {
			for _, v := range row {
				args = append(args, sqliteArg(v))
			}
		}
		_, err = tx.ExecContext(ctx, insertSQL(s.table, fields, len(batch)), args...)
		if err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, start+len(batch)-1, err)
		}
	}

	return tx.Commit()
}
