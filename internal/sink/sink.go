package sink

import (
	"context"
	"errors"
	"fmt"

	"rosteretl/internal/table"
)

// Sink persists a table, replacing whatever the destination held before.
type Sink interface {
	// Write replaces the destination's contents with `t`. Either every row
	// is written or (on error) the previous contents are left in place.
	Write(ctx context.Context, t table.Table) error
	String() string
	Close() error
}

const (
	KindSQLite   = "sqlite"
	KindBigQuery = "bigquery"
	KindPostgres = "postgres"
)

type SQLiteConfig struct {
	// File is a local database file, it is created if absent.
	File string `json:"file"`
	// URL is a remote libsql server, it takes precedence over File.
	URL       string       `json:"url"`
	AuthToken string       `json:"auth_token"`
	Table     string       `json:"table"`
	Schema    table.Schema `json:"schema"`
}

type BigQueryConfig struct {
	// BillingProject is the project jobs are billed to, it defaults to Project.
	BillingProject  string       `json:"billing_project"`
	Project         string       `json:"project"`
	Dataset         string       `json:"dataset"`
	Table           string       `json:"table"`
	CredentialsFile string       `json:"credentials_file"`
	Schema          table.Schema `json:"schema"`
}

type PostgresConfig struct {
	ConnString string       `json:"conn_string"`
	Table      string       `json:"table"`
	Schema     table.Schema `json:"schema"`
}

// Destination selects one of the sinks by Kind.
type Destination struct {
	Kind     string         `json:"kind"`
	SQLite   SQLiteConfig   `json:"sqlite"`
	BigQuery BigQueryConfig `json:"bigquery"`
	Postgres PostgresConfig `json:"postgres"`
}

func (d Destination) Validate() error {
	var errs []error
	require := func(field, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("destination.%s.%s is required", d.Kind, field))
		}
	}

	switch d.Kind {
	case KindSQLite:
		if d.SQLite.File == "" && d.SQLite.URL == "" {
			errs = append(errs, fmt.Errorf("destination.sqlite needs either a file or a url"))
		}
		require("table", d.SQLite.Table)
		if err := validateIdentifier(d.SQLite.Table); err != nil && d.SQLite.Table != "" {
			errs = append(errs, err)
		}
	case KindBigQuery:
		require("project", d.BigQuery.Project)
		require("dataset", d.BigQuery.Dataset)
		require("table", d.BigQuery.Table)
		if len(d.BigQuery.Schema) == 0 {
			errs = append(errs, fmt.Errorf("destination.bigquery.schema is required"))
		}
	case KindPostgres:
		require("conn_string", d.Postgres.ConnString)
		require("table", d.Postgres.Table)
		if err := validateIdentifier(d.Postgres.Table); err != nil && d.Postgres.Table != "" {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf(
			"unknown destination kind %q (expected %s, %s or %s)",
			d.Kind, KindSQLite, KindBigQuery, KindPostgres,
		))
	}
	return errors.Join(errs...)
}

// Open builds the sink selected by `d`.
func Open(ctx context.Context, d Destination) (Sink, error) {
	err := d.Validate()
	if err != nil {
		return nil, err
	}
	switch d.Kind {
	case KindSQLite:
		return OpenSQLite(ctx, d.SQLite)
	case KindBigQuery:
		return OpenBigQuery(ctx, d.BigQuery)
	case KindPostgres:
		return OpenPostgres(ctx, d.Postgres)
	}
	return nil, fmt.Errorf("unknown destination kind %q", d.Kind)
}

// resolveSchema returns the normalized explicit schema, or one inferred from
// the table's values when none was configured.
func resolveSchema(explicit table.Schema, t table.Table) (table.Schema, error) {
	if len(explicit) == 0 {
		return table.InferSchema(t), nil
	}
	return explicit.Normalize()
}
