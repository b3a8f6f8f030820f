package etl

import (
	"os"
	"path/filepath"
	"testing"

	"rosteretl/internal/sink"
	"rosteretl/internal/table"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "etl.json5"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "etl.json5")
	writeFile(t, path, `{
		// comments are allowed
		roster_url: "http://api.internal:8080/roster",
		numeric_columns: ["Fundraising", "Brotherhood"],
		renames: {"Bortherhood": "Brotherhood"},
		destination: {
			kind: "bigquery",
			bigquery: {
				project: "warehouse",
				dataset: "demo",
			},
		},
	}`)
	writeFile(t, filepath.Join(dir, "etl.local.json5"), `{
		destination: {
			bigquery: {billing_project: "billing"},
		},
	}`)
	t.Setenv("ETL_WORK_URL", "https://example.com/work")
	t.Setenv("ETL_TIMEOUT_SECONDS", "5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "http://api.internal:8080/roster", cfg.RosterURL)
	require.Equal(t, "https://example.com/work", cfg.WorkURL)
	require.Equal(t, "userid", cfg.JoinKey)
	require.Equal(t, []string{"Fundraising", "Brotherhood"}, cfg.NumericColumns)
	require.Equal(t, map[string]string{"Bortherhood": "Brotherhood"}, cfg.Renames)
	require.Equal(t, 5, cfg.TimeoutSeconds)

	bq := cfg.Destination.BigQuery
	require.Equal(t, sink.KindBigQuery, cfg.Destination.Kind)
	require.Equal(t, "warehouse", bq.Project)
	require.Equal(t, "demo", bq.Dataset)
	require.Equal(t, "billing", bq.BillingProject)
	require.Equal(t, "tb_quac_tech_demo", bq.Table)
	require.Equal(t, DefaultWarehouseSchema, bq.Schema)
}

func TestLoadConfigEnvDestination(t *testing.T) {
	t.Setenv("ETL_DESTINATION_KIND", "postgres")
	t.Setenv("ETL_DESTINATION_POSTGRES_CONN_STRING", "postgres://localhost:5432/etl")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "etl.json5"))
	require.NoError(t, err)
	require.Equal(t, sink.KindPostgres, cfg.Destination.Kind)
	require.Equal(t, "postgres://localhost:5432/etl", cfg.Destination.Postgres.ConnString)
	require.Equal(t, "quac_tech_demo", cfg.Destination.Postgres.Table)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.json5")
	writeFile(t, path, `{roster_url: "ftp://example.com/roster", destination: {kind: "bigquery"}}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "roster_url")
	require.Contains(t, err.Error(), "destination.bigquery.project")
}

func TestDefaultWarehouseSchemaCoversConversions(t *testing.T) {
	cfg := DefaultConfig()
	expected := map[string]table.FieldType{}
	for _, col := range cfg.NumericColumns {
		expected[col] = table.TypeFloat
	}
	for _, col := range cfg.IntegerColumns {
		expected[col] = table.TypeInt
	}
	for _, col := range cfg.DateColumns {
		expected[col] = table.TypeDate
	}

	schema, err := cfg.Destination.BigQuery.Schema.Normalize()
	require.NoError(t, err)
	for col, typ := range expected {
		field, ok := schema.Lookup(col)
		require.True(t, ok, "%s is converted but not declared in the warehouse schema", col)
		require.Equal(t, typ, field.Type, col)
	}
}
