package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDestinationValidate(t *testing.T) {
	testCases := []struct {
		name  string
		dest  Destination
		valid bool
	}{
		{
			name:  "sqlite file",
			dest:  Destination{Kind: KindSQLite, SQLite: SQLiteConfig{File: "etl.db", Table: "t"}},
			valid: true,
		},
		{
			name:  "libsql url",
			dest:  Destination{Kind: KindSQLite, SQLite: SQLiteConfig{URL: "libsql://db.example.com", Table: "t"}},
			valid: true,
		},
		{
			name: "sqlite without location",
			dest: Destination{Kind: KindSQLite, SQLite: SQLiteConfig{Table: "t"}},
		},
		{
			name: "bigquery without schema",
			dest: Destination{Kind: KindBigQuery, BigQuery: BigQueryConfig{Project: "p", Dataset: "d", Table: "t"}},
		},
		{
			name: "bigquery without dataset",
			dest: Destination{Kind: KindBigQuery, BigQuery: BigQueryConfig{Project: "p", Table: "t", Schema: warehouseSchema}},
		},
		{
			name:  "bigquery",
			dest:  Destination{Kind: KindBigQuery, BigQuery: BigQueryConfig{Project: "p", Dataset: "d", Table: "t", Schema: warehouseSchema}},
			valid: true,
		},
		{
			name: "postgres without table",
			dest: Destination{Kind: KindPostgres, Postgres: PostgresConfig{ConnString: "postgres://localhost/db"}},
		},
		{
			name: "unknown kind",
			dest: Destination{Kind: "csv"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.dest.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "etl.db")
	s, err := Open(context.Background(), Destination{
		Kind:   KindSQLite,
		SQLite: SQLiteConfig{File: file, Table: "quac_tech_demo"},
	})
	require.NoError(t, err)
	defer s.Close()

	require.Contains(t, s.String(), file)
	require.Contains(t, s.String(), "quac_tech_demo")
}
