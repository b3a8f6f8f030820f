package sink

import (
	"context"
	"testing"
	"time"

	"rosteretl/internal/table"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres sink integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("rosteretl"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connString
}

func TestPostgresReplacesTable(t *testing.T) {
	connString := setupPostgres(t)
	ctx := context.Background()

	s, err := Open(ctx, Destination{
		Kind: KindPostgres,
		Postgres: PostgresConfig{
			ConnString: connString,
			Table:      "quac_tech_demo",
		},
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(ctx, sampleTable()))

	pg := s.(*Postgres)
	var count int
	err = pg.pool.QueryRow(ctx, `SELECT count(*) FROM quac_tech_demo`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	var name string
	var fundraising float64
	var capacity int64
	var weekEnd time.Time
	err = pg.pool.QueryRow(
		ctx,
		`SELECT "Name", "Fundraising", "Capacity", week_end_date FROM quac_tech_demo WHERE userid = 2`,
	).Scan(&name, &fundraising, &capacity, &weekEnd)
	require.NoError(t, err)
	require.Equal(t, "bob", name)
	require.Equal(t, 12.5, fundraising)
	require.Equal(t, int64(7), capacity)
	require.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 1}, civil.DateOf(weekEnd))

	second := table.Table{
		Columns: []string{"userid", "Name"},
		Rows:    [][]table.Value{{table.Int(9), table.String("zed")}},
	}
	require.NoError(t, s.Write(ctx, second))

	err = pg.pool.QueryRow(ctx, `SELECT count(*) FROM quac_tech_demo`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
