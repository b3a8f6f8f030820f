package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"rosteretl/internal/components/telemetry"
	otelsetup "rosteretl/lib/telemetry"

	_ "modernc.org/sqlite"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip opening a db
	DbPath string
}

type ServiceResult struct {
	// DB is a plain connection to DbPath, used to assert what a run wrote.
	DB        *sql.DB
	Telemetry *telemetry.Recorder
}

// SetupService sets up telemetry for the test and, when DbPath is given,
// opens the sqlite file at it. Everything is closed on test cleanup.
func SetupService(t testing.TB, params ServiceParams) ServiceResult {
	t.Helper()
	t.Cleanup(otelsetup.SetupForTesting(fmt.Sprintf("test:%s", params.Name)))

	result := ServiceResult{Telemetry: telemetry.NewRecorder()}
	if params.DbPath == "" {
		return result
	}

	db, err := sql.Open("sqlite", params.DbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	result.DB = db
	return result
}
