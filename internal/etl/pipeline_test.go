package etl

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rosteretl/internal/components/telemetry"
	"rosteretl/internal/fetch"
	"rosteretl/lib/testutil"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const rosterBody = `[
	{"userid": 1, "Name": "alice", "\ufeffDirect Manager ": "dana"},
	{"userid": 2, "Name": "bob", "\ufeffDirect Manager ": "dana"},
	{"userid": 3, "Name": "carol", "\ufeffDirect Manager ": "erin"}
]`

const workBody = `[
	{"userid": 2, "Fundraising": "12.5", "Philanthropy": 3, "nonbillablework": "abc",
	 "Capacity": "7", "week_end_date": "2024-03-08", "week_start_date": "2024-03-02"},
	{"userid": 3, "Fundraising": 1, "Philanthropy": "", "nonbillablework": "2",
	 "Capacity": "n/a", "week_end_date": "03/15/2024", "week_start_date": "2024-03-09"},
	{"userid": 4, "Fundraising": 5, "Philanthropy": 5, "nonbillablework": 5,
	 "Capacity": 1, "week_end_date": "2024-03-08", "week_start_date": "2024-03-02"}
]`

type testAPI struct {
	roster string
	work   string
	status int
}

func (a *testAPI) handler() http.Handler {
	mux := http.NewServeMux()
	serve := func(body *string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if a.status != 0 {
				w.WriteHeader(a.status)
				return
			}
			w.Header().Set("content-type", "application/json")
			w.Write([]byte(*body))
		}
	}
	mux.HandleFunc("/roster", serve(&a.roster))
	mux.HandleFunc("/work", serve(&a.work))
	return mux
}

type pipelineFixture struct {
	api      *testAPI
	pipeline Pipeline
	tel      *telemetry.Recorder
	dbPath   string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	api := &testAPI{roster: rosterBody, work: workBody}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	dbPath := filepath.Join(t.TempDir(), "my_local_database.db")
	cfg := DefaultConfig()
	cfg.RosterURL = srv.URL + "/roster"
	cfg.WorkURL = srv.URL + "/work"
	cfg.Destination.SQLite.File = dbPath
	require.NoError(t, cfg.Validate())

	svc := testutil.SetupService(t, testutil.ServiceParams{Name: "etl"})
	tel := svc.Telemetry
	client := fetch.NewClient(fetch.Options{Timeout: 5 * time.Second, Telemetry: tel})
	return &pipelineFixture{
		api:      api,
		pipeline: NewPipeline(cfg, client, tel),
		tel:      tel,
		dbPath:   dbPath,
	}
}

func (f *pipelineFixture) query(t *testing.T, query string, dest ...any) {
	t.Helper()
	db := testutil.SetupService(t, testutil.ServiceParams{Name: "etl", DbPath: f.dbPath}).DB
	require.NoError(t, db.QueryRow(query).Scan(dest...))
}

func TestPipelineRun(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.pipeline.Run(context.Background())
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.True(t, res.Ok())
	require.Equal(t, 3, res.RosterRows)
	require.Equal(t, 3, res.WorkRows)
	require.Equal(t, 2, res.JoinedRows)
	require.Equal(t, []string{"userid", "Name", "Direct_Manager"}, res.RosterColumns)
	require.NotEmpty(t, res.RunID)
	require.Contains(t, res.Destination, "quac_tech_demo")

	joined, ok := f.tel.Count("joined-rows")
	require.True(t, ok)
	require.Equal(t, int64(2), joined)
	require.Empty(t, f.tel.Broken())

	var count int
	f.query(t, `SELECT count(*) FROM quac_tech_demo`, &count)
	require.Equal(t, 2, count)

	var manager string
	var fundraising float64
	var capacity int64
	var weekEnd string
	f.query(t,
		`SELECT Direct_Manager, Fundraising, Capacity, CAST(week_end_date AS TEXT) FROM quac_tech_demo WHERE userid = 2`,
		&manager, &fundraising, &capacity, &weekEnd,
	)
	require.Equal(t, "dana", manager)
	require.Equal(t, 12.5, fundraising)
	require.Equal(t, int64(7), capacity)
	require.Equal(t, "2024-03-08", weekEnd)

	var nonbillable, philanthropy, capacity3 sql.NullFloat64
	var weekEnd3 string
	f.query(t,
		`SELECT nonbillablework, Philanthropy, Capacity, CAST(week_end_date AS TEXT) FROM quac_tech_demo WHERE userid = 3`,
		&nonbillable, &philanthropy, &capacity3, &weekEnd3,
	)
	require.True(t, nonbillable.Valid)
	require.Equal(t, 2.0, nonbillable.Float64)
	require.False(t, philanthropy.Valid)
	require.False(t, capacity3.Valid)
	require.Equal(t, "2024-03-15", weekEnd3)
}

func TestPipelineReplacesPreviousRun(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	require.True(t, f.pipeline.Run(ctx).Ok())

	f.api.roster = `[{"userid": 4, "Name": "dave", "Direct Manager": "erin"}]`
	res := f.pipeline.Run(ctx)
	require.True(t, res.Ok(), "%v", res.Err)
	require.Equal(t, 1, res.JoinedRows)

	var count int
	f.query(t, `SELECT count(*) FROM quac_tech_demo`, &count)
	require.Equal(t, 1, count)

	var name string
	f.query(t, `SELECT Name FROM quac_tech_demo`, &name)
	require.Equal(t, "dave", name)
}

func TestPipelineEmptyFetch(t *testing.T) {
	f := newPipelineFixture(t)
	f.api.work = `[]`

	res := f.pipeline.Run(context.Background())
	require.Equal(t, OutcomeEmpty, res.Outcome)
	require.Equal(t, StageFetch, res.Stage)
	require.ErrorIs(t, res.Err, ErrEmptyResult)
	require.Len(t, f.tel.Warnings(), 1)
	require.Empty(t, f.tel.Broken())

	_, err := os.Stat(f.dbPath)
	require.True(t, os.IsNotExist(err), "no database should be created for an empty run")
}

func TestPipelineEmptyJoin(t *testing.T) {
	f := newPipelineFixture(t)
	f.api.roster = `[{"userid": 100, "Name": "nobody"}]`

	res := f.pipeline.Run(context.Background())
	require.Equal(t, OutcomeEmpty, res.Outcome)
	require.Equal(t, StageJoin, res.Stage)
	require.ErrorIs(t, res.Err, ErrEmptyResult)

	_, err := os.Stat(f.dbPath)
	require.True(t, os.IsNotExist(err))
}

func TestPipelineConnectionFailure(t *testing.T) {
	f := newPipelineFixture(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closed := "http://" + l.Addr().String()
	require.NoError(t, l.Close())
	f.pipeline.Config.RosterURL = closed + "/roster"

	res := f.pipeline.Run(context.Background())
	require.Equal(t, OutcomeConnectionFailure, res.Outcome)
	require.Equal(t, StageFetch, res.Stage)
	require.ErrorIs(t, res.Err, fetch.ErrConnection)
	require.NotEmpty(t, f.tel.Broken())
}

func TestPipelineHTTPStatus(t *testing.T) {
	f := newPipelineFixture(t)
	f.api.status = http.StatusServiceUnavailable

	res := f.pipeline.Run(context.Background())
	require.Equal(t, OutcomeHTTPStatus, res.Outcome)

	var statusErr *fetch.StatusError
	require.ErrorAs(t, res.Err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestPipelineMissingColumn(t *testing.T) {
	f := newPipelineFixture(t)
	f.pipeline.Config.NumericColumns = []string{"Fundraisng"}

	res := f.pipeline.Run(context.Background())
	require.Equal(t, OutcomeUnexpected, res.Outcome)
	require.Equal(t, StageCoerce, res.Stage)

	var missing *MissingColumnError
	require.ErrorAs(t, res.Err, &missing)
	require.Equal(t, "Fundraising", missing.Suggestion)
	require.Len(t, f.tel.Broken(), 1)
}
