package etl

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"rosteretl/internal/sink"
	"rosteretl/internal/table"
	"rosteretl/lib/configutil"
)

// Config is everything a run needs, it is passed explicitly into the pipeline.
type Config struct {
	RosterURL string `json:"roster_url"`
	WorkURL   string `json:"work_url"`
	JoinKey   string `json:"join_key"`

	// NumericColumns, DateColumns and IntegerColumns name the work columns
	// converted by the coercer, after Renames has been applied.
	NumericColumns []string          `json:"numeric_columns"`
	DateColumns    []string          `json:"date_columns"`
	IntegerColumns []string          `json:"integer_columns"`
	Renames        map[string]string `json:"renames"`

	TimeoutSeconds int              `json:"timeout_seconds"`
	Destination    sink.Destination `json:"destination"`
}

// DefaultWarehouseSchema is the explicit schema of the joined roster/work table.
var DefaultWarehouseSchema = table.Schema{
	{Name: "Name", Type: table.TypeString},
	{Name: "userid", Type: table.TypeString},
	{Name: "Direct_Manager", Type: table.TypeString},
	{Name: "Pledge_Class", Type: table.TypeString},
	{Name: "Major", Type: table.TypeString},
	{Name: "Concentration", Type: table.TypeString},
	{Name: "Academic_Year", Type: table.TypeString},
	{Name: "Expected_Grad", Type: table.TypeString},

	{Name: "Fundraising", Type: table.TypeFloat},
	{Name: "Philanthropy", Type: table.TypeFloat},
	{Name: "Professionalism", Type: table.TypeFloat},
	{Name: "nonbillablework", Type: table.TypeFloat},
	{Name: "Capacity", Type: table.TypeInt},
	{Name: "week_end_date", Type: table.TypeDate},
	{Name: "week_start_date", Type: table.TypeDate},
}

// DefaultConfig points at a local json-server and a local sqlite file.
func DefaultConfig() Config {
	return Config{
		RosterURL:      "http://localhost:3001/roster",
		WorkURL:        "http://localhost:3001/work",
		JoinKey:        "userid",
		NumericColumns: []string{"Fundraising", "Philanthropy", "nonbillablework"},
		DateColumns:    []string{"week_end_date", "week_start_date"},
		IntegerColumns: []string{"Capacity"},
		TimeoutSeconds: 30,
		Destination: sink.Destination{
			Kind: sink.KindSQLite,
			SQLite: sink.SQLiteConfig{
				File:  "my_local_database.db",
				Table: "quac_tech_demo",
			},
			BigQuery: sink.BigQueryConfig{
				Table:  "tb_quac_tech_demo",
				Schema: DefaultWarehouseSchema,
			},
			Postgres: sink.PostgresConfig{
				Table: "quac_tech_demo",
			},
		},
	}
}

// Timeout is the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Coercer builds the work table coercer described by the config.
func (c Config) Coercer() Coercer {
	return Coercer{
		Renames:        c.Renames,
		DateColumns:    c.DateColumns,
		NumericColumns: c.NumericColumns,
		IntegerColumns: c.IntegerColumns,
	}
}

func validateEndpoint(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if err := validateEndpoint("roster_url", c.RosterURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateEndpoint("work_url", c.WorkURL); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.JoinKey) == "" {
		errs = append(errs, fmt.Errorf("join_key is required"))
	}
	for from, to := range c.Renames {
		if from == "" || to == "" {
			errs = append(errs, fmt.Errorf("renames cannot contain empty column names"))
		}
	}
	if err := c.Destination.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// envOverrides lists every setting that can be overridden from the
// environment, each variable is read with the ETL_ prefix (ex. ETL_ROSTER_URL).
type envOverrides struct {
	RosterURL      string            `env:"ROSTER_URL"`
	WorkURL        string            `env:"WORK_URL"`
	JoinKey        string            `env:"JOIN_KEY"`
	NumericColumns []string          `env:"NUMERIC_COLUMNS"`
	DateColumns    []string          `env:"DATE_COLUMNS"`
	IntegerColumns []string          `env:"INTEGER_COLUMNS"`
	Renames        map[string]string `env:"RENAMES"`
	TimeoutSeconds int               `env:"TIMEOUT_SECONDS"`

	DestinationKind string `env:"DESTINATION_KIND"`

	SQLiteFile      string `env:"DESTINATION_SQLITE_FILE"`
	SQLiteURL       string `env:"DESTINATION_SQLITE_URL"`
	SQLiteAuthToken string `env:"DESTINATION_SQLITE_AUTH_TOKEN"`
	SQLiteTable     string `env:"DESTINATION_SQLITE_TABLE"`

	BigQueryBillingProject  string `env:"DESTINATION_BIGQUERY_BILLING_PROJECT"`
	BigQueryProject         string `env:"DESTINATION_BIGQUERY_PROJECT"`
	BigQueryDataset         string `env:"DESTINATION_BIGQUERY_DATASET"`
	BigQueryTable           string `env:"DESTINATION_BIGQUERY_TABLE"`
	BigQueryCredentialsFile string `env:"DESTINATION_BIGQUERY_CREDENTIALS_FILE"`

	PostgresConnString string `env:"DESTINATION_POSTGRES_CONN_STRING"`
	PostgresTable      string `env:"DESTINATION_POSTGRES_TABLE"`
}

const EnvPrefix = "ETL_"

func setIf[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

func setSliceIf[T any](dst *[]T, v []T) {
	if len(v) > 0 {
		*dst = v
	}
}

func (c *Config) applyEnv() error {
	var o envOverrides
	err := configutil.ApplyEnv(&o, EnvPrefix)
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	setIf(&c.RosterURL, o.RosterURL)
	setIf(&c.WorkURL, o.WorkURL)
	setIf(&c.JoinKey, o.JoinKey)
	setSliceIf(&c.NumericColumns, o.NumericColumns)
	setSliceIf(&c.DateColumns, o.DateColumns)
	setSliceIf(&c.IntegerColumns, o.IntegerColumns)
	if len(o.Renames) > 0 {
		c.Renames = o.Renames
	}
	setIf(&c.TimeoutSeconds, o.TimeoutSeconds)

	d := &c.Destination
	setIf(&d.Kind, o.DestinationKind)
	setIf(&d.SQLite.File, o.SQLiteFile)
	setIf(&d.SQLite.URL, o.SQLiteURL)
	setIf(&d.SQLite.AuthToken, o.SQLiteAuthToken)
	setIf(&d.SQLite.Table, o.SQLiteTable)
	setIf(&d.BigQuery.BillingProject, o.BigQueryBillingProject)
	setIf(&d.BigQuery.Project, o.BigQueryProject)
	setIf(&d.BigQuery.Dataset, o.BigQueryDataset)
	setIf(&d.BigQuery.Table, o.BigQueryTable)
	setIf(&d.BigQuery.CredentialsFile, o.BigQueryCredentialsFile)
	setIf(&d.Postgres.ConnString, o.PostgresConnString)
	setIf(&d.Postgres.Table, o.PostgresTable)
	return nil
}

// LoadConfig reads `path` (and its .local override) on top of DefaultConfig,
// then applies ETL_* environment variables and validates the result.
// A missing file is not an error, the defaults are used instead.
func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if os.IsNotExist(err) {
		slog.Info("no config file found, using defaults", "path", path)
		cfg = Config{}
	} else if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err = configutil.WithDefaults(cfg, DefaultConfig())
	if err != nil {
		return Config{}, fmt.Errorf("apply config defaults: %w", err)
	}
	err = cfg.applyEnv()
	if err != nil {
		return Config{}, err
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
