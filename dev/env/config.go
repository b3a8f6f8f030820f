package devenv

// BigQueryTestConfig points the warehouse integration test at a real dataset,
// it lives in dev/.state/bigquery.json5 and is never committed.
type BigQueryTestConfig struct {
	BillingProject  string `json:"billing_project"`
	Project         string `json:"project"`
	Dataset         string `json:"dataset"`
	Table           string `json:"table"`
	CredentialsFile string `json:"credentials_file"`
}
