package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"rosteretl/internal/components/telemetry"
	"rosteretl/internal/etl"
	"rosteretl/internal/fetch"
	"rosteretl/lib/restyutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--config etl.json5] [-v]",
	Short: "Runs the pipeline once: fetch, clean, merge and replace the destination table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := etl.LoadConfig(configPath)
		if err != nil {
			return err
		}
		pipeline := newPipeline(cfg)
		res := pipeline.Run(cmd.Context())
		report(cmd.OutOrStdout(), res)
		return nil
	},
}

func newFetchClient(cfg etl.Config, tel telemetry.API) *fetch.Client {
	opts := fetch.Options{
		Timeout:   cfg.Timeout(),
		Telemetry: tel,
	}
	if verbose {
		out, err := restyutil.NewFilesystemOutput("<dev_state>/resty")
		if err != nil {
			slog.Warn("http messages will not be dumped", "err", err)
		} else {
			opts.Output = out
		}
	}
	return fetch.NewClient(opts)
}

func newPipeline(cfg etl.Config) etl.Pipeline {
	tel := telemetry.SlogAPI{}
	return etl.NewPipeline(cfg, newFetchClient(cfg, tel), tel)
}

// report prints the outcome of a run for a human, it never fails the command.
func report(w io.Writer, res etl.Result) {
	switch res.Outcome {
	case etl.OutcomeSuccess:
		fmt.Fprintf(w, "Data successfully written to %s.\n", res.Destination)
		t := newTable()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Collection", "Rows", "Columns"})
		t.AppendRow(table.Row{"roster", res.RosterRows, len(res.RosterColumns)})
		t.AppendRow(table.Row{"work", res.WorkRows, len(res.WorkColumns)})
		t.AppendFooter(table.Row{"merged", res.JoinedRows, ""})
		t.Render()
		fmt.Fprintf(w, "run %s took %s\n", res.RunID, res.Duration.Round(time.Millisecond))
	case etl.OutcomeEmpty:
		fmt.Fprintf(w, "Warning: no data to write, the %s stage produced no rows. Nothing was written.\n", res.Stage)
	case etl.OutcomeConnectionFailure:
		fmt.Fprintf(w, "Connection error: %v\n", res.Err)
		fmt.Fprintln(w, "Make sure the local API server is running (`npm start`, or `rosteretl mockapi`).")
	case etl.OutcomeHTTPStatus:
		var statusErr *fetch.StatusError
		if errors.As(res.Err, &statusErr) {
			fmt.Fprintf(w, "HTTP error: %s responded with %s\n", statusErr.URL, statusErr.Status)
			if statusErr.Body != "" {
				fmt.Fprintln(w, statusErr.Body)
			}
			return
		}
		fmt.Fprintf(w, "HTTP error: %v\n", res.Err)
	default:
		fmt.Fprintf(w, "An unexpected error occurred during the %s stage: %v\n", res.Stage, res.Err)
		fmt.Fprintln(w, "Check the destination identifiers and credentials in your config.")
	}
}
