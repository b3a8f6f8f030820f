package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"rosteretl/internal/components/telemetry"
	"rosteretl/internal/etl"
	"rosteretl/internal/fetch"
	datatable "rosteretl/internal/table"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchJSON bool

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print the collection as indented JSON instead of a table.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <roster|work|url> [--json]",
	Short: "Fetches one collection and prints it, a quick check that the API is up.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := etl.LoadConfig(configPath)
		if err != nil {
			return err
		}
		url := resolveCollection(cfg, args[0])

		client := newFetchClient(cfg, telemetry.SlogAPI{})
		t, err := client.FetchTable(cmd.Context(), url)
		out := cmd.OutOrStdout()

		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			fmt.Fprintf(out, "Failed to fetch data. Status code: %d\n", statusErr.StatusCode)
			fmt.Fprintln(out, statusErr.Body)
			return nil
		}
		if errors.Is(err, fetch.ErrConnection) {
			fmt.Fprintf(out, "Connection error: %v\n", err)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Successfully fetched %d items.\n", t.Len())
		if fetchJSON {
			return printJSON(out, t)
		}
		printTable(out, t)
		return nil
	},
}

func resolveCollection(cfg etl.Config, arg string) string {
	switch arg {
	case "roster":
		return cfg.RosterURL
	case "work":
		return cfg.WorkURL
	}
	return arg
}

func printJSON(w io.Writer, t datatable.Table) error {
	raw, err := t.ToJSON()
	if err != nil {
		return err
	}
	var indented bytes.Buffer
	err = json.Indent(&indented, raw, "", "  ")
	if err != nil {
		return err
	}
	indented.WriteByte('\n')
	_, err = indented.WriteTo(w)
	return err
}

func printTable(w io.Writer, t datatable.Table) {
	tw := newTable()
	tw.SetOutputMirror(w)

	header := make(table.Row, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	tw.AppendHeader(header)

	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v.Text()
		}
		tw.AppendRow(r)
	}
	tw.Render()
}
