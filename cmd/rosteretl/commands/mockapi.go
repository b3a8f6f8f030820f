package commands

import (
	"fmt"
	"log/slog"

	"rosteretl/internal/components/telemetry"
	"rosteretl/internal/mockapi"
	"rosteretl/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	mockData string
	mockHost string
	mockPort int
)

func init() {
	mockapiCmd.Flags().StringVar(&mockData, "data", "db.json", "A json file shaped like {\"roster\": [...], \"work\": [...]}.")
	mockapiCmd.Flags().StringVar(&mockHost, "host", "localhost", "The interface to listen on.")
	mockapiCmd.Flags().IntVar(&mockPort, "port", 3001, "The port to listen on.")
	rootCmd.AddCommand(mockapiCmd)
}

var mockapiCmd = &cobra.Command{
	Use:   "mockapi [--data db.json] [--port 3001]",
	Short: "Serves a local data file as the roster/work API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mockapi.LoadData(mockData)
		if err != nil {
			return err
		}
		slog.Info("serving collections", "file", mockData, "collections", data.Collections())

		handler := mockapi.NewHandler(data, telemetry.NewScopedAPI("mockapi", telemetry.SlogAPI{}))
		err = serviceutil.StartHttpServer(cmd.Context(), fmt.Sprintf("%s:%d", mockHost, mockPort), handler)
		if err != nil {
			serviceutil.Fatal("mock api server stopped", err)
		}
		return nil
	},
}
