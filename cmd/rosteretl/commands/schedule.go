package commands

import (
	"log/slog"
	"time"

	"rosteretl/internal/components/chrono"
	"rosteretl/internal/components/telemetry"
	"rosteretl/internal/etl"
	libtelemetry "rosteretl/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	cronSpec      string
	perfStatsRate time.Duration
)

func init() {
	scheduleCmd.Flags().StringVar(&cronSpec, "cron", "@hourly", "When to run the pipeline, a 5 field cron spec or a descriptor like @every 30m.")
	scheduleCmd.Flags().DurationVar(&perfStatsRate, "perf-stats", 15*time.Second, "How often process stats are sampled.")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [--cron <spec>]",
	Short: "Runs the pipeline on a cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := chrono.ValidateSpec(cronSpec)
		if err != nil {
			return err
		}
		cfg, err := etl.LoadConfig(configPath)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pipeline := newPipeline(cfg)
		cronner := chrono.NewStandardCron(telemetry.NewScopedAPI("schedule", telemetry.SlogAPI{}), nil)
		err = cronner.Cron(cronSpec, func() {
			report(cmd.OutOrStdout(), pipeline.Run(ctx))
		})
		if err != nil {
			return err
		}

		libtelemetry.InstrumentPerfStats(ctx, perfStatsRate)
		cronner.Start()
		slog.Info("pipeline scheduled", "cron", cronSpec, "next", cronner.Next())

		<-ctx.Done()
		slog.Info("stopping scheduler, waiting for the active run to finish")
		<-cronner.Stop().Done()
		return nil
	},
}
