package main

import (
	"github.com/spf13/cobra"

	"PaperTracker/internal/app"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline now and then on every interval",
	Long: `Schedule runs today's listing immediately and again after every
scheduler.interval until interrupted. Runs never overlap.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().Duration("interval", 0, "time between runs (default from config, 24h)")

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Scheduler.Interval = interval
	}

	application, err := app.NewTracker(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Schedule(cmd.Context()); err != nil {
		logger.Error("scheduler stopped", "error", err)
		return err
	}
	return nil
}
