package main

import (
	"github.com/spf13/cobra"

	"PaperTracker/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose stored papers and their metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")

		application, err := app.NewReader(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		return application.Serve(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")

	rootCmd.AddCommand(serveCmd)
}
