package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"learning-planner-backend/internal/app"
	"learning-planner-backend/internal/logger"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one reminder scan cycle and exit",
	Long: `Run one reminder scan cycle and exit.

Exits non-zero when the task or subscription store could not be read or updated.
Failed push deliveries are not errors; the affected devices are deactivated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync(log)

		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.ScanOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "due=%d notified=%d skipped=%d failed=%d\n",
			result.Due, result.Notified, result.Skipped, result.Failed)
		return err
	},
}
