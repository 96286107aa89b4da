package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"learning-planner-backend/config"
	"learning-planner-backend/internal/logger"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "plannerd",
	Short: "Learning planner reminder backend",
	Long: `plannerd serves the push subscription API and sends task reminders
as web push notifications.

Examples:
  plannerd serve --config ./config/config.yaml
  plannerd scan
  plannerd vapid`,
	SilenceUsage: true,
}

func init() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", defaultConfig, "path to the YAML config file")

	rootCmd.AddCommand(serveCmd, scanCmd, vapidCmd)
}

// loadConfig reads the config file and builds the logger it selects.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logging.Development)
	if err != nil {
		return nil, nil, err
	}
	log.Info("configuration loaded", zap.String("path", flagConfig))
	return cfg, log, nil
}
