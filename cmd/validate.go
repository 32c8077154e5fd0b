package cmd

import (
	"log/slog"

	"github.com/matrixise/nouns-dashboard/internal/config"
	"github.com/matrixise/nouns-dashboard/internal/logger"
	"github.com/matrixise/nouns-dashboard/internal/scheduler"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without contacting any endpoint.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	schedule := "on demand"
	if cfg.Interval != "" {
		schedule = scheduler.DescribeSchedule(cfg.Interval, cfg.GetTimezone())
	}

	slog.Info("Configuration valid",
		"rpc_endpoints", len(cfg.RPCUrls),
		"subgraph_url", cfg.Subgraph.URL,
		"activity_enabled", cfg.Activity.Enabled,
		"window_days", cfg.Activity.WindowDays,
		"schedule", schedule,
		"log_level", cfg.LogLevel,
		"database_url_set", cfg.DatabaseURL != "",
		"redis_url_set", cfg.RedisURL != "",
	)

	return nil
}
