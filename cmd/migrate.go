package cmd

import (
	"context"
	"log/slog"

	"github.com/matrixise/nouns-dashboard/internal/config"
	"github.com/matrixise/nouns-dashboard/internal/logger"
	"github.com/matrixise/nouns-dashboard/internal/storage"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the snapshot and member schema",
	Long: `Apply, roll back or list the embedded migrations. Only the database URL
is read, so the schema can be prepared before RPC endpoints are configured.`,
}

// migration is one goose action exposed as a subcommand.
type migration struct {
	use   string
	short string
	done  string
	run   func(ctx context.Context, dsn string) error
}

var migrations = []migration{
	{use: "up", short: "Apply all pending migrations", done: "Migrations applied", run: storage.MigrateUp},
	{use: "down", short: "Roll back the last migration", done: "Migration rolled back", run: storage.MigrateDown},
	{use: "status", short: "Show migration status", run: storage.MigrateStatus},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	for _, m := range migrations {
		migrateCmd.AddCommand(m.command())
	}
}

func (m migration) command() *cobra.Command {
	return &cobra.Command{
		Use:   m.use,
		Short: m.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup(logLevel)

			dsn, err := config.DatabaseURL(cfgFile)
			if err != nil {
				return err
			}

			if err := m.run(cmd.Context(), dsn); err != nil {
				slog.Error("Migration failed", "action", m.use, "error", err)
				return err
			}
			if m.done != "" {
				slog.Info(m.done)
			}
			return nil
		},
	}
}
