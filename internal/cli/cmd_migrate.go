package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/dossier/internal/config"
)

// newMigrateCmd creates the migrate command
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Apply pending schema migrations to the configured database.

Migrations are idempotent: running this on an up-to-date database does nothing.
serve and the other commands also migrate on startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			target := database.Path()
			if cfg.Database.Driver == config.DriverPostgres {
				target = "postgres"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database up to date (%s)\n", target)
			return nil
		},
	}
}
