// Package migrate implements the database migration commands.
package migrate

import (
	"github.com/spf13/cobra"

	"tubemirror/internal/config"
	"tubemirror/internal/database"
)

// Command returns the migrate command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return database.MigrateUp(cfg.Database)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return database.MigrateDown(cfg.Database)
		},
	})

	return cmd
}
