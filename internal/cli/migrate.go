package cli

import (
	"fmt"
	"task_tracker/internal/migrations"

	"github.com/spf13/cobra"
)

var resetSchema bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and seed the bootstrap admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if resetSchema {
			if err := migrations.ResetSchema(e.db, e.log); err != nil {
				return fmt.Errorf("failed to drop tables: %w", err)
			}
		}
		if err := migrations.RunMigrations(e.db, e.cfg, e.log); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&resetSchema, "reset", false, "Drop all tables before migrating (destroys data)")
}
