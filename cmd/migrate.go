package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aedi/aedi/config"
	"github.com/aedi/aedi/utils"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(rootOpts)
			if err != nil {
				return err
			}
			db, err := config.OpenDatabase(c)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			utils.Sugar.Infow("schema migrated", "driver", c.DBDriver, "tables", len(config.Models()))
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
