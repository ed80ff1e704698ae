package cli

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// setup already migrates; nothing else to do.
			rt, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer rt.close()
			rt.log.Info("migrations applied")
			return nil
		},
	}
}
