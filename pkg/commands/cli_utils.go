package commands

import (
	"github.com/spf13/cobra"
)

// NewUtilityCommands creates the database maintenance commands (migrate, seed).
func NewUtilityCommands() []*cobra.Command {
	return []*cobra.Command{
		newMigrateCmd(),
		newSeedCmd(),
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect database migrations",
	}
	for _, action := range []struct{ name, short string }{
		{MigrateUp, "Apply all pending migrations"},
		{MigrateDown, "Roll back the most recent migration"},
		{MigrateStatus, "Print the state of every migration"},
	} {
		name := action.name
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return Migrate(cmd.Context(), name)
			},
		})
	}
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with sample users and change requests",
		Long:  `Creates a test requester, a test manager and two pending change requests. Safe to run more than once.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return SeedDatabase(cmd.Context())
		},
	}
}
