package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyashahama/learnhub-payments/internal/config"
	"github.com/nyashahama/learnhub-payments/internal/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := config.DatabaseURL()
			if err != nil {
				return err
			}
			if err := db.Migrate(url); err != nil {
				return err
			}
			return printVersion(cmd, url)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the given number of migrations. With --steps 0 every
migration is rolled back, which drops all payment data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := config.DatabaseURL()
			if err != nil {
				return err
			}
			if err := db.MigrateDown(url, steps); err != nil {
				return err
			}
			return printVersion(cmd, url)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back (0 = all)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := config.DatabaseURL()
			if err != nil {
				return err
			}
			return printVersion(cmd, url)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, url string) error {
	version, dirty, err := db.MigrationVersion(url)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case version == 0:
		fmt.Fprintln(out, "schema version: none")
	case dirty:
		fmt.Fprintf(out, "schema version: %d (dirty)\n", version)
	default:
		fmt.Fprintf(out, "schema version: %d\n", version)
	}
	return nil
}
