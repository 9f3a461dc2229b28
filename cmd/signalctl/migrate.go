package main

import (
	"context"
	"fmt"
	"io"

	"signal_kz/internal/config"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context(), pool, cmd.OutOrStdout())
	},
}

func runMigrate(ctx context.Context, db config.Execer, out io.Writer) error {
	if err := config.AutoMigrate(ctx, db, log); err != nil {
		return err
	}
	fmt.Fprintln(out, "Schema is up to date")
	return nil
}
