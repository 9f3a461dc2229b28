// Package main provides signalctl, the operator CLI for the Signal KZ bot
// database: bootstrap roles, inspect users, apply the schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"signal_kz/internal/config"
	"signal_kz/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Global flags
var (
	jsonOutput bool
)

var (
	log  = logger.New("signalctl")
	pool *pgxpool.Pool
)

var rootCmd = &cobra.Command{
	Use:   "signalctl",
	Short: "Operate the Signal KZ bot database",
	Long: `signalctl runs maintenance tasks against the bot's PostgreSQL database.

The connection is configured like the server: DATABASE_URL or DB_HOST,
DB_PORT, DB_USER, DB_PASSWORD and DB_NAME, optionally from a .env file.

Examples:
  signalctl migrate                      # Create or update the schema
  signalctl set-role 123456789 admin     # Grant a role, bypassing the bot
  signalctl users list --role official   # List officials`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: connect,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pool != nil {
			pool.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(setRoleCmd)
	rootCmd.AddCommand(usersCmd)
}

func connect(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadDBConfig()
	if err != nil {
		return err
	}
	pool, err = config.ConnectDB(cmd.Context(), cfg, log)
	return err
}

func main() {
	// keep stdout for command output
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		stop()
		os.Exit(1)
	}
}
