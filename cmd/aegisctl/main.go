// Package main is the entry point for aegisctl, the operational CLI for the
// admission and audit service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aegisai/aegis-core/pkg/storage"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aegisctl",
		Short: "Operational CLI for the aegis admission and audit service",
		Long: `aegisctl performs maintenance tasks against a running aegis-core deployment,
such as pruning old audit logs from the durable store.

Example:
  aegisctl logs purge --older-than 90 --database-url postgres://...`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLogsCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the aegisctl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aegisctl %s\n", version)
		},
	}
}

func newLogsCmd() *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Manage stored audit logs",
	}
	logsCmd.AddCommand(newLogsPurgeCmd())
	return logsCmd
}

func newLogsPurgeCmd() *cobra.Command {
	var (
		databaseURL string
		olderThan   int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit logs older than the retention period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			if databaseURL == "" {
				databaseURL = os.Getenv("AEGIS_DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("no database URL: pass --database-url or set AEGIS_DATABASE_URL")
			}
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be a positive number of days, got %d", olderThan)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			store, err := storage.NewPostgres(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer store.Close()

			cutoff := time.Now().UTC().AddDate(0, 0, -olderThan)
			deleted, err := store.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d audit log entries older than %d days (before %s)\n",
				deleted, olderThan, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to AEGIS_DATABASE_URL)")
	cmd.Flags().IntVar(&olderThan, "older-than", 90, "Retention period in days")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	return cmd
}
