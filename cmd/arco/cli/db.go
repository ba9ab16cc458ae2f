package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"database"},
		Short:   "Database maintenance",
		Long: `Apply migrations, check connectivity and clean up the configured database.

Supported drivers: sqlite (default), mysql, postgres, mssql`,
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBPingCmd())
	cmd.AddCommand(newDBPurgeCodesCmd())

	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the schema",
		Long:  "Apply the schema migrations. They are idempotent and also run whenever the server starts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStoreFromSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmdContext()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Printf("Schema is up to date (%s)\n", store.Driver())
			return nil
		},
	}
}

func newDBPingCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the database is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStoreFromSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmdContext(), timeout)
			defer cancel()

			start := time.Now()
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("ping %s: %w", store.Driver(), err)
			}
			fmt.Printf("%s: ok (%s)\n", store.Driver(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Ping timeout")

	return cmd
}

func newDBPurgeCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-codes",
		Short: "Delete expired verification codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStoreFromSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.PurgeExpiredCodes(cmdContext(), time.Now())
			if err != nil {
				return fmt.Errorf("purge codes: %w", err)
			}
			fmt.Printf("Deleted %d expired verification code(s)\n", n)
			return nil
		},
	}
}
