package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"text/tabwriter"

	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/fleet-logbook/backend/migrations"
)

func migrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the fleet archive schema",
		Long: `Run the embedded goose migrations against the archive database.

Examples:
  logbookctl migrate up
  logbookctl migrate status --database-url postgres://localhost/logbook`,
	}
	cmd.PersistentFlags().StringVar(&dsn, "database-url", envOr("DATABASE_URL", ""), "Postgres connection string (default $DATABASE_URL)")

	withProvider := func(fn func(ctx context.Context, cmd *cobra.Command, p *goose.Provider) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				return errors.New("DATABASE_URL or --database-url is required")
			}
			db, err := sql.Open("pgx", dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
			if err != nil {
				return fmt.Errorf("goose provider: %w", err)
			}
			return fn(cmd.Context(), cmd, p)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: withProvider(func(ctx context.Context, cmd *cobra.Command, p *goose.Provider) error {
			results, err := p.Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			if len(results) == 0 {
				cmd.Println("schema is up to date")
			}
			for _, r := range results {
				cmd.Printf("applied %s (%s)\n", r.Source.Path, r.Duration)
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: withProvider(func(ctx context.Context, cmd *cobra.Command, p *goose.Provider) error {
			r, err := p.Down(ctx)
			if err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			cmd.Printf("rolled back %s (%s)\n", r.Source.Path, r.Duration)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: withProvider(func(ctx context.Context, cmd *cobra.Command, p *goose.Provider) error {
			statuses, err := p.Status(ctx)
			if err != nil {
				return fmt.Errorf("migrate status: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
			for _, s := range statuses {
				applied := "-"
				if !s.AppliedAt.IsZero() {
					applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
			}
			return tw.Flush()
		}),
	})

	return cmd
}
