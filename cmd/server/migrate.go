package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"baseresource/internal/platform/database"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withDB := func(fn func(ctx context.Context, cmd *cobra.Command, db *sql.DB, log *slog.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database url is required for migrations")
			}
			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(ctx, cmd, db, log)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withDB(func(ctx context.Context, _ *cobra.Command, db *sql.DB, log *slog.Logger) error {
				applied, err := database.MigrateUp(ctx, db)
				if err != nil {
					return err
				}
				log.Info("migrations applied", "count", applied)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withDB(func(ctx context.Context, _ *cobra.Command, db *sql.DB, log *slog.Logger) error {
				rolledBack, err := database.MigrateDown(ctx, db)
				if err != nil {
					return err
				}
				if !rolledBack {
					log.Info("no migration to roll back")
					return nil
				}
				log.Info("rolled back one migration")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE: withDB(func(ctx context.Context, cmd *cobra.Command, db *sql.DB, _ *slog.Logger) error {
				statuses, err := database.Status(ctx, db)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tSOURCE\tAPPLIED AT")
				for _, s := range statuses {
					appliedAt := "pending"
					if s.Applied {
						appliedAt = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, s.Source, appliedAt)
				}
				return w.Flush()
			}),
		},
	)
	return cmd
}
