package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"baseresource/internal/base"
	"baseresource/internal/platform/database"
)

func newSeedCommand(configPath *string) *cobra.Command {
	var names []string

	cmd := &cobra.Command{
		Use:     "seed",
		Short:   "Create resources by name",
		Example: "  baseresource seed --name name1 --name name2",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(names) == 0 {
				return errors.New("at least one --name is required")
			}
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, log, appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			create := func(ctx context.Context) error {
				for _, name := range names {
					created, err := a.service.Create(ctx, &base.Resource{Name: name})
					if err != nil {
						return fmt.Errorf("seed %q: %w", name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", created.ID, created.Name)
				}
				return nil
			}

			switch {
			case a.db != nil:
				return database.RunInTx(ctx, a.db, create)
			case cfg.Store.Driver == base.DriverMemory || cfg.Store.Driver == "":
				log.Warn("memory store does not outlive this process; seeded rows are discarded")
			}
			return create(ctx)
		},
	}
	cmd.Flags().StringArrayVar(&names, "name", nil, "resource name to create (repeatable)")
	return cmd
}
