package main

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/app"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(migrateAction("up", "Apply pending migrations", (*app.Migrator).Up))
	cmd.AddCommand(migrateAction("down", "Roll back the last migration", (*app.Migrator).Down))
	cmd.AddCommand(migrateAction("status", "Show migration status", (*app.Migrator).Status))

	return cmd
}

func migrateAction(use, short string, action func(*app.Migrator, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			migrator, err := app.NewMigrator(rt.pool, rt.logger)
			if err != nil {
				return err
			}
			defer migrator.Close()

			if err := action(migrator, ctx); err != nil {
				return err
			}

			version, err := migrator.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database version: %d\n", version)
			return nil
		},
	}
}
