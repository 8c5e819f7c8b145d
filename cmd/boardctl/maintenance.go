package main

import (
	"fmt"

	"pipeline_board_backend/internal/pipeline/reasons"
	"pipeline_board_backend/migrations"
	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/db"

	"github.com/spf13/cobra"
)

func newSeedReasonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-reasons <board-id>",
		Short: "Add the default won and lost reasons a board is missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseBoardID(args[0])
			if err != nil {
				return err
			}
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			svc, err := reasons.New(e.repo)
			if err != nil {
				return err
			}
			res, err := svc.SeedDefaults(cmd.Context(), boardID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d won and %d lost reasons\n", res.Won, res.Lost)
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadBase()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := db.RunMigrations(cmd.Context(), cfg, migrations.FS); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
