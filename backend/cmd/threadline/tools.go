package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/threadline-dev/threadline/backend/internal/service"
	"github.com/threadline-dev/threadline/backend/internal/storage/sqldb"
	"github.com/threadline-dev/threadline/shared/config"
)

// openStorage connects and migrates. Tool commands do not start the view cache, so a
// running server keeps serving its cached views until they expire.
func openStorage(ctx context.Context, cfg *config.Config) (*sqldb.Storage, error) {
	storage, err := sqldb.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx); err != nil {
		storage.Cleanup()
		return nil, err
	}
	return storage, nil
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			storage, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer storage.Cleanup()

			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

// newDeleteCommand re-runs a deletion, e.g. one that failed halfway. Deleting is
// idempotent as long as the convo still exists.
func newDeleteCommand(opts *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "delete <convo-id>",
		Short: "Delete a convo with all of its replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			storage, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer storage.Cleanup()

			report, err := service.NewDeleter(storage, nil).Delete(cmd.Context(), args[0], path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deleted %d convos\n", len(report.Closure))
			fmt.Fprintf(out, "authors: %d, communities: %d\n", len(report.Authors), len(report.Communities))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "view path the deletion was issued from")
	return cmd
}

func newRepairCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Run one consistency sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			storage, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer storage.Cleanup()

			repairer := service.NewRepairer(storage, service.NewDeleter(storage, nil))
			if err := repairer.RunRepair(cmd.Context()); err != nil {
				return err
			}

			stats := repairer.LastStats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stale child links removed: %d\n", stats.StaleChildLinks)
			fmt.Fprintf(out, "child links restored: %d\n", stats.RestoredChildLinks)
			fmt.Fprintf(out, "orphans deleted: %d\n", stats.OrphansDeleted)
			fmt.Fprintf(out, "dangling user convos removed: %d\n", stats.DanglingUserConvos)
			fmt.Fprintf(out, "dangling community convos removed: %d\n", stats.DanglingCommunityConvos)
			for _, e := range stats.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			if len(stats.Errors) > 0 {
				return fmt.Errorf("%d orphans could not be deleted", len(stats.Errors))
			}
			return nil
		},
	}
}
