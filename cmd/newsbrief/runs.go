package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRunsCommand() *cobra.Command {
	var limit int
	var pagesOf string
	var format string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded crawl runs",
		Example: `  newsbrief runs -n 5
  newsbrief runs --pages 0b6c8f9e-4f0e-4c36-9a57-2d1f0f4b3a21`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openLedger(cfg, newLogger())
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("run ledger is disabled")
			}
			defer store.Close()

			out := cmd.OutOrStdout()

			if pagesOf != "" {
				runID, err := uuid.Parse(pagesOf)
				if err != nil {
					return fmt.Errorf("invalid run ID: %w", err)
				}
				run, err := store.GetRun(runID)
				if err != nil {
					return err
				}
				pages, err := store.ListPages(runID)
				if err != nil {
					return err
				}
				if format == "json" {
					return printJSON(out, map[string]any{"run": run, "pages": pages})
				}
				return printPagesTable(out, run, pages)
			}

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			switch format {
			case "table":
				return printRunsTable(out, runs)
			case "json":
				return printJSON(out, map[string]any{"runs": runs, "total": len(runs)})
			case "compact":
				printRunsCompact(out, runs)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (must be table, json, or compact)", format)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list, 0 for all")
	cmd.Flags().StringVar(&pagesOf, "pages", "", "list the pages of one run")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json, compact")

	return cmd
}
