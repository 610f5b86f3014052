// Package simulate implements the end-to-end rehearsal command.
package simulate

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/regwatch/regwatch/cmd/common"
	"github.com/regwatch/regwatch/internal/runner"
)

// Command returns the simulate command for use in the root command.
func Command() *cobra.Command {
	var (
		count int
		srcs  []string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Rehearse discovery by deleting recent documents and re-running",
		Long: `Deletes the most recently discovered documents per source along with
the listing digests that would suppress their rediscovery, then runs a
forced pipeline cycle. The rediscovered documents exercise the full
extract/analyze/notify path as if they were genuinely new.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			pipeline, err := cmdcommon.BuildPipeline(deps)
			if err != nil {
				return err
			}
			defer pipeline.Close()

			record, err := runner.Simulate(cmd.Context(), pipeline.Store, pipeline.Orchestrator, count, srcs, deps.Logger)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			deps.Logger.Info("simulation finished",
				"run_id", record.ID,
				"status", record.Status,
				"rediscovered", record.NewDocuments)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "documents to roll back per source (default 5)")
	cmd.Flags().StringSliceVar(&srcs, "sources", nil, "sources to roll back (default all)")

	return cmd
}
