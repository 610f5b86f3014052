// Package run implements the one-shot pipeline run command.
package run

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/regwatch/regwatch/cmd/common"
)

// Command returns the run command for use in the root command.
func Command() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full discovery and analysis cycle",
		Long: `Crawls every configured regulator source once, extracts and analyzes
newly discovered documents, and sends the email digest.

The --force flag bypasses listing change detection so every listing page
is processed even if its content is unchanged since the last run.`,
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

			record, err := pipeline.Orchestrator.Run(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			deps.Logger.Info("run finished",
				"run_id", record.ID,
				"status", record.Status,
				"new_documents", record.NewDocuments,
				"documents_total", record.DocumentsFoundTotal)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "bypass listing change detection")

	return cmd
}
