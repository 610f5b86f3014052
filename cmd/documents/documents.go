// Package documents implements the command-line interface for browsing
// discovered regulatory documents.
package documents

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/regwatch/regwatch/cmd/common"
	"github.com/regwatch/regwatch/internal/database"
	"github.com/regwatch/regwatch/internal/domain"
)

const defaultListLimit = 50

// Command returns the documents command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Browse discovered regulatory documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	var (
		source      string
		limit       int
		days        int
		withContent bool
		analyzed    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered documents in a table",
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

			filter := database.RecentFilter{
				Source:       source,
				Limit:        limit,
				WithContent:  withContent,
				WithAnalysis: analyzed,
			}
			if days > 0 {
				since := time.Now().UTC().AddDate(0, 0, -days)
				filter.IssuedSince = &since
			}

			docs, err := pipeline.Store.QueryRecent(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to query documents: %w", err)
			}

			if len(docs) == 0 {
				deps.Logger.Info("no documents match the filter")
				return nil
			}

			renderTable(docs)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "restrict to one source (FBR, SECP, PCP)")
	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum rows to show")
	cmd.Flags().IntVar(&days, "days", 0, "only documents issued in the last N days")
	cmd.Flags().BoolVar(&withContent, "with-content", false, "only documents with a stored PDF")
	cmd.Flags().BoolVar(&analyzed, "analyzed", false, "only documents that already have an analysis")

	return cmd
}

// renderTable formats and displays documents in a table.
func renderTable(docs []*domain.Document) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Source", "Reference", "Title", "Issued", "Domain", "Status"})

	for _, doc := range docs {
		t.AppendRow(table.Row{
			doc.Source,
			doc.ReferenceNumber,
			truncate(doc.Title, 60),
			formatDate(doc.IssueDate),
			orDash(doc.Domain),
			doc.Status,
		})
	}

	t.Render()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
