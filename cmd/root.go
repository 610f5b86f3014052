// Package cmd implements the command-line interface for regwatch.
// It provides the root command and subcommands for running the
// discovery pipeline and serving the HTTP API.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regwatch/regwatch/cmd/documents"
	"github.com/regwatch/regwatch/cmd/migrate"
	cmdrun "github.com/regwatch/regwatch/cmd/run"
	"github.com/regwatch/regwatch/cmd/serve"
	"github.com/regwatch/regwatch/cmd/simulate"
	"github.com/regwatch/regwatch/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "regwatch",
	Short: "Regulatory document monitor for Pakistani regulators",
	Long: `Monitors FBR, SECP and PCP for newly published regulatory documents,
stores the PDFs, analyzes them with an LLM gateway and emails a digest
of what changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	if err := config.InitializeViper(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("regwatch version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(cmdrun.Command())
	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(documents.Command())
	rootCmd.AddCommand(simulate.Command())
	rootCmd.AddCommand(migrate.Command())
}
