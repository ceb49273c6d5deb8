// Package cli implements the ingestd command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	flagConfig      string
	flagLogEncoding string
)

var rootCmd = &cobra.Command{
	Use:   "ingestd",
	Short: "Incremental multi-source ingestion scheduler",
	Long: `ingestd periodically pulls documents from configured sources
(Confluence, GitLab, Jira, YDB, ClickHouse, local files), normalises them
and streams new or changed content to the indexing pipeline.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"path to config.toml (overrides INGESTD_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagLogEncoding, "log-encoding", "console",
		"log encoding: console or json")
}

// Execute runs the CLI. The version string is stamped at build time.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
