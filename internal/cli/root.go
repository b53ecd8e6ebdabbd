// Package cli is the command line front end for offline ingestion.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/docvault/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents into the local vector index",
	Long: `ingest runs the document pipeline without the HTTP server.

Example usage:
  ingest file ./contract.pdf --id 42   # Extract, chunk, embed and index one file
  ingest inspect ./faiss_index         # Show what an index directory holds`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.LoadConfig()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
