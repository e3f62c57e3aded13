// Package cli implements the casetrail command line interface using
// cobra. Commands talk to the core services through package-level
// variables so tests can swap in mocks.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arclight-labs/casetrail/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "casetrail",
	Short: "Semantic search and timelines for forensic case directories",
	Long: `CaseTrail ingests the artifacts of a forensic case directory,
indexes their text in a vector store and answers natural-language
questions about the case.

Windows event logs (.evtx) and registry hives are converted to text
derivatives by external parser tools; plain text files are indexed
as-is. The fused timeline is built from the derivatives alone and
works without any backend running.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		godotenv.Load() //nolint:errcheck // .env is optional
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.casetrail)")
}

// Execute runs the root command and releases backend connections
// afterwards. It is the only entry point for the casetrail binary.
func Execute() {
	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		os.Exit(1)
	}
}
