package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Document intelligence engine: dedup, attribution, semantic search",
	Long: `Docintel ingests heterogeneous business documents, embeds them, detects
exact and near-duplicate content, attributes each document to a project
and client with a confidence score, and serves similarity-ranked search
with metadata filters and temporal analytics.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".docintel.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
