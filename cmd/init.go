package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veltaworks/docintel/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a docintel configuration file interactively",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(cfgFile); err == nil && !initForce {
			exitOnError(fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile))
		}

		cfg, err := config.RunWizard(cfgFile)
		exitOnError(err)

		fmt.Printf("\nConfiguration written to %s\n", cfgFile)
		fmt.Printf("Embedding provider: %s (%s, %d dims)\n",
			cfg.EmbeddingProvider, cfg.EmbeddingModel, cfg.EmbeddingDims)
		fmt.Println("Next: 'docintel ingest <path>' to add documents.")
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	rootCmd.AddCommand(initCmd)
}
