package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veltaworks/docintel/internal/fingerprint"
)

var dupesProject string

var dupesCmd = &cobra.Command{
	Use:   "dupes <path>...",
	Short: "Report duplicates without ingesting (dry run)",
	Long: `Dupes runs duplicate detection for the given files or directories
against the existing store and reports what ingestion would decide,
without persisting anything.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := openEngine()
		exitOnError(err)
		defer eng.close()

		inputs, err := collectInputs(cmd.Context(), eng, args, dupesProject, "")
		exitOnError(err)
		if len(inputs) == 0 {
			fmt.Println("No ingestable documents found.")
			return
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exact, near, fresh := 0, 0, 0
		for _, in := range inputs {
			if fingerprint.Normalize(in.Text) == "" {
				fmt.Printf("%-40s empty after normalization\n", in.SourceName)
				continue
			}

			decision, err := eng.pipeline.Preview(ctx, in)
			exitOnError(err)

			switch {
			case decision.Candidate == nil:
				fresh++
				if verbose {
					fmt.Printf("%-40s new\n", in.SourceName)
				}
			case decision.ExactMatch:
				exact++
				fmt.Printf("%-40s exact duplicate of %s (%s)\n",
					in.SourceName, decision.Candidate.Title, decision.Candidate.ID)
			default:
				near++
				fmt.Printf("%-40s near duplicate of %s (similarity %.3f)\n",
					in.SourceName, decision.Candidate.Title, decision.Similarity)
			}
		}

		fmt.Printf("\n%d new, %d exact duplicates, %d near duplicates\n", fresh, exact, near)
	},
}

func init() {
	dupesCmd.Flags().StringVar(&dupesProject, "project", "", "scope duplicate detection to a project id")
	rootCmd.AddCommand(dupesCmd)
}
