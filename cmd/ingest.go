package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veltaworks/docintel/internal/dedup"
	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/extract"
	"github.com/veltaworks/docintel/internal/ingest"
	"github.com/veltaworks/docintel/internal/progress"
	"github.com/veltaworks/docintel/internal/walker"
)

var (
	ingestPolicy  string
	ingestProject string
	ingestType    string
	ingestQuiet   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest documents from files or directories",
	Long: `Ingest reads the given files (or directories, filtered by the configured
include/exclude globs), extracts plain text, and runs each document
through the pipeline: embedding, duplicate detection, project
attribution, and persistence.

Interrupting with Ctrl-C stops between documents; everything already
persisted stays committed.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := openEngine()
		exitOnError(err)
		defer eng.close()

		inputs, err := collectInputs(cmd.Context(), eng, args, ingestProject, ingestType)
		exitOnError(err)
		if len(inputs) == 0 {
			fmt.Println("No ingestable documents found.")
			return
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reporter := progress.NewReporter(ingestQuiet)
		reporter.Start(len(inputs))
		var done atomic.Int64
		eng.pipeline.SetResultFunc(func(r ingest.IngestionResult) {
			n := int(done.Add(1))
			reporter.Update(n, fmt.Sprintf("%s (%s)", inputs[r.Index].Title, r.State))
		})

		results, err := eng.pipeline.Run(ctx, inputs, ingestPolicy)
		reporter.Finish()
		exitOnError(err)

		printIngestSummary(inputs, results)
	},
}

// collectInputs expands file and directory arguments into document inputs.
func collectInputs(ctx context.Context, eng *engine, args []string, projectRef, docType string) ([]ingest.DocumentInput, error) {
	extractors := extract.NewRegistry()

	var inputs []ingest.DocumentInput
	addFile := func(path, relPath string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		ext, err := extractors.Extract(ctx, relPath, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", relPath, err)
			return nil
		}
		inputs = append(inputs, ingest.DocumentInput{
			Text:         ext.Text,
			Title:        titleFromPath(relPath),
			SourceName:   relPath,
			DocumentType: docstore.DocumentType(docType),
			MimeType:     ext.MimeType,
			Size:         ext.Size,
			ProjectRef:   projectRef,
		})
		return nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := addFile(arg, filepath.Base(arg)); err != nil {
				return nil, err
			}
			continue
		}

		sources, err := walker.Collect(arg, walker.Options{
			Include: eng.cfg.Include,
			Exclude: eng.cfg.Exclude,
		})
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			if err := addFile(src.Path, src.RelPath); err != nil {
				return nil, err
			}
		}
	}
	return inputs, nil
}

func titleFromPath(relPath string) string {
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printIngestSummary(inputs []ingest.DocumentInput, results []ingest.IngestionResult) {
	byAction := map[dedup.Action]int{}
	rejected := 0
	needsReview := 0
	for _, r := range results {
		if r.Failed() {
			rejected++
			continue
		}
		byAction[r.Action]++
		if r.NeedsReview {
			needsReview++
		}
	}

	fmt.Printf("\nIngested %d documents:\n", len(results))
	for _, action := range []dedup.Action{
		dedup.ActionCreated, dedup.ActionUpdated, dedup.ActionReplaced,
		dedup.ActionVersioned, dedup.ActionSkipped,
	} {
		if n := byAction[action]; n > 0 {
			fmt.Printf("  %-10s %d\n", action, n)
		}
	}
	if needsReview > 0 {
		fmt.Printf("  %-10s %d (attribution below threshold)\n", "review", needsReview)
	}
	if rejected > 0 {
		fmt.Printf("  %-10s %d\n", "rejected", rejected)
		for _, r := range results {
			if r.Failed() {
				fmt.Printf("    %s: %s\n", inputs[r.Index].SourceName, r.Error)
			}
		}
	}

	if verbose {
		for _, r := range results {
			if r.Failed() {
				continue
			}
			for _, w := range r.Warnings {
				fmt.Printf("  warning: %s: %s\n", inputs[r.Index].SourceName, w)
			}
		}
	}
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPolicy, "policy", "skip", "duplicate policy: skip, update, replace, version, merge_metadata")
	ingestCmd.Flags().StringVar(&ingestProject, "project", "", "assert the project id for all documents")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "document type: meeting, strategic, report, other")
	ingestCmd.Flags().BoolVarP(&ingestQuiet, "quiet", "q", false, "suppress the progress bar")
	rootCmd.AddCommand(ingestCmd)
}
