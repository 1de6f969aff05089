package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/search"
)

var (
	searchProject string
	searchType    string
	searchAfter   string
	searchBefore  string
	searchLimit   int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search documents by semantic similarity",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := openEngine()
		exitOnError(err)
		defer eng.close()

		req := search.Request{
			Query:        strings.Join(args, " "),
			ProjectRef:   searchProject,
			DocumentType: docstore.DocumentType(searchType),
			Limit:        searchLimit,
		}
		if req.CreatedAfter, err = parseTimeFlag(searchAfter, "--after"); err != nil {
			exitOnError(err)
		}
		if req.CreatedBefore, err = parseTimeFlag(searchBefore, "--before"); err != nil {
			exitOnError(err)
		}

		results, err := eng.search.Search(cmd.Context(), req)
		exitOnError(err)

		if len(results) == 0 {
			fmt.Println("No matching documents.")
			return
		}
		for i, r := range results {
			doc := r.Document
			fmt.Printf("%2d. [%.3f] %s (%s)\n", i+1, r.Score, doc.Title, doc.DocumentType)
			if doc.ProjectRef != "" {
				fmt.Printf("     project: %s\n", doc.ProjectRef)
			}
			if doc.SourceName != "" {
				fmt.Printf("     source:  %s\n", doc.SourceName)
			}
			if verbose {
				fmt.Printf("     id: %s  created: %s\n", doc.ID, doc.CreatedAt.Format(time.RFC3339))
			}
		}
	},
}

func parseTimeFlag(raw, flag string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s must be RFC 3339 or YYYY-MM-DD, got %q", flag, raw)
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "", "filter by project id")
	searchCmd.Flags().StringVar(&searchType, "type", "", "filter by document type")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "only documents created after this time")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "only documents created before this time")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "maximum results")
	rootCmd.AddCommand(searchCmd)
}
