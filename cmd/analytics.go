package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/veltaworks/docintel/internal/docstore"
)

var (
	analyticsProject string
	analyticsType    string
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show document counts, recent activity, and trend",
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := openEngine()
		exitOnError(err)
		defer eng.close()

		report, err := eng.analytics.Overview(cmd.Context(), docstore.Filters{
			ProjectRef:   analyticsProject,
			DocumentType: docstore.DocumentType(analyticsType),
		})
		exitOnError(err)

		fmt.Printf("Total documents: %d\n", report.Total)

		if len(report.ByType) > 0 {
			fmt.Println("\nBy type:")
			types := make([]string, 0, len(report.ByType))
			for t := range report.ByType {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("  %-10s %d\n", t, report.ByType[docstore.DocumentType(t)])
			}
		}

		fmt.Println("\nRecent activity:")
		fmt.Printf("  last 24h   %d\n", report.RecentActivity.Last24h)
		fmt.Printf("  last 7d    %d\n", report.RecentActivity.Last7d)
		fmt.Printf("  last 30d   %d\n", report.RecentActivity.Last30d)
		fmt.Printf("\nTrend: %s\n", report.Trend)
	},
}

func init() {
	analyticsCmd.Flags().StringVar(&analyticsProject, "project", "", "filter by project id")
	analyticsCmd.Flags().StringVar(&analyticsType, "type", "", "filter by document type")
	rootCmd.AddCommand(analyticsCmd)
}
