package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage the project registry used for attribution",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := openEngine()
		exitOnError(err)
		defer eng.close()

		projects, err := eng.registry.List(cmd.Context())
		exitOnError(err)

		if len(projects) == 0 {
			fmt.Println("No projects registered. Import some with 'docintel projects import'.")
			return
		}
		for _, p := range projects {
			line := fmt.Sprintf("%-12s %s", p.Number, p.Name)
			if p.ClientName != "" {
				line += " (" + p.ClientName + ")"
			}
			if p.Status != "active" {
				line += " [" + p.Status + "]"
			}
			fmt.Println(line)
		}
	},
}

var projectsImportCmd = &cobra.Command{
	Use:   "import <file.yml>",
	Short: "Import projects from a YAML file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := openEngine()
		exitOnError(err)
		defer eng.close()

		n, err := eng.registry.ImportFile(cmd.Context(), args[0])
		exitOnError(err)
		fmt.Printf("Imported %d projects from %s\n", n, args[0])
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsImportCmd)
	rootCmd.AddCommand(projectsCmd)
}
