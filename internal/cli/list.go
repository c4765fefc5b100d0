package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents in the persistent store",
	Long: `Show every document saved at store.path, oldest first, with its id,
fragment count and embedding model.

Examples:
  docqa list
  docqa list --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(GetConfig(), pipelineOptions{requireStore: true})
	if err != nil {
		return err
	}
	defer p.Close()

	docs, err := p.backend.ListDocuments()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if listJSON {
		output, _ := json.MarshalIndent(docs, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	for _, d := range docs {
		fmt.Fprintf(out, "%s  %s  %d  %s  %s\n", d.ID, d.Name, d.FragmentCount, d.Model, d.IngestedAt.Format("2006-01-02 15:04"))
	}
	total, err := p.backend.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d documents\n", total)
	return nil
}
