package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var deleteAll bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Remove documents from the persistent store",
	Long: `Delete stored indexes by id, or every stored index with --all. The schema
and embedding model recorded in the store are kept.

Examples:
  docqa delete 3f9a1c2b7d4e5f60
  docqa delete --all`,
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every stored document")
}

func runDelete(cmd *cobra.Command, args []string) error {
	if deleteAll == (len(args) > 0) {
		return fmt.Errorf("pass document ids or --all")
	}

	p, err := buildPipeline(GetConfig(), pipelineOptions{requireStore: true})
	if err != nil {
		return err
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	if deleteAll {
		n, err := p.backend.Count()
		if err != nil {
			return err
		}
		if err := p.backend.Clear(); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		fmt.Fprintf(out, "deleted %d documents\n", n)
		return nil
	}

	docs, err := p.backend.ListDocuments()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	stored := make(map[string]bool, len(docs))
	for _, d := range docs {
		stored[d.ID] = true
	}

	ctx := contextOrBackground(cmd)
	for _, id := range args {
		if !stored[id] {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		if err := p.useCase.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", id)
	}
	return nil
}
