package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docqa/internal/adapter/extract"
	"docqa/internal/usecase"
)

var (
	askFile        string
	askID          string
	askQuestion    string
	askTopK        int
	askJSON        bool
	askContextOnly bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about a document",
	Long: `Answer a question from a local file, or from a document already in the
persistent store.

Examples:
  docqa ask --file paper.pdf -q "What dataset was used?"
  docqa ask --id 3f9a1c2b7d4e5f60 -q "Summarize the method" --top-k 5
  docqa ask --file notes.md -q "deadline" --context-only --json`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askFile, "file", "", "document to ask about")
	askCmd.Flags().StringVar(&askID, "id", "", "id of an ingested document")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVar(&askContextOnly, "context-only", false, "print the retrieved passages without generating an answer")
	askCmd.MarkFlagRequired("question")
	askCmd.MarkFlagsMutuallyExclusive("file", "id")
	askCmd.MarkFlagsOneRequired("file", "id")
}

type passageResult struct {
	Ordinal int     `json:"ordinal"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := contextOrBackground(cmd)

	topK := askTopK
	if topK <= 0 {
		topK = cfg.Retrieve.TopK
	}

	// One-off file questions never reach the persistent store.
	p, err := buildPipeline(cfg, pipelineOptions{
		requireStore:  askID != "",
		withGenerator: !askContextOnly,
		memoryOnly:    askFile != "",
	})
	if err != nil {
		return err
	}
	defer p.Close()

	id := askID
	if askFile != "" {
		f, err := os.Open(askFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", askFile, err)
		}
		name := filepath.Base(askFile)
		text, err := extract.ByExtension(name, int64(cfg.Server.MaxUploadMB)<<20).Extract(ctx, f, name)
		f.Close()
		if err != nil {
			return err
		}

		id = usecase.NewDocumentID()
		if _, err := p.useCase.Ingest(ctx, id, name, text); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()

	if askContextOnly {
		ac, err := p.useCase.AnswerTopK(ctx, id, askQuestion, topK)
		if err != nil {
			return err
		}
		passages := make([]passageResult, len(ac.Fragments))
		for i, f := range ac.Fragments {
			passages[i] = passageResult{Ordinal: f.Fragment.Ordinal, Score: f.Score, Text: f.Fragment.Text}
		}

		if askJSON {
			output, _ := json.MarshalIndent(passages, "", "  ")
			fmt.Fprintln(out, string(output))
			return nil
		}
		for i, r := range passages {
			fmt.Fprintf(out, "--- [%d] fragment %d (score: %.3f) ---\n%s\n\n", i+1, r.Ordinal, r.Score, r.Text)
		}
		return nil
	}

	answer, err := p.useCase.AskTopK(ctx, id, askQuestion, topK)
	if err != nil {
		return err
	}
	if askJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}
	fmt.Fprintln(out, answer.Text)
	fmt.Fprintf(out, "\n(%d passages used)\n", answer.FragmentsUsed)
	return nil
}
