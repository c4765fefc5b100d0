package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/adapter/extract"
	"docqa/internal/usecase"
)

var (
	benchFile    string
	benchQueries []string
	benchTopK    int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure retrieval quality and latency for a document",
	Long: `Ingest a document, run one or more questions against it, and report
similarity scores and timings. Useful for comparing embedding models and
chunking settings.

Examples:
  docqa bench --file paper.pdf -q "training data" -q "evaluation metric"`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringVar(&benchFile, "file", "", "document to benchmark (required)")
	benchCmd.Flags().StringArrayVarP(&benchQueries, "question", "q", nil, "question to run (repeatable)")
	benchCmd.Flags().IntVarP(&benchTopK, "top-k", "k", 5, "number of passages per question")
	benchCmd.MarkFlagRequired("file")
	benchCmd.MarkFlagRequired("question")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := contextOrBackground(cmd)
	out := cmd.OutOrStdout()

	p, err := buildPipeline(cfg, pipelineOptions{memoryOnly: true})
	if err != nil {
		return err
	}
	defer p.Close()

	f, err := os.Open(benchFile)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", benchFile, err)
	}
	name := filepath.Base(benchFile)
	text, err := extract.ByExtension(name, int64(cfg.Server.MaxUploadMB)<<20).Extract(ctx, f, name)
	f.Close()
	if err != nil {
		return err
	}

	start := time.Now()
	id := usecase.NewDocumentID()
	info, err := p.useCase.Ingest(ctx, id, name, text)
	if err != nil {
		return err
	}
	ingestTime := time.Since(start)

	fmt.Fprintln(out, "RETRIEVAL BENCHMARK")
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintf(out, "Document:   %s (%d words)\n", name, len(strings.Fields(text)))
	fmt.Fprintf(out, "Fragments:  %d (size %d, overlap %d)\n", info.FragmentCount, cfg.Chunk.Size, cfg.Chunk.Overlap)
	fmt.Fprintf(out, "Model:      %s (%s), dimension %d\n", info.Model, cfg.Embedding.Provider, info.Dimension)
	fmt.Fprintf(out, "Ingest:     %s\n\n", ingestTime.Round(time.Millisecond))

	var totalTop1 float64
	var totalQuery time.Duration
	for _, q := range benchQueries {
		start := time.Now()
		ac, err := p.useCase.AnswerTopK(ctx, id, q, benchTopK)
		if err != nil {
			return fmt.Errorf("question %q: %w", q, err)
		}
		elapsed := time.Since(start)
		totalQuery += elapsed

		fmt.Fprintf(out, "Question: %q (%s)\n", q, elapsed.Round(time.Microsecond))
		fmt.Fprintln(out, strings.Repeat("-", 70))
		for i, r := range ac.Fragments {
			preview := strings.ReplaceAll(r.Fragment.Text, "\n", " ")
			if len(preview) > 150 {
				preview = preview[:150] + "..."
			}
			fmt.Fprintf(out, "%d. [%s %.3f] fragment %d\n   %s\n", i+1, rating(r.Score), r.Score, r.Fragment.Ordinal, preview)
		}
		fmt.Fprintln(out)
		totalTop1 += ac.Fragments[0].Score
	}

	n := float64(len(benchQueries))
	avgTop1 := totalTop1 / n
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintln(out, "QUALITY METRICS:")
	fmt.Fprintf(out, "  Average top-1 similarity: %.3f\n", avgTop1)
	fmt.Fprintf(out, "  Average query latency:    %s\n", (totalQuery / time.Duration(len(benchQueries))).Round(time.Microsecond))

	switch {
	case avgTop1 > 0.5:
		fmt.Fprintln(out, "  Status: GOOD - passages closely match the questions")
	case avgTop1 > 0.3:
		fmt.Fprintln(out, "  Status: OK - passages are somewhat related")
	default:
		fmt.Fprintln(out, "  Status: POOR - try another embedding model or smaller fragments")
	}
	return nil
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}
