package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/internal/adapter/extract"
	"docqa/internal/adapter/fs"
)

var (
	ingestExcludes []string
	ingestQuiet    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <glob>...",
	Short: "Index local documents into the persistent store",
	Long: `Extract, chunk and embed local files and save their indexes to the bbolt
store at store.path. Patterns support ** and {a,b}; a directory argument is
searched for PDF, text and markdown files. Re-ingesting a file replaces its index.

Examples:
  docqa ingest paper.pdf
  docqa ingest "docs/**/*.{pdf,md}" --exclude "**/drafts/**"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "glob patterns to skip")
	ingestCmd.Flags().BoolVar(&ingestQuiet, "quiet", false, "disable the progress bar")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := contextOrBackground(cmd)

	files, err := fs.NewWalker(nil, ingestExcludes).Expand(args)
	if err != nil {
		return fmt.Errorf("failed to resolve files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched %v", args)
	}

	p, err := buildPipeline(cfg, pipelineOptions{requireStore: true})
	if err != nil {
		return err
	}
	defer p.Close()

	var bar *progressbar.ProgressBar
	if !ingestQuiet {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
	}

	maxBytes := int64(cfg.Server.MaxUploadMB) << 20
	var lines, failures []string
	for _, file := range files {
		line, err := ingestFile(cmd, p, file, maxBytes)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", file.Path, err))
		} else {
			lines = append(lines, line)
		}
		if bar != nil {
			bar.Add(1)
		}
		if ctx.Err() != nil {
			break
		}
	}

	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	if len(failures) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nFailed:\n")
		for _, f := range failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", f)
		}
		return fmt.Errorf("%d of %d files failed", len(failures), len(files))
	}
	return nil
}

func ingestFile(cmd *cobra.Command, p *pipeline, file fs.FileInfo, maxBytes int64) (string, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ctx := contextOrBackground(cmd)
	text, err := extract.ByExtension(file.Name, maxBytes).Extract(ctx, f, file.Name)
	if err != nil {
		return "", err
	}

	info, err := p.useCase.Ingest(ctx, docIDForPath(file.Path), file.Name, text)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s  %s  %d", info.ID, info.Name, info.FragmentCount), nil
}

// docIDForPath gives a file a stable id so re-ingesting overwrites it.
func docIDForPath(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
