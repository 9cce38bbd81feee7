package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clausescan/internal/pipeline"
	"github.com/ppiankov/clausescan/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan many documents listed in a file in parallel",
	Long: `Batch processes many documents concurrently:
- Read file paths or URLs from the input file (one per line, # comments)
- Fetch URLs with per-host rate limits and robots.txt crawl delays
- Analyze documents in parallel with a configurable worker count
- Write JSON, Markdown, HTML preview and highlighted copy per document
- Publish each result to the configured MinIO bucket or Kafka topic

Example:
  clausescan batch documents.txt
  clausescan batch documents.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./clausescan-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	addPipelineFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := configFromFlags()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Clausescan Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	loader := worker.NewSourceLoader(pipeline.NewFetcher(cfg.HTTP), limiter, cfg.Extraction.MaxFileBytes)

	processor := worker.NewBatchProcessor(a.pipeline, loader, cfg.Concurrency.Workers)
	if a.sink != nil {
		processor.WithPublisher(a.sink)
	}

	fmt.Fprintf(os.Stderr, "⚙️  Processing documents with %d workers...\n\n", cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter, os.Stderr)
	successCount, failureCount, findingCount := 0, 0, 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		if err := writeBatchOutputs(renderer, result, outputDir, cfg.Output.HighlightPrefix); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, err)
			continue
		}
		successCount++
		findingCount += len(result.Result.Findings)

		fmt.Fprintf(os.Stderr, "✓ %s (%d potential finding(s))\n", result.Source, len(result.Result.Findings))
		if result.PublishError != nil {
			fmt.Fprintf(os.Stderr, "  ⚠ publish failed: %v\n", result.PublishError)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Findings:  %d\n", findingCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// writeBatchOutputs writes one document's reports under an index-prefixed stem
// so that equal names from different sources never collide
func writeBatchOutputs(renderer *pipeline.Renderer, result *worker.DocumentResult, dir, prefix string) error {
	res := result.Result
	stem := fmt.Sprintf("%03d-%s", result.Index+1, sanitizeFilename(res.Document.Name))
	report := res.Report()

	if err := renderer.RenderJSON(report, filepath.Join(dir, stem+".json")); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	if err := renderer.RenderMarkdown(report, filepath.Join(dir, stem+".md")); err != nil {
		return fmt.Errorf("write Markdown: %w", err)
	}
	if report.LLM != nil && report.LLM.Enabled {
		if err := renderer.RenderLLMMarkdown(report.LLM, filepath.Join(dir, stem+".llm.md")); err != nil {
			return fmt.Errorf("write LLM summary: %w", err)
		}
	}
	if err := renderer.RenderPreview(res, filepath.Join(dir, stem+".html")); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	if _, err := renderer.RenderArtifacts(res, dir, fmt.Sprintf("%03d-%s", result.Index+1, prefix)); err != nil {
		return err
	}
	return nil
}
