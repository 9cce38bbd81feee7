package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/pipeline"
	"github.com/ppiankov/clausescan/internal/worker"
)

var (
	outJSON     string
	outMD       string
	outPreview  string
	artifactDir string
	timeout     time.Duration
	noCache     bool
	noFooter    bool
	noOCR       bool
	insecureTLS bool
	llmProvider string
	llmModel    string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <file|url>",
	Short: "Scan one document for clauses and related keywords",
	Long: `Scan analyzes a single PDF, DOCX, PNG or JPEG document:
- Extract text, falling back to OCR for scanned PDFs and images
- Find every catalog clause name and every sentence with a related keyword
- Group findings by clause with the reason each was reported
- Write a highlighted HTML preview and a highlighted copy of the document

Example:
  clausescan scan policy.pdf
  clausescan scan policy.docx --json report.json --md report.md --preview preview.html
  clausescan scan https://example.com/policy.pdf --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path (empty to skip)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	scanCmd.Flags().StringVar(&outPreview, "preview", "", "output HTML preview path (optional)")
	scanCmd.Flags().StringVar(&artifactDir, "output-dir", ".", "directory for the highlighted copy (empty to skip)")
	scanCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall scan timeout")
	addPipelineFlags(scanCmd)
}

// addPipelineFlags registers the flags shared by scan and batch
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the extraction cache")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	cmd.Flags().BoolVar(&noOCR, "no-ocr", false, "never fall back to OCR")
	cmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification when fetching URLs")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider for an optional summary (openai, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// configFromFlags loads the layered configuration and applies command flags
func configFromFlags() (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if noOCR {
		cfg.Extraction.OCREnabled = false
	}
	if insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}

	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel
		if strings.EqualFold(llmProvider, "openai") && cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	return cfg, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := configFromFlags()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", source)
		fmt.Fprintf(os.Stderr, "Clauses:  %d\n", len(a.catalog))
		fmt.Fprintf(os.Stderr, "OCR:      %v\n", cfg.Extraction.OCREnabled)
		fmt.Fprintf(os.Stderr, "Cache:    %v\n\n", cfg.Cache.Enabled)
	}

	loader := worker.NewSourceLoader(pipeline.NewFetcher(cfg.HTTP), nil, cfg.Extraction.MaxFileBytes)
	up, err := loader.Load(ctx, source)
	if err != nil {
		return fmt.Errorf("load %s: %w", source, err)
	}

	res, err := a.pipeline.Analyze(ctx, up)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	a.publish(ctx, res)

	if cfg.Output.Verbose && res.LLM != nil && res.LLM.Enabled {
		fmt.Fprintf(os.Stderr, "✓ Generated LLM summary using %s/%s\n", res.LLM.Provider, res.LLM.Model)
	}

	if artifactDir != "" {
		if err := os.MkdirAll(artifactDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter, cmd.OutOrStdout())
	paths := pipeline.OutputPaths{
		JSON:        outJSON,
		Markdown:    outMD,
		Preview:     outPreview,
		ArtifactDir: artifactDir,
		Prefix:      cfg.Output.HighlightPrefix,
	}
	if err := renderer.RenderReport(res, paths, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}

// sanitizeFilename turns a document name or URL into a safe file stem
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(filepath.Base(filepath.ToSlash(s)), filepath.Ext(s))

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	if s == "" || s == "." {
		s = "document"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
