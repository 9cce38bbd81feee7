package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/clausescan/internal/highlight"
	"github.com/ppiankov/clausescan/internal/llm"
	"github.com/ppiankov/clausescan/internal/model"
)

const noFindingsMessage = "The listed clauses or related keywords were not found in this document."

// Renderer writes analysis results in various formats
type Renderer struct {
	includeFooter bool
	out           io.Writer // stdout summary
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool, out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{includeFooter: includeFooter, out: out}
}

// WriteJSON writes the report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RenderJSON writes the report as JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// WriteMarkdown writes the report grouped by clause
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Clause Analysis: %s\n\n", report.Document)
	fmt.Fprintf(&b, "- **Type**: %s\n", report.Type)
	fmt.Fprintf(&b, "- **Pages**: %d\n", report.Pages)
	fmt.Fprintf(&b, "- **OCR**: %t\n", report.OCR)
	fmt.Fprintf(&b, "- **Analyzed**: %s\n", report.AnalyzedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Potential findings**: %d\n", report.FindingCount)
	if report.HighlightError != "" {
		fmt.Fprintf(&b, "- **Highlighted copy**: unavailable (%s)\n", report.HighlightError)
	}
	b.WriteString("\n")

	if !report.HasFindings() {
		fmt.Fprintf(&b, "> %s\n", noFindingsMessage)
	}

	paginated := report.Pages > 1
	for _, g := range report.Groups {
		fmt.Fprintf(&b, "## %s (%d finding(s))\n\n", g.Clause, len(g.Findings))
		for _, f := range g.Findings {
			if paginated {
				fmt.Fprintf(&b, "- **Reason**: %s (page %d)\n", f.Reason, f.Page)
			} else {
				fmt.Fprintf(&b, "- **Reason**: %s\n", f.Reason)
			}
			fmt.Fprintf(&b, "  > %s\n", strings.ReplaceAll(f.FoundText, "\n", " "))
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Findings are literal clause-name and keyword matches. They do not interpret coverage._\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteMarkdown(w, report) })
}

// RenderPreview writes the HTML preview with highlighted passages to path
func (r *Renderer) RenderPreview(res *Result, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return highlight.RenderPage(w, res.Document.Name, res.Document.FullText(), res.Spans)
	})
}

// RenderLLMMarkdown writes the separate LLM summary to path
func (r *Renderer) RenderLLMMarkdown(summary *model.LLMSummary, path string) error {
	content := llm.RenderSeparateMarkdown(summary)
	if content == "" {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// RenderArtifacts writes the highlighted copy into dir and returns its path.
// Returns "" when there is no highlighted copy.
func (r *Renderer) RenderArtifacts(res *Result, dir, prefix string) (string, error) {
	if len(res.Highlighted) == 0 {
		return "", nil
	}
	path := filepath.Join(dir, res.HighlightedName(prefix))
	if err := os.WriteFile(path, res.Highlighted, 0644); err != nil {
		return "", fmt.Errorf("write highlighted copy: %w", err)
	}
	return path, nil
}

// RenderSummary prints a short summary
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Fprintf(r.out, "\n'%s' analyzed. %d potential finding(s).\n", report.Document, report.FindingCount)
	if report.OCR {
		fmt.Fprintln(r.out, "Text was recognized with OCR.")
	}

	if !report.HasFindings() {
		fmt.Fprintf(r.out, "⚠ %s\n", noFindingsMessage)
		return
	}

	for _, g := range report.Groups {
		fmt.Fprintf(r.out, "  %-45s %d\n", g.Clause, len(g.Findings))
	}
	if report.HighlightError != "" {
		fmt.Fprintf(r.out, "⚠ Highlighted copy unavailable: %s\n", report.HighlightError)
	}
}

// OutputPaths selects the files RenderReport writes; empty fields are skipped
type OutputPaths struct {
	JSON        string
	Markdown    string
	Preview     string
	ArtifactDir string // Directory for the highlighted copy
	Prefix      string // Highlighted copy name prefix
}

// RenderReport renders the result to the selected outputs and prints the summary
func (r *Renderer) RenderReport(res *Result, paths OutputPaths, verbose bool) error {
	report := res.Report()

	if paths.JSON != "" {
		if err := r.RenderJSON(report, paths.JSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(r.out, "✓ Wrote JSON: %s\n", paths.JSON)
		}
	}

	if paths.Markdown != "" {
		if err := r.RenderMarkdown(report, paths.Markdown); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(r.out, "✓ Wrote Markdown: %s\n", paths.Markdown)
		}

		if report.LLM != nil && report.LLM.Enabled {
			llmPath := strings.TrimSuffix(paths.Markdown, ".md") + ".llm.md"
			if err := r.RenderLLMMarkdown(report.LLM, llmPath); err != nil {
				fmt.Fprintf(r.out, "Warning: Failed to write LLM summary: %v\n", err)
			} else if verbose {
				fmt.Fprintf(r.out, "✓ Wrote LLM Summary: %s\n", llmPath)
			}
		}
	}

	if paths.Preview != "" {
		if err := r.RenderPreview(res, paths.Preview); err != nil {
			return fmt.Errorf("render preview: %w", err)
		}
		if verbose {
			fmt.Fprintf(r.out, "✓ Wrote Preview: %s\n", paths.Preview)
		}
	}

	if paths.ArtifactDir != "" {
		written, err := r.RenderArtifacts(res, paths.ArtifactDir, paths.Prefix)
		if err != nil {
			return err
		}
		if written != "" && verbose {
			fmt.Fprintf(r.out, "✓ Wrote Highlighted: %s\n", written)
		}
	}

	r.RenderSummary(report)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
