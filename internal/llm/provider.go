package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/clausescan/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a summary of the findings in strict quote mode
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the clause analysis to summarize
	Report model.Report

	// AllowedQuotes are the only passages the LLM may quote verbatim
	AllowedQuotes []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	Summary string

	// Quotes are the quoted passages found in the summary
	Quotes []string

	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string
	Timeout int // seconds

	// StrictQuotes rejects summaries quoting text that was not detected
	StrictQuotes bool

	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:      30,
		StrictQuotes: true,
		MaxTokens:    1000,
	}
}

// BuildPrompt constructs the default prompt for summarization in strict quote mode
func BuildPrompt(report model.Report, quotes []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are summarizing a clause detection report for an insurance document. The report lists passages that mention known policy clauses. It NEVER interprets coverage or gives legal advice.

CRITICAL RULES:
1. When you quote the document, use double quotes and ONLY quote from this list:
%s

2. DO NOT infer coverage, liability, or legal effect.
3. If no clauses were detected, say so explicitly.
4. Describe WHERE clauses appear and HOW they were detected, not what they mean.

Report Summary:
- Document: %s
- Type: %s
- Pages: %d
- OCR used: %t
- Findings: %d

Clauses:
`, joinQuotes(quotes), report.Document, report.Type, report.Pages, report.OCR, report.FindingCount)

	for _, g := range report.Groups {
		fmt.Fprintf(&b, "- %s: %d finding(s)\n", g.Clause, len(g.Findings))
	}
	if len(report.Groups) == 0 {
		b.WriteString("- (none)\n")
	}

	b.WriteString("\nProvide a 3-4 sentence summary of which clauses were found and where.")

	return b.String()
}

// Helper functions

func joinQuotes(quotes []string) string {
	if len(quotes) == 0 {
		return "(No passages available)"
	}
	var b strings.Builder
	for i, q := range quotes {
		if i >= 20 {
			fmt.Fprintf(&b, "\n... and %d more passages", len(quotes)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %q", q)
	}
	return b.String()
}

// allowedQuotes returns the distinct found texts of a report in order
func allowedQuotes(report model.Report) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range report.Findings {
		if !seen[f.FoundText] {
			seen[f.FoundText] = true
			out = append(out, f.FoundText)
		}
	}
	return out
}

var quotePattern = regexp.MustCompile(`"([^"\n]{3,})"|“([^”\n]{3,})”`)

// extractQuotes returns the distinct double-quoted passages of text
func extractQuotes(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range quotePattern.FindAllStringSubmatch(text, -1) {
		q := m[1]
		if q == "" {
			q = m[2]
		}
		q = strings.TrimSpace(q)
		if q != "" && !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

// quoteAllowed reports whether q appears inside one of the allowed passages,
// ignoring case
func quoteAllowed(q string, allowed []string) bool {
	lq := strings.ToLower(q)
	for _, a := range allowed {
		if strings.Contains(strings.ToLower(a), lq) {
			return true
		}
	}
	return false
}
