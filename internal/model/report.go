package model

import "time"

// Report is the complete clause analysis of one document
type Report struct {
	ID             string        `json:"id"`                        // Analysis run ID
	Document       string        `json:"document"`                  // Original file name or URL
	Type           DocumentType  `json:"type"`                      // pdf, docx, png, jpeg
	Pages          int           `json:"pages"`                     // Number of extracted pages
	OCR            bool          `json:"ocr"`                       // Whether OCR produced the text
	AnalyzedAt     time.Time     `json:"analyzed_at"`               // When the analysis ran
	FindingCount   int           `json:"finding_count"`             // Total findings
	Findings       []Finding     `json:"findings"`                  // Findings in discovery order
	Groups         []ClauseGroup `json:"groups"`                    // Findings grouped by clause
	HighlightError string        `json:"highlight_error,omitempty"` // Set when the highlighted copy is unavailable

	LLM *LLMSummary `json:"llm,omitempty"` // Optional LLM summary (separate, never affects findings)
}

// HasFindings reports whether anything was detected
func (r *Report) HasFindings() bool {
	return r.FindingCount > 0
}

// LLMSummary contains optional LLM-generated summary
// It never changes findings and is rendered separately
type LLMSummary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`   // openai
	Model     string   `json:"model,omitempty"`      // Model name
	Strict    bool     `json:"strict"`               // Whether quote enforcement was enabled
	SummaryMD string   `json:"summary_md,omitempty"` // Markdown summary
	Warnings  []string `json:"warnings,omitempty"`   // Any issues (e.g., unverified quotes)
}
