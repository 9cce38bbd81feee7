package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausescan/internal/highlight"
	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/report"
)

func sampleResult(pages int) *Result {
	findings := []model.Finding{
		{Clause: "NMA 2738 Claims Control Clause", FoundText: "NMA 2738 Claims Control Clause", Reason: model.ExactMatch(), Page: 1},
		{Clause: "NMA 2738 Claims Control Clause", FoundText: "Other claims may apply.", Reason: model.KeywordMatch("claims"), Page: pages},
	}
	doc := &model.Document{Name: "policy.pdf", Type: model.TypePDF}
	for i := 1; i <= pages; i++ {
		doc.Pages = append(doc.Pages, model.PageText{Number: i})
	}
	doc.Pages[0].Content = "NMA 2738 Claims Control Clause applies."
	doc.Pages[pages-1].Content += " Other claims may apply."

	text := doc.FullText()
	return &Result{
		ID:          "run-1",
		Document:    doc,
		Findings:    findings,
		Groups:      report.Aggregate(findings, true),
		Spans:       highlight.Spans(text, findings),
		Highlighted: []byte("%PDF highlighted"),
		AnalyzedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderer_WriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(true, &buf)

	require.NoError(t, r.WriteMarkdown(&buf, sampleResult(2).Report()))
	md := buf.String()

	for _, want := range []string{
		"# Clause Analysis: policy.pdf",
		"- **Potential findings**: 2",
		"## NMA 2738 Claims Control Clause (2 finding(s))",
		"- **Reason**: exact match found (page 1)",
		"- **Reason**: related keyword: 'claims' (page 2)",
		"  > Other claims may apply.",
		"do not interpret coverage",
	} {
		assert.Contains(t, md, want)
	}
}

func TestRenderer_WriteMarkdown_SinglePageOmitsPages(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(false, &buf)

	require.NoError(t, r.WriteMarkdown(&buf, sampleResult(1).Report()))
	md := buf.String()

	assert.Contains(t, md, "- **Reason**: exact match found\n")
	assert.NotContains(t, md, "(page")
	assert.NotContains(t, md, "do not interpret coverage")
}

func TestRenderer_WriteMarkdown_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(false, &buf)

	rep := &model.Report{Document: "empty.docx", Groups: []model.ClauseGroup{}}
	require.NoError(t, r.WriteMarkdown(&buf, rep))
	assert.Contains(t, buf.String(), noFindingsMessage)
}

func TestRenderer_WriteJSON(t *testing.T) {
	res := sampleResult(2)
	res.HighlightError = fmt.Errorf("%w: boom", model.ErrHighlight)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(false, &buf).WriteJSON(&buf, res.Report()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["id"])
	assert.Equal(t, float64(2), decoded["finding_count"])
	assert.Equal(t, "highlight failed: boom", decoded["highlight_error"])
	assert.Len(t, decoded["groups"], 1)
}

func TestRenderer_RenderSummary(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(false, &out)

	r.RenderSummary(sampleResult(2).Report())
	assert.Contains(t, out.String(), "'policy.pdf' analyzed. 2 potential finding(s).")
	assert.Contains(t, out.String(), "NMA 2738 Claims Control Clause")

	out.Reset()
	r.RenderSummary(&model.Report{Document: "empty.docx"})
	assert.Contains(t, out.String(), "0 potential finding(s)")
	assert.Contains(t, out.String(), noFindingsMessage)
}

func TestRenderer_RenderReport(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	r := NewRenderer(true, &out)
	res := sampleResult(2)
	res.LLM = &model.LLMSummary{Enabled: true, Provider: "openai", SummaryMD: "Two passages."}

	paths := OutputPaths{
		JSON:        filepath.Join(dir, "report.json"),
		Markdown:    filepath.Join(dir, "report.md"),
		Preview:     filepath.Join(dir, "preview.html"),
		ArtifactDir: dir,
		Prefix:      "highlighted_",
	}
	require.NoError(t, r.RenderReport(res, paths, true))

	for _, name := range []string{"report.json", "report.md", "report.llm.md", "preview.html", "highlighted_policy.pdf"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	preview, err := os.ReadFile(paths.Preview)
	require.NoError(t, err)
	assert.Contains(t, string(preview), `<mark title="NMA 2738 Claims Control Clause">NMA 2738 Claims Control Clause</mark>`)
	assert.Contains(t, string(preview), "<br/>")

	highlighted, err := os.ReadFile(filepath.Join(dir, "highlighted_policy.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF highlighted", string(highlighted))

	assert.Contains(t, out.String(), "✓ Wrote JSON")
	assert.Contains(t, out.String(), "✓ Wrote Highlighted")
}

func TestRenderer_RenderArtifacts_NothingToWrite(t *testing.T) {
	res := sampleResult(1)
	res.Highlighted = nil
	res.HighlightError = errors.New("highlight failed")

	path, err := NewRenderer(false, &bytes.Buffer{}).RenderArtifacts(res, t.TempDir(), "highlighted_")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestRenderer_RenderJSON_BadPath(t *testing.T) {
	err := NewRenderer(false, &bytes.Buffer{}).RenderJSON(&model.Report{}, filepath.Join(t.TempDir(), "missing", "r.json"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "create"))
}
