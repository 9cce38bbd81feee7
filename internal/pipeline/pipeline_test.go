package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausescan/internal/cache"
	"github.com/ppiankov/clausescan/internal/catalog"
	"github.com/ppiankov/clausescan/internal/metrics"
	"github.com/ppiankov/clausescan/internal/model"
)

const policyText = "This policy includes the NMA 2738 Claims Control Clause. Other claims may apply."

type fakeExtractor struct {
	pages []model.PageText
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) ([]model.PageText, error) {
	f.calls++
	return f.pages, f.err
}

type fakeOCR struct {
	pages []model.PageText
	err   error
	calls int
	kinds []model.DocumentType
}

func (f *fakeOCR) Recognize(_ context.Context, _ []byte, kind model.DocumentType) ([]model.PageText, error) {
	f.calls++
	f.kinds = append(f.kinds, kind)
	return f.pages, f.err
}

type fakeHighlighter struct {
	out     []byte
	err     error
	calls   int
	targets []string
}

func (f *fakeHighlighter) Highlight(_ context.Context, _ []byte, targets []string) ([]byte, error) {
	f.calls++
	f.targets = targets
	return f.out, f.err
}

type countingRecorder struct {
	documents  map[string]int
	findings   int
	fallbacks  []string
	highlights int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{documents: make(map[string]int)}
}

func (r *countingRecorder) ObserveDocument(_ string, outcome string, _ time.Duration) {
	r.documents[outcome]++
}
func (r *countingRecorder) ObserveFinding(string, string)   { r.findings++ }
func (r *countingRecorder) ObserveOCRFallback(cause string) { r.fallbacks = append(r.fallbacks, cause) }
func (r *countingRecorder) ObserveHighlightFailure(string)  { r.highlights++ }

var _ metrics.Recorder = (*countingRecorder)(nil)

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Extraction.OCRThreshold = 10
	return cfg
}

func TestAnalyze_DOCXFindings(t *testing.T) {
	ext := &fakeExtractor{pages: model.SinglePage(policyText)}
	hl := &fakeHighlighter{out: []byte("highlighted")}
	rec := newCountingRecorder()

	p := NewPipeline(testConfig(), catalog.Default(),
		WithExtractor(model.TypeDOCX, ext),
		WithHighlighter(model.TypeDOCX, hl),
		WithMetrics(rec),
	)

	data := []byte("docx bytes")
	res, err := p.Analyze(context.Background(), Upload{Name: "policy.docx", Data: data})
	require.NoError(t, err)

	require.Len(t, res.Findings, 2)
	assert.Equal(t, "NMA 2738 Claims Control Clause", res.Findings[0].FoundText)
	assert.Equal(t, model.ReasonExactMatch, res.Findings[0].Reason.Kind)
	assert.Equal(t, "Other claims may apply.", res.Findings[1].FoundText)
	assert.Equal(t, model.KeywordMatch("claims"), res.Findings[1].Reason)

	require.Len(t, res.Groups, 1)
	assert.Equal(t, "NMA 2738 Claims Control Clause", res.Groups[0].Clause)

	assert.Equal(t,
		"This policy includes the <mark>NMA 2738 Claims Control Clause</mark>. <mark>Other claims may apply.</mark>",
		res.Preview)
	assert.Len(t, res.Spans, 2)

	assert.Equal(t, []byte("highlighted"), res.Highlighted)
	assert.NoError(t, res.HighlightError)
	assert.Equal(t, []string{"NMA 2738 Claims Control Clause", "Other claims may apply."}, hl.targets)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, cache.Identity(data), res.Identity)
	assert.False(t, res.Document.OCR)
	assert.Equal(t, model.TypeDOCX, res.Document.Type)

	assert.Equal(t, 1, rec.documents["ok"])
	assert.Equal(t, 2, rec.findings)
	assert.Empty(t, rec.fallbacks)

	report := res.Report()
	assert.Equal(t, 2, report.FindingCount)
	assert.Equal(t, "policy.docx", report.Document)
	assert.Equal(t, 1, report.Pages)
	assert.Empty(t, report.HighlightError)
	assert.Equal(t, "highlighted_policy.docx", res.HighlightedName("highlighted_"))
}

func TestAnalyze_HighlightFailureIsNonFatal(t *testing.T) {
	hl := &fakeHighlighter{err: errors.New("corrupt xref")}
	rec := newCountingRecorder()

	p := NewPipeline(testConfig(), catalog.Default(),
		WithExtractor(model.TypeDOCX, &fakeExtractor{pages: model.SinglePage(policyText)}),
		WithHighlighter(model.TypeDOCX, hl),
		WithMetrics(rec),
	)

	res, err := p.Analyze(context.Background(), Upload{Name: "policy.docx", Data: []byte("x")})
	require.NoError(t, err)

	assert.ErrorIs(t, res.HighlightError, model.ErrHighlight)
	assert.Nil(t, res.Highlighted)
	assert.Len(t, res.Findings, 2)
	assert.NotEmpty(t, res.Preview)
	assert.Contains(t, res.Report().HighlightError, "corrupt xref")
	assert.Equal(t, 1, rec.highlights)
}

func TestAnalyze_NoFindingsSkipsHighlight(t *testing.T) {
	hl := &fakeHighlighter{out: []byte("unused")}

	p := NewPipeline(testConfig(), catalog.Default(),
		WithExtractor(model.TypeDOCX, &fakeExtractor{pages: model.SinglePage("Nothing relevant here. Just prose.")}),
		WithHighlighter(model.TypeDOCX, hl),
	)

	res, err := p.Analyze(context.Background(), Upload{Name: "plain.docx", Data: []byte("x")})
	require.NoError(t, err)

	assert.Empty(t, res.Findings)
	assert.NotNil(t, res.Groups)
	assert.Empty(t, res.Groups)
	assert.Equal(t, "Nothing relevant here. Just prose.", res.Preview)
	assert.Zero(t, hl.calls)
	assert.Nil(t, res.Highlighted)
	assert.False(t, res.Report().HasFindings())
}

func TestAnalyze_PDFFallback(t *testing.T) {
	ocrPages := []model.PageText{
		{Number: 1, Content: "Scanned cover page."},
		{Number: 2, Content: "This cover excludes any cyber attack on insured systems."},
	}
	longText := strings.Repeat("Plain embedded text without matches. ", 3)

	tests := []struct {
		name      string
		extractor *fakeExtractor
		wantOCR   bool
		wantCause string
	}{
		{
			name:      "extraction error",
			extractor: &fakeExtractor{err: model.ErrExtraction},
			wantOCR:   true,
			wantCause: metrics.CauseExtractionError,
		},
		{
			name:      "too little text",
			extractor: &fakeExtractor{pages: []model.PageText{{Number: 1, Content: "  ab  "}}},
			wantOCR:   true,
			wantCause: metrics.CauseLowText,
		},
		{
			name:      "enough text",
			extractor: &fakeExtractor{pages: []model.PageText{{Number: 1, Content: longText}}},
			wantOCR:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ocr := &fakeOCR{pages: ocrPages}
			rec := newCountingRecorder()
			p := NewPipeline(testConfig(), catalog.Default(),
				WithExtractor(model.TypePDF, tt.extractor),
				WithHighlighter(model.TypePDF, &fakeHighlighter{}),
				WithOCR(ocr),
				WithMetrics(rec),
			)

			res, err := p.Analyze(context.Background(), Upload{Name: "scan.pdf", Data: []byte("%PDF-1.4")})
			require.NoError(t, err)
			assert.Equal(t, tt.wantOCR, res.Document.OCR)

			if !tt.wantOCR {
				assert.Zero(t, ocr.calls)
				assert.Empty(t, rec.fallbacks)
				return
			}

			assert.Equal(t, 1, ocr.calls)
			assert.Equal(t, []model.DocumentType{model.TypePDF}, ocr.kinds)
			assert.Equal(t, []string{tt.wantCause}, rec.fallbacks)
			require.Len(t, res.Findings, 1)
			assert.Equal(t, 2, res.Findings[0].Page)
			assert.Equal(t, "CL380 Institute Cyber Attack Exclusion", res.Findings[0].Clause)
		})
	}
}

func TestAnalyze_OCRFailureAborts(t *testing.T) {
	rec := newCountingRecorder()
	p := NewPipeline(testConfig(), catalog.Default(),
		WithExtractor(model.TypePDF, &fakeExtractor{err: model.ErrExtraction}),
		WithOCR(&fakeOCR{err: errors.New("tesseract missing")}),
		WithMetrics(rec),
	)

	_, err := p.Analyze(context.Background(), Upload{Name: "scan.pdf", Data: []byte("%PDF")})
	assert.ErrorIs(t, err, model.ErrOCR)
	assert.Equal(t, 1, rec.documents["failed"])
}

func TestAnalyze_PDFWithoutOCR(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.OCREnabled = false
	ocr := &fakeOCR{}

	p := NewPipeline(cfg, catalog.Default(),
		WithExtractor(model.TypePDF, &fakeExtractor{pages: []model.PageText{{Number: 1, Content: "Cyber."}}}),
		WithHighlighter(model.TypePDF, &fakeHighlighter{}),
		WithOCR(ocr),
	)

	res, err := p.Analyze(context.Background(), Upload{Name: "short.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.False(t, res.Document.OCR)
	assert.Len(t, res.Findings, 1)
	assert.Zero(t, ocr.calls)

	p = NewPipeline(cfg, catalog.Default(),
		WithExtractor(model.TypePDF, &fakeExtractor{err: model.ErrExtraction}),
	)
	_, err = p.Analyze(context.Background(), Upload{Name: "broken.pdf", Data: []byte("%PDF")})
	assert.ErrorIs(t, err, model.ErrExtraction)
}

func TestAnalyze_DOCXExtractionErrorAborts(t *testing.T) {
	ocr := &fakeOCR{}
	p := NewPipeline(testConfig(), catalog.Default(),
		WithExtractor(model.TypeDOCX, &fakeExtractor{err: model.ErrExtraction}),
		WithOCR(ocr),
	)

	_, err := p.Analyze(context.Background(), Upload{Name: "broken.docx", Data: []byte("PK")})
	assert.ErrorIs(t, err, model.ErrExtraction)
	assert.Zero(t, ocr.calls)
}

func TestAnalyze_ImageAlwaysOCR(t *testing.T) {
	ocr := &fakeOCR{pages: model.SinglePage("Pandemic losses are excluded.")}
	rec := newCountingRecorder()
	p := NewPipeline(testConfig(), catalog.Default(), WithOCR(ocr), WithMetrics(rec))

	res, err := p.Analyze(context.Background(), Upload{Name: "photo.png", Data: []byte("\x89PNG")})
	require.NoError(t, err)

	assert.True(t, res.Document.OCR)
	assert.Equal(t, []model.DocumentType{model.TypePNG}, ocr.kinds)
	assert.Equal(t, []string{metrics.CauseImage}, rec.fallbacks)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "LMA5394 Communicable Disease Exclusion", res.Findings[0].Clause)
	assert.Nil(t, res.Highlighted)
	assert.NoError(t, res.HighlightError)
}

func TestAnalyze_ImageWithoutOCR(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.OCREnabled = false
	p := NewPipeline(cfg, catalog.Default())

	_, err := p.Analyze(context.Background(), Upload{Name: "photo.jpg", Data: []byte{0xFF, 0xD8, 0xFF}})
	assert.ErrorIs(t, err, model.ErrOCR)
}

func TestAnalyze_UnsupportedType(t *testing.T) {
	rec := newCountingRecorder()
	p := NewPipeline(testConfig(), catalog.Default(), WithMetrics(rec))

	_, err := p.Analyze(context.Background(), Upload{Name: "notes.txt", Data: []byte("plain text")})
	assert.ErrorIs(t, err, model.ErrUnsupportedType)
	assert.Equal(t, 1, rec.documents["unsupported"])
}

func TestAnalyze_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.MaxFileBytes = 4
	p := NewPipeline(cfg, catalog.Default())

	_, err := p.Analyze(context.Background(), Upload{Name: "big.pdf", Data: []byte("%PDF-1.7")})
	assert.ErrorIs(t, err, model.ErrTooLarge)
}

func TestAnalyze_ExtractionCache(t *testing.T) {
	ext := &fakeExtractor{pages: model.SinglePage(policyText)}
	mem := cache.NewMemoryCache(0, 0)

	p := NewPipeline(testConfig(), catalog.Default(),
		WithExtractor(model.TypeDOCX, ext),
		WithHighlighter(model.TypeDOCX, &fakeHighlighter{}),
		WithCache(mem),
	)

	up := Upload{Name: "policy.docx", Data: []byte("same bytes")}
	first, err := p.Analyze(context.Background(), up)
	require.NoError(t, err)
	second, err := p.Analyze(context.Background(), up)
	require.NoError(t, err)

	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, 1, mem.Len())
	assert.Equal(t, first.Findings, second.Findings)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = p.Analyze(context.Background(), Upload{Name: "policy.docx", Data: []byte("other bytes")})
	require.NoError(t, err)
	assert.Equal(t, 2, ext.calls)
}

func TestAnalyze_MatchingConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Matching.SuppressCoveredSentences = false

	p := NewPipeline(cfg, catalog.Default(),
		WithExtractor(model.TypeDOCX, &fakeExtractor{pages: model.SinglePage(policyText)}),
		WithHighlighter(model.TypeDOCX, &fakeHighlighter{}),
	)

	res, err := p.Analyze(context.Background(), Upload{Name: "policy.docx", Data: []byte("x")})
	require.NoError(t, err)
	require.Len(t, res.Findings, 3)
	assert.Equal(t, "This policy includes the NMA 2738 Claims Control Clause.", res.Findings[1].FoundText)
	assert.Equal(t, "<mark>This policy includes the NMA 2738 Claims Control Clause.</mark> <mark>Other claims may apply.</mark>", res.Preview)
}
