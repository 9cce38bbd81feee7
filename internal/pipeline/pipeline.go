// Package pipeline runs one document through extraction, matching,
// reconciliation and highlighting.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/clausescan/internal/cache"
	"github.com/ppiankov/clausescan/internal/document"
	"github.com/ppiankov/clausescan/internal/extract"
	"github.com/ppiankov/clausescan/internal/highlight"
	"github.com/ppiankov/clausescan/internal/llm"
	"github.com/ppiankov/clausescan/internal/logging"
	"github.com/ppiankov/clausescan/internal/metrics"
	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/report"
)

// Analyzer analyzes a single upload
type Analyzer interface {
	Analyze(ctx context.Context, up Upload) (*Result, error)
}

// Upload is one document as received from a file, URL or HTTP form
type Upload struct {
	Name string
	Data []byte
}

// Result contains the complete analysis of one upload
type Result struct {
	ID             string
	Identity       string // SHA-256 of the uploaded bytes
	Document       *model.Document
	Findings       []model.Finding
	Groups         []model.ClauseGroup
	Spans          []highlight.Span
	Preview        string // Full text with <mark> markers
	Highlighted    []byte // Highlighted copy; nil when there was nothing to highlight
	HighlightError error
	AnalyzedAt     time.Time
	LLM            *model.LLMSummary
}

// Report builds the serializable report
func (r *Result) Report() *model.Report {
	rep := &model.Report{
		ID:           r.ID,
		Document:     r.Document.Name,
		Type:         r.Document.Type,
		Pages:        len(r.Document.Pages),
		OCR:          r.Document.OCR,
		AnalyzedAt:   r.AnalyzedAt,
		FindingCount: len(r.Findings),
		Findings:     r.Findings,
		Groups:       r.Groups,
		LLM:          r.LLM,
	}
	if r.HighlightError != nil {
		rep.HighlightError = r.HighlightError.Error()
	}
	return rep
}

// HighlightedName returns the download name of the highlighted copy
func (r *Result) HighlightedName(prefix string) string {
	return prefix + filepath.Base(r.Document.Name)
}

// Pipeline orchestrates the complete analysis of one document
type Pipeline struct {
	config       *model.Config
	catalog      model.Catalog
	matcher      *extract.Matcher
	extractors   map[model.DocumentType]document.Extractor
	highlighters map[model.DocumentType]document.Highlighter
	ocr          document.OCR
	cache        cache.Cache
	summarizer   *llm.Summarizer // Optional LLM summarizer (nil if disabled)
	logger       logging.Logger
	metrics      metrics.Recorder
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithCache enables the extraction cache
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithOCR sets the OCR engine used for images and the PDF fallback
func WithOCR(o document.OCR) Option {
	return func(p *Pipeline) { p.ocr = o }
}

// WithExtractor replaces the text extractor for a document type
func WithExtractor(kind model.DocumentType, e document.Extractor) Option {
	return func(p *Pipeline) { p.extractors[kind] = e }
}

// WithHighlighter replaces the highlighter for a document type
func WithHighlighter(kind model.DocumentType, h document.Highlighter) Option {
	return func(p *Pipeline) { p.highlighters[kind] = h }
}

// WithSummarizer enables the LLM summary
func WithSummarizer(s *llm.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// NewPipeline creates a new pipeline for the given configuration and catalog
func NewPipeline(cfg *model.Config, catalog model.Catalog, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:  cfg,
		catalog: catalog,
		matcher: extract.NewMatcher(extract.WithCoveredSentenceSuppression(cfg.Matching.SuppressCoveredSentences)),
		extractors: map[model.DocumentType]document.Extractor{
			model.TypePDF:  document.NewPDFExtractor(),
			model.TypeDOCX: document.NewDOCXExtractor(),
		},
		highlighters: map[model.DocumentType]document.Highlighter{
			model.TypePDF:  document.NewPDFHighlighter(),
			model.TypeDOCX: document.NewDOCXHighlighter(),
		},
		logger:  logging.NewNopLogger(),
		metrics: metrics.NopRecorder(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if !cfg.Extraction.OCREnabled {
		p.ocr = nil
	}
	return p
}

// Catalog returns the clause catalog the pipeline matches against
func (p *Pipeline) Catalog() model.Catalog {
	return p.catalog
}

// Analyze runs the full analysis of one upload. Extraction, OCR and
// unsupported types abort the document; a highlighting failure does not.
func (p *Pipeline) Analyze(ctx context.Context, up Upload) (*Result, error) {
	start := time.Now()
	log := p.logger.With(logging.String("document", up.Name))

	if limit := p.config.Extraction.MaxFileBytes; limit > 0 && int64(len(up.Data)) > limit {
		p.metrics.ObserveDocument("", "too_large", time.Since(start))
		return nil, fmt.Errorf("%s: %w: %d bytes exceeds %d", up.Name, model.ErrTooLarge, len(up.Data), limit)
	}

	// 1. Detect type
	kind := document.DetectType(up.Name, up.Data)
	if kind == model.TypeUnknown {
		p.metrics.ObserveDocument("unknown", "unsupported", time.Since(start))
		return nil, fmt.Errorf("%s: %w", up.Name, model.ErrUnsupportedType)
	}
	log = log.With(logging.String("type", string(kind)))

	// 2. Extract text, falling back to OCR
	ex, err := p.extract(ctx, kind, up.Data, log)
	if err != nil {
		p.metrics.ObserveDocument(string(kind), "failed", time.Since(start))
		log.Error("extraction failed", logging.Err(err))
		return nil, err
	}

	// 3. Normalize
	doc := &model.Document{
		Name:  up.Name,
		Type:  kind,
		Pages: document.Normalize(ex.Pages),
		OCR:   ex.OCR,
	}

	// 4-5. Match and group
	findings := p.matcher.Match(doc.Pages, p.catalog)
	groups := report.Aggregate(findings, p.config.Matching.SortByPage)

	// 6. Preview
	text := doc.FullText()
	spans := highlight.Spans(text, findings)

	res := &Result{
		ID:         uuid.NewString(),
		Identity:   cache.Identity(up.Data),
		Document:   doc,
		Findings:   findings,
		Groups:     groups,
		Spans:      spans,
		Preview:    highlight.Render(text, spans),
		AnalyzedAt: start.UTC(),
	}

	// 7. Highlighted copy
	if len(findings) > 0 {
		p.highlight(ctx, res, up.Data, log)
	}

	// 8. Optional LLM summary (AFTER matching, never affects findings)
	if p.summarizer.IsEnabled() {
		summary, err := p.summarizer.GenerateSummary(ctx, *res.Report())
		if err != nil {
			log.Warn("LLM summary generation failed", logging.Err(err))
		} else {
			res.LLM = summary
		}
	}

	for _, f := range findings {
		p.metrics.ObserveFinding(f.Clause, string(f.Reason.Kind))
	}
	elapsed := time.Since(start)
	p.metrics.ObserveDocument(string(kind), "ok", elapsed)

	log.Info("document analyzed",
		logging.Int("pages", len(doc.Pages)),
		logging.Bool("ocr", doc.OCR),
		logging.Int("findings", len(findings)),
		logging.Int("clauses", len(groups)),
		logging.Duration("elapsed", elapsed),
	)

	return res, nil
}

func (p *Pipeline) highlight(ctx context.Context, res *Result, data []byte, log logging.Logger) {
	h, ok := p.highlighters[res.Document.Type]
	if !ok {
		log.Debug("no highlighter for document type")
		return
	}

	out, err := h.Highlight(ctx, data, highlight.Targets(res.Findings))
	if err != nil {
		if !errors.Is(err, model.ErrHighlight) {
			err = fmt.Errorf("%w: %v", model.ErrHighlight, err)
		}
		res.HighlightError = err
		p.metrics.ObserveHighlightFailure(string(res.Document.Type))
		log.Warn("highlighted copy unavailable", logging.Err(err))
		return
	}
	res.Highlighted = out
}

// extraction is the cached outcome of text extraction
type extraction struct {
	Pages []model.PageText `json:"pages"`
	OCR   bool             `json:"ocr"`
}

// cacheNamespace separates cached extractions made under different OCR settings
func (p *Pipeline) cacheNamespace() string {
	return fmt.Sprintf("extract:ocr=%t:min=%d", p.ocr != nil, p.config.Extraction.OCRThreshold)
}

func (p *Pipeline) extract(ctx context.Context, kind model.DocumentType, data []byte, log logging.Logger) (*extraction, error) {
	if p.cache == nil {
		return p.extractFresh(ctx, kind, data, log)
	}

	key := cache.ContentKey(p.cacheNamespace(), data)
	if raw, ok := p.cache.Get(ctx, key); ok {
		var ex extraction
		if err := json.Unmarshal(raw, &ex); err == nil {
			log.Debug("extraction cache hit")
			return &ex, nil
		}
	}

	ex, err := p.extractFresh(ctx, kind, data, log)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(ex); err == nil {
		if err := p.cache.Set(ctx, key, raw, 0); err != nil {
			log.Warn("extraction cache write failed", logging.Err(err))
		}
	}
	return ex, nil
}

func (p *Pipeline) extractFresh(ctx context.Context, kind model.DocumentType, data []byte, log logging.Logger) (*extraction, error) {
	if kind.IsImage() {
		p.metrics.ObserveOCRFallback(metrics.CauseImage)
		return p.recognize(ctx, data, kind)
	}

	extractor, ok := p.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedType, kind)
	}

	pages, err := extractor.Extract(ctx, data)
	if kind != model.TypePDF {
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", kind, err)
		}
		return &extraction{Pages: pages}, nil
	}

	var cause string
	switch chars := model.CountChars(pages); {
	case err != nil:
		cause = metrics.CauseExtractionError
		log.Warn("PDF text extraction failed", logging.Err(err))
	case chars < p.config.Extraction.OCRThreshold:
		cause = metrics.CauseLowText
		log.Info("PDF has little embedded text", logging.Int("chars", chars))
	default:
		return &extraction{Pages: pages}, nil
	}

	if p.ocr == nil {
		if err != nil {
			return nil, fmt.Errorf("extract pdf: %w", err)
		}
		log.Warn("OCR disabled, keeping embedded text")
		return &extraction{Pages: pages}, nil
	}

	p.metrics.ObserveOCRFallback(cause)
	return p.recognize(ctx, data, kind)
}

func (p *Pipeline) recognize(ctx context.Context, data []byte, kind model.DocumentType) (*extraction, error) {
	if p.ocr == nil {
		return nil, fmt.Errorf("%w: no OCR engine configured for %s", model.ErrOCR, kind)
	}
	pages, err := p.ocr.Recognize(ctx, data, kind)
	if err != nil {
		if !errors.Is(err, model.ErrOCR) {
			err = fmt.Errorf("%w: %v", model.ErrOCR, err)
		}
		return nil, err
	}
	return &extraction{Pages: pages, OCR: true}, nil
}
