package document

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/ppiankov/clausescan/internal/model"
)

// Rect is an axis-aligned box in PDF user space
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Hit is one located target instance, one rect per text line it covers
type Hit struct {
	Page  int
	Rects []Rect
}

// PDFHighlighter adds a highlight annotation over every located target
type PDFHighlighter struct {
	Color [3]float64
}

// NewPDFHighlighter creates a highlighter using yellow
func NewPDFHighlighter() *PDFHighlighter {
	return &PDFHighlighter{Color: [3]float64{1, 1, 0}}
}

// Highlight locates targets with glyph positions and writes annotations
func (h *PDFHighlighter) Highlight(ctx context.Context, data []byte, targets []string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: pdf: %v", model.ErrHighlight, r)
		}
	}()

	hits, err := locateTargets(ctx, data, targets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrHighlight, err)
	}

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %v", model.ErrHighlight, err)
	}

	for _, hit := range hits {
		if err := h.annotate(pdfCtx, hit); err != nil {
			return nil, fmt.Errorf("%w: annotate page %d: %v", model.ErrHighlight, hit.Page, err)
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pdfCtx, &buf); err != nil {
		return nil, fmt.Errorf("%w: write pdf: %v", model.ErrHighlight, err)
	}
	return buf.Bytes(), nil
}

func (h *PDFHighlighter) annotate(pdfCtx *pdfmodel.Context, hit Hit) error {
	pageDict, pageRef, _, err := pdfCtx.PageDict(hit.Page, false)
	if err != nil {
		return err
	}
	if pageDict == nil {
		return fmt.Errorf("page %d not found", hit.Page)
	}

	bounds := hit.Rects[0]
	quads := make([]float64, 0, len(hit.Rects)*8)
	for _, r := range hit.Rects {
		bounds.X0 = math.Min(bounds.X0, r.X0)
		bounds.Y0 = math.Min(bounds.Y0, r.Y0)
		bounds.X1 = math.Max(bounds.X1, r.X1)
		bounds.Y1 = math.Max(bounds.Y1, r.Y1)
		quads = append(quads, r.X0, r.Y1, r.X1, r.Y1, r.X0, r.Y0, r.X1, r.Y0)
	}

	annot := types.Dict{
		"Type":       types.Name("Annot"),
		"Subtype":    types.Name("Highlight"),
		"Rect":       types.NewNumberArray(bounds.X0, bounds.Y0, bounds.X1, bounds.Y1),
		"QuadPoints": types.NewNumberArray(quads...),
		"C":          types.NewNumberArray(h.Color[0], h.Color[1], h.Color[2]),
		"F":          types.Integer(4),
	}
	if pageRef != nil {
		annot["P"] = *pageRef
	}

	ref, err := pdfCtx.IndRefForNewObject(annot)
	if err != nil {
		return err
	}

	var annots types.Array
	if obj, found := pageDict.Find("Annots"); found {
		annots, err = pdfCtx.DereferenceArray(obj)
		if err != nil {
			return err
		}
	}
	pageDict["Annots"] = append(annots, *ref)

	return nil
}

type glyphRef struct {
	index int
	r     rune
}

// locateTargets finds every case-insensitive occurrence of each target on
// each page. Whitespace is ignored on both sides since PDF text layers rarely
// carry the spaces of the source text.
func locateTargets(ctx context.Context, data []byte, targets []string) ([]Hit, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	needles := make([][]rune, 0, len(targets))
	for _, t := range targets {
		if n := compactRunes(t); len(n) > 0 {
			needles = append(needles, n)
		}
	}

	var hits []Hit
	for pageNr := 1; pageNr <= reader.NumPage(); pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNr)
		if page.V.IsNull() {
			continue
		}
		glyphs := page.Content().Text
		hits = append(hits, locateOnPage(pageNr, glyphs, needles)...)
	}

	return hits, nil
}

// locateOnPage returns one hit per non-overlapping occurrence of each needle
func locateOnPage(pageNr int, glyphs []pdf.Text, needles [][]rune) []Hit {
	var stream []glyphRef
	for i, g := range glyphs {
		for _, r := range g.S {
			if !unicode.IsSpace(r) {
				stream = append(stream, glyphRef{index: i, r: unicode.ToLower(r)})
			}
		}
	}

	var hits []Hit
	seen := make(map[[2]int]bool)
	for _, needle := range needles {
		for start := 0; start+len(needle) <= len(stream); {
			if !matchAt(stream, start, needle) {
				start++
				continue
			}
			first := stream[start].index
			last := stream[start+len(needle)-1].index
			if !seen[[2]int{first, last}] {
				seen[[2]int{first, last}] = true
				hits = append(hits, Hit{Page: pageNr, Rects: lineRects(glyphs[first : last+1])})
			}
			start += len(needle)
		}
	}
	return hits
}

func matchAt(stream []glyphRef, start int, needle []rune) bool {
	for i, r := range needle {
		if stream[start+i].r != r {
			return false
		}
	}
	return true
}

// lineRects merges consecutive glyphs on the same baseline into one box
func lineRects(glyphs []pdf.Text) []Rect {
	var rects []Rect
	var baseline float64
	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			continue
		}
		size := g.FontSize
		if size <= 0 {
			size = 10
		}
		width := g.W
		if width <= 0 {
			width = size / 2
		}
		box := Rect{X0: g.X, Y0: g.Y - size*0.25, X1: g.X + width, Y1: g.Y + size*0.9}

		if len(rects) > 0 && math.Abs(g.Y-baseline) < size/2 {
			cur := &rects[len(rects)-1]
			cur.X0 = math.Min(cur.X0, box.X0)
			cur.Y0 = math.Min(cur.Y0, box.Y0)
			cur.X1 = math.Max(cur.X1, box.X1)
			cur.Y1 = math.Max(cur.Y1, box.Y1)
			continue
		}
		rects = append(rects, box)
		baseline = g.Y
	}
	return rects
}

func compactRunes(s string) []rune {
	var out []rune
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, unicode.ToLower(r))
		}
	}
	return out
}
