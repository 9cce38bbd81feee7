package document

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/ppiankov/clausescan/internal/model"
)

// PDFExtractor reads the text layer of a PDF page by page
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns one PageText per page, numbered from 1.
// Pages that fail to decode yield empty content.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (pages []model.PageText, err error) {
	defer func() {
		// the reader panics on some malformed inputs
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: pdf: %v", model.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", model.ErrExtraction, err)
	}

	total := reader.NumPage()
	pages = make([]model.PageText, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, model.PageText{Number: i})
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			content = ""
		}
		pages = append(pages, model.PageText{Number: i, Content: content})
	}

	return pages, nil
}
