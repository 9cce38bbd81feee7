package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ppiankov/clausescan/internal/model"
)

// ImageRecognizer turns one encoded image into text
type ImageRecognizer interface {
	RecognizeImage(ctx context.Context, image []byte) (string, error)
}

// PageOCR recognizes image uploads directly and scanned PDFs page by page
type PageOCR struct {
	recognizer ImageRecognizer
}

// NewPageOCR wraps an image recognizer
func NewPageOCR(r ImageRecognizer) *PageOCR {
	return &PageOCR{recognizer: r}
}

// Recognize returns a single page for images and one page per PDF page.
// PDF pages without embedded images yield empty content.
func (o *PageOCR) Recognize(ctx context.Context, data []byte, kind model.DocumentType) ([]model.PageText, error) {
	switch {
	case kind.IsImage():
		text, err := o.recognizer.RecognizeImage(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrOCR, err)
		}
		return model.SinglePage(text), nil

	case kind == model.TypePDF:
		return o.recognizePDF(ctx, data)

	default:
		return nil, fmt.Errorf("%w: cannot ocr %q", model.ErrOCR, kind)
	}
}

func (o *PageOCR) recognizePDF(ctx context.Context, data []byte) ([]model.PageText, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %v", model.ErrOCR, err)
	}

	pages := make([]model.PageText, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		images, err := pdfcpu.ExtractPageImages(pdfCtx, pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("%w: extract images of page %d: %v", model.ErrOCR, pageNr, err)
		}

		var parts []string
		for _, img := range sortedImages(images) {
			raw, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("%w: read image %s: %v", model.ErrOCR, img.Name, err)
			}
			text, err := o.recognizer.RecognizeImage(ctx, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: page %d: %v", model.ErrOCR, pageNr, err)
			}
			if text = strings.TrimSpace(text); text != "" {
				parts = append(parts, text)
			}
		}

		pages = append(pages, model.PageText{Number: pageNr, Content: strings.Join(parts, "\n")})
	}

	return pages, nil
}

// sortedImages orders a page's images by object number for stable output
func sortedImages(images map[int]pdfmodel.Image) []pdfmodel.Image {
	keys := make([]int, 0, len(images))
	for k := range images {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]pdfmodel.Image, 0, len(keys))
	for _, k := range keys {
		out = append(out, images[k])
	}
	return out
}
