// Package document reads and highlights uploaded PDF, DOCX and image files.
package document

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/clausescan/internal/model"
)

// Extractor pulls page text out of a document
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]model.PageText, error)
}

// OCR recognizes text in images or image-only PDFs
type OCR interface {
	Recognize(ctx context.Context, data []byte, kind model.DocumentType) ([]model.PageText, error)
}

// Highlighter returns a copy of the document with every located target marked.
// A target that cannot be located is skipped.
type Highlighter interface {
	Highlight(ctx context.Context, data []byte, targets []string) ([]byte, error)
}

// DetectType identifies a document by extension, then by content
func DetectType(name string, data []byte) model.DocumentType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return model.TypePDF
	case ".docx":
		return model.TypeDOCX
	case ".png":
		return model.TypePNG
	case ".jpg", ".jpeg":
		return model.TypeJPEG
	}

	switch http.DetectContentType(data) {
	case "application/pdf":
		return model.TypePDF
	case "image/png":
		return model.TypePNG
	case "image/jpeg":
		return model.TypeJPEG
	case "application/zip":
		if isDOCX(data) {
			return model.TypeDOCX
		}
	}

	return model.TypeUnknown
}

func isDOCX(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == documentPart {
			return true
		}
	}
	return false
}

// Normalize puts page text in NFC so that decomposed accents extracted from
// PDFs compare equal to catalog keywords
func Normalize(pages []model.PageText) []model.PageText {
	out := make([]model.PageText, len(pages))
	for i, p := range pages {
		out[i] = model.PageText{Number: p.Number, Content: norm.NFC.String(p.Content)}
	}
	return out
}
