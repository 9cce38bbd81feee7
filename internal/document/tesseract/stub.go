//go:build !tesseract

package tesseract

import (
	"context"
	"fmt"

	"github.com/ppiankov/clausescan/internal/document"
	"github.com/ppiankov/clausescan/internal/model"
)

// Engine rejects every image in builds without tesseract support
type Engine struct {
	Languages []string
}

// NewEngine creates a stub engine
func NewEngine(languages []string) *Engine {
	return &Engine{Languages: languages}
}

// NewOCR wires the stub engine so OCR fails with ErrOCR instead of the build
func NewOCR(languages []string) *document.PageOCR {
	return document.NewPageOCR(NewEngine(languages))
}

// Version reports that tesseract is not linked
func Version() string {
	return "unavailable"
}

// RecognizeImage always fails
func (e *Engine) RecognizeImage(ctx context.Context, _ []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: built without tesseract support (rebuild with -tags tesseract)", model.ErrOCR)
}
