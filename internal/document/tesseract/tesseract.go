//go:build tesseract

// Package tesseract recognizes images with a local tesseract installation.
// The gosseract engine needs cgo, the tesseract and leptonica headers and
// the tesseract build tag; without the tag a stub engine reports ErrOCR.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/ppiankov/clausescan/internal/document"
)

// Engine implements document.ImageRecognizer with gosseract
type Engine struct {
	Languages     []string
	clientFactory func() *gosseract.Client
}

// NewEngine creates an engine for the given tesseract language codes
func NewEngine(languages []string) *Engine {
	return &Engine{Languages: languages, clientFactory: gosseract.NewClient}
}

// NewOCR is the default OCR stack for images and scanned PDFs
func NewOCR(languages []string) *document.PageOCR {
	return document.NewPageOCR(NewEngine(languages))
}

// Version reports the linked tesseract version
func Version() string {
	return gosseract.Version()
}

// RecognizeImage runs tesseract on one encoded image
func (e *Engine) RecognizeImage(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.Languages) > 0 {
		if err := c.SetLanguage(e.Languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
