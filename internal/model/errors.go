package model

import "errors"

var (
	// ErrExtraction marks a failure to pull text out of a document
	ErrExtraction = errors.New("extraction failed")

	// ErrOCR marks an OCR engine or dependency failure
	ErrOCR = errors.New("ocr failed")

	// ErrHighlight marks a failure to produce the highlighted copy
	ErrHighlight = errors.New("highlight failed")

	// ErrUnsupportedType marks an upload that is neither PDF, DOCX nor an image
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrTooLarge marks an upload or download over the configured size limit
	ErrTooLarge = errors.New("document too large")
)
