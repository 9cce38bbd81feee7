package model

import (
	"strings"
	"unicode/utf8"
)

// DocumentType tags the binary format of an upload
type DocumentType string

const (
	TypePDF     DocumentType = "pdf"
	TypeDOCX    DocumentType = "docx"
	TypePNG     DocumentType = "png"
	TypeJPEG    DocumentType = "jpeg"
	TypeUnknown DocumentType = ""
)

// IsImage reports whether the type goes straight to OCR
func (t DocumentType) IsImage() bool {
	return t == TypePNG || t == TypeJPEG
}

// ContentType returns the MIME type used for downloads
func (t DocumentType) ContentType() string {
	switch t {
	case TypePDF:
		return "application/pdf"
	case TypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case TypePNG:
		return "image/png"
	case TypeJPEG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// PageText is the extracted text of one page
type PageText struct {
	Number  int    `json:"number"` // 1-based
	Content string `json:"content"`
}

// SinglePage wraps unpaginated text as page 1
func SinglePage(content string) []PageText {
	return []PageText{{Number: 1, Content: content}}
}

// Document is the extracted form of one upload
type Document struct {
	Name  string       `json:"name"`
	Type  DocumentType `json:"type"`
	Pages []PageText   `json:"pages"`
	OCR   bool         `json:"ocr"` // Whether the text came from OCR
}

// FullText joins all pages with newlines
func (d *Document) FullText() string {
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Content
	}
	return strings.Join(parts, "\n")
}

// CharCount returns the number of characters across all pages
func (d *Document) CharCount() int {
	return CountChars(d.Pages)
}

// Paginated reports whether the document has more than one page
func (d *Document) Paginated() bool {
	return len(d.Pages) > 1
}

// CountChars returns the number of characters across pages, ignoring
// leading and trailing whitespace of each page
func CountChars(pages []PageText) int {
	n := 0
	for _, p := range pages {
		n += utf8.RuneCountInString(strings.TrimSpace(p.Content))
	}
	return n
}
