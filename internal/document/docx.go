package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ppiankov/clausescan/internal/model"
)

const (
	documentPart = "word/document.xml"
	wordPrefix   = "w"
)

// run properties that must come after w:highlight inside w:rPr
var afterHighlight = map[string]bool{
	"u": true, "effect": true, "bdr": true, "shd": true, "fitText": true,
	"vertAlign": true, "rtl": true, "cs": true, "em": true, "lang": true,
	"eastAsianLayout": true, "specVanish": true, "oMath": true, "rPrChange": true,
}

type span struct{ start, end int }

type runInfo struct {
	tagEnd    int  // end of the <w:r> start tag
	rPr       bool // has a non-empty <w:rPr>
	rPrEmpty  span // self-closing <w:rPr/>
	rPrClose  int  // start of </w:rPr>
	insertAt  int  // first rPr child that sorts after highlight
	highlight span // existing <w:highlight>
}

type paragraph struct {
	text strings.Builder
	runs []*runInfo
}

type frameKind int

const (
	frameOther frameKind = iota
	frameParagraph
	frameRun
	frameRunProps
	frameText
)

type frame struct {
	kind frameKind
	para *paragraph
	run  *runInfo
}

// walkParagraphs streams document.xml and calls done for every paragraph
// once its end tag is read. Nested paragraphs (text boxes) finish first.
func walkParagraphs(data []byte, done func(p *paragraph)) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var stack []frame

	nearestPara := func() *paragraph {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].kind == frameParagraph {
				return stack[i].para
			}
		}
		return nil
	}
	top := func() frame {
		if len(stack) == 0 {
			return frame{}
		}
		return stack[len(stack)-1]
	}

	for {
		start := int(dec.InputOffset())
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		end := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			parent := top()
			f := frame{kind: frameOther, para: parent.para, run: parent.run}

			name := wordName(t.Name)
			switch {
			case name == "p":
				f = frame{kind: frameParagraph, para: &paragraph{}}
			case name == "r" && nearestPara() != nil:
				f = frame{kind: frameRun, para: nearestPara(), run: &runInfo{tagEnd: end}}
			case parent.kind == frameRun && name == "rPr":
				f.kind = frameRunProps
				if selfClosing(data, end) {
					parent.run.rPrEmpty = span{start, end}
				} else {
					parent.run.rPr = true
				}
			case parent.kind == frameRunProps && name == "highlight":
				parent.run.highlight.start = start
			case parent.kind == frameRunProps && afterHighlight[name]:
				if parent.run.insertAt == 0 {
					parent.run.insertAt = start
				}
			case parent.kind == frameRun && name == "t":
				f.kind = frameText
			case parent.kind == frameRun && name == "tab":
				parent.para.text.WriteByte('\t')
			case parent.kind == frameRun && (name == "br" || name == "cr"):
				parent.para.text.WriteByte('\n')
			}

			stack = append(stack, f)

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			parent := top()

			switch {
			case f.kind == frameParagraph:
				done(f.para)
			case f.kind == frameRun:
				f.para.runs = append(f.para.runs, f.run)
			case f.kind == frameRunProps && f.run.rPr:
				f.run.rPrClose = start
			case parent.kind == frameRunProps && wordName(t.Name) == "highlight":
				parent.run.highlight.end = end
			}

		case xml.CharData:
			if f := top(); f.kind == frameText && f.para != nil {
				f.para.text.Write(t)
			}
		}
	}
}

// wordName returns the local name of a WordprocessingML element, or ""
// for elements in other vocabularies such as DrawingML
func wordName(n xml.Name) string {
	if n.Space != wordPrefix {
		return ""
	}
	return n.Local
}

func selfClosing(data []byte, end int) bool {
	return end >= 2 && string(data[end-2:end]) == "/>"
}

// readPart returns the contents of one file in a zip archive
func readPart(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}

// DOCXExtractor reads paragraph text from a Word document as a single page
type DOCXExtractor struct{}

// NewDOCXExtractor creates a DOCX extractor
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

// Extract joins paragraph texts with newlines
func (e *DOCXExtractor) Extract(_ context.Context, data []byte) ([]model.PageText, error) {
	xmlData, err := readPart(data, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrExtraction, err)
	}

	var paragraphs []string
	err = walkParagraphs(xmlData, func(p *paragraph) {
		paragraphs = append(paragraphs, p.text.String())
	})
	if err != nil {
		return nil, fmt.Errorf("%w: parse docx: %v", model.ErrExtraction, err)
	}

	return model.SinglePage(strings.Join(paragraphs, "\n")), nil
}

// DOCXHighlighter marks every run of a paragraph in yellow when the paragraph
// contains one of the targets
type DOCXHighlighter struct {
	Color string
}

// NewDOCXHighlighter creates a highlighter using yellow
func NewDOCXHighlighter() *DOCXHighlighter {
	return &DOCXHighlighter{Color: "yellow"}
}

type edit struct {
	span
	text string
}

// Highlight rewrites word/document.xml and copies every other part unchanged
func (h *DOCXHighlighter) Highlight(_ context.Context, data []byte, targets []string) ([]byte, error) {
	xmlData, err := readPart(data, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrHighlight, err)
	}

	needles := paragraphNeedles(targets)
	var edits []edit
	err = walkParagraphs(xmlData, func(p *paragraph) {
		text := strings.ToLower(p.text.String())
		for _, n := range needles {
			if strings.Contains(text, n) {
				for _, r := range p.runs {
					edits = append(edits, h.runEdit(r))
				}
				return
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: parse docx: %v", model.ErrHighlight, err)
	}

	out, err := replacePart(data, documentPart, applyEdits(xmlData, edits))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrHighlight, err)
	}
	return out, nil
}

// paragraphNeedles lowercases targets; a target spanning paragraphs is
// matched line by line
func paragraphNeedles(targets []string) []string {
	var needles []string
	for _, t := range targets {
		for _, line := range strings.Split(t, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				needles = append(needles, strings.ToLower(line))
			}
		}
	}
	return needles
}

func (h *DOCXHighlighter) runEdit(r *runInfo) edit {
	const p = wordPrefix + ":"
	mark := fmt.Sprintf(`<%shighlight %sval="%s"/>`, p, p, h.Color)

	switch {
	case r.highlight.end > r.highlight.start:
		return edit{span: r.highlight, text: mark}
	case r.rPrEmpty.end > 0:
		return edit{span: r.rPrEmpty, text: "<" + p + "rPr>" + mark + "</" + p + "rPr>"}
	case r.rPr && r.insertAt > 0:
		return edit{span: span{r.insertAt, r.insertAt}, text: mark}
	case r.rPr:
		return edit{span: span{r.rPrClose, r.rPrClose}, text: mark}
	default:
		return edit{span: span{r.tagEnd, r.tagEnd}, text: "<" + p + "rPr>" + mark + "</" + p + "rPr>"}
	}
}

func applyEdits(data []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var b bytes.Buffer
	b.Grow(len(data) + len(edits)*40)
	last := 0
	for _, e := range edits {
		b.Write(data[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.Write(data[last:])
	return b.Bytes()
}

// replacePart rebuilds the archive with one part's contents swapped
func replacePart(data []byte, name string, content []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		if f.Name != name {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}

		header := f.FileHeader
		header.Method = zip.Deflate
		w, err := zw.CreateHeader(&header)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}

	return buf.Bytes(), nil
}
