package highlight

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const previewStyle = `body{font-family:sans-serif;margin:2em}` +
	`.preview{background-color:#f0f2f6;border:1px solid #ddd;border-radius:5px;padding:15px}` +
	`mark{background-color:#ffeb3b}`

// RenderHTML writes text as an escaped HTML fragment with spans as <mark>
// elements and newlines as <br>
func RenderHTML(w io.Writer, text string, spans []Span) error {
	return html.Render(w, previewNode(text, spans))
}

// RenderPage writes a standalone HTML document with the preview
func RenderPage(w io.Writer, title string, text string, spans []Span) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	root.AppendChild(head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	titleNode := element(atom.Title)
	titleNode.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(titleNode)
	style := element(atom.Style)
	style.AppendChild(&html.Node{Type: html.TextNode, Data: previewStyle})
	head.AppendChild(style)

	body := element(atom.Body)
	root.AppendChild(body)
	heading := element(atom.H1)
	heading.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	body.AppendChild(heading)
	body.AppendChild(previewNode(text, spans))

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	return nil
}

func previewNode(text string, spans []Span) *html.Node {
	root := element(atom.Div, html.Attribute{Key: "class", Val: "preview"})

	last := 0
	for _, s := range spans {
		appendText(root, text[last:s.Start])

		mark := element(atom.Mark)
		if s.Clause != "" {
			mark.Attr = append(mark.Attr, html.Attribute{Key: "title", Val: s.Clause})
		}
		appendText(mark, text[s.Start:s.End])
		root.AppendChild(mark)

		last = s.End
	}
	appendText(root, text[last:])

	return root
}

// appendText adds s under parent, turning newlines into <br> elements
func appendText(parent *html.Node, s string) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			parent.AppendChild(element(atom.Br))
		}
		if line != "" {
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: line})
		}
	}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}
