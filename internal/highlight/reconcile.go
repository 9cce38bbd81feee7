// Package highlight resolves findings into non-overlapping highlight spans
// for previews and collects the target strings for binary highlighters.
package highlight

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/clausescan/internal/extract"
	"github.com/ppiankov/clausescan/internal/model"
)

// Default marker pair used by Reconcile
const (
	DefaultOpen  = "<mark>"
	DefaultClose = "</mark>"
)

// Span is a highlighted byte range [Start, End) of the text
type Span struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Clause string `json:"clause"`
}

// Reconciler wraps finding occurrences with a marker pair
type Reconciler struct {
	open  string
	close string
}

// NewReconciler creates a reconciler for the given markers.
// Empty markers fall back to the defaults.
func NewReconciler(openMarker, closeMarker string) *Reconciler {
	if openMarker == "" || closeMarker == "" {
		openMarker, closeMarker = DefaultOpen, DefaultClose
	}
	return &Reconciler{open: openMarker, close: closeMarker}
}

var defaultReconciler = NewReconciler(DefaultOpen, DefaultClose)

// Reconcile marks findings in text with the default markers
func Reconcile(text string, findings []model.Finding) string {
	return defaultReconciler.Reconcile(text, findings)
}

// Spans resolves findings in text with the default markers
func Spans(text string, findings []model.Finding) []Span {
	return defaultReconciler.Spans(text, findings)
}

// Render wraps precomputed spans with the default markers
func Render(text string, spans []Span) string {
	return defaultReconciler.Render(text, spans)
}

// Reconcile returns text with every accepted span wrapped in the markers.
// Running it again on its own output with the same findings is a no-op.
func (r *Reconciler) Reconcile(text string, findings []model.Finding) string {
	return r.Render(text, r.Spans(text, findings))
}

// Spans returns the non-overlapping intervals to highlight, sorted by start.
//
// Findings are taken longest first so that a sentence containing a clause
// name is wrapped as a whole and the name inside it is not marked again.
// Every case-insensitive occurrence is considered; one that overlaps an
// accepted span or an existing marker region is skipped.
func (r *Reconciler) Spans(text string, findings []model.Finding) []Span {
	occupied := r.markedRegions(text)
	var accepted []Span

	done := make(map[string]bool)
	for _, f := range longestFirst(findings) {
		needle := f.FoundText
		key := strings.ToLower(needle)
		if strings.TrimSpace(needle) == "" || done[key] {
			continue
		}
		done[key] = true

		re := extract.FoldPattern(needle)
		for offset := 0; offset < len(text); {
			loc := re.FindStringIndex(text[offset:])
			if loc == nil {
				break
			}
			start, end := offset+loc[0], offset+loc[1]
			if start == end {
				break
			}
			if overlapsAny(occupied, start, end) || overlapsAny(accepted, start, end) {
				_, size := utf8.DecodeRuneInString(text[start:])
				offset = start + size
				continue
			}
			accepted = append(accepted, Span{Start: start, End: end, Clause: f.Clause})
			offset = end
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

// Render inserts the markers around spans; spans must be sorted and disjoint
func (r *Reconciler) Render(text string, spans []Span) string {
	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(r.open)+len(r.close)))

	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s.Start])
		b.WriteString(r.open)
		b.WriteString(text[s.Start:s.End])
		b.WriteString(r.close)
		last = s.End
	}
	b.WriteString(text[last:])

	return b.String()
}

// markedRegions finds marker pairs (and stray markers) already in text
func (r *Reconciler) markedRegions(text string) []Span {
	var regions []Span

	for i := 0; i < len(text); {
		idx := strings.Index(text[i:], r.open)
		if idx < 0 {
			break
		}
		start := i + idx
		body := start + len(r.open)

		closeIdx := strings.Index(text[body:], r.close)
		if closeIdx < 0 {
			regions = append(regions, Span{Start: start, End: body})
			i = body
			continue
		}

		end := body + closeIdx + len(r.close)
		regions = append(regions, Span{Start: start, End: end})
		i = end
	}

	for i := 0; i < len(text); {
		idx := strings.Index(text[i:], r.close)
		if idx < 0 {
			break
		}
		start := i + idx
		end := start + len(r.close)
		if !overlapsAny(regions, start, end) {
			regions = append(regions, Span{Start: start, End: end})
		}
		i = end
	}

	return regions
}

func overlapsAny(spans []Span, start, end int) bool {
	for _, s := range spans {
		if start < s.End && s.Start < end {
			return true
		}
	}
	return false
}

// longestFirst returns findings sorted by found text length, longest first.
// Ties keep their original order.
func longestFirst(findings []model.Finding) []model.Finding {
	sorted := make([]model.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].FoundText) > len(sorted[j].FoundText)
	})
	return sorted
}

// Targets returns the found texts in finding order for a binary highlighter
func Targets(findings []model.Finding) []string {
	targets := make([]string, len(findings))
	for i, f := range findings {
		targets[i] = f.FoundText
	}
	return targets
}
