package model

import (
	"fmt"
	"strings"
)

// ReasonKind tells how a finding was detected
type ReasonKind string

const (
	ReasonExactMatch   ReasonKind = "exact_match"   // Literal clause name occurrence
	ReasonKeywordMatch ReasonKind = "keyword_match" // Sentence containing a clause keyword
)

// Reason explains why a finding was reported
type Reason struct {
	Kind    ReasonKind `json:"kind"`
	Keyword string     `json:"keyword,omitempty"` // Set for keyword matches only
}

// ExactMatch returns the reason for a literal clause name occurrence
func ExactMatch() Reason {
	return Reason{Kind: ReasonExactMatch}
}

// KeywordMatch returns the reason for a keyword hit
func KeywordMatch(keyword string) Reason {
	return Reason{Kind: ReasonKeywordMatch, Keyword: keyword}
}

func (r Reason) String() string {
	switch r.Kind {
	case ReasonExactMatch:
		return "exact match found"
	case ReasonKeywordMatch:
		return fmt.Sprintf("related keyword: '%s'", r.Keyword)
	default:
		return string(r.Kind)
	}
}

// Finding is one detected occurrence of a clause or a related keyword
type Finding struct {
	Clause    string `json:"clause"`     // Canonical clause name
	FoundText string `json:"found_text"` // Matched clause name or the whole sentence
	Reason    Reason `json:"reason"`
	Page      int    `json:"page"` // 1-based; 1 when pagination is unavailable
}

// Key returns the de-duplication key of the finding
func (f Finding) Key() FindingKey {
	return NewFindingKey(f.FoundText, f.Page)
}

// FindingKey identifies a finding within one run
type FindingKey struct {
	Text string
	Page int
}

// NewFindingKey normalizes text (trim + lowercase) into a key
func NewFindingKey(text string, page int) FindingKey {
	if page < 1 {
		page = 1
	}
	return FindingKey{Text: strings.ToLower(strings.TrimSpace(text)), Page: page}
}

// ClauseGroup holds the findings for one clause, in discovery order
type ClauseGroup struct {
	Clause   string    `json:"clause"`
	Findings []Finding `json:"findings"`
}
