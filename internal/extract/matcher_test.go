package extract

import (
	"reflect"
	"testing"

	"github.com/ppiankov/clausescan/internal/catalog"
	"github.com/ppiankov/clausescan/internal/model"
)

var claimsControl = model.Catalog{
	{CanonicalName: "NMA 2738 Claims Control Clause", Keywords: []string{"claims"}},
}

func TestMatcher_ExactAndKeyword(t *testing.T) {
	text := "This policy has a NMA 2738 Claims Control Clause. Other claims may apply."

	got := NewMatcher().Match(model.SinglePage(text), claimsControl)

	want := []model.Finding{
		{
			Clause:    "NMA 2738 Claims Control Clause",
			FoundText: "NMA 2738 Claims Control Clause",
			Reason:    model.ExactMatch(),
			Page:      1,
		},
		{
			Clause:    "NMA 2738 Claims Control Clause",
			FoundText: "Other claims may apply.",
			Reason:    model.KeywordMatch("claims"),
			Page:      1,
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unexpected findings:\n got: %+v\nwant: %+v", got, want)
	}
}

func TestMatcher_CoveredSentenceKeptWhenSuppressionDisabled(t *testing.T) {
	text := "This policy has a NMA 2738 Claims Control Clause. Other claims may apply."

	got := NewMatcher(WithCoveredSentenceSuppression(false)).Match(model.SinglePage(text), claimsControl)

	if len(got) != 3 {
		t.Fatalf("Expected 3 findings, got %d: %+v", len(got), got)
	}
	if got[1].FoundText != "This policy has a NMA 2738 Claims Control Clause." {
		t.Errorf("Expected covering sentence second, got %q", got[1].FoundText)
	}
	if got[1].Reason.Kind != model.ReasonKeywordMatch {
		t.Errorf("Expected keyword reason, got %v", got[1].Reason)
	}
}

func TestMatcher_WordBoundary(t *testing.T) {
	got := NewMatcher().Match(model.SinglePage("The insurer disclaims liability."), claimsControl)
	if len(got) != 0 {
		t.Errorf("Expected no findings, got %+v", got)
	}
}

func TestMatcher_ExactMatchPreservesCasing(t *testing.T) {
	text := "see nma 2738 claims control clause here and NMA 2738 CLAIMS CONTROL CLAUSE there"

	got := NewMatcher().Match(model.SinglePage(text), claimsControl)

	if len(got) != 1 {
		t.Fatalf("Expected 1 finding after de-duplication, got %d: %+v", len(got), got)
	}
	if got[0].FoundText != "nma 2738 claims control clause" {
		t.Errorf("Expected first casing to win, got %q", got[0].FoundText)
	}
}

func TestMatcher_LocalizedName(t *testing.T) {
	text := "Poliçede Total Asbest İstisnası Klozu bulunmaktadır."

	got := NewMatcher().Match(model.SinglePage(text), catalog.Default())

	if len(got) != 1 {
		t.Fatalf("Expected 1 finding, got %d: %+v", len(got), got)
	}
	if got[0].FoundText != "Total Asbest İstisnası Klozu" {
		t.Errorf("Unexpected found text %q", got[0].FoundText)
	}
	if got[0].Clause != "Total Asbestos Exclusion Clause" {
		t.Errorf("Expected canonical clause name, got %q", got[0].Clause)
	}
}

func TestMatcher_KeywordOrderDecidesReason(t *testing.T) {
	got := NewMatcher().Match(model.SinglePage("Bir siber saldırı oldu."), catalog.Default())

	if len(got) != 1 {
		t.Fatalf("Expected 1 finding, got %d: %+v", len(got), got)
	}
	if got[0].Reason != model.KeywordMatch("siber") {
		t.Errorf("Expected first matching keyword 'siber', got %v", got[0].Reason)
	}
}

func TestMatcher_FirstClauseWinsSharedSentence(t *testing.T) {
	got := NewMatcher().Match(model.SinglePage("The pandemic embargo applies."), catalog.Default())

	if len(got) != 1 {
		t.Fatalf("Expected 1 finding, got %d: %+v", len(got), got)
	}
	if got[0].Clause != "LMA5394 Communicable Disease Exclusion" {
		t.Errorf("Expected earlier catalog clause to win, got %q", got[0].Clause)
	}
}

func TestMatcher_PageAttribution(t *testing.T) {
	pages := []model.PageText{
		{Number: 1, Content: "Other claims may apply."},
		{Number: 2, Content: "Other claims may apply."},
	}

	got := NewMatcher().Match(pages, claimsControl)

	if len(got) != 2 {
		t.Fatalf("Expected one finding per page, got %d", len(got))
	}
	if got[0].Page != 1 || got[1].Page != 2 {
		t.Errorf("Unexpected pages: %d, %d", got[0].Page, got[1].Page)
	}
}

func TestMatcher_CatalogOrder(t *testing.T) {
	cat := model.Catalog{
		{CanonicalName: "Alpha Clause"},
		{CanonicalName: "Beta Clause"},
	}
	text := "Beta Clause comes first in the text, Alpha Clause second."

	got := NewMatcher().Match(model.SinglePage(text), cat)

	if len(got) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(got))
	}
	if got[0].Clause != "Alpha Clause" || got[1].Clause != "Beta Clause" {
		t.Errorf("Expected catalog order, got %q then %q", got[0].Clause, got[1].Clause)
	}
}

func TestMatcher_PositionOrderWithinKeyword(t *testing.T) {
	text := "First claims sentence. Unrelated. Second claims sentence."

	got := NewMatcher().Match(model.SinglePage(text), claimsControl)

	if len(got) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(got))
	}
	if got[0].FoundText != "First claims sentence." || got[1].FoundText != "Second claims sentence." {
		t.Errorf("Unexpected order: %q, %q", got[0].FoundText, got[1].FoundText)
	}
}

func TestMatcher_SkipsEmptyConfigEntries(t *testing.T) {
	cat := model.Catalog{
		{CanonicalName: "X Clause", LocalizedName: "", Keywords: []string{"", "  ", "foo"}},
	}

	got := NewMatcher().Match(model.SinglePage("foo bar."), cat)

	if len(got) != 1 || got[0].Reason != model.KeywordMatch("foo") {
		t.Errorf("Expected single foo finding, got %+v", got)
	}
}

func TestMatcher_EmptyDocument(t *testing.T) {
	m := NewMatcher()

	if got := m.Match(nil, catalog.Default()); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil findings, got %#v", got)
	}
	if got := m.Match(model.SinglePage("   "), catalog.Default()); len(got) != 0 {
		t.Errorf("Expected no findings for blank page, got %+v", got)
	}
}

func TestMatcher_DefaultsPageToOne(t *testing.T) {
	got := NewMatcher().Match([]model.PageText{{Content: "Other claims may apply."}}, claimsControl)
	if len(got) != 1 || got[0].Page != 1 {
		t.Errorf("Expected page 1, got %+v", got)
	}
}

func TestMatcher_UniqueKeysAndDeterminism(t *testing.T) {
	texts := []string{
		"Cyber attack! A cyber attack happened. CL380 Institute Cyber Attack Exclusion applies. cyber attack!",
		"Pandemic. pandemic. PANDEMIC. Salgın durumunda bulaşıcı hastalık istisnası.",
		"Embargo and sanction. Embargo and sanction. The LMA3100 clause limits claims.",
	}
	m := NewMatcher(WithCoveredSentenceSuppression(false))

	for _, text := range texts {
		pages := []model.PageText{{Number: 1, Content: text}, {Number: 2, Content: text}}
		first := m.Match(pages, catalog.Default())
		second := m.Match(pages, catalog.Default())

		if !reflect.DeepEqual(first, second) {
			t.Errorf("Expected deterministic output for %q", text)
		}

		seen := make(map[model.FindingKey]bool)
		for _, f := range first {
			if seen[f.Key()] {
				t.Errorf("Duplicate finding key %+v", f.Key())
			}
			seen[f.Key()] = true
		}
	}
}

func TestMatcher_UppercaseTurkish(t *testing.T) {
	const (
		sanctions = "LMA3100 Sanction Limitation and Exclusion Clause"
		disease   = "LMA5394 Communicable Disease Exclusion"
	)
	heading := "LMA3100 YAPTIRIM SINIRLAMA VE İSTİSNA KLOZU uygulanır."
	outbreak := "SALGIN durumunda teminat yoktur."

	tests := []struct {
		name     string
		text     string
		suppress bool
		want     []model.Finding
	}{
		{
			name:     "localized name and keyword",
			text:     heading + " " + outbreak,
			suppress: true,
			want: []model.Finding{
				{Clause: disease, FoundText: outbreak, Reason: model.KeywordMatch("salgın"), Page: 1},
				{Clause: sanctions, FoundText: "LMA3100 YAPTIRIM SINIRLAMA VE İSTİSNA KLOZU", Reason: model.ExactMatch(), Page: 1},
			},
		},
		{
			name:     "heading sentence kept without suppression",
			text:     heading + " " + outbreak,
			suppress: false,
			want: []model.Finding{
				{Clause: disease, FoundText: outbreak, Reason: model.KeywordMatch("salgın"), Page: 1},
				{Clause: sanctions, FoundText: "LMA3100 YAPTIRIM SINIRLAMA VE İSTİSNA KLOZU", Reason: model.ExactMatch(), Page: 1},
				{Clause: sanctions, FoundText: heading, Reason: model.KeywordMatch("yaptırım"), Page: 1},
			},
		},
		{
			name:     "dotted capital in keyword",
			text:     "BULAŞICI HASTALIK nedeniyle iptal.",
			suppress: true,
			want: []model.Finding{
				{Clause: disease, FoundText: "BULAŞICI HASTALIK nedeniyle iptal.", Reason: model.KeywordMatch("bulaşıcı hastalık"), Page: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(WithCoveredSentenceSuppression(tt.suppress))
			got := m.Match(model.SinglePage(tt.text), catalog.Default())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unexpected findings:\n got: %+v\nwant: %+v", got, tt.want)
			}
		})
	}
}
