// Package extract turns page text into clause findings.
package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/clausescan/internal/model"
)

// Matcher finds clause names and keyword sentences in page text
type Matcher struct {
	suppressCovered bool
}

// MatcherOption configures a Matcher
type MatcherOption func(*Matcher)

// WithCoveredSentenceSuppression controls whether a keyword sentence is
// dropped when it already contains one of the same clause's names on the
// same page. Enabled by default.
func WithCoveredSentenceSuppression(enabled bool) MatcherOption {
	return func(m *Matcher) { m.suppressCovered = enabled }
}

// NewMatcher creates a new matcher
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{suppressCovered: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// clausePatterns holds the compiled patterns of one clause definition
type clausePatterns struct {
	def      model.ClauseDefinition
	names    []*regexp.Regexp
	keywords []keywordPattern
}

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

func compileCatalog(catalog model.Catalog) []clausePatterns {
	compiled := make([]clausePatterns, 0, len(catalog))
	for _, def := range catalog {
		cp := clausePatterns{def: def}
		for _, name := range def.NameVariants() {
			if strings.TrimSpace(name) == "" {
				continue
			}
			cp.names = append(cp.names, FoldPattern(name))
		}
		for _, kw := range def.Keywords {
			if strings.TrimSpace(kw) == "" {
				continue
			}
			cp.keywords = append(cp.keywords, keywordPattern{keyword: kw, re: FoldPattern(kw)})
		}
		compiled = append(compiled, cp)
	}
	return compiled
}

// Match scans pages for every clause in catalog order and returns
// de-duplicated findings ordered by page, clause, name/keyword, then position.
// The first finding for a (lowercased trimmed text, page) pair wins.
func (m *Matcher) Match(pages []model.PageText, catalog model.Catalog) []model.Finding {
	findings := make([]model.Finding, 0)
	seen := make(map[model.FindingKey]bool)

	add := func(f model.Finding) {
		key := f.Key()
		if key.Text == "" || seen[key] {
			return
		}
		seen[key] = true
		findings = append(findings, f)
	}

	compiled := compileCatalog(catalog)

	for _, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}
		pageNum := page.Number
		if pageNum < 1 {
			pageNum = 1
		}

		sentences := SplitSentences(page.Content)

		for _, cp := range compiled {
			// 1. Exact clause names
			for _, re := range cp.names {
				for _, loc := range re.FindAllStringIndex(page.Content, -1) {
					add(model.Finding{
						Clause:    cp.def.CanonicalName,
						FoundText: strings.TrimSpace(page.Content[loc[0]:loc[1]]),
						Reason:    model.ExactMatch(),
						Page:      pageNum,
					})
				}
			}

			// 2. Keyword sentences
			for _, kw := range cp.keywords {
				for _, sentence := range sentences {
					if !containsWord(kw.re, sentence) {
						continue
					}
					if m.suppressCovered && coversName(cp.names, sentence) {
						continue
					}
					add(model.Finding{
						Clause:    cp.def.CanonicalName,
						FoundText: strings.TrimSpace(sentence),
						Reason:    model.KeywordMatch(kw.keyword),
						Page:      pageNum,
					})
				}
			}
		}
	}

	return findings
}

// coversName reports whether sentence contains one of the clause's names
func coversName(names []*regexp.Regexp, sentence string) bool {
	for _, re := range names {
		if re.MatchString(sentence) {
			return true
		}
	}
	return false
}
