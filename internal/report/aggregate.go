// Package report groups findings by clause for presentation.
package report

import (
	"sort"

	"github.com/ppiankov/clausescan/internal/model"
)

// Aggregate groups findings by clause.
//
// Groups appear in the order their clause was first seen and keep their
// findings in insertion order. With sortByPage set, findings inside each
// group are stable-sorted by page, but only when the document's findings
// come from more than one page.
func Aggregate(findings []model.Finding, sortByPage bool) []model.ClauseGroup {
	groups := make([]model.ClauseGroup, 0)
	index := make(map[string]int)

	for _, f := range findings {
		i, ok := index[f.Clause]
		if !ok {
			i = len(groups)
			index[f.Clause] = i
			groups = append(groups, model.ClauseGroup{Clause: f.Clause})
		}
		groups[i].Findings = append(groups[i].Findings, f)
	}

	if sortByPage && spansPages(findings) {
		for i := range groups {
			fs := groups[i].Findings
			sort.SliceStable(fs, func(a, b int) bool { return fs[a].Page < fs[b].Page })
		}
	}

	return groups
}

func spansPages(findings []model.Finding) bool {
	for i := 1; i < len(findings); i++ {
		if findings[i].Page != findings[0].Page {
			return true
		}
	}
	return false
}

// Count returns the total number of findings across groups
func Count(groups []model.ClauseGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Findings)
	}
	return n
}
