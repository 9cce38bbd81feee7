package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// dottedClass matches every Turkish and Latin form of the letter i.
// (?i) only applies simple folding, which keeps ı/I and i/İ apart.
const dottedClass = "[iıIİ]"

// FoldPattern compiles a case-insensitive literal pattern in which i, ı, I
// and İ are interchangeable, so "SALGIN" matches "salgın"
func FoldPattern(literal string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)")
	for _, r := range literal {
		switch r {
		case 'i', 'ı', 'I', 'İ':
			b.WriteString(dottedClass)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return regexp.MustCompile(b.String())
}

// containsWord reports whether re matches s at word boundaries on both ends.
// Go's \b only knows ASCII, so boundaries are checked here against Unicode
// letters, digits, marks and '_' (e.g. "sınırlama" and "claims").
func containsWord(re *regexp.Regexp, s string) bool {
	for offset := 0; offset <= len(s); {
		loc := re.FindStringIndex(s[offset:])
		if loc == nil {
			return false
		}
		start, end := offset+loc[0], offset+loc[1]
		if start == end {
			return false
		}
		if isWordBoundary(s, start) && isWordBoundary(s, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return false
}

// isWordBoundary mirrors \b: exactly one side of position i is a word rune
func isWordBoundary(s string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:i])
		before = isWordRune(r)
	}
	if i < len(s) {
		r, _ := utf8.DecodeRuneInString(s[i:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
