package extract

import (
	"unicode"
	"unicode/utf8"
)

// SplitSentences splits text after '.', '!' or '?' when followed by
// whitespace. The whitespace run between sentences is dropped; everything
// else is kept verbatim, so abbreviations and decimals may split early.
func SplitSentences(text string) []string {
	var sentences []string
	emit := func(s string) {
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		end := i
		for i < len(text) {
			next, n := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(next) {
				break
			}
			i += n
		}
		if i > end {
			emit(text[start:end])
			start = i
		}
	}
	emit(text[start:])

	return sentences
}
