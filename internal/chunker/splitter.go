// Package chunker splits plain text into sentence-aligned, overlapping chunks.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences splits text right after '.', '!' or '?' when whitespace follows.
// Fragments are trimmed and blank ones dropped. Abbreviations such as "Dr. Smith"
// are split too: this is a punctuation heuristic, not a tokenizer.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminal(r) {
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
		if i == end {
			continue
		}
		sentences = appendSentence(sentences, text[start:end])
		start = i
	}
	return appendSentence(sentences, text[start:])
}

// CountSentences returns len(SplitSentences(text)).
func CountSentences(text string) int {
	return len(SplitSentences(text))
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func appendSentence(sentences []string, fragment string) []string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return sentences
	}
	return append(sentences, fragment)
}
