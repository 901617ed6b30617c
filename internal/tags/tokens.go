package tags

import (
	"strings"
	"unicode"
)

// minTokenLen is the shortest title token worth keeping. Matches the
// behavior for short/empty titles: they simply contribute nothing.
const minTokenLen = 3

// WordFilter is a word-class filter (the noun/verb/adjective check).
// Part-of-speech tagging is an external concern; the default filter
// accepts everything the other filters pass.
type WordFilter func(word string) bool

// AcceptAllWords is the default WordFilter.
func AcceptAllWords(string) bool { return true }

// normalizeWord lower-cases and trims a word.
func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// TitleTokens extracts keyword candidates from a page title: lower-cased,
// alphabetic-only runs, at least minTokenLen long, not stop-words, and
// passing the word-class filter. Order of first appearance is preserved and
// duplicates are kept (the extractor counts occurrences).
func TitleTokens(title string, stop *Stopwords, filter WordFilter) []string {
	if title == "" {
		return nil
	}
	if filter == nil {
		filter = AcceptAllWords
	}

	var tokens []string
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, f := range fields {
		if len(f) < minTokenLen {
			continue
		}
		if stop != nil && stop.Contains(f) {
			continue
		}
		if !filter(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// QueryTokens tokenizes a free-text search query: whitespace split,
// lower-cased. No stop-word filtering; the user typed it on purpose.
func QueryTokens(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}
