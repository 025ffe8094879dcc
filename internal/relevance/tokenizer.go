// Package relevance implements the keyword-overlap heuristic that matches
// posts against a client's narrative profile. The scoring is a plain
// additive count, kept deliberately simple so a score can be explained to
// a client line by line.
package relevance

import "strings"

// stopwords is the fixed list of common English words excluded from
// keyword extraction. Matching is exact, no stemming.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "your": {}, "about": {}, "into": {}, "have": {}, "will": {},
	"just": {}, "when": {}, "they": {}, "them": {}, "their": {}, "what": {},
	"where": {}, "were": {}, "been": {}, "also": {}, "than": {}, "then": {},
	"you": {}, "our": {}, "are": {}, "not": {}, "but": {}, "can": {},
	"all": {}, "one": {}, "two": {}, "new": {}, "how": {},
}

// Tokenize lowercases text, collapses every non-alphanumeric character to
// whitespace, and returns the remaining tokens longer than three
// characters that are not stopwords. Order follows the input; duplicates
// are kept, since callers that need a set insert the tokens into one.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	var tokens []string
	for _, field := range strings.Fields(b.String()) {
		if len(field) <= 3 {
			continue
		}
		if _, skip := stopwords[field]; skip {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// KeywordSet tokenizes text and collapses the tokens into a set.
func KeywordSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
