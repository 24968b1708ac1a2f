package store

import (
	"regexp"
	"strings"
)

// tokenRegex matches Unicode letter/digit runs; everything else is a boundary.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// englishStopWords is the fixed stop-word set dropped during tokenization.
var englishStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "such": {},
	"that": {}, "the": {}, "their": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "was": {}, "will": {}, "with": {},
}

// Tokenize lowercases text, splits on non-alphanumeric boundaries
// (Unicode-aware) and drops stop words and tokens shorter than two runes.
// Deterministic and side-effect-free: the same input always yields the
// identical output.
func Tokenize(text string) []string {
	words := tokenRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		lower := strings.ToLower(word)
		if len([]rune(lower)) < 2 {
			continue
		}
		if _, stop := englishStopWords[lower]; stop {
			continue
		}
		tokens = append(tokens, lower)
	}
	return tokens
}

// TermFrequencies counts occurrences per term in a token stream.
func TermFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
