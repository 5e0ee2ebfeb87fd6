// Package similarity ranks candidate taxonomy concepts against a
// target concept using textual, structural, and proximity signals.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultSynonyms canonicalizes domain vocabulary before scoring so
// that e.g. "sales" and "turnover" land on the same token as
// "revenue".
var DefaultSynonyms = map[string]string{
	"sales":    "revenue",
	"turnover": "revenue",
}

// Normalizer folds label/definition text into a comparable token
// stream: NFKD fold, lowercase, punctuation stripped, stop-words
// removed, synonyms mapped to their canonical token.
type Normalizer struct {
	stops    map[string]struct{}
	synonyms map[string]string
}

// NewNormalizer builds a Normalizer with the standard English
// stop-list and the given synonym map (nil means DefaultSynonyms).
func NewNormalizer(synonyms map[string]string) *Normalizer {
	if synonyms == nil {
		synonyms = DefaultSynonyms
	}
	stops := make(map[string]struct{}, len(englishStopWords))
	for _, w := range englishStopWords {
		stops[w] = struct{}{}
	}
	return &Normalizer{stops: stops, synonyms: synonyms}
}

// Normalize returns the cleaned text as a single space-joined string.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Tokens returns the cleaned token list for the text.
func (n *Normalizer) Tokens(text string) []string {
	folded := norm.NFKD.String(text)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsMark(r):
			// Combining marks from NFKD decomposition are dropped.
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		if _, stop := n.stops[w]; stop {
			continue
		}
		if canon, ok := n.synonyms[w]; ok {
			w = canon
		}
		out = append(out, w)
	}
	return out
}
