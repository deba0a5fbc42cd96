package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nonAlnumPattern matches the separators collapsed by Normalize.
var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lowercases text, folds accents to their base letters, and replaces
// every run of non-alphanumeric characters with a single space. The result is
// trimmed. Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	folded := strings.ToLower(foldDiacritics(text))
	return strings.TrimSpace(nonAlnumPattern.ReplaceAllString(folded, " "))
}

// Tokens returns the normalized tokens of text in order, duplicates included.
func Tokens(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// TokenSet is an unordered set of normalized tokens.
type TokenSet map[string]struct{}

// NewTokenSet normalizes text and returns its unique tokens. Empty or
// whitespace-only input yields an empty set.
func NewTokenSet(text string) TokenSet {
	tokens := Tokens(text)
	set := make(TokenSet, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// Has reports whether token is a member of the set.
func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Overlap counts the tokens of s that are also present in other.
func (s TokenSet) Overlap(other TokenSet) int {
	count := 0
	for token := range s {
		if other.Has(token) {
			count++
		}
	}
	return count
}

func foldDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}
