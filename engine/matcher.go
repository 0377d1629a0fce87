package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and trims surrounding space,
// so "Não" and "nao" compare equal.
func Normalize(s string) string {
	stripped, _, err := transform.String(stripAccents, s)
	if err != nil {
		stripped = s
	}
	return strings.TrimSpace(strings.ToLower(stripped))
}

// MatchAnswer compares a lead's free-text reply against a question's
// expected answers. The first candidate satisfying any rule wins:
// the user text contains the candidate, the candidate contains the
// whole user text, or at least two whitespace tokens overlap between
// the two sides.
func MatchAnswer(userText string, expected []string) (string, bool) {
	user := Normalize(userText)
	if user == "" {
		return "", false
	}

	for _, candidate := range expected {
		cand := Normalize(candidate)
		if cand == "" {
			continue
		}
		if strings.Contains(user, cand) || strings.Contains(cand, user) {
			return candidate, true
		}
		if tokenOverlap(user, cand) >= 2 {
			return candidate, true
		}
	}
	return "", false
}

// tokenOverlap counts user tokens that substring-match some candidate
// token in either direction.
func tokenOverlap(user, candidate string) int {
	userTokens := strings.Fields(user)
	candTokens := strings.Fields(candidate)

	count := 0
	for _, ut := range userTokens {
		for _, ct := range candTokens {
			if strings.Contains(ut, ct) || strings.Contains(ct, ut) {
				count++
				break
			}
		}
	}
	return count
}
