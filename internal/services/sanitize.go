package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reIllegalChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	reInnerSpace   = regexp.MustCompile(`\s+`)
	// A bare reference number rather than a name.
	reNumericOnly = regexp.MustCompile(`^[0-9 ./-]+$`)
	// Boilerplate that follows an over-captured name. Each stop word must be
	// preceded by a space to count.
	reStopWord = buildStopWordPattern()
)

// Trailing boilerplate markers observed after addressee names on invoices.
var nameStopWords = []string{
	"fattura", "data", "del", "competenza", "codice", "p.iva",
	"partita", "email", "telefono", "indirizzo", "via", "pagina",
}

func buildStopWordPattern() *regexp.Regexp {
	quoted := make([]string, len(nameStopWords))
	for i, w := range nameStopWords {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i) (?:` + strings.Join(quoted, "|") + `)\b`)
}

// SanitizeFilename strips filesystem-illegal characters, collapses internal
// whitespace, and trims. Used both for name candidates and final filenames.
func SanitizeFilename(s string) string {
	s = reIllegalChars.ReplaceAllString(s, "")
	s = reInnerSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SanitizeCandidate validates and trims a raw text match into an acceptable
// display name. It returns false when the candidate is rejected: shorter than
// four characters after cleaning, or consisting solely of digits, spaces,
// slashes, dots, and hyphens. Pure function of its input.
func SanitizeCandidate(raw string) (string, bool) {
	s := SanitizeFilename(raw)

	if loc := reStopWord.FindStringIndex(s); loc != nil {
		s = strings.TrimSpace(s[:loc[0]])
	}

	if utf8.RuneCountInString(s) < 4 {
		return "", false
	}
	if reNumericOnly.MatchString(s) {
		return "", false
	}
	return s, true
}
