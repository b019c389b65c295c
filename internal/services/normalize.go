package services

import (
	"regexp"
	"strings"
)

var (
	// Horizontal whitespace runs, newlines excluded.
	reHSpace = regexp.MustCompile(`[^\S\n]+`)
	// Spaces left hanging around line breaks after the collapse pass.
	reSpacedNewline = regexp.MustCompile(` ?\n ?`)
	// Three or more consecutive newlines.
	reBlankRun = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText turns raw extracted PDF text into the predictable form the
// heuristics match against: CR/CRLF become LF, horizontal whitespace runs
// collapse to one space, runs of three or more newlines collapse to two, and
// the result is trimmed. Pure; empty input yields empty output.
func NormalizeText(raw string) string {
	if raw == "" {
		return ""
	}
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = reHSpace.ReplaceAllString(text, " ")
	text = reSpacedNewline.ReplaceAllString(text, "\n")
	text = reBlankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
