package services

import (
	"regexp"
	"strings"

	"fatturamerge/internal/config"
	"fatturamerge/internal/models"
)

// titledNameWindow bounds how deep into the text the titled-name heuristic
// looks; letterheads sit at the top of the document.
const titledNameWindow = 2500

var (
	// "Intestatario:" with the name on the same line.
	reIntestatarioInline = regexp.MustCompile(`(?i)Intestatario:[ ]*([^\n]+)`)
	// "Intestatario:" with the name on the next line.
	reIntestatarioNextLine = regexp.MustCompile(`(?i)Intestatario:[ ]*\n[ ]*([^\n]+)`)
	// A courtesy title followed by one to five capitalized words. Longer
	// titles come first so "Dott.ssa" is not eaten by "Dott.".
	reTitledName = regexp.MustCompile(`(?:Dott\.ssa|Dott\.|Dr\.|Sig\.ra|Sig\.r|Spett\.le|Gent\.mo|Egr\.)[ ]+(\p{Lu}[\p{L}'’-]*(?:[ ]\p{Lu}[\p{L}'’-]*){0,4})`)
	// "Fattura N°: 25/02049" or "Fattura N: 25/02049".
	reInvoiceNumber = regexp.MustCompile(`(?i)Fattura[ ]+N[°º]?:[ ]*(\d{2}/\d{5})`)
)

// nameHeuristic is one rule in the addressee cascade. Rules run in order;
// the first candidate the sanitizer accepts wins.
type nameHeuristic struct {
	name  string
	apply func(text string) (string, bool)
}

var addresseeHeuristics = []nameHeuristic{
	{
		name: "intestatario-inline",
		apply: func(text string) (string, bool) {
			return firstSubmatch(reIntestatarioInline, text)
		},
	},
	{
		name: "intestatario-next-line",
		apply: func(text string) (string, bool) {
			return firstSubmatch(reIntestatarioNextLine, text)
		},
	},
	{
		name: "titled-name",
		apply: func(text string) (string, bool) {
			return firstSubmatch(reTitledName, truncateRunes(text, titledNameWindow))
		},
	},
}

func firstSubmatch(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// TraceEntry records one extraction attempt for diagnostics. The trace is
// logged, never returned to clients.
type TraceEntry struct {
	Heuristic string
	Fragment  string
	Accepted  bool
}

// Extractor derives addressee name and invoice reference from normalized
// document text. Extraction never fails; absent metadata is a normal outcome.
type Extractor struct {
	fallback config.ReferenceFallback
}

// NewExtractor creates an Extractor with the given reference fallback mode.
func NewExtractor(fallback config.ReferenceFallback) *Extractor {
	return &Extractor{fallback: fallback}
}

// Extract folds the addressee cascade over text, stopping at the first
// candidate the sanitizer accepts, and independently matches the invoice
// number. groupKey feeds the reference fallback.
func (e *Extractor) Extract(text, groupKey string) (models.ExtractedMetadata, []TraceEntry) {
	var meta models.ExtractedMetadata
	var trace []TraceEntry

	for _, h := range addresseeHeuristics {
		fragment, ok := h.apply(text)
		if !ok {
			continue
		}
		name, accepted := SanitizeCandidate(fragment)
		trace = append(trace, TraceEntry{Heuristic: h.name, Fragment: fragment, Accepted: accepted})
		if accepted {
			meta.AddresseeName = name
			break
		}
	}

	if m := reInvoiceNumber.FindStringSubmatch(text); m != nil {
		meta.ReferenceNumber = m[1]
		trace = append(trace, TraceEntry{Heuristic: "fattura-n", Fragment: m[0], Accepted: true})
	} else if e.fallback == config.ReferenceIdentifier {
		meta.ReferenceNumber = strings.ReplaceAll(groupKey, "-", "/")
	}

	return meta, trace
}
