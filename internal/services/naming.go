package services

import (
	"fmt"
	"strings"

	"fatturamerge/internal/config"
	"fatturamerge/internal/models"
)

// BuildBaseName constructs the output base name (no extension) for a group.
// Composite mode prefers identifier + reference + name, then identifier +
// name, then the bare identifier. Legacy mode uses the addressee name alone
// when one was extracted. References render their slash as a hyphen before
// the shared filesystem sanitization.
func BuildBaseName(key string, meta models.ExtractedMetadata, mode config.NamingMode) string {
	name := meta.AddresseeName
	ref := strings.ReplaceAll(meta.ReferenceNumber, "/", "-")

	var base string
	switch {
	case mode == config.NamingLegacy && name != "":
		base = name
	case name != "" && ref != "":
		base = key + "_" + ref + "_" + name
	case name != "":
		base = key + "_" + name
	default:
		base = key
	}
	return SanitizeFilename(base)
}

// ResolveCollisions maps base names to final unique filenames in one pass.
// The first claimant keeps "base.pdf"; later duplicates get "_2", "_3", …
// suffixes. Input order is preserved.
func ResolveCollisions(bases []string) []string {
	taken := make(map[string]struct{}, len(bases))
	out := make([]string, len(bases))
	for i, base := range bases {
		name := base + ".pdf"
		if _, dup := taken[name]; dup {
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s_%d.pdf", base, n)
				if _, dup := taken[candidate]; !dup {
					name = candidate
					break
				}
			}
		}
		taken[name] = struct{}{}
		out[i] = name
	}
	return out
}
