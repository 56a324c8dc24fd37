// Package normalize canonicalizes the raw identifier strings carried on
// FMCSA records into the values the detection engine's feature extractor
// keys its inverted indices by. Every function here is total, deterministic,
// and never fails: a bad input normalizes to the empty string rather than
// erroring.
package normalize

import (
	"strings"
)

// suffixRewrites maps a lowercase address-component token to its canonical
// abbreviation. Lookups are by exact token, not prefix, so entry order
// doesn't matter.
var suffixRewrites = map[string]string{
	"street":    "st",
	"st.":       "st",
	"avenue":    "ave",
	"ave.":      "ave",
	"road":      "rd",
	"rd.":       "rd",
	"drive":     "dr",
	"dr.":       "dr",
	"lane":      "ln",
	"ln.":       "ln",
	"boulevard": "blvd",
	"blvd.":     "blvd",
	"court":     "ct",
	"ct.":       "ct",
	"circle":    "cir",
	"cir.":      "cir",
	"highway":   "hwy",
	"hwy.":      "hwy",
}

// Phone strips every non-digit character; fewer than 7 remaining digits
// yields no match, otherwise the last 10 digits are kept (so an 11-digit
// input with a leading country code collapses to the same value as its
// 10-digit form).
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 7 {
		return ""
	}
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// Fax and CellPhone normalize identically to Phone; kept as distinct names
// so call sites read as the feature they feed.
func Fax(raw string) string       { return Phone(raw) }
func CellPhone(raw string) string { return Phone(raw) }

// Address concatenates the non-empty components among street/city/state with
// " | " after lowercasing each, replacing ASCII punctuation with spaces,
// collapsing whitespace, and rewriting common street-suffix tokens to their
// abbreviation. A result of length <= 5 is discarded as too weak to link on.
func Address(street, city, state string) string {
	var parts []string
	for _, raw := range []string{street, city, state} {
		if norm := normalizeAddressComponent(raw); norm != "" {
			parts = append(parts, norm)
		}
	}
	joined := strings.Join(parts, " | ")
	if len(joined) <= 5 {
		return ""
	}
	return joined
}

func normalizeAddressComponent(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	for _, r := range lower {
		if isASCIIPunct(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	tokens := strings.Fields(b.String())
	for i, tok := range tokens {
		if rep, ok := suffixRewrites[tok]; ok {
			tokens[i] = rep
		}
	}
	return strings.Join(tokens, " ")
}

func isASCIIPunct(r rune) bool {
	return r >= '!' && r <= '/' ||
		r >= ':' && r <= '@' ||
		r >= '[' && r <= '`' ||
		r >= '{' && r <= '~'
}

// Officer uppercases the input, drops every character outside [A-Z ], and
// collapses whitespace. A result of length <= 3 is discarded.
func Officer(raw string) string {
	upper := strings.ToUpper(raw)
	var b strings.Builder
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	collapsed := strings.Join(strings.Fields(b.String()), " ")
	if len(collapsed) <= 3 {
		return ""
	}
	return collapsed
}

// VIN trims and uppercases raw; it participates in linking only once its
// normalized length is at least 5 — callers are expected to check length
// themselves (extraction treats a too-short VIN as absent), but VIN always
// returns the trimmed-uppercased value regardless so callers can inspect it.
func VIN(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// IsLinkableVIN reports whether v (already passed through VIN) is long
// enough to participate in the vin feature bucket.
func IsLinkableVIN(v string) bool {
	return len([]rune(v)) >= 5
}
