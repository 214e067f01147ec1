// Package defects turns raw per-image defect descriptions into a minimal,
// severity-consistent set. Every function here is pure and safe for
// concurrent use.
package defects

import (
	"regexp"
	"strings"
)

const (
	unitAlternation = `(?:mm|cm|m|inches|inch|in)`
	number          = `\d+(?:[.,]\d+)?`
	term            = number + `(?:\s*` + unitAlternation + `)?`

	// RE2 has no lookbehind, so the character before a match is captured
	// and written back. A digit, dot or comma there means we are inside a
	// number.
	leadIn = `(^|[^\d.,])`
	// A lone "x" left after a measurement, as in "gap 10mm x".
	danglingSeparator = `(?:\s*[x×](?:\s|$))?`
)

var (
	// Any chain of <number>[unit] joined by x, e.g. "10 x 20mm",
	// "3cm×4cm", "5 x 3 x 2mm".
	dimensionPattern = regexp.MustCompile(
		`(?i)` + leadIn + term + `(?:\s*[x×]\s*` + term + `)+\b` + danglingSeparator,
	)
	measurementPattern = regexp.MustCompile(
		`(?i)` + leadIn + number + `\s*` + unitAlternation + `\b` + danglingSeparator,
	)
	trailingDash = regexp.MustCompile(`\s*[-–—]$`)
)

// Normalize strips measurement tokens and dimension pairs, collapses
// whitespace and drops a dangling trailing dash. It repeats until the text
// stops changing, so Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	current := text
	for {
		next := normalizeStep(current)
		if next == current {
			return next
		}
		current = next
	}
}

func normalizeStep(text string) string {
	out := dimensionPattern.ReplaceAllString(text, "${1} ")
	out = measurementPattern.ReplaceAllString(out, "${1} ")
	out = strings.Join(strings.Fields(out), " ")
	out = trailingDash.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// DedupeExact removes exact repeats, keeping the first occurrence.
func DedupeExact(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
