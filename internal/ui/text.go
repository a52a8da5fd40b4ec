package ui

import (
	"strings"
	"unicode/utf8"
)

// DefaultTitleWidth bounds issue titles in plan listings.
const DefaultTitleWidth = 72

// TruncateSimple performs simple end truncation with "..." suffix.
// UTF-8 safe.
func TruncateSimple(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}

// OneLine collapses runs of whitespace, newlines included, into single
// spaces and truncates to maxLen runes.
func OneLine(text string, maxLen int) string {
	return TruncateSimple(strings.Join(strings.Fields(text), " "), maxLen)
}
