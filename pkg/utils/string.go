package utils

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// Truncate cuts s to at most maxLen bytes without splitting a rune and
// appends "..." when anything was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// TruncateWidth cuts s to fit within width terminal columns. Han characters
// count as two columns.
func TruncateWidth(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

// PadWidth right-pads s with spaces to width terminal columns.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(s, width)
}
