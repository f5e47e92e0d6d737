package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentChars bounds the cleaned text of a single page.
	MaxContentChars = 3000
	truncatedMarker = " ...[truncated]..."
)

var (
	numberDumpPattern = regexp.MustCompile(`(?:\d+\s*){50,}`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanContents removes long numeric dumps, collapses whitespace and bounds
// the result to MaxContentChars characters.
func CleanContents(text string) string {
	if text == "" {
		return ""
	}
	text = numberDumpPattern.ReplaceAllString(text, " ")
	text = CollapseWhitespace(text)
	return Truncate(text, MaxContentChars)
}

// CollapseWhitespace replaces every whitespace run with a single space.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Truncate cuts text to max characters and appends a marker when it was cut.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + truncatedMarker
}

// TruncateBytes returns at most max bytes of data as text, never splitting a
// UTF-8 sequence.
func TruncateBytes(data []byte, max int) string {
	if max <= 0 || len(data) <= max {
		return string(data)
	}
	cut := data[:max]
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0; i++ {
		if r, size := utf8.DecodeLastRune(cut); r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return string(cut) + truncatedMarker
}
