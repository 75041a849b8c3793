package service

import (
	"math"
	"strings"
	"unicode/utf8"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// NormalizeEmbeddingText collapses newlines into spaces and trims the result.
// Embedding the same normalized text always sends the same request.
func NormalizeEmbeddingText(text string) string {
	return strings.TrimSpace(lineBreaks.Replace(text))
}

// stripQuotes removes surrounding double then single quotes.
func stripQuotes(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"`)
	text = strings.Trim(text, `'`)
	return strings.TrimSpace(text)
}

// unwrapQuotes removes one pair of matching quotes around text.
// Quotes inside or at only one end are kept.
func unwrapQuotes(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if first == last && (first == '"' || first == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	return text
}

// joinLines joins the non-empty lines of a comma list that the model
// wrapped or bulleted.
func joinLines(text string) string {
	var parts []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", "\n"), "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-*• ")
		line = strings.TrimRight(stripQuotes(strings.TrimRight(line, ",; ")), ",; ")
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, ", ")
}

// firstLine returns the first non-empty line of text.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// truncatePreview cuts text to max runes and appends "..." when it was longer.
func truncatePreview(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}

// truncateRunes cuts text to max runes without a suffix.
func truncateRunes(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max])
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
