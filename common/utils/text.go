package utils

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var htmlConverter = md.NewConverter("", true, nil)

// NormalizeDescription flattens a job description to plain text suitable for
// keyword matching. API responses frequently ship descriptions as embedded
// HTML; those are converted to markdown first so tag soup does not end up in
// the searchable text.
func NormalizeDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsRune(s, '<') {
		return s
	}
	converted, err := htmlConverter.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(converted)
}
