package domain

import (
	"regexp"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases s, strips punctuation and collapses whitespace.
// "Dell XPS-13, Laptop!" -> "dell xps 13 laptop"
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, " ")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// Tokens splits normalized text into words
func Tokens(s string) []string {
	return strings.Fields(NormalizeText(s))
}

// DedupKey identifies the same physical product across sources
func DedupKey(p Product) string {
	return NormalizeText(p.Title) + "|" + strings.ToLower(strings.TrimSpace(p.Brand))
}
