package normalize

import "strings"

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Query normalizes a free-text search term the same way so lookups
// behave identically regardless of how the client cased the input.
func Query(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
