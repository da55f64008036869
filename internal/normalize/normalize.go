// Package normalize compares user-entered text the way the quiz scores it.
package normalize

import "strings"

// Text trims surrounding whitespace, lowercases, and normalizes line endings.
func Text(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Equal reports whether two answers match ignoring case and surrounding whitespace.
func Equal(a, b string) bool {
	return Text(a) == Text(b)
}
