// Package slugify builds URL-safe slugs for users, terms and classes.
package slugify

import (
	"strings"
	"unicode"
)

// Make lowercases the input and collapses every run of non-alphanumeric
// characters into a single hyphen.
func Make(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
