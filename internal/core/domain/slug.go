package domain

import (
	"strings"
	"unicode"
)

// =============================================================================
// Slug Generation
// =============================================================================

// Slugify reduces a name to a cloud-resource-safe slug. ASCII letters are
// lowercased and digits and hyphens pass through unchanged; spaces become
// hyphens and every other character is dropped.
//
// Example:
//
//	Slugify("Hello World")  // returns "hello-world"
//	Slugify("My App 2.0!")  // returns "my-app-20"
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}
