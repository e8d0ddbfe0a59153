// Package filter matches mod names and ids against search patterns.
package filter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob matches names against a case-insensitive doublestar pattern.
// A pattern without glob metacharacters matches as a substring.
type Glob struct {
	normalizedPattern string
	isEmpty           bool
}

// NewGlob creates a Glob for pattern. Empty pattern matches everything.
func NewGlob(pattern string) *Glob {
	normalized := strings.ToLower(strings.TrimSpace(pattern))
	if normalized != "" && !HasMeta(normalized) {
		normalized = "*" + normalized + "*"
	}

	return &Glob{
		normalizedPattern: normalized,
		isEmpty:           normalized == "",
	}
}

// HasMeta reports whether pattern uses glob syntax rather than plain text.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Matches reports whether any of the candidates match the pattern.
func (f *Glob) Matches(candidates ...string) bool {
	if f.isEmpty {
		return true
	}

	for _, candidate := range candidates {
		matched, err := doublestar.Match(f.normalizedPattern, strings.ToLower(candidate))
		if err == nil && matched {
			return true
		}
	}

	return false
}
