package filter_test

import (
	"testing"

	"github.com/joe/mod-loader/internal/filter"
)

func TestGlob_Matches(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		pattern    string
		candidates []string
		expected   bool
	}{
		{name: "empty matches all", pattern: "", candidates: []string{"anything"}, expected: true},
		{name: "plain text is substring", pattern: "cool", candidates: []string{"My Cool Mod"}, expected: true},
		{name: "case insensitive glob", pattern: "FOO*", candidates: []string{"foo_mod"}, expected: true},
		{name: "any candidate", pattern: "bar*", candidates: []string{"Foo", "bar_1"}, expected: true},
		{name: "no match", pattern: "zzz", candidates: []string{"Foo"}, expected: false},
		{name: "invalid pattern", pattern: "[", candidates: []string{"["}, expected: false},
		{name: "alternatives", pattern: "{a,b}*", candidates: []string{"beta"}, expected: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := filter.NewGlob(testCase.pattern).Matches(testCase.candidates...)
			if got != testCase.expected {
				t.Errorf("pattern %q on %v: expected %v, got %v",
					testCase.pattern, testCase.candidates, testCase.expected, got)
			}
		})
	}
}

func TestHasMeta(t *testing.T) {
	t.Parallel()

	for pattern, expected := range map[string]bool{
		"cool mod":   false,
		"*.pak":      true,
		"Scripts/**": true,
		"mod?":       true,
		"{a,b}":      true,
		"[ab]":       true,
	} {
		if got := filter.HasMeta(pattern); got != expected {
			t.Errorf("HasMeta(%q): expected %v, got %v", pattern, expected, got)
		}
	}
}
