package errors

import (
	"errors"
	"io/fs"
	"regexp"
	"strings"
)

// Enricher enriches standard errors with actionable suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
	Register(sentinel error, category ErrorCategory)
}

// NewEnricher creates a new Enricher with default pattern matcher and suggestion generator.
// fs.ErrPermission and fs.ErrNotExist are pre-registered.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
		sentinels: []sentinelRule{
			{fs.ErrPermission, CategoryPermission},
			{fs.ErrNotExist, CategoryPath},
		},
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled regexes shared across all enricher instances
	pathExtractionPatterns = []*regexp.Regexp{
		// Unix/Linux paths (absolute and relative)
		regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
		// Windows paths with backslashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:\\[^\s:]+):`),
		// Windows paths with forward slashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:/[^\s:]+):`),
	}
)

type sentinelRule struct {
	sentinel error
	category ErrorCategory
}

// enricher is the concrete implementation of Enricher.
type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
	sentinels []sentinelRule
}

// Enrich returns err annotated with a category and suggestions. Errors that are already
// actionable are returned unchanged. Registered sentinels win over message patterns, and the
// most recently registered sentinel is checked first.
func (e *enricher) Enrich(err error, affectedPath string) error {
	if err == nil {
		return nil
	}

	var actionableErr ActionableError
	if errors.As(err, &actionableErr) {
		return actionableErr
	}

	errMsg := err.Error()

	if affectedPath == "" {
		affectedPath = extractPath(errMsg)
	}

	category := e.categorize(err)

	return Wrap(err, category, affectedPath, e.generator.Generate(category, affectedPath)...)
}

// Register maps a sentinel error (matched with errors.Is) to a category.
func (e *enricher) Register(sentinel error, category ErrorCategory) {
	e.sentinels = append(e.sentinels, sentinelRule{sentinel: sentinel, category: category})
}

func (e *enricher) categorize(err error) ErrorCategory {
	for i := len(e.sentinels) - 1; i >= 0; i-- {
		if errors.Is(err, e.sentinels[i].sentinel) {
			return e.sentinels[i].category
		}
	}

	return e.matcher.Match(err.Error())
}

// extractPath pulls a path out of messages shaped like "open /path/to/file: reason".
// Returns empty string if no path is found.
func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			path := strings.TrimSpace(matches[1])
			if path != "" {
				return path
			}
		}
	}

	return ""
}
