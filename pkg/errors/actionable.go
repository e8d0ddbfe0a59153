// Package errors attaches a category and remediation suggestions to failures so the CLI and
// TUI can tell the user what to do next.
//
// Domain packages create ActionableErrors directly when they know the remedy (an archive
// format with no extractor, a mod whose storage folder vanished). Everything else passes
// through an Enricher at display time:
//
//	enricher := errors.NewEnricher()
//	enricher.Register(lifecycle.ErrMissingSource, errors.CategoryMissingSource)
//	shown := enricher.Enrich(err, "")
//	fmt.Println(shown.Error())
//	fmt.Println(errors.FormatSuggestions(shown))
//
// The cause stays reachable through Unwrap, so errors.Is checks against domain sentinels
// keep working after enrichment.
package errors

import (
	"errors"
	"strings"
)

// Exported constants.
const (
	CategoryArchive       ErrorCategory = "archive"
	CategoryDiskSpace     ErrorCategory = "disk_space"
	CategoryMissingSource ErrorCategory = "missing_source"
	CategoryNoContent     ErrorCategory = "no_content"
	CategoryPath          ErrorCategory = "path"
	CategoryPermission    ErrorCategory = "permission"
	CategoryRegistry      ErrorCategory = "registry"
	CategoryUnknown       ErrorCategory = "unknown"
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	Unwrap() error
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// ErrorCategory represents the type of error that occurred.
type ErrorCategory string

// FormatSuggestions formats the suggestions from an ActionableError as a bulleted list.
// Returns empty string if the error is nil or carries no suggestions.
func FormatSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var actionable ActionableError
	if !errors.As(err, &actionable) {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

// Wrap annotates cause with a category, the path it concerns, and suggestions.
func Wrap(cause error, category ErrorCategory, affectedPath string, suggestions ...string) ActionableError {
	return &actionableError{
		cause:        cause,
		category:     category,
		suggestions:  suggestions,
		affectedPath: affectedPath,
	}
}

// actionableError is the concrete implementation of ActionableError.
type actionableError struct {
	cause        error
	category     ErrorCategory
	suggestions  []string
	affectedPath string
}

// AffectedPath returns the file path affected by this error.
func (e *actionableError) AffectedPath() string {
	return e.affectedPath
}

// Category returns the error category.
func (e *actionableError) Category() ErrorCategory {
	return e.category
}

// Error implements the error interface.
func (e *actionableError) Error() string {
	if e.cause == nil {
		return string(e.category)
	}

	return e.cause.Error()
}

// Suggestions returns the list of actionable suggestions.
func (e *actionableError) Suggestions() []string {
	return e.suggestions
}

// Unwrap returns the underlying cause.
func (e *actionableError) Unwrap() error {
	return e.cause
}
