package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joe/mod-loader/pkg/errors"
)

// Exported constants.
const (
	// FailureLimit is how many failures a batch summary lists before collapsing the rest
	FailureLimit = 5
)

// RenderErrorDetail renders err with its remediation suggestions, one per line.
func RenderErrorDetail(enricher errors.Enricher, err error, affectedPath string) string {
	if err == nil {
		return ""
	}

	enriched := enricher.Enrich(err, affectedPath)

	var builder strings.Builder

	fmt.Fprintf(&builder, "%s %s", ErrorSymbol(), RenderError(enriched.Error()))

	if suggestions := errors.FormatSuggestions(enriched); suggestions != "" {
		builder.WriteString("\n")
		builder.WriteString(RenderDim(suggestions))
	}

	return builder.String()
}

// RenderFailures renders per-mod failures sorted by id, up to FailureLimit of them.
func RenderFailures(enricher errors.Enricher, failures map[string]error) string {
	if len(failures) == 0 {
		return ""
	}

	ids := make([]string, 0, len(failures))
	for id := range failures {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	var builder strings.Builder

	for i, id := range ids {
		if i >= FailureLimit {
			fmt.Fprintf(&builder, "... and %d more error(s)\n", len(ids)-FailureLimit)

			break
		}

		fmt.Fprintf(&builder, "%s %s\n", RenderLabel(id), RenderErrorDetail(enricher, failures[id], ""))
	}

	return strings.TrimRight(builder.String(), "\n")
}
