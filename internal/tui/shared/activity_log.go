package shared

import (
	"fmt"
	"strings"

	"github.com/joe/mod-loader/internal/lifecycle"
)

// RenderActivityLog renders the most recent maxEntries entries under title, oldest first.
// maxEntries <= 0 shows everything.
func RenderActivityLog(title string, entries []string, maxEntries int) string {
	var builder strings.Builder

	if trimmed := strings.TrimSpace(title); trimmed != "" {
		builder.WriteString(RenderLabel(trimmed))
		builder.WriteString("\n")
	}

	start := 0
	if maxEntries > 0 && maxEntries < len(entries) {
		start = len(entries) - maxEntries
	}

	for i := start; i < len(entries); i++ {
		builder.WriteString("  ")
		builder.WriteString(entries[i])

		if i < len(entries)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}

// DescribeEvent turns a lifecycle event into an activity log line.
func DescribeEvent(event lifecycle.Event) string {
	switch e := event.(type) {
	case lifecycle.InstallStarted:
		return "installing " + TruncatePath(e.Archive, activityPathWidth)
	case lifecycle.ModInstalled:
		return fmt.Sprintf("installed %s (%d files)", e.Record.ID, len(e.Record.Files))
	case lifecycle.ModEnabled:
		if e.Report != nil && len(e.Report.Skipped) > 0 {
			return fmt.Sprintf("enabled %s, %d file(s) skipped", e.ID, len(e.Report.Skipped))
		}

		return "enabled " + e.ID
	case lifecycle.ModDisabled:
		return "disabled " + e.ID
	case lifecycle.ModDeleted:
		return "deleted " + e.ID
	case lifecycle.FileSkipped:
		return fmt.Sprintf("skipped %s/%s: %v", e.ID, e.Path, e.Err)
	default:
		return ""
	}
}

// unexported constants.
const (
	activityPathWidth = 48
)
