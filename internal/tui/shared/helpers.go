package shared

import (
	"strings"
	"time"
)

// unexported constants.
const (
	ellipsis = "..."
)

// FormatInstalledAt renders an install time in local time, or "unknown" for records
// written before install times were kept.
func FormatInstalledAt(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	return t.Local().Format("2006-01-02 15:04")
}

// TruncatePath shortens path to width runes by eliding its start, keeping the file name.
func TruncatePath(path string, width int) string {
	runes := []rune(path)
	if width <= 0 || len(runes) <= width {
		return path
	}

	if width <= len(ellipsis) {
		return string(runes[len(runes)-width:])
	}

	return ellipsis + string(runes[len(runes)-(width-len(ellipsis)):])
}

// JoinLines joins the non-empty parts with newlines.
func JoinLines(parts ...string) string {
	kept := make([]string, 0, len(parts))

	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}

	return strings.Join(kept, "\n")
}
