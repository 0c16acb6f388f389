package shared

import (
	"strings"
)

// ActivityLog keeps the most recent entries for display.
type ActivityLog struct {
	entries []string
	limit   int
}

// NewActivityLog creates a log holding at most limit entries.
func NewActivityLog(limit int) ActivityLog {
	return ActivityLog{limit: limit}
}

// Add appends entry, dropping the oldest past the limit.
func (l ActivityLog) Add(entry string) ActivityLog {
	l.entries = append(l.entries, entry)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = append([]string(nil), l.entries[len(l.entries)-l.limit:]...)
	}

	return l
}

// Entries returns the entries, oldest first.
func (l ActivityLog) Entries() []string {
	return l.entries
}

// RenderActivityLog renders a chronological activity log with optional title.
// If maxEntries > 0, limits display to the most recent N entries.
func RenderActivityLog(title string, entries []string, maxEntries int) string {
	var builder strings.Builder

	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle != "" {
		builder.WriteString(RenderLabel(trimmedTitle))
		builder.WriteString("\n")

		if len(entries) > 0 {
			builder.WriteString("\n")
		}
	}

	if len(entries) == 0 {
		return builder.String()
	}

	startIdx := 0
	if maxEntries > 0 && maxEntries < len(entries) {
		startIdx = len(entries) - maxEntries
	}

	for i := startIdx; i < len(entries); i++ {
		builder.WriteString("  ")
		builder.WriteString(entries[i])

		if i < len(entries)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
