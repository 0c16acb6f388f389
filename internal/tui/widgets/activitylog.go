package widgets

import (
	"strings"

	"github.com/joe/qfieldsync/internal/tui/shared"
)

const maxActivityEntries = 10

// NewActivityLogWidget creates a widget that displays recent activity entries.
func NewActivityLogWidget(getStatus func() *Status) func() string {
	return func() string {
		status := getStatus()
		if status == nil {
			return ""
		}

		entries := status.Activities.Entries()
		if len(entries) > maxActivityEntries {
			entries = entries[len(entries)-maxActivityEntries:]
		}

		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			lines = append(lines, styleActivity(entry))
		}

		return strings.Join(lines, "\n")
	}
}

func styleActivity(entry string) string {
	switch {
	case strings.HasPrefix(entry, shared.SuccessSymbol()):
		return shared.FileItemCompleteStyle().Render(entry)
	case strings.HasPrefix(entry, shared.ErrorSymbol()):
		return shared.FileItemErrorStyle().Render(entry)
	default:
		return entry
	}
}
