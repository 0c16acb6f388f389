package widgets

import (
	"fmt"
	"strings"

	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/internal/tui/shared"
)

const (
	maxVisibleFiles  = 20
	progressBarWidth = 20
	percentageScale  = 100
)

// NewFileListWidget creates a widget that displays files in flight with progress.
// Returns a closure that formats the file list from the status.
func NewFileListWidget(getStatus func() *Status) func() string {
	return func() string {
		status := getStatus()
		if status == nil || len(status.Active) == 0 {
			return ""
		}

		var builder strings.Builder

		for i, file := range status.Active {
			if i >= maxVisibleFiles {
				fmt.Fprintf(&builder, "... and %d more\n", len(status.Active)-maxVisibleFiles)
				break
			}

			arrow := "↑"
			if file.Action == transfer.ActionDownload {
				arrow = "↓"
			}

			if file.Status == StatusStarting {
				builder.WriteString(shared.FileItemStyle().Render(fmt.Sprintf("%s Starting: %s", arrow, file.Name)))
				builder.WriteString("\n")

				continue
			}

			var percent float64
			if file.Size > 0 {
				percent = float64(file.Transferred) / float64(file.Size)
			}

			line := fmt.Sprintf("%s [%s] %.1f%% %s",
				arrow,
				shared.RenderASCIIProgress(percent, progressBarWidth),
				percent*percentageScale,
				file.Name)

			builder.WriteString(shared.FileItemCopyingStyle().Render(line))
			builder.WriteString("\n")
		}

		return builder.String()
	}
}
