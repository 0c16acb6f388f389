package widgets

import (
	"fmt"
	"time"

	"github.com/joe/qfieldsync/internal/tui/shared"
)

// NewProgressWidget creates a widget that displays overall transfer progress.
// Returns a closure that formats the current progress from the status.
func NewProgressWidget(getStatus func() *Status) func() string {
	return func() string {
		status := getStatus()
		if status == nil {
			return "Files: 0 / 0 (0.0%)\nBytes: 0 B / 0 B"
		}

		var percent float64
		if status.TotalFiles > 0 {
			done := status.ProcessedFiles + status.FailedFiles
			percent = float64(done) / float64(status.TotalFiles) * percentageScale
		}

		out := fmt.Sprintf("Files: %d / %d (%.1f%%)\nBytes: %s / %s",
			status.ProcessedFiles+status.FailedFiles,
			status.TotalFiles,
			percent,
			shared.FormatBytes(status.TransferredBytes()),
			shared.FormatBytes(status.TotalBytes))

		if elapsed := status.Elapsed(time.Now()); elapsed >= time.Second {
			rate := float64(status.TransferredBytes()) / elapsed.Seconds()
			out += fmt.Sprintf("\nRate: %s", shared.FormatRate(rate))
		}

		return out
	}
}
