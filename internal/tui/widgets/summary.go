package widgets

import (
	"errors"
	"fmt"
	"time"

	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/internal/tui/shared"
)

// NewSummaryWidget creates a widget that displays the outcome of a transfer.
func NewSummaryWidget(getStatus func() *Status) func() string {
	return func() string {
		status := getStatus()
		if status == nil {
			return "No status available"
		}

		result := status.Result
		if result == nil {
			result = &transfer.Result{}
		}

		elapsed := result.Duration
		if elapsed == 0 {
			elapsed = status.Elapsed(time.Now())
		}

		headline := "Sync complete!"

		switch {
		case errors.Is(status.Err, transfer.ErrAborted):
			headline = "Sync aborted"
		case status.Err != nil:
			headline = "Sync finished with errors"
		}

		return fmt.Sprintf("%s\n\nUploaded: %s\nDownloaded: %s\nUnchanged: %s\nBytes transferred: %s\nTime elapsed: %s",
			headline,
			plural(result.Uploaded),
			plural(result.Downloaded),
			plural(result.Unchanged),
			shared.FormatBytes(result.BytesTransferred),
			shared.FormatDuration(elapsed))
	}
}

func plural(n int) string {
	if n == 1 {
		return "1 file"
	}

	return fmt.Sprintf("%d files", n)
}
