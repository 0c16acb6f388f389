package shared

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ============================================================================
// Formatting Functions
// These are used by multiple screens for consistent display
// ============================================================================

// FormatBytes formats bytes into human-readable format (e.g., "1.5 MiB")
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	return humanize.IBytes(uint64(bytes))
}

// FormatDuration formats duration into human-readable format (e.g., "2m 30s")
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)
	hours := duration / time.Hour
	duration %= time.Hour
	minutes := duration / time.Minute
	duration %= time.Minute
	seconds := duration / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// FormatRate formats transfer rate into human-readable format (e.g., "5.2 MiB/s")
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}

	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// FormatTimestamp renders t as a date plus a relative hint, or "-".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format("2006-01-02 15:04") + " (" + humanize.Time(t) + ")"
}

// TruncatePath shortens path to maxWidth runes, keeping the tail.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if maxWidth <= ProgressEllipsisLength || len(runes) <= maxWidth {
		return path
	}

	return "..." + string(runes[len(runes)-maxWidth+ProgressEllipsisLength:])
}
