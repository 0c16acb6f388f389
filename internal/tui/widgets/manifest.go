package widgets

import (
	"fmt"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/tui/shared"
)

// NewManifestWidget creates a widget that summarises the remote file list
// a sync is about to reconcile against.
func NewManifestWidget(getFiles func() []cloud.CloudFile) func() string {
	return func() string {
		files := getFiles()

		var total int64
		for _, file := range files {
			total += file.Size
		}

		if len(files) == 0 {
			return "Remote files: none\nTotal size: 0 B"
		}

		return fmt.Sprintf("Remote files: %d\nTotal size: %s", len(files), shared.FormatBytes(total))
	}
}
