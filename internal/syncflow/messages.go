package syncflow

import "github.com/joe/qfieldsync/internal/cloud"

// SyncRequested starts a flow for Project.
type SyncRequested struct {
	Project cloud.CloudProject
}

// ManifestFetched carries the outcome of a manifest request.
type ManifestFetched struct {
	ProjectID string
	Files     []cloud.CloudFile
	Err       error
}

// DirectoryChosen is the user's pick in the directory prompt.
type DirectoryChosen struct {
	Path string
}

// DirectoryCancelled closes the directory prompt without a pick.
type DirectoryCancelled struct{}

// ConflictResolved answers the confirmation.
type ConflictResolved struct {
	Choice Choice
}

// TransferFinished is sent when a session's Sync returns.
type TransferFinished struct {
	SessionID string
	Err       error
}

// AbortRequested stops the running transfer.
type AbortRequested struct{}

// Dismissed acknowledges a terminal state.
type Dismissed struct{}

// ProjectReloaded reports the host reload after a completed transfer.
type ProjectReloaded struct {
	Path string
	Err  error
}
