package shared

import (
	"github.com/joe/qfieldsync/internal/cloud"
)

// ============================================================================
// Intent Messages
// Screens send these; AppModel turns them into requests or transitions
// ============================================================================

// LoginRequestedMsg is sent by the login screen on submit
type LoginRequestedMsg struct {
	Username string
	Password string
}

// RefreshRequestedMsg asks for a fresh project list
type RefreshRequestedMsg struct{}

// OpenFormMsg opens the project form; an empty ProjectID creates a project
type OpenFormMsg struct {
	ProjectID string
}

// CloseFormMsg returns from the form to the list without saving
type CloseFormMsg struct{}

// SaveProjectMsg is sent by the form on submit. ProjectID is empty for a
// new project.
type SaveProjectMsg struct {
	ProjectID string
	Input     cloud.ProjectInput
	LocalDir  string
}

// DeleteProjectMsg asks to delete a project
type DeleteProjectMsg struct {
	ProjectID string
}

// LogoutRequestedMsg asks to log out and quit
type LogoutRequestedMsg struct{}

// SyncProjectMsg starts the sync flow for a project
type SyncProjectMsg struct {
	ProjectID string
}

// ChooseDirectoryMsg opens the directory prompt for the form's local dir
type ChooseDirectoryMsg struct {
	ProjectID string
	Initial   string
}

// DirectoryPickedMsg is sent by the directory prompt on submit
type DirectoryPickedMsg struct {
	Path string
}

// DirectoryCancelledMsg is sent when the directory prompt is dismissed
type DirectoryCancelledMsg struct{}

// ============================================================================
// Result Messages
// Completed requests; RequestID guards against stale replies
// ============================================================================

// LoginFinishedMsg carries the outcome of a login request
type LoginFinishedMsg struct {
	RequestID   int
	Credentials cloud.Credentials
	Err         error
}

// ProjectSavedMsg carries the outcome of a create or update
type ProjectSavedMsg struct {
	RequestID int
	Created   bool
	Project   cloud.CloudProject
	LocalDir  string
	Err       error
}

// ProjectDeletedMsg carries the outcome of a delete
type ProjectDeletedMsg struct {
	RequestID int
	ProjectID string
	Err       error
}

// LogoutFinishedMsg carries the outcome of a logout
type LogoutFinishedMsg struct {
	RequestID int
	Err       error
}
