package cloud

import (
	"path/filepath"
	"strings"
	"time"
)

// CloudProject is a remote project as listed by the API. LocalDir and
// CloudFiles are client-side state: LocalDir comes from the binding store
// and CloudFiles stays nil until the manifest has been fetched.
//
//nolint:revive // CloudProject reads better than cloud.Project at call sites
type CloudProject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"private"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	LocalDir   string      `json:"-"`
	CloudFiles []CloudFile `json:"-"`
}

// URL returns the project's page on the web frontend.
func (p CloudProject) URL(serverURL string) string {
	return strings.TrimSuffix(serverURL, "/") + "/a/" + p.Owner + "/" + p.Name
}

// IsCurrent reports whether the project is bound to currentDir, the
// directory of the project opened in the host application.
func (p CloudProject) IsCurrent(currentDir string) bool {
	if p.LocalDir == "" || currentDir == "" {
		return false
	}

	return filepath.Clean(p.LocalDir) == filepath.Clean(currentDir)
}

// FilesFetched reports whether the manifest has been loaded.
func (p CloudProject) FilesFetched() bool {
	return p.CloudFiles != nil
}

// CloudFile is one manifest entry.
//
//nolint:revive // mirrors CloudProject
type CloudFile struct {
	Name     string        `json:"name"`
	Size     int64         `json:"size"`
	SHA256   string        `json:"sha256,omitempty"`
	Versions []FileVersion `json:"versions"`
}

// FileVersion is one stored revision of a file, oldest first in CloudFile.Versions.
type FileVersion struct {
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	SHA256    string    `json:"sha256,omitempty"`
}

// LastModified returns the creation time of the newest version.
func (f CloudFile) LastModified() time.Time {
	if len(f.Versions) == 0 {
		return time.Time{}
	}

	return f.Versions[len(f.Versions)-1].CreatedAt
}

// ProjectInput carries the editable project fields for create and update.
type ProjectInput struct {
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"private"`
}

// Credentials is the result of a successful login.
type Credentials struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}
