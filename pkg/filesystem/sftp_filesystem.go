package filesystem

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
)

// SFTPFileSystem implements FileSystem over one SFTP session, for project
// directories given as sftp:// URLs.
type SFTPFileSystem struct {
	client *sftp.Client
}

// NewSFTPFileSystem creates a new SFTP filesystem using an established connection.
func NewSFTPFileSystem(conn *SFTPConnection) *SFTPFileSystem {
	return &SFTPFileSystem{client: conn.Client()}
}

// Chtimes changes the access and modification times of a remote file.
func (fs *SFTPFileSystem) Chtimes(path string, atime, mtime time.Time) error {
	err := fs.client.Chtimes(path, atime, mtime)
	if err != nil {
		return fmt.Errorf("failed to change times for remote file %s: %w", path, err)
	}

	return nil
}

// Create creates a remote file for writing.
func (fs *SFTPFileSystem) Create(path string) (File, error) {
	file, err := fs.client.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote file %s: %w", path, err)
	}

	return newSFTPFile(file, path), nil
}

// MkdirAll creates a remote directory and all necessary parents.
func (fs *SFTPFileSystem) MkdirAll(path string, _ os.FileMode) error {
	err := fs.client.MkdirAll(path)
	if err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", path, err)
	}

	return nil
}

// Open opens a remote file for reading.
func (fs *SFTPFileSystem) Open(path string) (File, error) {
	file, err := fs.client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", path, err)
	}

	return newSFTPFile(file, path), nil
}

// ReadDir lists the direct children of a remote directory.
func (fs *SFTPFileSystem) ReadDir(dir string) ([]FileInfo, error) {
	entries, err := fs.client.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote directory %s: %w", dir, err)
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, newFileInfo(path.Base(entry.Name()), entry))
	}

	return infos, nil
}

// Remove removes a remote file or empty directory.
func (fs *SFTPFileSystem) Remove(path string) error {
	err := fs.client.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove remote file %s: %w", path, err)
	}

	return nil
}

// Rename moves a remote file, replacing the target when the server supports
// the posix-rename extension.
func (fs *SFTPFileSystem) Rename(oldpath, newpath string) error {
	err := fs.client.PosixRename(oldpath, newpath)
	if err != nil {
		err = fs.client.Rename(oldpath, newpath)
	}

	if err != nil {
		return fmt.Errorf("failed to rename remote file %s to %s: %w", oldpath, newpath, err)
	}

	return nil
}

// Scan returns an iterator over all files in a remote directory tree.
func (fs *SFTPFileSystem) Scan(root string) FileScanner {
	return newRemoteWalkScanner(root, fs.client.Walk(root))
}

// Stat returns file information for a remote file.
func (fs *SFTPFileSystem) Stat(path string) (os.FileInfo, error) {
	info, err := fs.client.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat remote file %s: %w", path, err)
	}

	return info, nil
}
