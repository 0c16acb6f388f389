package filesystem

import (
	"fmt"
)

// CreateFileSystem creates a FileSystem for a project directory, which is
// either a local path or an sftp:// URL.
// Returns (filesystem, basePath, closer, error).
// - basePath: the path to use with the filesystem (stripped of URL prefix)
// - closer: closes the SFTP connection; a no-op for local paths
func CreateFileSystem(pathStr string) (FileSystem, string, func(), error) {
	parsed, err := ParsePath(pathStr)
	if err != nil {
		return nil, "", nil, err
	}

	if !parsed.IsRemote {
		return NewRealFileSystem(), parsed.LocalPath, func() {}, nil
	}

	conn, err := Connect(parsed.Host, parsed.Port, parsed.User)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to connect to %s@%s:%d: %w",
			parsed.User, parsed.Host, parsed.Port, err)
	}

	fs := NewSFTPFileSystem(conn)
	closer := func() {
		_ = conn.Close()
	}

	return fs, parsed.Path, closer, nil
}
