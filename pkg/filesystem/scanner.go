package filesystem

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kr/fs"
)

// FileScanner is an iterator over files in a directory tree.
type FileScanner interface {
	// Next advances to the next entry and returns its info.
	// Returns (FileInfo{}, false) when done or on error.
	// Check Err() after Next() returns false to tell the two apart.
	Next() (FileInfo, bool)

	// Err returns any error that occurred during scanning.
	Err() error
}

// FileInfo contains metadata about a scanned entry.
type FileInfo struct {
	// RelativePath is the slash-separated path relative to the scan root
	RelativePath string

	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Name returns the last element of RelativePath.
func (fi FileInfo) Name() string {
	return path.Base(fi.RelativePath)
}

// walker is the subset of *fs.Walker the scanner drives. The same walker
// type serves the local disk and an sftp.Client.
type walker interface {
	Step() bool
	Err() error
	Path() string
	Stat() os.FileInfo
}

func newOSWalker(root string) walker {
	return fs.Walk(root)
}

// walkScanner adapts a kr/fs style walker to FileScanner.
type walkScanner struct {
	root   string
	walker walker
	rel    func(root, p string) (string, error)
	err    error
}

func newWalkScanner(root string, w walker) *walkScanner {
	return &walkScanner{
		root:   root,
		walker: w,
		rel: func(root, p string) (string, error) {
			rel, err := filepath.Rel(root, p)

			return filepath.ToSlash(rel), err
		},
	}
}

func newRemoteWalkScanner(root string, w walker) *walkScanner {
	scanner := newWalkScanner(root, w)
	scanner.rel = func(root, p string) (string, error) {
		if root == "." || root == "" {
			return p, nil
		}

		return strings.TrimPrefix(strings.TrimPrefix(p, root), "/"), nil
	}

	return scanner
}

func (s *walkScanner) Err() error {
	return s.err
}

func (s *walkScanner) Next() (FileInfo, bool) {
	if s.err != nil {
		return FileInfo{}, false
	}

	for s.walker.Step() {
		if err := s.walker.Err(); err != nil {
			s.err = err
			return FileInfo{}, false
		}

		relPath, err := s.rel(s.root, s.walker.Path())
		if err != nil {
			s.err = err
			return FileInfo{}, false
		}

		// root itself
		if relPath == "." || relPath == "" {
			continue
		}

		return newFileInfo(relPath, s.walker.Stat()), true
	}

	return FileInfo{}, false
}
