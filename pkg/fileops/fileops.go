// Package fileops provides the file-level helpers a project transfer needs:
// scanning a project directory, hashing files, and streaming bytes with
// progress and cancellation.
package fileops

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/joe/qfieldsync/pkg/filesystem"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for stream copies (64KB)
	BufferSize = 64 * 1024
	// DefaultDirPermissions is the default permission mode for created directories
	DefaultDirPermissions = 0o750
	// PartialSuffix marks a download that has not been committed yet.
	PartialSuffix = ".part"
)

// Exported variables.
var (
	ErrCopyCancelled = errors.New("copy cancelled")
)

// FileInfo represents a regular file inside a project directory.
type FileInfo struct {
	Path         string
	RelativePath string
	Size         int64
	ModTime      time.Time
	Hash         string
}

// ProgressCallback is called during copies to report progress.
type ProgressCallback func(bytesTransferred int64, totalBytes int64, currentFile string)

// ScanProgressCallback is called for each file found while scanning.
type ScanProgressCallback func(path string, scannedCount int, size int64)

// FileOps runs file operations against one filesystem.
type FileOps struct {
	FS filesystem.FileSystem
}

// NewFileOps creates a new FileOps instance with the given filesystem.
func NewFileOps(fs filesystem.FileSystem) *FileOps {
	return &FileOps{FS: fs}
}

// NewRealFileOps creates a new FileOps instance using the real filesystem.
func NewRealFileOps() *FileOps {
	return &FileOps{FS: filesystem.NewRealFileSystem()}
}

// ComputeFileHash computes the hex SHA256 of a file.
func (fo *FileOps) ComputeFileHash(filePath string) (string, error) {
	file, err := fo.FS.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()

	_, err = io.Copy(hash, file)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s for hashing: %w", filePath, err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ScanDirectory recursively scans a directory and returns its regular files
// keyed by slash-separated relative path. Directories and leftover partial
// downloads are skipped.
func (fo *FileOps) ScanDirectory(rootPath string) (map[string]*FileInfo, error) {
	return fo.ScanDirectoryWithProgress(rootPath, nil)
}

// ScanDirectoryWithProgress is ScanDirectory with a per-file callback.
func (fo *FileOps) ScanDirectoryWithProgress(
	rootPath string,
	progressCallback ScanProgressCallback,
) (map[string]*FileInfo, error) {
	files := make(map[string]*FileInfo)
	fileCount := 0

	scanner := fo.FS.Scan(rootPath)
	for info, ok := scanner.Next(); ok; info, ok = scanner.Next() {
		if info.IsDir || strings.HasSuffix(info.RelativePath, PartialSuffix) {
			continue
		}

		fullPath := path.Join(rootPath, info.RelativePath)

		files[info.RelativePath] = &FileInfo{
			Path:         fullPath,
			RelativePath: info.RelativePath,
			Size:         info.Size,
			ModTime:      info.ModTime,
		}
		fileCount++

		if progressCallback != nil {
			progressCallback(fullPath, fileCount, info.Size)
		}
	}

	err := scanner.Err()
	if err != nil {
		return files, fmt.Errorf("failed to scan directory %s: %w", rootPath, err)
	}

	return files, nil
}

// CreatePartial creates <dst>.part (and its parent directory) for a download.
// Commit renames it onto dst; Discard removes it.
func (fo *FileOps) CreatePartial(dst string) (filesystem.File, error) {
	err := fo.FS.MkdirAll(path.Dir(dst), DefaultDirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination directory for %s: %w", dst, err)
	}

	file, err := fo.FS.Create(dst + PartialSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst+PartialSuffix, err)
	}

	return file, nil
}

// Commit replaces dst with its finished partial download.
func (fo *FileOps) Commit(dst string) error {
	err := fo.FS.Rename(dst+PartialSuffix, dst)
	if err != nil {
		return fmt.Errorf("failed to commit %s: %w", dst, err)
	}

	return nil
}

// Discard removes a partial download, ignoring a missing file.
func (fo *FileOps) Discard(dst string) {
	_ = fo.FS.Remove(dst + PartialSuffix)
}

// CopyStream copies src to dst until EOF, reporting progress after every
// write and stopping with ErrCopyCancelled once ctx is done.
func CopyStream(
	ctx context.Context,
	dst io.Writer,
	src io.Reader,
	totalBytes int64,
	name string,
	progress ProgressCallback,
) (int64, error) {
	var written int64

	buf := make([]byte, BufferSize)

	for {
		if ctx.Err() != nil {
			return written, fmt.Errorf("%w: %w", ErrCopyCancelled, ctx.Err())
		}

		nr, err := src.Read(buf) //nolint:varnamelen // nr is idiomatic for bytes read
		if nr > 0 {
			nw, werr := dst.Write(buf[0:nr]) //nolint:varnamelen // nw is idiomatic for bytes written
			if werr != nil {
				return written, fmt.Errorf("failed to write to destination: %w", werr)
			}

			if nr != nw {
				return written, fmt.Errorf("short write: %w", io.ErrShortWrite)
			}

			written += int64(nw)

			if progress != nil {
				progress(written, totalBytes, name)
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			if ctx.Err() != nil {
				return written, fmt.Errorf("%w: %w", ErrCopyCancelled, ctx.Err())
			}

			return written, fmt.Errorf("failed to read from source: %w", err)
		}
	}

	return written, nil
}
