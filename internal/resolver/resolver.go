// Package resolver decides which local directory a cloud project is synced
// into and validates candidate directories.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

// Exported variables.
var (
	ErrCancelled = errors.New("directory selection cancelled")

	// ProjectFilePatterns match QGIS project files anywhere below a directory.
	ProjectFilePatterns = []string{"**/*.qgs", "**/*.qgz"} //nolint:gochecknoglobals // read-only table
)

// Kind classifies a rejected directory.
type Kind int

// Kind values.
const (
	KindMissing Kind = iota
	KindNotEmpty
	KindMultipleProjects
)

// ValidationError explains why a directory cannot be used.
type ValidationError struct {
	Kind  Kind
	Dir   string
	Count int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindNotEmpty:
		return e.Dir + ": directory is not empty"
	case KindMultipleProjects:
		return fmt.Sprintf("%s: contains %d QGIS project files", e.Dir, e.Count)
	default:
		return e.Dir + ": path does not exist or is not a directory"
	}
}

// Title is the heading of the warning shown for the error.
func (e *ValidationError) Title() string {
	switch e.Kind {
	case KindNotEmpty:
		return "QFieldSync checkout requires empty directory"
	case KindMultipleProjects:
		return "Multiple QGIS projects"
	default:
		return "Directory not found"
	}
}

// Message is the body of the warning shown for the error.
func (e *ValidationError) Message() string {
	switch e.Kind {
	case KindNotEmpty:
		return "When QFieldCloud project contains remote files the checkout destination needs to be an empty directory."
	case KindMultipleProjects:
		return "When QFieldCloud project has no remote files, the local checkout directory may contain no more than 1 QGIS project."
	default:
		return "The selected directory does not exist: " + e.Dir
	}
}

// Prompter asks the user for a directory and shows warnings. PickDirectory
// returns ok=false when the user cancels.
type Prompter interface {
	PickDirectory(title, initial string) (dir string, ok bool)
	Warn(title, message string)
}

// Resolver validates directories on one filesystem.
type Resolver struct {
	FS filesystem.FileSystem
}

// New creates a Resolver over fs.
func New(fs filesystem.FileSystem) *Resolver {
	return &Resolver{FS: fs}
}

// Check validates dir for a project whose manifest is empty (remoteEmpty)
// or not. An empty remote accepts a directory holding at most one project
// file anywhere in its tree; a non-empty remote needs a directory with no
// top-level entries.
func (r *Resolver) Check(dir string, remoteEmpty bool) error {
	info, err := r.FS.Stat(dir)
	if err != nil || !info.IsDir() {
		return &ValidationError{Kind: KindMissing, Dir: dir}
	}

	if !remoteEmpty {
		entries, err := r.FS.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}

		if len(entries) > 0 {
			return &ValidationError{Kind: KindNotEmpty, Dir: dir, Count: len(entries)}
		}

		return nil
	}

	count, err := r.countProjectFiles(dir)
	if err != nil {
		return err
	}

	if count > 1 {
		return &ValidationError{Kind: KindMultipleProjects, Dir: dir, Count: count}
	}

	return nil
}

func (r *Resolver) countProjectFiles(dir string) (int, error) {
	count := 0

	scanner := r.FS.Scan(dir)
	for info, ok := scanner.Next(); ok; info, ok = scanner.Next() {
		if !info.IsDir && IsProjectFile(info.RelativePath) {
			count++
		}
	}

	err := scanner.Err()
	if err != nil {
		return count, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	return count, nil
}

// Checker validates a candidate directory.
type Checker interface {
	Check(dir string, remoteEmpty bool) error
}

// Opener opens the filesystem a path lives on and returns the path on it,
// like filesystem.CreateFileSystem.
type Opener func(dir string) (filesystem.FileSystem, string, func(), error)

// PathChecker checks every directory on the filesystem its own path names,
// so an sftp:// answer is validated on the server and a plain one locally.
type PathChecker struct {
	Open Opener
}

// Check opens dir's filesystem and validates the path on it. A rejected
// directory is reported under the path the user gave.
func (c PathChecker) Check(dir string, remoteEmpty bool) error {
	fs, base, closeFS, err := c.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dir, err)
	}
	defer closeFS()

	err = New(fs).Check(base, remoteEmpty)

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		validationErr.Dir = dir
	}

	return err
}

// Resolve returns bound when it is set. Otherwise it prompts, starting at
// initial, until the user picks a directory that passes Check for files or
// cancels, in which case ErrCancelled is returned. It never records the
// result; persisting the binding is the caller's job.
func (r *Resolver) Resolve(bound string, files []cloud.CloudFile, initial string, p Prompter) (string, error) {
	return ResolveWith(r, bound, files, initial, p)
}

// ResolveWith is Resolve with every answer validated by checker.
func ResolveWith(checker Checker, bound string, files []cloud.CloudFile, initial string, p Prompter) (string, error) {
	if bound != "" {
		return bound, nil
	}

	remoteEmpty := len(files) == 0
	title := PromptTitle(remoteEmpty)

	for {
		dir, ok := p.PickDirectory(title, initial)
		if !ok || dir == "" {
			return "", ErrCancelled
		}

		dir = filesystem.ExpandHome(dir)

		err := checker.Check(dir, remoteEmpty)

		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			p.Warn(validationErr.Title(), validationErr.Message())
			initial = dir

			continue
		}

		if err != nil {
			return "", err
		}

		return dir, nil
	}
}

// PromptTitle is the directory prompt heading for an empty or non-empty remote.
func PromptTitle(remoteEmpty bool) string {
	if remoteEmpty {
		return "Upload local project to QFieldCloud"
	}

	return "Save QFieldCloud project at"
}

// InitialPath picks where the directory prompt starts: the form value, else
// the parent of the currently opened project's directory, else fallback.
func InitialPath(formValue, currentProjectDir, fallback string) string {
	if formValue != "" {
		return filesystem.ExpandHome(formValue)
	}

	if currentProjectDir != "" {
		return filepath.Dir(filepath.Clean(filesystem.ExpandHome(currentProjectDir)))
	}

	return filesystem.ExpandHome(fallback)
}

// IsProjectFile reports whether relPath matches one of ProjectFilePatterns.
// Matching is case-sensitive: "map.QGS" is not a project file.
func IsProjectFile(relPath string) bool {
	name := filepath.ToSlash(relPath)

	for _, pattern := range ProjectFilePatterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}

	return false
}

// ProjectFiles lists the QGIS project files directly inside dir, sorted.
func ProjectFiles(fs filesystem.FileSystem, dir string) ([]string, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ValidationError{Kind: KindMissing, Dir: dir}
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var found []string

	for _, entry := range entries {
		if !entry.IsDir && IsProjectFile(entry.Name()) {
			found = append(found, joinPath(dir, entry.Name()))
		}
	}

	sort.Strings(found)

	return found, nil
}

func joinPath(dir, name string) string {
	if strings.Contains(dir, "/") && !strings.Contains(dir, `\`) {
		return path.Join(dir, name)
	}

	return filepath.Join(dir, name)
}
