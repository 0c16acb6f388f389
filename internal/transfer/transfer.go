// Package transfer moves files between a local project directory and a
// QFieldCloud project. A ProjectTransfer plans the work by comparing the
// local tree with the cloud manifest and then runs it on a fixed pool of
// workers.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/pkg/fileops"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

// Exported constants.
const (
	// DefaultWorkers is the worker pool size when WithWorkers is not given.
	DefaultWorkers = 4
)

// Exported variables.
var (
	ErrAborted        = errors.New("transfer aborted")
	ErrAlreadyStarted = errors.New("transfer already started")
	ErrFilesFailed    = errors.New("file(s) failed to transfer")
)

// API is the part of the cloud client a transfer needs.
type API interface {
	GetProjectFiles(ctx context.Context, id string) ([]cloud.CloudFile, error)
	UploadFile(
		ctx context.Context,
		projectID, name string,
		r io.Reader,
		size int64,
		progress fileops.ProgressCallback,
	) error
	DownloadFile(
		ctx context.Context,
		projectID, name string,
		w io.Writer,
		progress fileops.ProgressCallback,
	) (int64, error)
}

// Item is one planned file move.
type Item struct {
	Name    string
	Action  Action
	Size    int64
	ModTime time.Time
}

// Plan is the list of moves a transfer will make.
type Plan struct {
	Items      []Item
	BytesTotal int64
	Unchanged  int
}

// Uploads counts the planned uploads.
func (p *Plan) Uploads() int {
	count := 0

	for _, item := range p.Items {
		if item.Action == ActionUpload {
			count++
		}
	}

	return count
}

// Downloads counts the planned downloads.
func (p *Plan) Downloads() int {
	return len(p.Items) - p.Uploads()
}

// FileError is the failure of one file.
type FileError struct {
	Name   string
	Action Action
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result summarizes a finished transfer.
type Result struct {
	SessionID        string
	Uploaded         int
	Downloaded       int
	Unchanged        int
	BytesTransferred int64
	Errors           []*FileError
	Duration         time.Duration
}

// Option configures a ProjectTransfer.
type Option func(*ProjectTransfer)

// WithWorkers sets the number of concurrent file transfers.
func WithWorkers(n int) Option {
	return func(t *ProjectTransfer) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithEmitter sets the event receiver.
func WithEmitter(emitter EventEmitter) Option {
	return func(t *ProjectTransfer) { t.emitter = emitter }
}

// WithFileSystem sets the filesystem the local directory lives on.
func WithFileSystem(fs filesystem.FileSystem) Option {
	return func(t *ProjectTransfer) { t.fileOps = fileops.NewFileOps(fs) }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *ProjectTransfer) { t.logger = logger }
}

// WithFilter limits the transfer to matching files.
func WithFilter(filter FileFilter) Option {
	return func(t *ProjectTransfer) {
		if filter != nil {
			t.filter = filter
		}
	}
}

// ProjectTransfer is a single transfer session. Sync may be called once.
type ProjectTransfer struct {
	api       API
	project   cloud.CloudProject
	localDir  string
	mode      Mode
	direction Direction
	sessionID string

	workers int
	emitter EventEmitter
	fileOps *fileops.FileOps
	filter  FileFilter
	logger  zerolog.Logger

	mu      sync.Mutex
	started bool
	aborted bool
	cancel  context.CancelFunc
	result  *Result
}

// New creates a transfer of project to or from localDir.
func New(
	api API,
	project cloud.CloudProject,
	localDir string,
	mode Mode,
	direction Direction,
	opts ...Option,
) *ProjectTransfer {
	t := &ProjectTransfer{
		api:       api,
		project:   project,
		localDir:  localDir,
		mode:      mode,
		direction: direction,
		sessionID: uuid.NewString(),
		workers:   DefaultWorkers,
		fileOps:   fileops.NewRealFileOps(),
		filter:    NewGlobFilter(""),
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.logger = t.logger.With().Str("session", t.sessionID).Str("project", project.ID).Logger()

	return t
}

// SessionID identifies this transfer.
func (t *ProjectTransfer) SessionID() string { return t.sessionID }

// Project is the project being transferred.
func (t *ProjectTransfer) Project() cloud.CloudProject { return t.project }

// LocalDir is the local side of the transfer.
func (t *ProjectTransfer) LocalDir() string { return t.localDir }

// Mode is the transfer mode.
func (t *ProjectTransfer) Mode() Mode { return t.mode }

// Direction is the conflict winner.
func (t *ProjectTransfer) Direction() Direction { return t.direction }

// Result returns the summary once Sync has returned, or nil.
func (t *ProjectTransfer) Result() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.result
}

// AbortRequests cancels every in-flight request. Calling it again, or
// before Sync, is harmless; an aborted transfer returns ErrAborted.
func (t *ProjectTransfer) AbortRequests() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.aborted {
		return
	}

	t.aborted = true

	if t.cancel != nil {
		t.cancel()
	}

	t.logger.Info().Msg("transfer aborted")
}

// Sync plans and runs the transfer and blocks until every worker is done.
func (t *ProjectTransfer) Sync(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}

	t.started = true
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	aborted := t.aborted
	t.mu.Unlock()

	defer cancel()

	start := time.Now()
	result := &Result{SessionID: t.sessionID}

	if aborted {
		return t.finish(result, start, ErrAborted)
	}

	plan, err := t.Plan(ctx)
	if err != nil {
		return t.finish(result, start, t.outcome(ctx, result, err))
	}

	result.Unchanged = plan.Unchanged

	t.logger.Info().
		Int("uploads", plan.Uploads()).
		Int("downloads", plan.Downloads()).
		Int("unchanged", plan.Unchanged).
		Str("mode", t.mode.String()).
		Str("prefer", t.direction.String()).
		Msg("transfer planned")

	t.emit(TransferStarted{SessionID: t.sessionID, Files: len(plan.Items), Bytes: plan.BytesTotal})

	t.execute(ctx, plan, result)

	return t.finish(result, start, t.outcome(ctx, result, nil))
}

// Plan compares the local directory with the cloud manifest. Files are
// matched by name and considered equal when their SHA256 (or, lacking one
// in the manifest, their size) agrees. Nothing is ever planned for deletion.
func (t *ProjectTransfer) Plan(ctx context.Context) (*Plan, error) {
	remote := t.project.CloudFiles
	if remote == nil {
		files, err := t.api.GetProjectFiles(ctx, t.project.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch project files: %w", err)
		}

		remote = files
	}

	local, err := t.scanLocal()
	if err != nil {
		return nil, err
	}

	remoteByName := make(map[string]cloud.CloudFile, len(remote))
	names := make([]string, 0, len(remote)+len(local))

	for _, file := range remote {
		name := strings.Trim(file.Name, "/")
		remoteByName[name] = file
		names = append(names, name)
	}

	for name := range local {
		if _, ok := remoteByName[name]; !ok {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	plan := &Plan{}

	for _, name := range names {
		if !t.filter.ShouldInclude(name) {
			continue
		}

		localFile, inLocal := local[name]
		remoteFile, inRemote := remoteByName[name]

		switch {
		case inLocal && !inRemote:
			if t.mode != ModeDownload {
				plan.add(Item{Name: name, Action: ActionUpload, Size: localFile.Size})
			}
		case inRemote && !inLocal:
			if t.mode != ModeUpload {
				plan.add(remoteItem(name, remoteFile))
			}
		default:
			same, err := t.sameContent(localFile, remoteFile)
			if err != nil {
				return nil, err
			}

			if same {
				plan.Unchanged++
				continue
			}

			if t.conflictAction() == ActionUpload {
				plan.add(Item{Name: name, Action: ActionUpload, Size: localFile.Size})
			} else {
				plan.add(remoteItem(name, remoteFile))
			}
		}
	}

	return plan, nil
}

func (p *Plan) add(item Item) {
	p.Items = append(p.Items, item)
	p.BytesTotal += item.Size
}

func remoteItem(name string, file cloud.CloudFile) Item {
	return Item{Name: name, Action: ActionDownload, Size: file.Size, ModTime: file.LastModified()}
}

func (t *ProjectTransfer) conflictAction() Action {
	switch t.mode {
	case ModeUpload:
		return ActionUpload
	case ModeDownload:
		return ActionDownload
	case ModeSync:
	}

	if t.direction == ReplaceLocal {
		return ActionDownload
	}

	return ActionUpload
}

func (t *ProjectTransfer) scanLocal() (map[string]*fileops.FileInfo, error) {
	_, err := t.fileOps.FS.Stat(t.localDir)
	if errors.Is(err, os.ErrNotExist) && t.mode == ModeDownload {
		return map[string]*fileops.FileInfo{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("cannot access local directory %s: %w", t.localDir, err)
	}

	files, err := t.fileOps.ScanDirectory(t.localDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan local directory: %w", err)
	}

	return files, nil
}

func (t *ProjectTransfer) sameContent(local *fileops.FileInfo, remote cloud.CloudFile) (bool, error) {
	remoteHash := remote.SHA256
	if remoteHash == "" && len(remote.Versions) > 0 {
		remoteHash = remote.Versions[len(remote.Versions)-1].SHA256
	}

	if remoteHash == "" {
		return local.Size == remote.Size, nil
	}

	if local.Size != remote.Size {
		return false, nil
	}

	localHash, err := t.fileOps.ComputeFileHash(local.Path)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(localHash, remoteHash), nil
}

func (t *ProjectTransfer) execute(ctx context.Context, plan *Plan, result *Result) {
	if len(plan.Items) == 0 {
		return
	}

	jobs := make(chan Item, len(plan.Items))
	for _, item := range plan.Items {
		jobs <- item
	}

	close(jobs)

	numWorkers := min(t.workers, len(plan.Items))
	numWorkers = max(numWorkers, 1)

	var resultMu sync.Mutex

	var wg sync.WaitGroup //nolint:varnamelen // wg is idiomatic for WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for item := range jobs {
				if ctx.Err() != nil {
					return
				}

				err := t.transferFile(ctx, item)

				resultMu.Lock()
				result.record(item, err)
				resultMu.Unlock()
			}
		})
	}

	wg.Wait()
}

func (r *Result) record(item Item, err error) {
	switch {
	case err == nil && item.Action == ActionUpload:
		r.Uploaded++
		r.BytesTransferred += item.Size
	case err == nil:
		r.Downloaded++
		r.BytesTransferred += item.Size
	case errors.Is(err, context.Canceled):
	default:
		r.Errors = append(r.Errors, &FileError{Name: item.Name, Action: item.Action, Err: err})
	}
}

func (t *ProjectTransfer) transferFile(ctx context.Context, item Item) error {
	t.emit(FileStarted{SessionID: t.sessionID, Name: item.Name, Action: item.Action, Size: item.Size})

	progress := func(done, _ int64, _ string) {
		t.emit(FileProgress{SessionID: t.sessionID, Name: item.Name, Bytes: done, Total: item.Size})
	}

	var err error
	if item.Action == ActionUpload {
		err = t.upload(ctx, item, progress)
	} else {
		err = t.download(ctx, item, progress)
	}

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", item.Name, ctx.Err())
		}

		t.logger.Warn().Err(err).Str("file", item.Name).Str("action", item.Action.String()).Msg("file failed")
		t.emit(FileFailed{SessionID: t.sessionID, Name: item.Name, Action: item.Action, Err: err})

		return err
	}

	t.logger.Debug().Str("file", item.Name).Str("action", item.Action.String()).Msg("file done")
	t.emit(FileCompleted{SessionID: t.sessionID, Name: item.Name, Action: item.Action, Size: item.Size})

	return nil
}

func (t *ProjectTransfer) upload(ctx context.Context, item Item, progress fileops.ProgressCallback) error {
	file, err := t.fileOps.FS.Open(t.localPath(item.Name))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", item.Name, err)
	}

	defer func() {
		_ = file.Close()
	}()

	return t.api.UploadFile(ctx, t.project.ID, item.Name, file, item.Size, progress) //nolint:wrapcheck // APIError carries context
}

func (t *ProjectTransfer) download(ctx context.Context, item Item, progress fileops.ProgressCallback) error {
	dst := t.localPath(item.Name)

	part, err := t.fileOps.CreatePartial(dst)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped by fileops
	}

	_, err = t.api.DownloadFile(ctx, t.project.ID, item.Name, part, progress)

	closeErr := part.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", dst, closeErr)
	}

	if err != nil {
		t.fileOps.Discard(dst)
		return err
	}

	err = t.fileOps.Commit(dst)
	if err != nil {
		t.fileOps.Discard(dst)
		return err //nolint:wrapcheck // already wrapped by fileops
	}

	if !item.ModTime.IsZero() {
		_ = t.fileOps.FS.Chtimes(dst, item.ModTime, item.ModTime)
	}

	return nil
}

func (t *ProjectTransfer) localPath(name string) string {
	return path.Join(t.localDir, name)
}

func (t *ProjectTransfer) isAborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.aborted
}

func (t *ProjectTransfer) outcome(ctx context.Context, result *Result, err error) error {
	if t.isAborted() {
		return ErrAborted
	}

	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		return fmt.Errorf("transfer interrupted: %w", ctx.Err())
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%w: %d (first error: %w)", ErrFilesFailed, len(result.Errors), result.Errors[0])
	}

	return nil
}

func (t *ProjectTransfer) finish(result *Result, start time.Time, err error) error {
	result.Duration = time.Since(start)

	t.mu.Lock()
	t.result = result
	t.mu.Unlock()

	event := t.logger.Info()
	if err != nil {
		event = t.logger.Warn().Err(err)
	}

	event.
		Int("uploaded", result.Uploaded).
		Int("downloaded", result.Downloaded).
		Int("failed", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("transfer finished")

	t.emit(TransferCompleted{SessionID: t.sessionID, Result: result, Err: err})

	return err
}

func (t *ProjectTransfer) emit(event Event) {
	if t.emitter != nil {
		t.emitter.Emit(event)
	}
}
