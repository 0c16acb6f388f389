// Package syncflow sequences one project sync: fetch the manifest, settle
// the local directory, confirm the direction, run the transfer and reload
// the host project. Machine holds no rendering; views read its state.
package syncflow

import (
	"context"
	"errors"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

// Exported variables.
var (
	ErrBusy               = errors.New("a sync is already in progress")
	ErrTransferInProgress = errors.New("a transfer is already running")
)

// Files fetches project manifests.
type Files interface {
	GetProjectFiles(id string) *cloud.Reply[[]cloud.CloudFile]
}

// Checker validates a candidate local directory.
type Checker interface {
	Check(dir string, remoteEmpty bool) error
}

// Bindings persists project to directory bindings.
type Bindings interface {
	SetLocalDir(projectID, dir string) error
}

// Session is a running transfer.
type Session interface {
	SessionID() string
	Sync(ctx context.Context) error
	AbortRequests()
}

// NewTransferFunc creates a transfer session.
type NewTransferFunc func(project cloud.CloudProject, dir string, mode transfer.Mode, direction transfer.Direction) Session

// Reloader reopens the host project after a transfer.
type Reloader interface {
	Reload(dir string) (string, error)
}

// Deps are the collaborators of a Machine. Reloader may be nil.
type Deps struct {
	Files       Files
	Checker     Checker
	Bindings    Bindings
	NewTransfer NewTransferFunc
	Reloader    Reloader
	Logger      zerolog.Logger
}

// Machine is the sync flow state machine. It is a value; Update returns
// the next value.
type Machine struct {
	deps *Deps

	state     State
	project   cloud.CloudProject
	pendingID string
	dir       string
	choice    Choice
	session   Session
	warning   error
	lastErr   error
	reloaded  ProjectReloaded
}

// New creates an idle machine.
func New(deps Deps) Machine {
	return Machine{deps: &deps}
}

// State returns the current state.
func (m Machine) State() State { return m.state }

// Project is the project of the current or last flow.
func (m Machine) Project() cloud.CloudProject { return m.project }

// Dir is the local directory the flow settled on.
func (m Machine) Dir() string { return m.dir }

// Choice is the confirmed direction.
func (m Machine) Choice() Choice { return m.choice }

// RemoteEmpty reports whether the flow's project has no remote files.
func (m Machine) RemoteEmpty() bool { return len(m.project.CloudFiles) == 0 }

// PromptTitle is the heading of the directory prompt.
func (m Machine) PromptTitle() string { return resolver.PromptTitle(m.RemoteEmpty()) }

// Warning is the validation failure of the last directory pick, if any.
func (m Machine) Warning() error { return m.warning }

// LastError is the error of the last rejected message or failed flow.
func (m Machine) LastError() error { return m.lastErr }

// Reloaded is the outcome of the host reload after completion.
func (m Machine) Reloaded() ProjectReloaded { return m.reloaded }

// SessionID is the id of the running transfer, or "".
func (m Machine) SessionID() string {
	if m.session == nil {
		return ""
	}

	return m.session.SessionID()
}

// Busy reports whether a flow is underway.
func (m Machine) Busy() bool {
	return m.state != Idle && !m.state.Terminal()
}

// Abort stops the running transfer and clears the session. Without one it
// does nothing.
func (m Machine) Abort() Machine {
	if m.session == nil {
		return m
	}

	m.session.AbortRequests()
	m.session = nil
	m.state = Cancelled
	m.deps.Logger.Info().Str("project", m.project.ID).Msg("sync aborted")

	return m
}

// Update applies msg and returns the next machine and an optional command.
//
//nolint:cyclop // one case per message type
func (m Machine) Update(msg tea.Msg) (Machine, tea.Cmd) {
	switch msg := msg.(type) {
	case SyncRequested:
		return m.start(msg.Project)
	case ManifestFetched:
		return m.manifestFetched(msg)
	case DirectoryChosen:
		return m.directoryChosen(msg.Path)
	case DirectoryCancelled:
		if m.state == AwaitingDirectory {
			m = m.reset()
		}

		return m, nil
	case ConflictResolved:
		return m.resolveConflict(msg.Choice)
	case TransferFinished:
		return m.transferFinished(msg)
	case AbortRequested:
		return m.Abort(), nil
	case Dismissed:
		if m.state.Terminal() {
			m = m.reset()
		}

		return m, nil
	case ProjectReloaded:
		if msg.Err != nil {
			m.deps.Logger.Warn().Err(msg.Err).Str("dir", m.dir).Msg("project reload failed")
		}

		m.reloaded = msg

		return m, nil
	}

	return m, nil
}

func (m Machine) reset() Machine {
	return Machine{deps: m.deps}
}

func (m Machine) start(project cloud.CloudProject) (Machine, tea.Cmd) {
	if m.Busy() {
		m.lastErr = ErrBusy
		return m, nil
	}

	m = m.reset()
	m.project = project
	m.project.CloudFiles = slices.Clone(project.CloudFiles)
	m.deps.Logger.Debug().Str("project", project.ID).Bool("manifest", project.FilesFetched()).Msg("sync requested")

	if !project.FilesFetched() {
		m.state = AwaitingFileList
		m.pendingID = project.ID

		return m, fetchManifest(m.deps.Files, project.ID)
	}

	return m.settleDirectory(), nil
}

func (m Machine) settleDirectory() Machine {
	if m.project.LocalDir != "" {
		m.dir = m.project.LocalDir
		m.state = AwaitingConfirmation

		return m
	}

	m.state = AwaitingDirectory

	return m
}

func (m Machine) manifestFetched(msg ManifestFetched) (Machine, tea.Cmd) {
	if m.state != AwaitingFileList || msg.ProjectID != m.pendingID {
		m.deps.Logger.Debug().Str("project", msg.ProjectID).Msg("stale manifest discarded")
		return m, nil
	}

	m.pendingID = ""

	if msg.Err != nil {
		m.state = Failed
		m.lastErr = msg.Err

		return m, nil
	}

	m.project.CloudFiles = msg.Files
	if m.project.CloudFiles == nil {
		m.project.CloudFiles = []cloud.CloudFile{}
	}

	return m.settleDirectory(), nil
}

func (m Machine) directoryChosen(path string) (Machine, tea.Cmd) {
	if m.state != AwaitingDirectory {
		return m, nil
	}

	dir := filesystem.ExpandHome(path)

	err := m.deps.Checker.Check(dir, m.RemoteEmpty())
	if err != nil {
		m.warning = err
		return m, nil
	}

	err = m.deps.Bindings.SetLocalDir(m.project.ID, dir)
	if err != nil {
		m.state = Failed
		m.lastErr = err

		return m, nil
	}

	m.warning = nil
	m.dir = dir
	m.project.LocalDir = dir
	m.state = AwaitingConfirmation

	return m, nil
}

func (m Machine) resolveConflict(choice Choice) (Machine, tea.Cmd) {
	if m.session != nil {
		m.lastErr = ErrTransferInProgress
		return m, nil
	}

	if m.state != AwaitingConfirmation {
		return m, nil
	}

	if choice == ChoiceCancel {
		return m.reset(), nil
	}

	direction := transfer.ReplaceRemote
	if choice == ChoiceReplaceLocal {
		direction = transfer.ReplaceLocal
	}

	m.choice = choice
	m.session = m.deps.NewTransfer(m.project, m.dir, transfer.ModeSync, direction)
	m.state = Transferring
	m.deps.Logger.Info().
		Str("project", m.project.ID).
		Str("dir", m.dir).
		Str("session", m.session.SessionID()).
		Str("prefer", direction.String()).
		Msg("transfer started")

	return m, runTransfer(m.session)
}

func (m Machine) transferFinished(msg TransferFinished) (Machine, tea.Cmd) {
	if m.session == nil || msg.SessionID != m.session.SessionID() {
		m.deps.Logger.Debug().Str("session", msg.SessionID).Msg("stale transfer completion discarded")
		return m, nil
	}

	m.session = nil

	switch {
	case msg.Err == nil:
		m.state = Completed
		return m, reload(m.deps.Reloader, m.dir)
	case errors.Is(msg.Err, transfer.ErrAborted):
		m.state = Cancelled
	default:
		m.state = Failed
		m.lastErr = msg.Err
	}

	return m, nil
}

func fetchManifest(files Files, id string) tea.Cmd {
	return func() tea.Msg {
		result, err := files.GetProjectFiles(id).Wait(context.Background())
		return ManifestFetched{ProjectID: id, Files: result, Err: err}
	}
}

func runTransfer(session Session) tea.Cmd {
	return func() tea.Msg {
		err := session.Sync(context.Background())
		return TransferFinished{SessionID: session.SessionID(), Err: err}
	}
}

func reload(reloader Reloader, dir string) tea.Cmd {
	if reloader == nil {
		return nil
	}

	return func() tea.Msg {
		path, err := reloader.Reload(dir)
		return ProjectReloaded{Path: path, Err: err}
	}
}
