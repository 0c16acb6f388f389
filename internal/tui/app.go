// Package tui is the interactive front end. AppModel owns the screens,
// routes intents from them to the cloud client and the sync flow, and
// drops replies that arrive after the user moved on.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/config"
	"github.com/joe/qfieldsync/internal/preferences"
	"github.com/joe/qfieldsync/internal/projects"
	"github.com/joe/qfieldsync/internal/syncflow"
	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/internal/tui/screens"
	"github.com/joe/qfieldsync/internal/tui/shared"
	"github.com/joe/qfieldsync/internal/tui/widgets"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

// API is the part of the cloud client the controller calls.
type API interface {
	HasToken() bool
	ServerURL() string
	LoginAsync(ctx context.Context, username, password string) *cloud.Reply[cloud.Credentials]
	LogoutAsync(ctx context.Context) *cloud.Reply[struct{}]
	CreateProjectAsync(ctx context.Context, input cloud.ProjectInput) *cloud.Reply[cloud.CloudProject]
	UpdateProjectAsync(ctx context.Context, id string, input cloud.ProjectInput) *cloud.Reply[cloud.CloudProject]
	DeleteProjectAsync(ctx context.Context, id string) *cloud.Reply[struct{}]
}

// Cache is the shared project cache.
type Cache interface {
	Subscribe(emitter projects.EventEmitter) func()
	Refresh() *cloud.Reply[[]cloud.CloudProject]
	GetProjectFiles(id string) *cloud.Reply[[]cloud.CloudFile]
	InvalidateFiles(id string)
	Projects() []cloud.CloudProject
	FindProject(id string) (cloud.CloudProject, bool)
}

// Preferences persists bindings and credentials.
type Preferences interface {
	Values() preferences.Values
	LocalDir(projectID string) string
	SetLocalDir(projectID, dir string) error
	SetCredentials(username, token string) error
}

// Deps are the collaborators of an AppModel. Reloader, FileSystem and
// Bridge may be nil.
type Deps struct {
	Config      *config.Config
	API         API
	TransferAPI transfer.API
	Cache       Cache
	Prefs       Preferences
	Checker     syncflow.Checker
	Reloader    syncflow.Reloader
	FileSystem  filesystem.FileSystem
	Bridge      *shared.EventBridge
	Logger      zerolog.Logger
}

type view int

const (
	viewLogin view = iota
	viewProjects
	viewForm
	viewDirectory
)

// AppModel is the top-level bubbletea model.
type AppModel struct {
	deps        *Deps
	bridge      *shared.EventBridge
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	view      view
	login     screens.LoginScreen
	projects  screens.ProjectsScreen
	form      screens.FormScreen
	hasForm   bool
	directory screens.DirectoryScreen

	machine      syncflow.Machine
	flowPhase    string
	confirmation screens.ConfirmationScreen
	transfer     screens.TransferScreen
	summary      screens.SummaryScreen
	status       *widgets.Status
	spinner      spinner.Model

	requestSeq    int
	pendingLogin  int
	loginUsername string
	pendingSave   int
	pendingDelete int
	pendingLogout int

	width  int
	height int
}

// NewAppModel wires the controller. It subscribes to the cache right away
// so no event between construction and Init is lost.
func NewAppModel(deps Deps) AppModel {
	bridge := deps.Bridge
	if bridge == nil {
		bridge = shared.NewEventBridge()
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := AppModel{
		deps:   &deps,
		bridge: bridge,
		ctx:    ctx,
		cancel: cancel,
	}

	app.unsubscribe = deps.Cache.Subscribe(bridge)
	app.machine = syncflow.New(syncflow.Deps{
		Files:       deps.Cache,
		Checker:     deps.Checker,
		Bindings:    deps.Prefs,
		NewTransfer: newTransferFunc(app.deps, bridge),
		Reloader:    deps.Reloader,
		Logger:      deps.Logger,
	})

	app.login = screens.NewLoginScreen(deps.API.ServerURL(), deps.Prefs.Values().LastUsername)
	app.projects = screens.NewProjectsScreen(deps.Config.CurrentProjectDir()).SetProjects(deps.Cache.Projects())

	app.spinner = spinner.New()
	app.spinner.Spinner = spinner.Dot
	app.spinner.Style = lipgloss.NewStyle().Foreground(shared.PrimaryColor())

	app.view = viewLogin
	if deps.API.HasToken() {
		app.view = viewProjects
	}

	return app
}

func newTransferFunc(deps *Deps, bridge *shared.EventBridge) syncflow.NewTransferFunc {
	return func(
		project cloud.CloudProject,
		dir string,
		mode transfer.Mode,
		direction transfer.Direction,
	) syncflow.Session {
		opts := []transfer.Option{
			transfer.WithEmitter(bridge.Transfer()),
			transfer.WithWorkers(deps.Config.Workers),
			transfer.WithLogger(deps.Logger),
		}

		if deps.FileSystem != nil {
			opts = append(opts, transfer.WithFileSystem(deps.FileSystem))
		}

		return transfer.New(deps.TransferAPI, project, dir, mode, direction, opts...)
	}
}

// Init implements tea.Model
func (a AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{a.bridge.ListenCmd(), a.projects.Init()}

	if a.view == viewLogin {
		cmds = append(cmds, a.login.Init())
	} else {
		cmds = append(cmds, a.refreshCmd())
	}

	return tea.Batch(cmds...)
}

// Close aborts a running transfer and every pending request. Call it with
// the final model once the program exits.
func (a AppModel) Close() {
	a.machine.Abort()
	a.cancel()

	if a.unsubscribe != nil {
		a.unsubscribe()
	}

	if dropped := a.bridge.Dropped(); dropped > 0 {
		a.deps.Logger.Debug().Int64("dropped", dropped).Msg("events dropped by full bridge")
	}

	a.bridge.Close()
}

// Machine exposes the sync flow state.
func (a AppModel) Machine() syncflow.Machine {
	return a.machine
}

// Login returns the login screen.
func (a AppModel) Login() screens.LoginScreen {
	return a.login
}

// Projects returns the project list screen.
func (a AppModel) Projects() screens.ProjectsScreen {
	return a.projects
}

// Form returns the project form and whether one is open.
func (a AppModel) Form() (screens.FormScreen, bool) {
	return a.form, a.hasForm
}

// Directory returns the directory prompt.
func (a AppModel) Directory() screens.DirectoryScreen {
	return a.directory
}

// Status is the progress of the running or last transfer, or nil.
func (a AppModel) Status() *widgets.Status {
	return a.status
}

// Update implements tea.Model
func (a AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a.resize(msg)
	case tea.KeyMsg:
		if msg.String() == shared.KeyCtrlC {
			a.machine = a.machine.Abort()
			return a, tea.Quit
		}

		return a.delegate(msg)
	case spinner.TickMsg:
		return a.tickSpinners(msg)
	case shared.ProjectsEventMsg:
		a = a.handleProjectsEvent(msg.Event)
		return a, a.bridge.ListenCmd()
	case shared.TransferEventMsg:
		if a.status != nil && !a.status.Apply(msg.Event, time.Now()) {
			a.deps.Logger.Debug().Str("session", transfer.SessionOf(msg.Event)).Msg("stale transfer event discarded")
		}

		return a, a.bridge.ListenCmd()
	}

	if next, cmd, handled := a.handleIntent(msg); handled {
		return next, cmd
	}

	if next, cmd, handled := a.handleResult(msg); handled {
		return next, cmd
	}

	if next, cmd, handled := a.handleFlow(msg); handled {
		return next, cmd
	}

	return a.delegate(msg)
}

func (a AppModel) resize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.width = msg.Width
	a.height = msg.Height

	a.login, _ = a.login.Update(msg)
	a.projects, _ = a.projects.Update(msg)
	a.directory, _ = a.directory.Update(msg)
	a.transfer, _ = a.transfer.Update(msg)
	a.summary, _ = a.summary.Update(msg)

	if a.hasForm {
		a.form, _ = a.form.Update(msg)
	}

	return a, nil
}

func (a AppModel) sizeMsg() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height}
}

func (a AppModel) tickSpinners(msg spinner.TickMsg) (tea.Model, tea.Cmd) {
	var cmds [3]tea.Cmd

	a.spinner, cmds[0] = a.spinner.Update(msg)
	a.projects, cmds[1] = a.projects.Update(msg)
	a.transfer, cmds[2] = a.transfer.Update(msg)

	return a, tea.Batch(cmds[:]...)
}

// Keys and screen-internal messages go to whatever is on screen.
func (a AppModel) delegate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch a.machine.State() {
	case syncflow.Idle:
	case syncflow.AwaitingFileList:
		return a, nil
	case syncflow.AwaitingDirectory:
		a.directory, cmd = a.directory.Update(msg)
		return a, cmd
	case syncflow.AwaitingConfirmation:
		a.confirmation, cmd = a.confirmation.Update(msg)
		return a, cmd
	case syncflow.Transferring:
		a.transfer, cmd = a.transfer.Update(msg)
		return a, cmd
	case syncflow.Completed, syncflow.Cancelled, syncflow.Failed:
		a.summary, cmd = a.summary.Update(msg)
		return a, cmd
	}

	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewProjects:
		a.projects, cmd = a.projects.Update(msg)
	case viewForm:
		a.form, cmd = a.form.Update(msg)
	case viewDirectory:
		a.directory, cmd = a.directory.Update(msg)
	}

	return a, cmd
}

func (a AppModel) refreshCmd() tea.Cmd {
	cache := a.deps.Cache

	return func() tea.Msg {
		cache.Refresh()
		return nil
	}
}

func (a AppModel) nextRequest() (AppModel, int) {
	a.requestSeq++
	return a, a.requestSeq
}

// await turns a Reply into a command yielding wrap's message.
func await[T any](reply *cloud.Reply[T], wrap func(T, error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		value, err := reply.Wait(context.Background())
		return wrap(value, err)
	}
}
