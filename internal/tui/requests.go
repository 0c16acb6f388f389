package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/projects"
	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/internal/syncflow"
	"github.com/joe/qfieldsync/internal/tui/screens"
	"github.com/joe/qfieldsync/internal/tui/shared"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

func (a AppModel) handleIntent(msg tea.Msg) (AppModel, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case shared.LoginRequestedMsg:
		next, cmd := a.requestLogin(msg)
		return next, cmd, true
	case shared.RefreshRequestedMsg:
		return a, a.refreshCmd(), true
	case shared.OpenFormMsg:
		next, cmd := a.openForm(msg.ProjectID)
		return next, cmd, true
	case shared.CloseFormMsg:
		a.view = viewProjects
		a.hasForm = false

		return a, nil, true
	case shared.SaveProjectMsg:
		next, cmd := a.requestSave(msg)
		return next, cmd, true
	case shared.DeleteProjectMsg:
		next, cmd := a.requestDelete(msg.ProjectID)
		return next, cmd, true
	case shared.LogoutRequestedMsg:
		next, cmd := a.requestLogout()
		return next, cmd, true
	case shared.SyncProjectMsg:
		next, cmd := a.startSync(msg.ProjectID)
		return next, cmd, true
	case shared.ChooseDirectoryMsg:
		next, cmd := a.chooseDirectory(msg)
		return next, cmd, true
	case shared.DirectoryPickedMsg:
		if a.machine.State() == syncflow.AwaitingDirectory {
			next, cmd := a.updateMachine(syncflow.DirectoryChosen{Path: msg.Path})
			return next, cmd, true
		}

		return a.formDirectoryPicked(msg.Path), nil, true
	case shared.DirectoryCancelledMsg:
		if a.machine.State() == syncflow.AwaitingDirectory {
			next, cmd := a.updateMachine(syncflow.DirectoryCancelled{})
			return next, cmd, true
		}

		a.view = viewForm

		return a, nil, true
	}

	return a, nil, false
}

func (a AppModel) handleResult(msg tea.Msg) (AppModel, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case shared.LoginFinishedMsg:
		next, cmd := a.loginFinished(msg)
		return next, cmd, true
	case shared.ProjectSavedMsg:
		next, cmd := a.projectSaved(msg)
		return next, cmd, true
	case shared.ProjectDeletedMsg:
		next, cmd := a.projectDeleted(msg)
		return next, cmd, true
	case shared.LogoutFinishedMsg:
		next, cmd := a.logoutFinished(msg)
		return next, cmd, true
	}

	return a, nil, false
}

func (a AppModel) stale(kind string, requestID, pending int) bool {
	if requestID == pending {
		return false
	}

	a.deps.Logger.Debug().Str("request", kind).Int("id", requestID).Msg("stale reply discarded")

	return true
}

// ============================================================================
// Login / Logout
// ============================================================================

func (a AppModel) requestLogin(msg shared.LoginRequestedMsg) (AppModel, tea.Cmd) {
	if a.login.Busy() {
		return a, nil
	}

	a, id := a.nextRequest()
	a.pendingLogin = id
	a.loginUsername = msg.Username
	a.login = a.login.SetBusy(true)

	reply := a.deps.API.LoginAsync(a.ctx, msg.Username, msg.Password)

	return a, await(reply, func(creds cloud.Credentials, err error) tea.Msg {
		return shared.LoginFinishedMsg{RequestID: id, Credentials: creds, Err: err}
	})
}

func (a AppModel) loginFinished(msg shared.LoginFinishedMsg) (AppModel, tea.Cmd) {
	if a.stale("login", msg.RequestID, a.pendingLogin) {
		return a, nil
	}

	a.pendingLogin = 0
	a.login = a.login.SetBusy(false)

	if msg.Err != nil {
		a.deps.Logger.Warn().Err(msg.Err).Msg("login failed")
		a.login = a.login.SetFeedback("Login failed: " + cloud.ErrorReason(msg.Err))

		return a, nil
	}

	username := msg.Credentials.Username
	if username == "" {
		username = a.loginUsername
	}

	if err := a.deps.Prefs.SetCredentials(username, msg.Credentials.Token); err != nil {
		a.deps.Logger.Error().Err(err).Msg("saving credentials")
	}

	a.deps.Logger.Info().Str("user", username).Msg("logged in")
	a.view = viewProjects

	return a, a.refreshCmd()
}

func (a AppModel) requestLogout() (AppModel, tea.Cmd) {
	a, id := a.nextRequest()
	a.pendingLogout = id
	a.projects = a.projects.SetFeedback("Logging out...", false)

	reply := a.deps.API.LogoutAsync(a.ctx)

	return a, await(reply, func(_ struct{}, err error) tea.Msg {
		return shared.LogoutFinishedMsg{RequestID: id, Err: err}
	})
}

func (a AppModel) logoutFinished(msg shared.LogoutFinishedMsg) (AppModel, tea.Cmd) {
	if a.stale("logout", msg.RequestID, a.pendingLogout) {
		return a, nil
	}

	a.pendingLogout = 0

	if msg.Err != nil {
		a.projects = a.projects.SetFeedback("Logout failed: "+cloud.ErrorReason(msg.Err), true)
		return a, nil
	}

	if err := a.deps.Prefs.SetCredentials("", ""); err != nil {
		a.deps.Logger.Error().Err(err).Msg("clearing credentials")
	}

	a.deps.Logger.Info().Msg("logged out")
	a.machine = a.machine.Abort()

	return a, tea.Quit
}

// ============================================================================
// Create / Update / Delete
// ============================================================================

func (a AppModel) openForm(projectID string) (AppModel, tea.Cmd) {
	project := cloud.CloudProject{}

	if projectID != "" {
		found, ok := a.deps.Cache.FindProject(projectID)
		if !ok {
			a.projects = a.projects.SetFeedback("Project not found; refresh the list", true)
			return a, nil
		}

		project = found

		if !project.FilesFetched() {
			a.deps.Cache.GetProjectFiles(projectID)
		}
	}

	a.form = screens.NewFormScreen(project, a.deps.API.ServerURL(), a.deps.Config.CurrentProjectDir())
	a.form, _ = a.form.Update(a.sizeMsg())
	a.hasForm = true
	a.view = viewForm

	return a, a.form.Init()
}

func (a AppModel) requestSave(msg shared.SaveProjectMsg) (AppModel, tea.Cmd) {
	if a.form.Busy() {
		return a, nil
	}

	a, id := a.nextRequest()
	a.pendingSave = id
	a.form = a.form.SetBusy(true)

	created := msg.ProjectID == ""
	localDir := msg.LocalDir

	var reply *cloud.Reply[cloud.CloudProject]
	if created {
		reply = a.deps.API.CreateProjectAsync(a.ctx, msg.Input)
	} else {
		reply = a.deps.API.UpdateProjectAsync(a.ctx, msg.ProjectID, msg.Input)
	}

	return a, await(reply, func(project cloud.CloudProject, err error) tea.Msg {
		return shared.ProjectSavedMsg{RequestID: id, Created: created, Project: project, LocalDir: localDir, Err: err}
	})
}

func (a AppModel) projectSaved(msg shared.ProjectSavedMsg) (AppModel, tea.Cmd) {
	if a.stale("save", msg.RequestID, a.pendingSave) {
		return a, nil
	}

	a.pendingSave = 0
	a.form = a.form.SetBusy(false)

	action := "update"
	if msg.Created {
		action = "create"
	}

	if msg.Err != nil {
		a.deps.Logger.Warn().Err(msg.Err).Str("action", action).Msg("project save failed")
		a.form = a.form.SetFeedback("Project " + action + " failed: " + cloud.ErrorReason(msg.Err))

		return a, nil
	}

	a.deps.Logger.Info().Str("project", msg.Project.ID).Str("action", action).Msg("project saved")
	a.projects = a.projects.SetFeedback("Project "+msg.Project.Name+" saved", false)

	dir := filesystem.ExpandHome(msg.LocalDir)
	if dir != a.deps.Prefs.LocalDir(msg.Project.ID) {
		if err := a.deps.Prefs.SetLocalDir(msg.Project.ID, dir); err != nil {
			a.projects = a.projects.SetFeedback("Saving local directory failed: "+err.Error(), true)
		}
	}

	a.view = viewProjects
	a.hasForm = false

	return a, a.refreshCmd()
}

func (a AppModel) requestDelete(projectID string) (AppModel, tea.Cmd) {
	if a.projects.Busy() {
		return a, nil
	}

	a, id := a.nextRequest()
	a.pendingDelete = id
	a.projects = a.projects.SetBusy(true)

	reply := a.deps.API.DeleteProjectAsync(a.ctx, projectID)

	return a, await(reply, func(_ struct{}, err error) tea.Msg {
		return shared.ProjectDeletedMsg{RequestID: id, ProjectID: projectID, Err: err}
	})
}

func (a AppModel) projectDeleted(msg shared.ProjectDeletedMsg) (AppModel, tea.Cmd) {
	if a.stale("delete", msg.RequestID, a.pendingDelete) {
		return a, nil
	}

	a.pendingDelete = 0
	a.projects = a.projects.SetBusy(false)

	if msg.Err != nil {
		a.deps.Logger.Warn().Err(msg.Err).Str("project", msg.ProjectID).Msg("project delete failed")
		a.projects = a.projects.SetFeedback("Project delete failed: "+cloud.ErrorReason(msg.Err), true)

		return a, nil
	}

	if a.deps.Prefs.LocalDir(msg.ProjectID) != "" {
		if err := a.deps.Prefs.SetLocalDir(msg.ProjectID, ""); err != nil {
			a.deps.Logger.Error().Err(err).Msg("removing binding")
		}
	}

	a.deps.Cache.InvalidateFiles(msg.ProjectID)
	a.projects = a.projects.SetFeedback("Project deleted", false)

	return a, a.refreshCmd()
}

// ============================================================================
// Form directory prompt
// ============================================================================

func (a AppModel) chooseDirectory(msg shared.ChooseDirectoryMsg) (AppModel, tea.Cmd) {
	cfg := a.deps.Config
	initial := resolver.InitialPath(msg.Initial, cfg.CurrentProjectDir(), cfg.DefaultDir)

	a.directory = screens.NewDirectoryScreen(resolver.PromptTitle(a.formRemoteEmpty()), initial)
	a.directory, _ = a.directory.Update(a.sizeMsg())
	a.view = viewDirectory

	return a, a.directory.Init()
}

// A manifest that has not arrived yet counts as non-empty, the stricter rule.
func (a AppModel) formRemoteEmpty() bool {
	id := a.form.ProjectID()
	if id == "" {
		return true
	}

	project, ok := a.deps.Cache.FindProject(id)
	if !ok || !project.FilesFetched() {
		return false
	}

	return len(project.CloudFiles) == 0
}

func (a AppModel) formDirectoryPicked(path string) AppModel {
	dir := filesystem.ExpandHome(path)

	if err := a.deps.Checker.Check(dir, a.formRemoteEmpty()); err != nil {
		a.directory = a.directory.SetWarning(err)
		return a
	}

	a.form = a.form.SetLocalDir(dir)
	a.view = viewForm

	return a
}

// ============================================================================
// Cache events
// ============================================================================

func (a AppModel) handleProjectsEvent(event projects.Event) AppModel {
	switch e := event.(type) {
	case projects.ProjectsStarted:
		a.projects = a.projects.SetLoading(true)
	case projects.ProjectsUpdated:
		a.projects = a.projects.SetLoading(false).SetProjects(a.deps.Cache.Projects())
	case projects.ProjectsError:
		a.projects = a.projects.SetLoading(false)

		if errors.Is(e.Err, cloud.ErrUnauthorized) || errors.Is(e.Err, cloud.ErrNotLoggedIn) {
			a.view = viewLogin
			a.hasForm = false
			a.login = a.login.SetFeedback("Session expired, please log in again")

			return a
		}

		a.projects = a.projects.SetFeedback("Project refresh failed: "+cloud.ErrorReason(e.Err), true)
	case projects.ProjectFilesUpdated:
		if a.hasForm && a.form.ProjectID() == e.ID {
			if project, ok := a.deps.Cache.FindProject(e.ID); ok {
				a.form = a.form.SetFiles(project.CloudFiles)
			}
		}
	case projects.ProjectFilesError:
		if a.hasForm && a.form.ProjectID() == e.ID {
			a.form = a.form.SetFeedback("Loading files failed: " + cloud.ErrorReason(e.Err))
		}
	}

	return a
}
