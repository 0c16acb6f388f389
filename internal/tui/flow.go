package tui

import (
	"errors"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/internal/syncflow"
	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/internal/tui/screens"
	"github.com/joe/qfieldsync/internal/tui/shared"
	"github.com/joe/qfieldsync/internal/tui/widgets"
)

func (a AppModel) handleFlow(msg tea.Msg) (AppModel, tea.Cmd, bool) {
	switch msg.(type) {
	case syncflow.SyncRequested, syncflow.ManifestFetched, syncflow.DirectoryChosen,
		syncflow.DirectoryCancelled, syncflow.ConflictResolved, syncflow.TransferFinished,
		syncflow.AbortRequested, syncflow.Dismissed, syncflow.ProjectReloaded:
		next, cmd := a.updateMachine(msg)
		return next, cmd, true
	}

	return a, nil, false
}

func (a AppModel) startSync(projectID string) (AppModel, tea.Cmd) {
	project, ok := a.deps.Cache.FindProject(projectID)
	if !ok {
		a.projects = a.projects.SetFeedback("Project not found; refresh the list", true)
		return a, nil
	}

	return a.updateMachine(syncflow.SyncRequested{Project: project})
}

// updateMachine feeds msg to the sync flow and rebuilds the screen of the
// state it lands in.
func (a AppModel) updateMachine(msg tea.Msg) (AppModel, tea.Cmd) {
	prev := a.machine.State()
	prevErr := a.machine.LastError()

	var cmd tea.Cmd
	a.machine, cmd = a.machine.Update(msg)

	state := a.machine.State()

	if state == prev {
		return a.settle(msg, prevErr), cmd
	}

	a.deps.Logger.Debug().Stringer("from", prev).Stringer("to", state).Msg("sync flow")

	return a.enter(prev, state, cmd)
}

// settle handles messages that left the state unchanged.
func (a AppModel) settle(msg tea.Msg, prevErr error) AppModel {
	switch msg.(type) {
	case syncflow.DirectoryChosen:
		a.directory = a.directory.SetWarning(a.machine.Warning())
	case syncflow.ProjectReloaded:
		a.summary = a.summary.WithReload(a.machine.Reloaded())
	case syncflow.SyncRequested, syncflow.ConflictResolved:
		if err := a.machine.LastError(); err != nil && !errors.Is(err, prevErr) {
			a.projects = a.projects.SetFeedback(err.Error(), true)
		}
	}

	return a
}

func (a AppModel) enter(prev, state syncflow.State, cmd tea.Cmd) (AppModel, tea.Cmd) {
	cmds := []tea.Cmd{cmd}
	project := a.machine.Project()

	switch state {
	case syncflow.Idle:
		a.status = nil
		a.flowPhase = ""
		a.view = viewProjects
	case syncflow.AwaitingFileList:
		a.flowPhase = shared.PhaseFiles
		cmds = append(cmds, a.spinner.Tick)
	case syncflow.AwaitingDirectory:
		a.flowPhase = shared.PhaseDirectory
		cfg := a.deps.Config
		fallback := filepath.Join(cfg.DefaultDir, project.Name)
		initial := resolver.InitialPath(project.LocalDir, cfg.CurrentProjectDir(), fallback)

		a.directory = screens.NewDirectoryScreen(a.machine.PromptTitle(), initial)
		a.directory, _ = a.directory.Update(a.sizeMsg())
		cmds = append(cmds, a.directory.Init())
	case syncflow.AwaitingConfirmation:
		a.flowPhase = shared.PhaseConfirm
		a.confirmation = screens.NewConfirmationScreen(project, a.machine.Dir())
	case syncflow.Transferring:
		a.flowPhase = shared.PhaseTransfer
		a.status = widgets.NewStatus(a.machine.SessionID())

		direction := transfer.ReplaceRemote
		if a.machine.Choice() == syncflow.ChoiceReplaceLocal {
			direction = transfer.ReplaceLocal
		}

		a.transfer = screens.NewTransferScreen(project.Name, a.machine.Dir(), direction, a.status)
		a.transfer, _ = a.transfer.Update(a.sizeMsg())
		cmds = append(cmds, a.transfer.Init())
	case syncflow.Completed, syncflow.Cancelled, syncflow.Failed:
		status := a.status
		if prev != syncflow.Transferring {
			status = nil
		}

		a.summary = screens.NewSummaryScreen(state, status, a.machine.LastError(), a.deps.Config.LogPath)
		a.summary, _ = a.summary.Update(a.sizeMsg())

		if prev == syncflow.Transferring {
			a.deps.Cache.InvalidateFiles(project.ID)
			cmds = append(cmds, a.refreshCmd())
		}
	}

	return a, tea.Batch(cmds...)
}

// timelinePhase is the header step for the current flow state.
func (a AppModel) timelinePhase() string {
	switch a.machine.State() {
	case syncflow.Completed:
		return shared.PhaseDone
	case syncflow.Cancelled, syncflow.Failed:
		return a.flowPhase + shared.ErrorSuffix
	default:
		return a.flowPhase
	}
}

// View implements tea.Model
func (a AppModel) View() string {
	if a.machine.State() == syncflow.Idle {
		switch a.view {
		case viewLogin:
			return a.login.View()
		case viewForm:
			return a.form.View()
		case viewDirectory:
			return a.directory.View()
		default:
			return shared.RenderBox(a.projects.View())
		}
	}

	var body string

	switch a.machine.State() {
	case syncflow.AwaitingFileList:
		body = a.spinner.View() + " Fetching file list of " + a.machine.Project().Name + "..."
	case syncflow.AwaitingDirectory:
		return shared.RenderTimeline(a.timelinePhase()) + "\n" + a.directory.View()
	case syncflow.AwaitingConfirmation:
		body = a.confirmation.View()
	case syncflow.Transferring:
		body = a.transfer.View()
	default:
		body = a.summary.View()
	}

	sections := []string{shared.RenderTimeline(a.timelinePhase()), body}

	return shared.RenderBox(strings.Join(sections, "\n\n"))
}
