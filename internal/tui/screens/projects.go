package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/tui/shared"
)

const (
	markerColumnWidth  = 2
	nameColumnWidth    = 24
	ownerColumnWidth   = 14
	updatedColumnWidth = 18
	minDirColumnWidth  = 20
	tableChrome        = 12
	defaultTableHeight = 12
)

// ProjectsScreen lists the remote projects.
type ProjectsScreen struct {
	projects      []cloud.CloudProject
	currentDir    string
	table         table.Model
	spinner       spinner.Model
	loading       bool
	busy          bool
	confirmDelete string
	feedback      string
	feedbackIsErr bool
}

// NewProjectsScreen creates an empty list. currentDir marks the project
// open in the host application.
func NewProjectsScreen(currentDir string) ProjectsScreen {
	tbl := table.New(
		table.WithColumns(projectColumns(minDirColumnWidth)),
		table.WithFocused(true),
		table.WithHeight(defaultTableHeight),
	)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(shared.PrimaryColor())

	return ProjectsScreen{currentDir: currentDir, table: tbl, spinner: spin}
}

func projectColumns(dirWidth int) []table.Column {
	return []table.Column{
		{Title: "", Width: markerColumnWidth},
		{Title: "Name", Width: nameColumnWidth},
		{Title: "Owner", Width: ownerColumnWidth},
		{Title: "Local directory", Width: dirWidth},
		{Title: "Updated", Width: updatedColumnWidth},
	}
}

// Init implements tea.Model
func (s ProjectsScreen) Init() tea.Cmd {
	return s.spinner.Tick
}

// SetProjects replaces the rows, keeping the cursor on the same project.
func (s ProjectsScreen) SetProjects(projects []cloud.CloudProject) ProjectsScreen {
	selected := s.SelectedID()
	s.projects = projects

	rows := make([]table.Row, 0, len(projects))
	cursor := 0

	for i, project := range projects {
		marker := ""
		if project.IsCurrent(s.currentDir) {
			marker = shared.CurrentSymbol()
		}

		updated := "-"
		if !project.UpdatedAt.IsZero() {
			updated = project.UpdatedAt.Local().Format("2006-01-02 15:04")
		}

		rows = append(rows, table.Row{marker, project.Name, project.Owner, project.LocalDir, updated})

		if project.ID == selected {
			cursor = i
		}
	}

	s.table.SetRows(rows)
	s.table.SetCursor(cursor)

	return s
}

// Projects returns the listed projects.
func (s ProjectsScreen) Projects() []cloud.CloudProject {
	return s.projects
}

// SelectedID is the id of the highlighted project, or "".
func (s ProjectsScreen) SelectedID() string {
	cursor := s.table.Cursor()
	if cursor < 0 || cursor >= len(s.projects) {
		return ""
	}

	return s.projects[cursor].ID
}

// SetLoading shows the refresh spinner.
func (s ProjectsScreen) SetLoading(loading bool) ProjectsScreen {
	s.loading = loading
	return s
}

// Loading reports whether a refresh is running.
func (s ProjectsScreen) Loading() bool {
	return s.loading
}

// SetBusy disables the list while a delete runs.
func (s ProjectsScreen) SetBusy(busy bool) ProjectsScreen {
	s.busy = busy
	if busy {
		s.table.Blur()
	} else {
		s.table.Focus()
	}

	return s
}

// Busy reports whether the list is disabled.
func (s ProjectsScreen) Busy() bool {
	return s.busy
}

// SetFeedback shows msg under the list; isErr styles it as an error.
func (s ProjectsScreen) SetFeedback(msg string, isErr bool) ProjectsScreen {
	s.feedback = msg
	s.feedbackIsErr = isErr

	return s
}

// Feedback is the message under the list.
func (s ProjectsScreen) Feedback() string {
	return s.feedback
}

// Update handles navigation and actions.
func (s ProjectsScreen) Update(msg tea.Msg) (ProjectsScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		dirWidth := max(msg.Width-markerColumnWidth-nameColumnWidth-ownerColumnWidth-updatedColumnWidth-tableChrome,
			minDirColumnWidth)
		s.table.SetColumns(projectColumns(dirWidth))
		s.table.SetHeight(max(msg.Height-tableChrome, markerColumnWidth))

		return s, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)

		return s, cmd
	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}

		if s.confirmDelete != "" {
			return s.handleDeleteConfirm(msg)
		}

		if cmd, handled := s.actionFor(msg); handled {
			return s.clearFeedback(), cmd
		}

		if msg.String() == "d" && s.SelectedID() != "" {
			s.confirmDelete = s.SelectedID()
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.table, cmd = s.table.Update(msg)

	return s, cmd
}

func (s ProjectsScreen) clearFeedback() ProjectsScreen {
	s.feedback = ""
	return s
}

func (s ProjectsScreen) actionFor(msg tea.KeyMsg) (tea.Cmd, bool) {
	id := s.SelectedID()

	switch msg.String() {
	case "enter", "s":
		if id == "" {
			return nil, true
		}

		return func() tea.Msg { return shared.SyncProjectMsg{ProjectID: id} }, true
	case "e":
		if id == "" {
			return nil, true
		}

		return func() tea.Msg { return shared.OpenFormMsg{ProjectID: id} }, true
	case "n":
		return func() tea.Msg { return shared.OpenFormMsg{} }, true
	case "r":
		return func() tea.Msg { return shared.RefreshRequestedMsg{} }, true
	case "L":
		return func() tea.Msg { return shared.LogoutRequestedMsg{} }, true
	case "q":
		return tea.Quit, true
	}

	return nil, false
}

func (s ProjectsScreen) handleDeleteConfirm(msg tea.KeyMsg) (ProjectsScreen, tea.Cmd) {
	id := s.confirmDelete
	s.confirmDelete = ""

	if msg.String() != "y" {
		return s, nil
	}

	return s, func() tea.Msg { return shared.DeleteProjectMsg{ProjectID: id} }
}

// ConfirmingDelete reports whether a delete awaits y/n.
func (s ProjectsScreen) ConfirmingDelete() bool {
	return s.confirmDelete != ""
}

// View renders the list.
func (s ProjectsScreen) View() string {
	var builder strings.Builder

	builder.WriteString(shared.RenderTitle("QFieldCloud projects"))

	if s.loading {
		builder.WriteString("  ")
		builder.WriteString(s.spinner.View())
	}

	builder.WriteString("\n\n")

	if len(s.projects) == 0 && !s.loading {
		builder.WriteString(shared.RenderDim("No projects. Press n to create one."))
		builder.WriteString("\n")
	} else {
		builder.WriteString(s.table.View())
		builder.WriteString("\n")
	}

	if current, ok := s.currentProject(); ok {
		builder.WriteString(shared.RenderLabel("Open in QGIS: "))
		builder.WriteString(shared.CurrentProjectStyle().Render(current.Name))
		builder.WriteString("\n")
	}

	builder.WriteString("\n")

	switch {
	case s.confirmDelete != "":
		builder.WriteString(shared.RenderWarning(fmt.Sprintf("Delete %s from QFieldCloud? (y/n)", s.nameOf(s.confirmDelete))))
		builder.WriteString("\n")
	case s.busy:
		builder.WriteString(shared.RenderDim("Deleting..."))
		builder.WriteString("\n")
	case s.feedback != "" && s.feedbackIsErr:
		builder.WriteString(shared.RenderError(s.feedback))
		builder.WriteString("\n")
	case s.feedback != "":
		builder.WriteString(shared.RenderSuccess(s.feedback))
		builder.WriteString("\n")
	}

	builder.WriteString(shared.RenderSubtitle(
		"Enter sync • e edit • n new • d delete • r refresh • L logout • q quit"))

	return builder.String()
}

func (s ProjectsScreen) currentProject() (cloud.CloudProject, bool) {
	for _, project := range s.projects {
		if project.IsCurrent(s.currentDir) {
			return project, true
		}
	}

	return cloud.CloudProject{}, false
}

func (s ProjectsScreen) nameOf(id string) string {
	for _, project := range s.projects {
		if project.ID == id {
			return project.Name
		}
	}

	return id
}
