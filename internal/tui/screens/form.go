package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/tui/shared"
)

const (
	focusName = iota
	focusOwner
	focusDescription
	focusPrivate
	focusLocalDir
	focusCount
)

const (
	descriptionHeight = 3
	visibleFileRows   = 12
)

// FormScreen edits a project's metadata and local directory. A zero
// project id means a new project.
type FormScreen struct {
	project    cloud.CloudProject
	serverURL  string
	currentDir string

	name        textinput.Model
	owner       textinput.Model
	description textarea.Model
	private     bool
	localDir    textinput.Model
	focusIndex  int

	showFiles  bool
	fileOffset int
	busy       bool
	feedback   string
}

// NewFormScreen creates a form for project. currentDir is the directory of
// the project open in the host, used by "use current directory".
func NewFormScreen(project cloud.CloudProject, serverURL, currentDir string) FormScreen {
	name := textinput.New()
	name.Placeholder = "project name"
	name.SetValue(project.Name)

	owner := textinput.New()
	owner.Placeholder = "owner (defaults to you)"
	owner.SetValue(project.Owner)

	description := textarea.New()
	description.Placeholder = "description"
	description.SetHeight(descriptionHeight)
	description.ShowLineNumbers = false
	description.SetValue(project.Description)

	localDir := textinput.New()
	localDir.Placeholder = "~/qfieldsync/cloudprojects/" + project.Name
	localDir.SetValue(project.LocalDir)

	form := FormScreen{
		project:     project,
		serverURL:   serverURL,
		currentDir:  currentDir,
		name:        name,
		owner:       owner,
		description: description,
		private:     project.IsPrivate,
		localDir:    localDir,
	}

	return form.focus(focusName)
}

// Init implements tea.Model
func (s FormScreen) Init() tea.Cmd {
	return textinput.Blink
}

// ProjectID is the id of the edited project, "" for a new one.
func (s FormScreen) ProjectID() string {
	return s.project.ID
}

// IsNew reports whether the form creates a project.
func (s FormScreen) IsNew() bool {
	return s.project.ID == ""
}

// Input returns the metadata as entered.
func (s FormScreen) Input() cloud.ProjectInput {
	return cloud.ProjectInput{
		Name:        strings.TrimSpace(s.name.Value()),
		Owner:       strings.TrimSpace(s.owner.Value()),
		Description: s.description.Value(),
		IsPrivate:   s.private,
	}
}

// LocalDir is the directory field's value.
func (s FormScreen) LocalDir() string {
	return strings.TrimSpace(s.localDir.Value())
}

// SetLocalDir fills the directory field.
func (s FormScreen) SetLocalDir(dir string) FormScreen {
	s.localDir.SetValue(dir)
	s.localDir.CursorEnd()

	return s
}

// SetFiles updates the files tab with a freshly fetched manifest.
func (s FormScreen) SetFiles(files []cloud.CloudFile) FormScreen {
	s.project.CloudFiles = files
	s.fileOffset = 0

	return s
}

// ShowingFiles reports whether the files tab is open.
func (s FormScreen) ShowingFiles() bool {
	return s.showFiles
}

// SetBusy disables the form while a save runs.
func (s FormScreen) SetBusy(busy bool) FormScreen {
	s.busy = busy
	if busy {
		s.feedback = ""
	}

	return s
}

// Busy reports whether a save is in flight.
func (s FormScreen) Busy() bool {
	return s.busy
}

// SetFeedback shows msg at the bottom of the form.
func (s FormScreen) SetFeedback(msg string) FormScreen {
	s.feedback = msg
	return s
}

// Feedback is the message at the bottom of the form.
func (s FormScreen) Feedback() string {
	return s.feedback
}

// Update handles keys for the form.
func (s FormScreen) Update(msg tea.Msg) (FormScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := max(msg.Width-shared.InputWidthMargin, shared.MinInputWidth)
		s.name.Width = width
		s.owner.Width = width
		s.localDir.Width = width
		s.description.SetWidth(width)

		return s, nil
	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}

		if next, cmd, handled := s.handleShortcut(msg); handled {
			return next, cmd
		}

		if s.showFiles {
			return s.scrollFiles(msg), nil
		}

		if next, handled := s.handleNavigation(msg); handled {
			return next, nil
		}

		if s.focusIndex == focusPrivate {
			if msg.String() == " " || msg.Type == tea.KeyEnter {
				s.private = !s.private
			}

			return s, nil
		}
	}

	return s.updateFocused(msg)
}

func (s FormScreen) handleShortcut(msg tea.KeyMsg) (FormScreen, tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		if s.showFiles {
			s.showFiles = false
			return s, nil, true
		}

		return s, func() tea.Msg { return shared.CloseFormMsg{} }, true
	case "ctrl+s":
		return s.save()
	case "ctrl+o":
		id, initial := s.project.ID, s.LocalDir()

		return s, func() tea.Msg { return shared.ChooseDirectoryMsg{ProjectID: id, Initial: initial} }, true
	case "ctrl+u":
		if s.currentDir == "" {
			s.feedback = "No project is open in QGIS"
			return s, nil, true
		}

		return s.SetLocalDir(s.currentDir), nil, true
	case "ctrl+f":
		if s.IsNew() {
			return s, nil, true
		}

		s.showFiles = !s.showFiles

		return s, nil, true
	}

	return s, nil, false
}

func (s FormScreen) save() (FormScreen, tea.Cmd, bool) {
	input := s.Input()
	if input.Name == "" {
		s.feedback = "Name is required"
		return s, nil, true
	}

	msg := shared.SaveProjectMsg{ProjectID: s.project.ID, Input: input, LocalDir: s.LocalDir()}

	return s, func() tea.Msg { return msg }, true
}

func (s FormScreen) handleNavigation(msg tea.KeyMsg) (FormScreen, bool) {
	switch msg.Type {
	case tea.KeyTab:
		return s.focus((s.focusIndex + 1) % focusCount), true
	case tea.KeyShiftTab:
		return s.focus((s.focusIndex + focusCount - 1) % focusCount), true
	case tea.KeyEnter:
		if s.focusIndex == focusDescription || s.focusIndex == focusPrivate {
			return s, false
		}

		return s.focus((s.focusIndex + 1) % focusCount), true
	}

	return s, false
}

func (s FormScreen) scrollFiles(msg tea.KeyMsg) FormScreen {
	switch msg.String() {
	case "down", "j":
		if s.fileOffset < len(s.project.CloudFiles)-1 {
			s.fileOffset++
		}
	case "up", "k":
		if s.fileOffset > 0 {
			s.fileOffset--
		}
	}

	return s
}

func (s FormScreen) updateFocused(msg tea.Msg) (FormScreen, tea.Cmd) {
	var cmd tea.Cmd

	switch s.focusIndex {
	case focusName:
		s.name, cmd = s.name.Update(msg)
	case focusOwner:
		s.owner, cmd = s.owner.Update(msg)
	case focusDescription:
		s.description, cmd = s.description.Update(msg)
	case focusLocalDir:
		s.localDir, cmd = s.localDir.Update(msg)
	}

	return s, cmd
}

func (s FormScreen) focus(index int) FormScreen {
	s.focusIndex = index

	s.name.Blur()
	s.owner.Blur()
	s.description.Blur()
	s.localDir.Blur()

	switch index {
	case focusName:
		s.name.Focus()
	case focusOwner:
		s.owner.Focus()
	case focusDescription:
		s.description.Focus()
	case focusLocalDir:
		s.localDir.Focus()
	}

	return s
}

// View renders the form or the files tab.
func (s FormScreen) View() string {
	var builder strings.Builder

	title := "New project"
	if !s.IsNew() {
		title = "Project " + s.project.Name
	}

	builder.WriteString(shared.RenderTitle(title))
	builder.WriteString("\n")

	if !s.IsNew() {
		builder.WriteString(shared.RenderDim(s.project.URL(s.serverURL)))
		builder.WriteString("\n")
		builder.WriteString(shared.RenderDim(fmt.Sprintf("Created %s • Updated %s",
			shared.FormatTimestamp(s.project.CreatedAt), shared.FormatTimestamp(s.project.UpdatedAt))))
		builder.WriteString("\n")
	}

	builder.WriteString("\n")

	if s.showFiles {
		builder.WriteString(s.renderFiles())
	} else {
		builder.WriteString(s.renderFields())
	}

	builder.WriteString("\n")

	switch {
	case s.busy:
		builder.WriteString(shared.RenderDim("Saving..."))
		builder.WriteString("\n")
	case s.feedback != "":
		builder.WriteString(shared.RenderError(s.feedback))
		builder.WriteString("\n")
	}

	help := "Tab next • Ctrl+S save • Ctrl+O choose dir • Ctrl+U current project dir • Esc back"
	if !s.IsNew() {
		help += " • Ctrl+F files"
	}

	builder.WriteString(shared.RenderSubtitle(help))

	return shared.RenderBox(builder.String())
}

func (s FormScreen) renderFields() string {
	var builder strings.Builder

	label := func(index int, text string) {
		prefix := "  "
		if s.focusIndex == index {
			prefix = shared.PromptArrow()
		}

		builder.WriteString(prefix)
		builder.WriteString(shared.RenderLabel(text))
		builder.WriteString("\n")
	}

	label(focusName, "Name:")
	builder.WriteString(s.name.View())
	builder.WriteString("\n")
	label(focusOwner, "Owner:")
	builder.WriteString(s.owner.View())
	builder.WriteString("\n")
	label(focusDescription, "Description:")
	builder.WriteString(s.description.View())
	builder.WriteString("\n")

	checkbox := "[ ]"
	if s.private {
		checkbox = "[x]"
	}

	label(focusPrivate, "Private: "+checkbox)
	label(focusLocalDir, "Local directory:")
	builder.WriteString(s.localDir.View())
	builder.WriteString("\n")

	return builder.String()
}

func (s FormScreen) renderFiles() string {
	var builder strings.Builder

	files := s.project.CloudFiles

	switch {
	case files == nil:
		builder.WriteString(shared.RenderDim("Loading files..."))
		builder.WriteString("\n")

		return builder.String()
	case len(files) == 0:
		builder.WriteString(shared.RenderDim("No files on QFieldCloud yet"))
		builder.WriteString("\n")

		return builder.String()
	}

	builder.WriteString(shared.RenderLabel(fmt.Sprintf("Files (%d):", len(files))))
	builder.WriteString("\n")

	end := min(s.fileOffset+visibleFileRows, len(files))
	for _, file := range files[s.fileOffset:end] {
		fmt.Fprintf(&builder, "  %s  %s  %s\n",
			file.Name, shared.FormatBytes(file.Size), shared.FormatTimestamp(file.LastModified()))

		for i, version := range file.Versions {
			builder.WriteString(shared.RenderDim(fmt.Sprintf("      Version %d  %s  %s",
				i+1, shared.FormatBytes(version.Size), shared.FormatTimestamp(version.CreatedAt))))
			builder.WriteString("\n")
		}
	}

	if end < len(files) {
		builder.WriteString(shared.RenderDim(fmt.Sprintf("  ... %d more (↑/↓ to scroll)", len(files)-end)))
		builder.WriteString("\n")
	}

	return builder.String()
}
