package screens

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/syncflow"
	"github.com/joe/qfieldsync/internal/tui/shared"
	"github.com/joe/qfieldsync/internal/tui/widgets"
)

const manifestBoxWidth = 44

// ConfirmationScreen asks which side wins before a transfer.
type ConfirmationScreen struct {
	project cloud.CloudProject
	dir     string
}

// NewConfirmationScreen creates the confirmation for syncing project with dir.
func NewConfirmationScreen(project cloud.CloudProject, dir string) ConfirmationScreen {
	return ConfirmationScreen{project: project, dir: dir}
}

// Update maps keys to a ConflictResolved choice.
func (s ConfirmationScreen) Update(msg tea.Msg) (ConfirmationScreen, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	choice, ok := s.choiceFor(keyMsg)
	if !ok {
		return s, nil
	}

	return s, func() tea.Msg { return syncflow.ConflictResolved{Choice: choice} }
}

func (s ConfirmationScreen) choiceFor(msg tea.KeyMsg) (syncflow.Choice, bool) {
	if msg.Type == tea.KeyEsc {
		return syncflow.ChoiceCancel, true
	}

	switch msg.String() {
	case "u", "l":
		return syncflow.ChoiceReplaceRemote, true
	case "d", "r":
		return syncflow.ChoiceReplaceLocal, true
	case "c", "n":
		return syncflow.ChoiceCancel, true
	}

	return syncflow.ChoiceCancel, false
}

// View renders the question.
func (s ConfirmationScreen) View() string {
	var builder strings.Builder

	builder.WriteString(shared.RenderTitle("Synchronize " + s.project.Name))
	builder.WriteString("\n\n")
	builder.WriteString(shared.RenderLabel("Local directory: "))
	builder.WriteString(s.dir)
	builder.WriteString("\n")
	builder.WriteString("\n")
	builder.WriteString(shared.RenderWidgetBox("Cloud files",
		widgets.NewManifestWidget(func() []cloud.CloudFile { return s.project.CloudFiles })(), manifestBoxWidth))
	builder.WriteString("\n\n")
	builder.WriteString("Files that differ will be replaced on one side.\n\n")
	builder.WriteString("  [u] Upload: local files replace the cloud copies\n")
	builder.WriteString("  [d] Download: cloud files replace the local copies\n")
	builder.WriteString("  [c] Cancel\n\n")
	builder.WriteString(shared.RenderDim("Esc to cancel"))

	return builder.String()
}
