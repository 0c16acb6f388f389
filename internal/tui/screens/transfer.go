package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joe/qfieldsync/internal/syncflow"
	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/internal/tui/shared"
	"github.com/joe/qfieldsync/internal/tui/widgets"
)

const twoColumnMinWidth = 100

// TransferScreen shows a running transfer.
type TransferScreen struct {
	project   string
	dir       string
	direction transfer.Direction
	status    *widgets.Status
	spinner   spinner.Model
	overall   progress.Model
	aborting  bool
	width     int
	height    int
}

// NewTransferScreen creates the progress view for status.
func NewTransferScreen(project, dir string, direction transfer.Direction, status *widgets.Status) TransferScreen {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(shared.PrimaryColor())

	return TransferScreen{
		project:   project,
		dir:       dir,
		direction: direction,
		status:    status,
		spinner:   spin,
		overall:   shared.NewProgressModel(shared.ProgressBarWidth),
	}
}

// Init implements tea.Model
func (s TransferScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, shared.TickCmd())
}

// Status is the accumulated transfer state.
func (s TransferScreen) Status() *widgets.Status {
	return s.status
}

// Aborting reports whether the user asked to stop.
func (s TransferScreen) Aborting() bool {
	return s.aborting
}

// Update handles keys and redraw ticks.
func (s TransferScreen) Update(msg tea.Msg) (TransferScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.overall.Width = min(max(msg.Width-shared.InputWidthMargin, shared.MinInputWidth), shared.MaxProgressBarWidth)

		return s, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc || msg.String() == "q" {
			if s.aborting {
				return s, nil
			}

			s.aborting = true

			return s, func() tea.Msg { return syncflow.AbortRequested{} }
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)

		return s, cmd
	case shared.TickMsg:
		if s.status != nil && s.status.Done() {
			return s, nil
		}

		return s, shared.TickCmd()
	}

	return s, nil
}

// View renders the progress view.
func (s TransferScreen) View() string {
	var builder strings.Builder

	verb := "Uploading"
	if s.direction == transfer.ReplaceLocal {
		verb = "Downloading"
	}

	builder.WriteString(shared.RenderTitle(fmt.Sprintf("%s %s", verb, s.project)))
	builder.WriteString("\n")
	builder.WriteString(shared.RenderDim(s.dir))
	builder.WriteString("\n\n")

	if s.aborting {
		builder.WriteString(s.spinner.View())
		builder.WriteString(" Aborting transfer...\n")

		return builder.String()
	}

	if s.status == nil || s.status.StartTime.IsZero() {
		builder.WriteString(s.spinner.View())
		builder.WriteString(" Comparing local and remote files...\n\n")
		builder.WriteString(shared.RenderDim("Esc to abort"))

		return builder.String()
	}

	var percent float64
	if s.status.TotalBytes > 0 {
		percent = float64(s.status.TransferredBytes()) / float64(s.status.TotalBytes)
	} else if s.status.TotalFiles > 0 {
		percent = float64(s.status.ProcessedFiles+s.status.FailedFiles) / float64(s.status.TotalFiles)
	}

	builder.WriteString(shared.RenderProgress(s.overall, min(percent, 1)))
	builder.WriteString("\n")

	getStatus := s.Status
	left := widgets.NewProgressWidget(getStatus)() + "\n\n" + widgets.NewFileListWidget(getStatus)()
	right := shared.RenderActivityLog("Recent", strings.Split(widgets.NewActivityLogWidget(getStatus)(), "\n"), 0)

	if s.width >= twoColumnMinWidth {
		builder.WriteString(shared.RenderTwoColumnLayout(left, right, s.width-shared.InputWidthMargin, 0))
	} else {
		builder.WriteString(left)
	}

	if len(s.status.Errors) > 0 {
		builder.WriteString("\n")
		builder.WriteString(shared.RenderError(fmt.Sprintf("Errors (%d):", len(s.status.Errors))))
		builder.WriteString("\n")
		builder.WriteString(shared.RenderErrorList(shared.ErrorListConfig{
			Errors:   s.status.Errors,
			Context:  shared.ContextInProgress,
			MaxWidth: max(s.width-shared.InputWidthMargin, 0),
		}))
	}

	builder.WriteString("\n")
	builder.WriteString(shared.RenderDim("Esc or q to abort • Ctrl+C to quit"))

	return builder.String()
}
