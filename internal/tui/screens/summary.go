package screens

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/syncflow"
	"github.com/joe/qfieldsync/internal/tui/shared"
	"github.com/joe/qfieldsync/internal/tui/widgets"
)

// SummaryScreen shows how a sync flow ended.
type SummaryScreen struct {
	state    syncflow.State
	status   *widgets.Status
	err      error
	reloaded syncflow.ProjectReloaded
	logPath  string
	width    int
}

// NewSummaryScreen creates the summary for a flow that ended in state.
// status is nil when the flow ended before a transfer started.
func NewSummaryScreen(state syncflow.State, status *widgets.Status, err error, logPath string) SummaryScreen {
	return SummaryScreen{state: state, status: status, err: err, logPath: logPath}
}

// WithReload records the outcome of reopening the host project.
func (s SummaryScreen) WithReload(reloaded syncflow.ProjectReloaded) SummaryScreen {
	s.reloaded = reloaded
	return s
}

// State is the terminal state summarised.
func (s SummaryScreen) State() syncflow.State {
	return s.state
}

// Update dismisses the summary on Enter or Esc.
func (s SummaryScreen) Update(msg tea.Msg) (SummaryScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc || msg.String() == "q" {
			return s, func() tea.Msg { return syncflow.Dismissed{} }
		}
	}

	return s, nil
}

// View renders the summary.
func (s SummaryScreen) View() string {
	var builder strings.Builder

	switch s.state {
	case syncflow.Completed:
		builder.WriteString(shared.RenderSuccess(shared.SuccessSymbol() + " Sync complete"))
	case syncflow.Cancelled:
		builder.WriteString(shared.RenderWarning(shared.CancelledSymbol() + " Sync cancelled"))
	default:
		builder.WriteString(shared.RenderError(shared.ErrorSymbol() + " Sync failed"))
	}

	builder.WriteString("\n\n")

	if s.status != nil && s.status.Done() {
		builder.WriteString(widgets.NewSummaryWidget(s.statusFn)())
		builder.WriteString("\n")

		if len(s.status.Errors) > 0 {
			builder.WriteString("\n")
			builder.WriteString(shared.RenderError("Errors:"))
			builder.WriteString("\n")
			builder.WriteString(shared.RenderErrorList(shared.ErrorListConfig{
				Errors:   s.status.Errors,
				Context:  shared.ContextComplete,
				MaxWidth: max(s.width-shared.InputWidthMargin, 0),
			}))
		}
	}

	if s.state == syncflow.Failed && s.err != nil {
		builder.WriteString("\n")
		builder.WriteString(shared.RenderFailure("Sync failed: ", s.err))
		builder.WriteString("\n")
	}

	switch {
	case s.reloaded.Err != nil:
		builder.WriteString("\n")
		builder.WriteString(shared.RenderWarning("Could not reopen project: " + s.reloaded.Err.Error()))
		builder.WriteString("\n")
	case s.reloaded.Path != "":
		builder.WriteString("\n")
		builder.WriteString(shared.RenderDim("Reopened " + s.reloaded.Path))
		builder.WriteString("\n")
	}

	builder.WriteString("\n")
	builder.WriteString(shared.RenderSubtitle("Enter or Esc to return to projects"))

	if s.logPath != "" {
		builder.WriteString("\n")
		builder.WriteString(shared.RenderDim("Log: " + s.logPath))
	}

	return builder.String()
}

func (s SummaryScreen) statusFn() *widgets.Status {
	return s.status
}
