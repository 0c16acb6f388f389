package screens

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/internal/tui/shared"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

const maxShownCompletions = 8

// DirectoryScreen prompts for a local directory with tab completion.
type DirectoryScreen struct {
	title           string
	input           textinput.Model
	completions     []string
	completionIndex int
	showCompletions bool
	warning         string
	warningTitle    string
}

// NewDirectoryScreen creates a prompt titled title, pre-filled with initial.
func NewDirectoryScreen(title, initial string) DirectoryScreen {
	input := textinput.New()
	input.Placeholder = "/path/to/project"
	input.Prompt = shared.PromptArrow()
	input.SetValue(initial)
	input.CursorEnd()
	input.Focus()

	return DirectoryScreen{title: title, input: input}
}

// Init implements tea.Model
func (s DirectoryScreen) Init() tea.Cmd {
	return textinput.Blink
}

// Value is the path currently entered.
func (s DirectoryScreen) Value() string {
	return s.input.Value()
}

// Title is the prompt heading.
func (s DirectoryScreen) Title() string {
	return s.title
}

// SetWarning shows a validation failure above the input. A nil err clears it.
func (s DirectoryScreen) SetWarning(err error) DirectoryScreen {
	s.warning, s.warningTitle = "", ""
	if err == nil {
		return s
	}

	s.warning = err.Error()

	var validation *resolver.ValidationError
	if errors.As(err, &validation) {
		s.warningTitle = validation.Title()
		s.warning = validation.Message()
	}

	return s
}

// Warning is the message currently shown, or "".
func (s DirectoryScreen) Warning() string {
	return s.warning
}

// Update handles keys for the prompt.
func (s DirectoryScreen) Update(msg tea.Msg) (DirectoryScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.input.Width = max(msg.Width-shared.InputWidthMargin, shared.MinInputWidth)
		return s, nil
	case tea.KeyMsg:
		return s.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	return s, cmd
}

// View renders the prompt.
func (s DirectoryScreen) View() string {
	var builder strings.Builder

	builder.WriteString(shared.RenderTitle(s.title))
	builder.WriteString("\n\n")
	builder.WriteString(shared.RenderLabel("Local directory:"))
	builder.WriteString("\n")
	builder.WriteString(s.input.View())
	builder.WriteString("\n")

	if s.showCompletions && len(s.completions) > 0 {
		builder.WriteString(s.formatCompletionList())
		builder.WriteString("\n")
	}

	if s.warning != "" {
		builder.WriteString("\n")

		if s.warningTitle != "" {
			builder.WriteString(shared.RenderWarning(s.warningTitle))
			builder.WriteString("\n")
		}

		builder.WriteString(shared.RenderError(s.warning))
		builder.WriteString("\n")
	}

	builder.WriteString("\n")
	builder.WriteString(shared.RenderSubtitle("Tab/Shift+Tab to cycle • → to accept & continue • Enter to choose • Esc to cancel"))

	return shared.RenderBox(builder.String())
}

func (s DirectoryScreen) handleKeyMsg(msg tea.KeyMsg) (DirectoryScreen, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return s, func() tea.Msg { return shared.DirectoryCancelledMsg{} }
	case tea.KeyEnter:
		s.showCompletions = false

		path := strings.TrimSpace(s.input.Value())
		if path == "" {
			return s, nil
		}

		return s, func() tea.Msg { return shared.DirectoryPickedMsg{Path: path} }
	case tea.KeyTab:
		return s.handleTabCompletion(), nil
	case tea.KeyShiftTab:
		return s.handleShiftTabCompletion(), nil
	case tea.KeyRight:
		if s.showCompletions {
			return s.handleRightArrow(), nil
		}
	default:
		s.showCompletions = false
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	return s, cmd
}

func (s DirectoryScreen) applyCompletion(completion string) DirectoryScreen {
	s.input.SetValue(completion)
	s.input.CursorEnd()

	return s
}

func (s DirectoryScreen) handleTabCompletion() DirectoryScreen {
	if !s.showCompletions {
		s.completions = getPathCompletions(s.input.Value())
		s.completionIndex = 0
		s.showCompletions = true

		if len(s.completions) == 1 {
			s = s.applyCompletion(s.completions[0])
			s.showCompletions = false
		}

		return s
	}

	if len(s.completions) > 0 {
		s.completionIndex = (s.completionIndex + 1) % len(s.completions)
		s = s.applyCompletion(s.completions[s.completionIndex])
	}

	return s
}

func (s DirectoryScreen) handleShiftTabCompletion() DirectoryScreen {
	if s.showCompletions && len(s.completions) > 0 {
		s.completionIndex--
		if s.completionIndex < 0 {
			s.completionIndex = len(s.completions) - 1
		}

		s = s.applyCompletion(s.completions[s.completionIndex])
	}

	return s
}

// Accept the highlighted entry and descend into it.
func (s DirectoryScreen) handleRightArrow() DirectoryScreen {
	if len(s.completions) == 0 {
		s.showCompletions = false
		return s
	}

	current := s.completions[s.completionIndex]
	s = s.applyCompletion(current)
	s.showCompletions = false

	s.completions = getPathCompletions(current)
	if len(s.completions) > 0 {
		s.completionIndex = 0
		s.showCompletions = true
		s = s.applyCompletion(s.completions[0])
	}

	return s
}

func (s DirectoryScreen) formatCompletionList() string {
	start := max(s.completionIndex-maxShownCompletions/shared.ProgressHalfDivisor, 0)

	end := start + maxShownCompletions
	if end > len(s.completions) {
		end = len(s.completions)
		start = max(end-maxShownCompletions, 0)
	}

	lines := []string{shared.CompletionStyle().Render("  " + strings.Repeat("─", shared.ProgressBarWidth))}

	if start > 0 {
		lines = append(lines, shared.CompletionStyle().Render("    ..."))
	}

	for i := start; i < end; i++ {
		base := getBaseName(s.completions[i])
		if i == s.completionIndex {
			lines = append(lines, shared.CompletionSelectedStyle().Render("  "+shared.PromptArrow()+base))
		} else {
			lines = append(lines, shared.CompletionStyle().Render("    "+base))
		}
	}

	if end < len(s.completions) {
		lines = append(lines, shared.CompletionStyle().Render("    ..."))
	}

	return strings.Join(lines, "\n")
}

func getBaseName(path string) string {
	trimmed := strings.TrimSuffix(path, "/")

	idx := strings.LastIndex(trimmed, "/")
	if idx == -1 {
		return path
	}

	base := trimmed[idx+1:]
	if strings.HasSuffix(path, "/") {
		return base + "/"
	}

	return base
}

// Only directories are offered; a project is always bound to a directory.
func getPathCompletions(input string) []string {
	if input == "" {
		input = "."
	}

	expanded := filesystem.ExpandHome(input)
	if strings.HasSuffix(input, "/") && !strings.HasSuffix(expanded, "/") {
		expanded += "/"
	}

	dir, prefix := parseCompletionPath(expanded)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	completions := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() || !shouldIncludeEntry(entry.Name(), prefix) {
			continue
		}

		completions = append(completions, filepath.Join(dir, entry.Name())+string(filepath.Separator))
	}

	sort.Strings(completions)

	return completions
}

func parseCompletionPath(input string) (dir, prefix string) {
	if strings.HasSuffix(input, string(filepath.Separator)) {
		return input, ""
	}

	return filepath.Dir(input), filepath.Base(input)
}

func shouldIncludeEntry(name, prefix string) bool {
	if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
		return false
	}

	return prefix == "" || strings.HasPrefix(name, prefix)
}
