package screens

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/tui/shared"
)

// LoginScreen collects QFieldCloud credentials.
type LoginScreen struct {
	server     string
	username   textinput.Model
	password   textinput.Model
	focusIndex int
	busy       bool
	feedback   string
}

// NewLoginScreen creates the login form, pre-filled with the last username.
func NewLoginScreen(server, lastUsername string) LoginScreen {
	username := textinput.New()
	username.Placeholder = "username or email"
	username.SetValue(lastUsername)
	username.Prompt = shared.PromptArrow()
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.Prompt = "  "

	screen := LoginScreen{server: server, username: username, password: password}
	if lastUsername != "" {
		screen = screen.focus(1)
	}

	return screen
}

// Init implements tea.Model
func (s LoginScreen) Init() tea.Cmd {
	return textinput.Blink
}

// Busy reports whether a login request is in flight.
func (s LoginScreen) Busy() bool {
	return s.busy
}

// SetBusy disables the form while a request runs.
func (s LoginScreen) SetBusy(busy bool) LoginScreen {
	s.busy = busy
	if busy {
		s.feedback = ""
	}

	return s
}

// SetFeedback shows msg under the form.
func (s LoginScreen) SetFeedback(msg string) LoginScreen {
	s.feedback = msg
	return s
}

// Feedback is the message under the form.
func (s LoginScreen) Feedback() string {
	return s.feedback
}

// Update handles keys for the form.
func (s LoginScreen) Update(msg tea.Msg) (LoginScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := max(msg.Width-shared.InputWidthMargin, shared.MinInputWidth)
		s.username.Width = width
		s.password.Width = width

		return s, nil
	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}

		switch msg.Type {
		case tea.KeyTab, tea.KeyDown, tea.KeyShiftTab, tea.KeyUp:
			return s.focus(1 - s.focusIndex), nil
		case tea.KeyEnter:
			return s.submit()
		}
	}

	var cmd tea.Cmd
	if s.focusIndex == 0 {
		s.username, cmd = s.username.Update(msg)
	} else {
		s.password, cmd = s.password.Update(msg)
	}

	return s, cmd
}

func (s LoginScreen) submit() (LoginScreen, tea.Cmd) {
	username := strings.TrimSpace(s.username.Value())
	password := s.password.Value()

	if s.focusIndex == 0 && username != "" {
		return s.focus(1), nil
	}

	if username == "" || password == "" {
		s.feedback = "Username and password are required"
		return s, nil
	}

	s.password.SetValue("")

	return s, func() tea.Msg {
		return shared.LoginRequestedMsg{Username: username, Password: password}
	}
}

func (s LoginScreen) focus(index int) LoginScreen {
	s.focusIndex = index

	if index == 0 {
		s.username.Focus()
		s.username.Prompt = shared.PromptArrow()
		s.password.Blur()
		s.password.Prompt = "  "
	} else {
		s.password.Focus()
		s.password.Prompt = shared.PromptArrow()
		s.username.Blur()
		s.username.Prompt = "  "
	}

	return s
}

// View renders the form.
func (s LoginScreen) View() string {
	var builder strings.Builder

	builder.WriteString(shared.RenderTitle("QFieldCloud login"))
	builder.WriteString("\n")
	builder.WriteString(shared.RenderDim(s.server))
	builder.WriteString("\n\n")
	builder.WriteString(shared.RenderLabel("Username:"))
	builder.WriteString("\n")
	builder.WriteString(s.username.View())
	builder.WriteString("\n\n")
	builder.WriteString(shared.RenderLabel("Password:"))
	builder.WriteString("\n")
	builder.WriteString(s.password.View())
	builder.WriteString("\n\n")

	switch {
	case s.busy:
		builder.WriteString(shared.RenderDim("Signing in..."))
		builder.WriteString("\n\n")
	case s.feedback != "":
		builder.WriteString(shared.RenderError(s.feedback))
		builder.WriteString("\n\n")
	}

	builder.WriteString(shared.RenderSubtitle("Tab to switch fields • Enter to sign in • Ctrl+C to exit"))

	return shared.RenderBox(builder.String())
}
