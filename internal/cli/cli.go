// Package cli runs the headless subcommands. Each command mirrors an action
// of the interactive UI so projects can be managed from scripts.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term" //nolint:depguard // Required for password input

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/config"
	"github.com/joe/qfieldsync/internal/preferences"
	"github.com/joe/qfieldsync/internal/transfer"
	apperrors "github.com/joe/qfieldsync/pkg/errors"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

// Exported variables.
var (
	ErrNoSubcommand    = errors.New("no subcommand given")
	ErrProjectNotFound = errors.New("project not found")
	ErrMissingUsername = errors.New("username is required")
)

// Client is the part of the cloud client the commands call.
type Client interface {
	transfer.API
	ServerURL() string
	HasToken() bool
	SetToken(token string)
	Login(ctx context.Context, username, password string) (cloud.Credentials, error)
	Logout(ctx context.Context) error
	ListProjects(ctx context.Context) ([]cloud.CloudProject, error)
	CreateProject(ctx context.Context, input cloud.ProjectInput) (cloud.CloudProject, error)
	DeleteProject(ctx context.Context, id string) error
}

// Preferences persists bindings and credentials.
type Preferences interface {
	Values() preferences.Values
	LocalDir(projectID string) string
	SetLocalDir(projectID, dir string) error
	SetCredentials(username, token string) error
	SetServerURL(serverURL string) error
}

// Reloader opens the synchronized project in the host application.
type Reloader interface {
	Reload(dir string) (string, error)
}

// OpenFunc returns the filesystem holding dir and the path to use on it.
type OpenFunc func(dir string) (filesystem.FileSystem, string, func(), error)

// Runner executes one subcommand. In, Out and Err default to the process
// streams; Open defaults to filesystem.CreateFileSystem.
type Runner struct {
	Config   *config.Config
	Client   Client
	Prefs    Preferences
	Reloader Reloader
	Logger   zerolog.Logger

	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	Open     OpenFunc
	Progress bool

	// ReadPassword reads a password without echo. Defaults to the terminal.
	ReadPassword func() (string, error)

	reader *bufio.Reader
}

// Run dispatches to the selected subcommand.
func (r *Runner) Run(ctx context.Context) error {
	r.defaults()

	switch cmd := r.Config.Subcommand().(type) {
	case *config.ListCmd:
		return r.list(ctx, cmd)
	case *config.LoginCmd:
		return r.login(ctx, cmd)
	case *config.LogoutCmd:
		return r.logout(ctx)
	case *config.CreateCmd:
		return r.create(ctx, cmd)
	case *config.DeleteCmd:
		return r.delete(ctx, cmd)
	case *config.FilesCmd:
		return r.files(ctx, cmd)
	case *config.SyncCmd:
		return r.sync(ctx, cmd)
	default:
		return ErrNoSubcommand
	}
}

func (r *Runner) defaults() {
	if r.In == nil {
		r.In = os.Stdin
	}

	if r.Out == nil {
		r.Out = os.Stdout
	}

	if r.Err == nil {
		r.Err = os.Stderr
	}

	if r.Open == nil {
		r.Open = filesystem.CreateFileSystem
	}

	if r.ReadPassword == nil {
		r.ReadPassword = readTerminalPassword
	}

	if r.reader == nil {
		r.reader = bufio.NewReader(r.In)
	}
}

func readTerminalPassword() (string, error) {
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// readLine prints prompt and returns the trimmed answer. io.EOF is returned
// when input ends before a newline and nothing was typed.
func (r *Runner) readLine(prompt string) (string, error) {
	fmt.Fprint(r.Err, prompt)

	line, err := r.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (r *Runner) requireToken() error {
	if !r.Client.HasToken() {
		return cloud.ErrNotLoggedIn
	}

	return nil
}

// Report writes err and the suggestions for its category to w.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}

	fmt.Fprintf(w, "Error: %s\n", cloud.ErrorReason(err))

	suggestions := apperrors.FormatSuggestions(apperrors.NewEnricher().Enrich(err, ""))
	if suggestions != "" {
		fmt.Fprintln(w, suggestions)
	}
}
