// Package hostproject reopens the project file of a freshly synced
// directory in the host application.
package hostproject

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

// Placeholder is replaced by the project file path in the open command.
const Placeholder = "{}"

// Exported variables.
var (
	ErrNoProjectFile        = errors.New("no QGIS project file found")
	ErrAmbiguousProjectFile = errors.New("more than one QGIS project file found")
)

// Reloader reopens the project in dir and returns the opened file.
type Reloader interface {
	Reload(dir string) (string, error)
}

// Runner launches an external command. It returns once the process has
// started; the host application keeps running after Reload returns.
type Runner func(name string, args ...string) error

// CommandReloader opens the single project file of a directory with a
// configured command line. With no command it only logs the path.
type CommandReloader struct {
	FS      filesystem.FileSystem
	Command string
	Logger  zerolog.Logger
	Run     Runner
}

// NewCommandReloader creates a reloader for the local filesystem.
func NewCommandReloader(command string, logger zerolog.Logger) *CommandReloader {
	reloader := &CommandReloader{
		FS:      filesystem.NewRealFileSystem(),
		Command: command,
		Logger:  logger,
	}
	reloader.Run = reloader.launch

	return reloader
}

// Reload finds the project file in dir and opens it.
func (r *CommandReloader) Reload(dir string) (string, error) {
	files, err := resolver.ProjectFiles(r.FS, dir)
	if err != nil {
		return "", err //nolint:wrapcheck // ValidationError is shown as is
	}

	switch len(files) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoProjectFile, dir)
	case 1:
	default:
		return "", fmt.Errorf("%w in %s: %s", ErrAmbiguousProjectFile, dir, strings.Join(files, ", "))
	}

	project := files[0]

	if strings.TrimSpace(r.Command) == "" {
		r.Logger.Info().Str("project", project).Msg("project ready")
		return project, nil
	}

	name, args := CommandLine(r.Command, project)

	r.Logger.Info().Str("command", name).Strs("args", args).Msg("opening project")

	err = r.Run(name, args...)
	if err != nil {
		return project, fmt.Errorf("failed to open %s: %w", project, err)
	}

	return project, nil
}

// CommandLine splits command on whitespace and substitutes project for
// every Placeholder. When no argument holds a placeholder the project is
// appended.
func CommandLine(command, project string) (string, []string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}

	args := make([]string, 0, len(fields))
	substituted := false

	for _, field := range fields[1:] {
		if strings.Contains(field, Placeholder) {
			field = strings.ReplaceAll(field, Placeholder, project)
			substituted = true
		}

		args = append(args, field)
	}

	if !substituted {
		args = append(args, project)
	}

	return fields[0], args
}

// launch starts the command detached from the caller and reaps it in the
// background. Output is discarded so a terminal UI is not overwritten.
func (r *CommandReloader) launch(name string, args ...string) error {
	cmd := exec.Command(name, args...) //nolint:gosec // the command line is user configuration

	err := cmd.Start()
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	logger := r.Logger

	go func() {
		waitErr := cmd.Wait()
		if waitErr != nil {
			logger.Warn().Err(waitErr).Str("command", name).Msg("open command exited with an error")
			return
		}

		logger.Debug().Str("command", name).Msg("open command exited")
	}()

	return nil
}
