// Package logging sets up zerolog for the two run modes: the TUI, which owns
// the terminal and therefore logs to a file, and the headless commands,
// which log to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFileName is the log file name used when --log is not given.
const DefaultFileName = "qfieldsync-debug.log"

// DefaultPath returns <user cache dir>/qfieldsync/qfieldsync-debug.log,
// falling back to the working directory.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return DefaultFileName
	}

	return filepath.Join(dir, "qfieldsync", DefaultFileName)
}

// New returns a console-formatted logger writing to w.
func New(w io.Writer, verbose bool, color bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    !color,
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewStderr returns the logger used by headless commands.
func NewStderr(verbose bool) zerolog.Logger {
	return New(os.Stderr, verbose, true)
}

// OpenFile appends to the log file at path, creating its directory, and
// returns a logger writing to it. The returned closer closes the file.
func OpenFile(path string, verbose bool) (zerolog.Logger, io.Closer, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 - path comes from config
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := New(file, verbose, false)
	logger.Info().Str("started", time.Now().Format(time.RFC3339)).Msg("=== qfieldsync log started ===")

	return logger, file, nil
}
