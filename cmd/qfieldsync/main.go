// Package main is the entry point for the qfieldsync application.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/qfieldsync/internal/cli"
	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/config"
	"github.com/joe/qfieldsync/internal/hostproject"
	"github.com/joe/qfieldsync/internal/logging"
	"github.com/joe/qfieldsync/internal/preferences"
	"github.com/joe/qfieldsync/internal/projects"
	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/internal/tui"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg)
	if err != nil {
		cli.Report(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog.Close()

	prefs, err := preferences.Open(cfg.Preferences)
	if err != nil {
		return err
	}

	values := prefs.Values()
	serverURL := cfg.ResolveServerURL(values.ServerURL)

	client, err := cloud.New(serverURL,
		cloud.WithToken(token(cfg, values, serverURL)),
		cloud.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	reloader := hostproject.NewCommandReloader(cfg.OpenCommand, logger)

	if !cfg.Interactive {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := &cli.Runner{
			Config:   cfg,
			Client:   client,
			Prefs:    prefs,
			Reloader: reloader,
			Logger:   logger,
			Progress: term.IsTerminal(int(os.Stderr.Fd())),
		}

		return runner.Run(ctx)
	}

	err = prefs.SetServerURL(serverURL)
	if err != nil {
		logger.Warn().Err(err).Msg("saving server URL")
	}

	cache := projects.NewCache(client, prefs, logger)
	defer cache.Close()

	model := tui.NewAppModel(tui.Deps{
		Config:      cfg,
		API:         client,
		TransferAPI: client,
		Cache:       cache,
		Prefs:       prefs,
		Checker:     resolver.New(filesystem.NewRealFileSystem()),
		Reloader:    reloader,
		Logger:      logger,
	})

	// Only use alt screen if stdout is a TTY
	var opts []tea.ProgramOption
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts = append(opts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(model, opts...).Run()
	if app, ok := final.(tui.AppModel); ok {
		app.Close()
	}

	if err != nil {
		return fmt.Errorf("ui: %w", err)
	}

	return nil
}

// The interactive UI owns the terminal, so it logs to a file. Headless
// commands log to stderr.
func openLogger(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	if !cfg.Interactive {
		return logging.NewStderr(cfg.Verbose), io.NopCloser(nil), nil
	}

	return logging.OpenFile(cfg.LogPath, cfg.Verbose)
}

// token prefers --token. A stored token is only used for the server it
// was issued by.
func token(cfg *config.Config, values preferences.Values, serverURL string) string {
	if cfg.Token != "" {
		return cfg.Token
	}

	if values.ServerURL != "" && values.ServerURL != serverURL {
		return ""
	}

	return values.LastToken
}
