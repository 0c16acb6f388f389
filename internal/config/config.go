// Package config handles application configuration and command-line argument parsing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/joe/qfieldsync/internal/logging"
	"github.com/joe/qfieldsync/internal/preferences"
	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

// Exported constants.
const (
	// DefaultServerURL is the public QFieldCloud instance.
	DefaultServerURL = "https://app.qfield.cloud"
	// DefaultDir is where new checkouts are suggested.
	DefaultDir = "~/qfieldsync/cloudprojects"
	// DefaultWorkers is the default number of concurrent file transfers.
	DefaultWorkers = transfer.DefaultWorkers
	// EnvFile is loaded from the working directory when present.
	EnvFile = ".env"
)

// Exported variables.
var (
	ErrInvalidServerURL = errors.New("invalid server URL")
	ErrInvalidWorkers   = errors.New("workers must be at least 1")
	ErrInvalidPath      = errors.New("invalid path")
	ErrInvalidFilter    = errors.New("invalid filter pattern")
)

// ListCmd lists the projects visible to the user.
type ListCmd struct {
	Local bool `arg:"--local" help:"Only list projects bound to a local directory"`
}

// LoginCmd authenticates and stores the token.
type LoginCmd struct {
	Password string `arg:"-p,--password,env:QFIELDCLOUD_PASSWORD" help:"Password (prompted when empty)"`
}

// LogoutCmd invalidates the stored token.
type LogoutCmd struct{}

// CreateCmd creates a cloud project.
type CreateCmd struct {
	Name        string `arg:"positional,required" help:"Project name"`
	Owner       string `arg:"--owner" help:"Owner (defaults to the logged in user)"`
	Description string `arg:"--description" help:"Project description"`
	Private     bool   `arg:"--private" help:"Make the project private"`
	LocalDir    string `arg:"--local-dir" help:"Bind the new project to this directory"`
}

// DeleteCmd deletes a cloud project.
type DeleteCmd struct {
	ID  string `arg:"positional,required" help:"Project id"`
	Yes bool   `arg:"-y,--yes" help:"Do not ask for confirmation"`
}

// FilesCmd lists a project's cloud files.
type FilesCmd struct {
	ID string `arg:"positional,required" help:"Project id"`
}

// SyncCmd transfers a project without the interactive UI.
type SyncCmd struct {
	ID     string             `arg:"positional,required" help:"Project id"`
	Dir    string             `arg:"-d,--dir" help:"Local directory (defaults to the bound one)"`
	Mode   transfer.Mode      `arg:"-m,--mode" default:"sync" help:"sync|upload|download"`
	Prefer transfer.Direction `arg:"--prefer" default:"local" help:"Which copy wins when both changed: local|remote"`
	Filter string             `arg:"-f,--filter" help:"Only transfer files matching this glob (e.g. '**/*.gpkg')"`
}

// Config holds the application configuration
type Config struct {
	ServerURL      string `arg:"--server,env:QFIELDCLOUD_URL" help:"QFieldCloud server URL"`
	Username       string `arg:"-u,--username,env:QFIELDCLOUD_USERNAME" help:"Username for login"`
	Token          string `arg:"--token,env:QFIELDCLOUD_TOKEN" help:"API token (overrides the stored one)"`
	Preferences    string `arg:"--preferences,env:QFIELDSYNC_PREFERENCES" help:"Preferences file"`
	LogPath        string `arg:"--log,env:QFIELDSYNC_LOG" help:"Debug log file for the interactive UI"`
	Verbose        bool   `arg:"-v,--verbose" help:"Log debug messages"`
	Workers        int    `arg:"-w,--workers" default:"4" help:"Number of concurrent file transfers"`
	DefaultDir     string `arg:"--default-dir" help:"Where new checkouts are suggested (local path or sftp:// URL)"`
	CurrentProject string `arg:"--current-project,env:QFIELDSYNC_CURRENT_PROJECT" help:"Directory of the project open in QGIS"`
	OpenCommand    string `arg:"--open-command,env:QFIELDSYNC_OPEN_COMMAND" help:"Command that opens a project file after sync; {} is the path"`

	List   *ListCmd   `arg:"subcommand:list" help:"List cloud projects"`
	Login  *LoginCmd  `arg:"subcommand:login" help:"Log in and store the token"`
	Logout *LogoutCmd `arg:"subcommand:logout" help:"Log out"`
	Create *CreateCmd `arg:"subcommand:create" help:"Create a cloud project"`
	Delete *DeleteCmd `arg:"subcommand:delete" help:"Delete a cloud project"`
	Files  *FilesCmd  `arg:"subcommand:files" help:"List the files of a cloud project"`
	Sync   *SyncCmd   `arg:"subcommand:sync" help:"Synchronize a cloud project with a local directory"`

	Interactive bool `arg:"-"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "Synchronize QGIS projects with QFieldCloud from the terminal"
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return "qfieldsync 1.0.0"
}

func defaults() *Config {
	return &Config{
		Workers:    DefaultWorkers,
		DefaultDir: DefaultDir,
	}
}

// ParseFlags loads .env, parses os.Args and post-processes the result.
// Parse errors and --help exit the process.
func ParseFlags() (*Config, error) {
	err := LoadEnv(EnvFile)
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	arg.MustParse(cfg)

	return PostProcessConfig(cfg)
}

// Parse parses args (without the program name). It is ParseFlags without
// the environment file and without exiting.
func Parse(args []string) (*Config, error) {
	cfg := defaults()

	parser, err := arg.NewParser(arg.Config{Program: "qfieldsync"}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	err = parser.Parse(args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	return PostProcessConfig(cfg)
}

// LoadEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// PostProcessConfig applies post-processing logic to a parsed config
func PostProcessConfig(cfg *Config) (*Config, error) {
	cfg.Interactive = cfg.Subcommand() == nil

	cfg.DefaultDir = filesystem.ExpandHome(cfg.DefaultDir)
	cfg.CurrentProject = filesystem.ExpandHome(cfg.CurrentProject)

	if cfg.Sync != nil {
		cfg.Sync.Dir = filesystem.ExpandHome(cfg.Sync.Dir)
	}

	if cfg.Create != nil {
		cfg.Create.LocalDir = filesystem.ExpandHome(cfg.Create.LocalDir)
	}

	if cfg.Preferences == "" {
		path, err := preferences.DefaultPath()
		if err != nil {
			return nil, err
		}

		cfg.Preferences = path
	}

	cfg.Preferences = filesystem.ExpandHome(cfg.Preferences)

	if cfg.LogPath == "" {
		cfg.LogPath = logging.DefaultPath()
	}

	cfg.LogPath = filesystem.ExpandHome(cfg.LogPath)

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Subcommand returns the selected subcommand, or nil for the interactive UI.
func (cfg *Config) Subcommand() any {
	switch {
	case cfg.List != nil:
		return cfg.List
	case cfg.Login != nil:
		return cfg.Login
	case cfg.Logout != nil:
		return cfg.Logout
	case cfg.Create != nil:
		return cfg.Create
	case cfg.Delete != nil:
		return cfg.Delete
	case cfg.Files != nil:
		return cfg.Files
	case cfg.Sync != nil:
		return cfg.Sync
	default:
		return nil
	}
}

// Validate checks values the parser cannot.
func (cfg *Config) Validate() error {
	if cfg.ServerURL != "" {
		err := ValidateServerURL(cfg.ServerURL)
		if err != nil {
			return err
		}
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Workers)
	}

	for _, path := range cfg.paths() {
		_, err := filesystem.ParsePath(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPath, err)
		}
	}

	if cfg.Sync != nil && cfg.Sync.Filter != "" && !transfer.ValidPattern(cfg.Sync.Filter) {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, cfg.Sync.Filter)
	}

	return nil
}

func (cfg *Config) paths() []string {
	paths := []string{cfg.DefaultDir}

	if cfg.Sync != nil && cfg.Sync.Dir != "" {
		paths = append(paths, cfg.Sync.Dir)
	}

	if cfg.Create != nil && cfg.Create.LocalDir != "" {
		paths = append(paths, cfg.Create.LocalDir)
	}

	return paths
}

// ValidateServerURL requires an absolute http(s) URL with a host.
func ValidateServerURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidServerURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: %s (scheme must be http or https)", ErrInvalidServerURL, raw)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%w: %s (missing host)", ErrInvalidServerURL, raw)
	}

	return nil
}

// ResolveServerURL picks the server: the flag, then the stored one, then
// the public instance. Trailing slashes are dropped.
func (cfg *Config) ResolveServerURL(stored string) string {
	for _, candidate := range []string{cfg.ServerURL, stored, DefaultServerURL} {
		if candidate != "" {
			return strings.TrimRight(candidate, "/")
		}
	}

	return DefaultServerURL
}

// CurrentProjectDir is the directory of the project open in the host, or "".
// A project file path is reduced to its directory.
func (cfg *Config) CurrentProjectDir() string {
	current := cfg.CurrentProject
	if current == "" {
		return ""
	}

	ext := strings.ToLower(filepath.Ext(current))
	if ext == ".qgs" || ext == ".qgz" {
		return filepath.Dir(current)
	}

	info, err := os.Stat(current)
	if err == nil && !info.IsDir() {
		return filepath.Dir(current)
	}

	return filepath.Clean(current)
}
