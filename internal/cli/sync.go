package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/config"
	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

func (r *Runner) sync(ctx context.Context, cmd *config.SyncCmd) error {
	project, err := r.findProject(ctx, cmd.ID)
	if err != nil {
		return err
	}

	files, err := r.Client.GetProjectFiles(ctx, project.ID)
	if err != nil {
		return err
	}

	if files == nil {
		files = []cloud.CloudFile{}
	}

	project.CloudFiles = files

	dir, err := r.resolveDir(project, cmd.Dir)
	if err != nil {
		return err
	}

	if dir != project.LocalDir {
		err = r.Prefs.SetLocalDir(project.ID, dir)
		if err != nil {
			return err
		}

		project.LocalDir = dir
	}

	fs, base, closeFS, err := r.Open(dir)
	if err != nil {
		return err
	}
	defer closeFS()

	progress := newProgressReporter(r.Err, r.Progress, project.Name)

	opts := []transfer.Option{
		transfer.WithFileSystem(fs),
		transfer.WithWorkers(r.Config.Workers),
		transfer.WithLogger(r.Logger),
		transfer.WithEmitter(progress),
	}

	if cmd.Filter != "" {
		opts = append(opts, transfer.WithFilter(transfer.NewGlobFilter(cmd.Filter)))
	}

	session := transfer.New(r.Client, project, base, cmd.Mode, cmd.Prefer, opts...)

	fmt.Fprintf(r.Out, "Synchronizing %s with %s (%s, %s wins)\n", project.Name, dir, cmd.Mode, cmd.Prefer)

	syncErr := session.Sync(ctx)

	r.printResult(session.Result())

	if syncErr != nil {
		return syncErr
	}

	r.reload(dir)

	return nil
}

// resolveDir picks the local directory: an explicit one is validated, a
// bound one is trusted, otherwise the user is prompted. Each candidate is
// checked on the filesystem its own path names.
func (r *Runner) resolveDir(project cloud.CloudProject, explicit string) (string, error) {
	remoteEmpty := len(project.CloudFiles) == 0
	checker := resolver.PathChecker{Open: resolver.Opener(r.Open)}

	if explicit != "" {
		dir := filesystem.ExpandHome(explicit)
		if dir == project.LocalDir {
			return dir, nil
		}

		err := checker.Check(dir, remoteEmpty)
		if err != nil {
			return "", err
		}

		return dir, nil
	}

	initial := resolver.InitialPath("", r.Config.CurrentProjectDir(), filepath.Join(r.Config.DefaultDir, project.Name))

	return resolver.ResolveWith(checker, project.LocalDir, project.CloudFiles, initial, &linePrompter{runner: r})
}

func (r *Runner) printResult(result *transfer.Result) {
	if result == nil {
		return
	}

	fmt.Fprintf(r.Out, "Uploaded %d, downloaded %d, unchanged %d (%s in %s)\n",
		result.Uploaded, result.Downloaded, result.Unchanged,
		humanize.IBytes(uint64(max(result.BytesTransferred, 0))), //nolint:gosec // clamped to zero
		result.Duration.Round(durationPrecision))

	for _, fileErr := range result.Errors {
		fmt.Fprintf(r.Err, "  %s\n", fileErr.Error())
	}
}

func (r *Runner) reload(dir string) {
	if r.Reloader == nil {
		return
	}

	path, err := r.Reloader.Reload(dir)
	if err != nil {
		r.Logger.Warn().Err(err).Str("dir", dir).Msg("project reload failed")
		fmt.Fprintf(r.Err, "Could not open the project: %s\n", err)

		return
	}

	fmt.Fprintf(r.Out, "Opened %s\n", path)
}

// linePrompter asks for directories on the terminal.
type linePrompter struct {
	runner *Runner
}

func (p *linePrompter) PickDirectory(title, initial string) (string, bool) {
	answer, err := p.runner.readLine(fmt.Sprintf("%s [%s]: ", title, initial))
	if err != nil {
		if !errors.Is(err, io.EOF) {
			p.runner.Logger.Warn().Err(err).Msg("reading directory")
		}

		return "", false
	}

	if answer == "" {
		return initial, true
	}

	return answer, true
}

func (p *linePrompter) Warn(title, message string) {
	fmt.Fprintf(p.runner.Err, "%s: %s\n", title, message)
}
