package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/config"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

const (
	tabPadding      = 2
	timestampLayout = "2006-01-02 15:04"
	currentMarker   = "*"
)

func (r *Runner) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(r.Out, 0, 0, tabPadding, ' ', 0)
}

// projects lists the cloud projects with their local directories filled in.
func (r *Runner) projects(ctx context.Context) ([]cloud.CloudProject, error) {
	err := r.requireToken()
	if err != nil {
		return nil, err
	}

	projects, err := r.Client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	for i := range projects {
		projects[i].LocalDir = r.Prefs.LocalDir(projects[i].ID)
	}

	return projects, nil
}

// findProject matches ref against ids first and names second.
func (r *Runner) findProject(ctx context.Context, ref string) (cloud.CloudProject, error) {
	projects, err := r.projects(ctx)
	if err != nil {
		return cloud.CloudProject{}, err
	}

	for _, project := range projects {
		if project.ID == ref {
			return project, nil
		}
	}

	for _, project := range projects {
		if project.Name == ref {
			return project, nil
		}
	}

	return cloud.CloudProject{}, fmt.Errorf("%w: %s", ErrProjectNotFound, ref)
}

func (r *Runner) list(ctx context.Context, cmd *config.ListCmd) error {
	projects, err := r.projects(ctx)
	if err != nil {
		return err
	}

	current := r.Config.CurrentProjectDir()
	table := r.newTable()

	fmt.Fprintln(table, "\tID\tNAME\tOWNER\tLOCAL DIR\tUPDATED")

	for _, project := range projects {
		if cmd.Local && project.LocalDir == "" {
			continue
		}

		marker := ""
		if project.IsCurrent(current) {
			marker = currentMarker
		}

		localDir := project.LocalDir
		if localDir == "" {
			localDir = "-"
		}

		updated := "-"
		if !project.UpdatedAt.IsZero() {
			updated = humanize.Time(project.UpdatedAt)
		}

		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, project.ID, project.Name, project.Owner, localDir, updated)
	}

	return table.Flush()
}

func (r *Runner) create(ctx context.Context, cmd *config.CreateCmd) error {
	err := r.requireToken()
	if err != nil {
		return err
	}

	owner := cmd.Owner
	if owner == "" {
		owner = r.Prefs.Values().LastUsername
	}

	project, err := r.Client.CreateProject(ctx, cloud.ProjectInput{
		Name:        cmd.Name,
		Owner:       owner,
		Description: cmd.Description,
		IsPrivate:   cmd.Private,
	})
	if err != nil {
		return fmt.Errorf("project create failed: %w", err)
	}

	r.Logger.Info().Str("project", project.ID).Str("name", project.Name).Msg("project created")
	fmt.Fprintf(r.Out, "Created project %s (%s)\n", project.Name, project.ID)
	fmt.Fprintln(r.Out, project.URL(r.Client.ServerURL()))

	if cmd.LocalDir == "" {
		return nil
	}

	dir := filesystem.ExpandHome(cmd.LocalDir)

	err = r.Prefs.SetLocalDir(project.ID, dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.Out, "Bound to %s\n", dir)

	return nil
}

func (r *Runner) delete(ctx context.Context, cmd *config.DeleteCmd) error {
	project, err := r.findProject(ctx, cmd.ID)
	if err != nil {
		return err
	}

	if !cmd.Yes {
		answer, err := r.readLine(fmt.Sprintf("Delete project %s (%s)? [y/N]: ", project.Name, project.ID))
		if err != nil {
			return fmt.Errorf("failed to read answer: %w", err)
		}

		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(r.Out, "Not deleted")
			return nil
		}
	}

	err = r.Client.DeleteProject(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("project delete failed: %w", err)
	}

	if project.LocalDir != "" {
		err = r.Prefs.SetLocalDir(project.ID, "")
		if err != nil {
			return err
		}
	}

	r.Logger.Info().Str("project", project.ID).Msg("project deleted")
	fmt.Fprintf(r.Out, "Deleted project %s\n", project.Name)

	return nil
}

func (r *Runner) files(ctx context.Context, cmd *config.FilesCmd) error {
	project, err := r.findProject(ctx, cmd.ID)
	if err != nil {
		return err
	}

	files, err := r.Client.GetProjectFiles(ctx, project.ID)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		fmt.Fprintf(r.Out, "%s has no files\n", project.Name)
		return nil
	}

	var total uint64

	table := r.newTable()
	fmt.Fprintln(table, "NAME\tSIZE\tMODIFIED\tVERSIONS")

	for _, file := range files {
		total += uint64(max(file.Size, 0)) //nolint:gosec // clamped to zero

		fmt.Fprintf(table, "%s\t%s\t%s\t%d\n",
			file.Name, humanize.IBytes(uint64(max(file.Size, 0))), //nolint:gosec // clamped to zero
			formatTime(file.LastModified()), len(file.Versions))
	}

	err = table.Flush()
	if err != nil {
		return err
	}

	fmt.Fprintf(r.Out, "%s, %s\n", english.Plural(len(files), "file", ""), humanize.IBytes(total))

	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format(timestampLayout)
}
