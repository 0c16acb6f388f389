//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package screens_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/internal/syncflow"
	"github.com/joe/qfieldsync/internal/tui/screens"
	"github.com/joe/qfieldsync/internal/tui/shared"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyOf(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}

func msgOf(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}

	return cmd()
}

func sampleProjects() []cloud.CloudProject {
	return []cloud.CloudProject{
		{ID: "p1", Name: "survey", Owner: "ada", LocalDir: "/work/survey"},
		{ID: "p2", Name: "parcels", Owner: "ada"},
	}
}

// ============================================================================
// DirectoryScreen
// ============================================================================

func TestDirectoryScreen_EnterPicksTrimmedPath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewDirectoryScreen("Choose", "  /data/survey  ")
	g.Expect(screen.Title()).To(Equal("Choose"))

	_, cmd := screen.Update(keyOf(tea.KeyEnter))
	g.Expect(msgOf(cmd)).To(Equal(shared.DirectoryPickedMsg{Path: "/data/survey"}))
}

func TestDirectoryScreen_EmptyEnterDoesNothing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewDirectoryScreen("Choose", "")

	_, cmd := screen.Update(keyOf(tea.KeyEnter))
	g.Expect(cmd).To(BeNil())
}

func TestDirectoryScreen_EscCancels(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewDirectoryScreen("Choose", "/data")

	_, cmd := screen.Update(keyOf(tea.KeyEsc))
	g.Expect(msgOf(cmd)).To(Equal(shared.DirectoryCancelledMsg{}))
}

func TestDirectoryScreen_ValidationWarning(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewDirectoryScreen("Choose", "/data")
	screen = screen.SetWarning(&resolver.ValidationError{Kind: resolver.KindNotEmpty, Dir: "/data"})

	g.Expect(screen.Warning()).To(ContainSubstring("needs to be an empty directory"))
	g.Expect(screen.View()).To(ContainSubstring("QFieldSync checkout requires empty directory"))

	screen = screen.SetWarning(errors.New("plain failure"))
	g.Expect(screen.Warning()).To(Equal("plain failure"))

	screen = screen.SetWarning(nil)
	g.Expect(screen.Warning()).To(BeEmpty())
}

func TestDirectoryScreen_TabCompletesSingleDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := t.TempDir()
	g.Expect(os.Mkdir(filepath.Join(root, "survey"), 0o755)).To(Succeed())
	g.Expect(os.WriteFile(filepath.Join(root, "summit.txt"), []byte("x"), 0o600)).To(Succeed())

	screen := screens.NewDirectoryScreen("Choose", filepath.Join(root, "su"))
	screen, _ = screen.Update(keyOf(tea.KeyTab))

	g.Expect(screen.Value()).To(Equal(filepath.Join(root, "survey") + string(filepath.Separator)))
}

func TestDirectoryScreen_TabCyclesMultipleDirectories(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := t.TempDir()
	g.Expect(os.Mkdir(filepath.Join(root, "alpha"), 0o755)).To(Succeed())
	g.Expect(os.Mkdir(filepath.Join(root, "beta"), 0o755)).To(Succeed())

	screen := screens.NewDirectoryScreen("Choose", root+string(filepath.Separator))
	screen, _ = screen.Update(keyOf(tea.KeyTab))
	g.Expect(screen.View()).To(ContainSubstring("alpha"))

	screen, _ = screen.Update(keyOf(tea.KeyTab))
	g.Expect(screen.Value()).To(Equal(filepath.Join(root, "beta") + string(filepath.Separator)))

	screen, _ = screen.Update(keyOf(tea.KeyShiftTab))
	g.Expect(screen.Value()).To(Equal(filepath.Join(root, "alpha") + string(filepath.Separator)))
}

// ============================================================================
// LoginScreen
// ============================================================================

func TestLoginScreen_RequiresBothFields(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewLoginScreen("https://app.qfield.cloud", "")

	screen, cmd := screen.Update(keyOf(tea.KeyEnter))
	g.Expect(cmd).To(BeNil())
	g.Expect(screen.Feedback()).To(Equal("Username and password are required"))
}

func TestLoginScreen_EnterOnUsernameMovesToPassword(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewLoginScreen("https://app.qfield.cloud", "")
	screen, _ = screen.Update(runes("ada"))

	screen, cmd := screen.Update(keyOf(tea.KeyEnter))
	g.Expect(cmd).To(BeNil())
	g.Expect(screen.Feedback()).To(BeEmpty())

	screen, _ = screen.Update(runes("secret"))
	_, cmd = screen.Update(keyOf(tea.KeyEnter))
	g.Expect(msgOf(cmd)).To(Equal(shared.LoginRequestedMsg{Username: "ada", Password: "secret"}))
}

func TestLoginScreen_PrefilledUsernameFocusesPassword(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewLoginScreen("https://app.qfield.cloud", "ada")
	screen, _ = screen.Update(runes("pw"))

	_, cmd := screen.Update(keyOf(tea.KeyEnter))
	g.Expect(msgOf(cmd)).To(Equal(shared.LoginRequestedMsg{Username: "ada", Password: "pw"}))
}

func TestLoginScreen_IgnoresKeysWhileBusy(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewLoginScreen("https://app.qfield.cloud", "ada").SetFeedback("old")
	screen = screen.SetBusy(true)
	g.Expect(screen.Feedback()).To(BeEmpty())

	screen, cmd := screen.Update(runes("pw"))
	g.Expect(cmd).To(BeNil())

	screen = screen.SetBusy(false)
	_, cmd = screen.Update(keyOf(tea.KeyEnter))
	g.Expect(cmd).To(BeNil())
}

// ============================================================================
// ProjectsScreen
// ============================================================================

func TestProjectsScreen_KeysEmitIntents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want tea.Msg
	}{
		{"s", shared.SyncProjectMsg{ProjectID: "p1"}},
		{"e", shared.OpenFormMsg{ProjectID: "p1"}},
		{"n", shared.OpenFormMsg{}},
		{"r", shared.RefreshRequestedMsg{}},
		{"L", shared.LogoutRequestedMsg{}},
		{"q", tea.Quit()},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			screen := screens.NewProjectsScreen("").SetProjects(sampleProjects())

			_, cmd := screen.Update(runes(tt.key))
			g.Expect(msgOf(cmd)).To(Equal(tt.want))
		})
	}
}

func TestProjectsScreen_EnterSyncsSelected(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewProjectsScreen("").SetProjects(sampleProjects())
	g.Expect(screen.SelectedID()).To(Equal("p1"))

	_, cmd := screen.Update(keyOf(tea.KeyEnter))
	g.Expect(msgOf(cmd)).To(Equal(shared.SyncProjectMsg{ProjectID: "p1"}))
}

func TestProjectsScreen_EmptyListIgnoresSync(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewProjectsScreen("")

	_, cmd := screen.Update(runes("s"))
	g.Expect(cmd).To(BeNil())
	g.Expect(screen.View()).To(ContainSubstring("No projects"))
}

func TestProjectsScreen_DeleteNeedsConfirmation(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewProjectsScreen("").SetProjects(sampleProjects())

	screen, cmd := screen.Update(runes("d"))
	g.Expect(cmd).To(BeNil())
	g.Expect(screen.ConfirmingDelete()).To(BeTrue())
	g.Expect(screen.View()).To(ContainSubstring("Delete survey from QFieldCloud?"))

	screen, cmd = screen.Update(runes("n"))
	g.Expect(cmd).To(BeNil())
	g.Expect(screen.ConfirmingDelete()).To(BeFalse())

	screen, _ = screen.Update(runes("d"))
	_, cmd = screen.Update(runes("y"))
	g.Expect(msgOf(cmd)).To(Equal(shared.DeleteProjectMsg{ProjectID: "p1"}))
}

func TestProjectsScreen_IgnoresKeysWhileBusy(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewProjectsScreen("").SetProjects(sampleProjects()).SetBusy(true)

	_, cmd := screen.Update(runes("s"))
	g.Expect(cmd).To(BeNil())
	g.Expect(screen.View()).To(ContainSubstring("Deleting..."))
}

func TestProjectsScreen_MarksCurrentProject(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewProjectsScreen("/work/survey/").SetProjects(sampleProjects())

	view := screen.View()
	g.Expect(view).To(ContainSubstring(shared.CurrentSymbol()))
	g.Expect(view).To(ContainSubstring("Open in QGIS: "))
}

func TestProjectsScreen_KeepsSelectionAcrossRefresh(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewProjectsScreen("").SetProjects(sampleProjects())
	screen, _ = screen.Update(keyOf(tea.KeyDown))
	g.Expect(screen.SelectedID()).To(Equal("p2"))

	refreshed := append([]cloud.CloudProject{{ID: "p0", Name: "atlas"}}, sampleProjects()...)
	screen = screen.SetProjects(refreshed)
	g.Expect(screen.SelectedID()).To(Equal("p2"))
}

func TestProjectsScreen_ActionClearsFeedback(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewProjectsScreen("").SetProjects(sampleProjects()).SetFeedback("Project saved", false)
	g.Expect(screen.View()).To(ContainSubstring("Project saved"))

	screen, _ = screen.Update(runes("r"))
	g.Expect(screen.Feedback()).To(BeEmpty())
}

// ============================================================================
// FormScreen
// ============================================================================

func TestFormScreen_SaveRequiresName(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewFormScreen(cloud.CloudProject{}, "https://app.qfield.cloud", "")
	g.Expect(screen.IsNew()).To(BeTrue())

	screen, cmd := screen.Update(keyOf(tea.KeyCtrlS))
	g.Expect(cmd).To(BeNil())
	g.Expect(screen.Feedback()).To(Equal("Name is required"))
}

func TestFormScreen_SaveEmitsInput(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	project := cloud.CloudProject{ID: "p1", Owner: "ada", LocalDir: "/work/survey"}
	screen := screens.NewFormScreen(project, "https://app.qfield.cloud", "")
	screen, _ = screen.Update(runes("survey 2024 "))

	_, cmd := screen.Update(keyOf(tea.KeyCtrlS))
	g.Expect(msgOf(cmd)).To(Equal(shared.SaveProjectMsg{
		ProjectID: "p1",
		Input:     cloud.ProjectInput{Name: "survey 2024", Owner: "ada"},
		LocalDir:  "/work/survey",
	}))
}

func TestFormScreen_ChooseDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	project := cloud.CloudProject{ID: "p1", Name: "survey", LocalDir: "/work/survey"}
	screen := screens.NewFormScreen(project, "", "")

	_, cmd := screen.Update(keyOf(tea.KeyCtrlO))
	g.Expect(msgOf(cmd)).To(Equal(shared.ChooseDirectoryMsg{ProjectID: "p1", Initial: "/work/survey"}))
}

func TestFormScreen_UseCurrentDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	without := screens.NewFormScreen(cloud.CloudProject{ID: "p1", Name: "survey"}, "", "")
	without, _ = without.Update(keyOf(tea.KeyCtrlU))
	g.Expect(without.Feedback()).To(Equal("No project is open in QGIS"))
	g.Expect(without.LocalDir()).To(BeEmpty())

	with := screens.NewFormScreen(cloud.CloudProject{ID: "p1", Name: "survey"}, "", "/qgis/open")
	with, _ = with.Update(keyOf(tea.KeyCtrlU))
	g.Expect(with.LocalDir()).To(Equal("/qgis/open"))
}

func TestFormScreen_FilesTabOnlyForExistingProjects(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fresh := screens.NewFormScreen(cloud.CloudProject{}, "", "")
	fresh, _ = fresh.Update(keyOf(tea.KeyCtrlF))
	g.Expect(fresh.ShowingFiles()).To(BeFalse())

	existing := screens.NewFormScreen(cloud.CloudProject{ID: "p1", Name: "survey"}, "", "")
	existing = existing.SetFiles([]cloud.CloudFile{{Name: "survey.qgs", Size: 2048}})
	existing, _ = existing.Update(keyOf(tea.KeyCtrlF))
	g.Expect(existing.ShowingFiles()).To(BeTrue())
	g.Expect(existing.View()).To(ContainSubstring("survey.qgs"))

	existing, cmd := existing.Update(keyOf(tea.KeyEsc))
	g.Expect(cmd).To(BeNil())
	g.Expect(existing.ShowingFiles()).To(BeFalse())
}

func TestFormScreen_EscCloses(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewFormScreen(cloud.CloudProject{}, "", "")

	_, cmd := screen.Update(keyOf(tea.KeyEsc))
	g.Expect(msgOf(cmd)).To(Equal(shared.CloseFormMsg{}))
}

func TestFormScreen_IgnoresKeysWhileBusy(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewFormScreen(cloud.CloudProject{Name: "survey"}, "", "").SetBusy(true)
	g.Expect(screen.Busy()).To(BeTrue())

	_, cmd := screen.Update(keyOf(tea.KeyCtrlS))
	g.Expect(cmd).To(BeNil())
}

// ============================================================================
// Flow screens
// ============================================================================

func TestConfirmationScreen_Choices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  tea.KeyMsg
		want syncflow.Choice
	}{
		{"upload", runes("u"), syncflow.ChoiceReplaceRemote},
		{"download", runes("d"), syncflow.ChoiceReplaceLocal},
		{"cancel", runes("c"), syncflow.ChoiceCancel},
		{"esc", keyOf(tea.KeyEsc), syncflow.ChoiceCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			screen := screens.NewConfirmationScreen(cloud.CloudProject{ID: "p1", Name: "survey"}, "/work/survey")

			_, cmd := screen.Update(tt.key)
			g.Expect(msgOf(cmd)).To(Equal(syncflow.ConflictResolved{Choice: tt.want}))
		})
	}
}

func TestConfirmationScreen_IgnoresOtherKeys(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewConfirmationScreen(cloud.CloudProject{ID: "p1", Name: "survey"}, "/work/survey")

	_, cmd := screen.Update(runes("x"))
	g.Expect(cmd).To(BeNil())
	g.Expect(screen.View()).To(ContainSubstring("survey"))
}

func TestSummaryScreen_DismissesOnEnter(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewSummaryScreen(syncflow.Completed, nil, nil, "")
	g.Expect(screen.State()).To(Equal(syncflow.Completed))
	g.Expect(screen.View()).To(ContainSubstring("Sync complete"))

	_, cmd := screen.Update(keyOf(tea.KeyEnter))
	g.Expect(msgOf(cmd)).To(Equal(syncflow.Dismissed{}))
}

func TestSummaryScreen_ShowsFailureAndReload(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewSummaryScreen(syncflow.Failed, nil, errors.New("server unreachable"), "/tmp/qfieldsync.log")
	screen = screen.WithReload(syncflow.ProjectReloaded{Err: errors.New("qgis not running")})

	view := screen.View()
	g.Expect(view).To(ContainSubstring("Sync failed"))
	g.Expect(view).To(ContainSubstring("server unreachable"))
	g.Expect(view).To(ContainSubstring("Could not reopen project: qgis not running"))
	g.Expect(view).To(ContainSubstring("Log: /tmp/qfieldsync.log"))
}

func TestTransferScreen_AbortsOnce(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	screen := screens.NewTransferScreen("survey", "/work/survey", 0, nil)

	screen, cmd := screen.Update(keyOf(tea.KeyEsc))
	g.Expect(msgOf(cmd)).To(Equal(syncflow.AbortRequested{}))
	g.Expect(screen.Aborting()).To(BeTrue())

	_, cmd = screen.Update(keyOf(tea.KeyEsc))
	g.Expect(cmd).To(BeNil())
}
