package tui_test

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // Dot import is idiomatic for Ginkgo
	. "github.com/onsi/gomega"    //nolint:revive // Dot import is idiomatic for Gomega matchers
	"github.com/rs/zerolog"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/config"
	"github.com/joe/qfieldsync/internal/projects"
	"github.com/joe/qfieldsync/internal/resolver"
	"github.com/joe/qfieldsync/internal/syncflow"
	"github.com/joe/qfieldsync/internal/tui"
	"github.com/joe/qfieldsync/internal/tui/shared"
	"github.com/joe/qfieldsync/pkg/filesystem"
)

var errBoom = errors.New("boom")

var _ = Describe("AppModel", func() {
	var (
		api   *fakeAPI
		cache *fakeCache
		prefs *fakePrefs
		fs    *filesystem.MockFileSystem
		deps  tui.Deps
		app   tui.AppModel
		now   time.Time
	)

	newApp := func() tui.AppModel {
		return tui.NewAppModel(deps)
	}

	BeforeEach(func() {
		now = time.Now()
		api = newFakeAPI("stored-token")
		cache = &fakeCache{projects: []cloud.CloudProject{
			{ID: "p1", Name: "survey", Owner: "ada", LocalDir: "work/p1", CloudFiles: []cloud.CloudFile{}},
			{ID: "p2", Name: "parcels", Owner: "ada", CloudFiles: []cloud.CloudFile{}},
			{ID: "p3", Name: "roads", Owner: "ada"},
		}}
		prefs = newFakePrefs()
		prefs.values.LocalDirs["p1"] = "work/p1"
		fs = filesystem.NewMockFileSystem()

		deps = tui.Deps{
			Config:      &config.Config{Workers: 2, DefaultDir: "work"},
			API:         api,
			TransferAPI: api,
			Cache:       cache,
			Prefs:       prefs,
			Checker:     resolver.New(fs),
			FileSystem:  fs,
			Logger:      zerolog.Nop(),
		}
	})

	AfterEach(func() {
		app.Close()
	})

	Describe("startup", func() {
		It("shows the login form without a token", func() {
			api.token = ""
			app = newApp()

			Expect(app.View()).To(ContainSubstring("QFieldCloud login"))
		})

		It("shows the project list with a token", func() {
			app = newApp()

			Expect(app.View()).NotTo(ContainSubstring("QFieldCloud login"))
			Expect(app.Projects().Projects()).To(HaveLen(3))
		})
	})

	Describe("login", func() {
		BeforeEach(func() {
			api.token = ""
			app = newApp()
		})

		It("stores the credentials and refreshes the list on success", func() {
			app, _ = feed(app, shared.LoginRequestedMsg{Username: "grace", Password: "secret"})

			Expect(prefs.Values().LastToken).To(Equal("token-grace"))
			Expect(prefs.Values().LastUsername).To(Equal("grace"))
			Expect(app.View()).NotTo(ContainSubstring("QFieldCloud login"))
			Expect(cache.Refreshes()).To(Equal(1))
		})

		It("reports the reason on failure and stays on the form", func() {
			api.loginErr = errBoom

			app, _ = feed(app, shared.LoginRequestedMsg{Username: "grace", Password: "wrong"})

			Expect(app.Login().Feedback()).To(Equal("Login failed: boom"))
			Expect(app.Login().Busy()).To(BeFalse())
			Expect(app.View()).To(ContainSubstring("QFieldCloud login"))
		})

		It("discards a reply to an earlier request", func() {
			app, _ = feed(app, shared.LoginFinishedMsg{RequestID: 42, Err: errBoom})

			Expect(app.Login().Feedback()).To(BeEmpty())
		})
	})

	Describe("project form", func() {
		BeforeEach(func() {
			app = newApp()
		})

		It("creates a project and binds its directory", func() {
			app, _ = feed(app, shared.OpenFormMsg{})
			_, open := app.Form()
			Expect(open).To(BeTrue())

			app, _ = feed(app, shared.SaveProjectMsg{
				Input:    cloud.ProjectInput{Name: "wetlands"},
				LocalDir: "work/wetlands",
			})

			_, open = app.Form()
			Expect(open).To(BeFalse())
			Expect(api.created).To(ConsistOf(cloud.ProjectInput{Name: "wetlands"}))
			Expect(prefs.LocalDir("new-id")).To(Equal("work/wetlands"))
			Expect(app.Projects().Feedback()).To(Equal("Project wetlands saved"))
			Expect(cache.Refreshes()).To(Equal(1))
		})

		It("keeps the form open when the update fails", func() {
			api.saveErr = errBoom

			app, _ = feed(app, shared.OpenFormMsg{ProjectID: "p1"})
			app, _ = feed(app, shared.SaveProjectMsg{
				ProjectID: "p1",
				Input:     cloud.ProjectInput{Name: "survey"},
				LocalDir:  "work/p1",
			})

			form, open := app.Form()
			Expect(open).To(BeTrue())
			Expect(form.Feedback()).To(Equal("Project update failed: boom"))
			Expect(form.Busy()).To(BeFalse())
		})

		It("leaves an unchanged binding alone", func() {
			app, _ = feed(app, shared.OpenFormMsg{ProjectID: "p1"})
			app, _ = feed(app, shared.SaveProjectMsg{
				ProjectID: "p1",
				Input:     cloud.ProjectInput{Name: "survey"},
				LocalDir:  "work/p1",
			})

			Expect(api.updated).To(HaveKey("p1"))
			Expect(prefs.setCalls).To(BeZero())
		})

		It("requests the manifest of a project that has none yet", func() {
			app, _ = feed(app, shared.OpenFormMsg{ProjectID: "p3"})

			Expect(cache.fetched).To(ConsistOf("p3"))
		})

		It("fills the files tab only from its own project's manifest", func() {
			app, _ = feed(app, shared.OpenFormMsg{ProjectID: "p3"})
			app, _ = feed(app, key("ctrl+f"))

			form, _ := app.Form()
			Expect(form.ShowingFiles()).To(BeTrue())
			Expect(form.View()).To(ContainSubstring("Loading files..."))

			cache.projects[1].CloudFiles = []cloud.CloudFile{{Name: "parcels.gpkg", Size: 10}}
			app, _ = feed(app, shared.ProjectsEventMsg{Event: projects.ProjectFilesUpdated{ID: "p2"}})
			app, _ = feed(app, shared.ProjectsEventMsg{Event: projects.ProjectFilesError{ID: "p2", Err: errBoom}})

			form, _ = app.Form()
			Expect(form.View()).To(ContainSubstring("Loading files..."))
			Expect(form.View()).ToNot(ContainSubstring("parcels.gpkg"))
			Expect(form.Feedback()).To(BeEmpty())

			cache.projects[2].CloudFiles = []cloud.CloudFile{{Name: "roads.qgs", Size: 20}}
			app, _ = feed(app, shared.ProjectsEventMsg{Event: projects.ProjectFilesUpdated{ID: "p3"}})

			form, _ = app.Form()
			Expect(form.View()).To(ContainSubstring("roads.qgs"))
		})

		It("accepts a valid directory from the chooser", func() {
			fs.AddDir("work", now)
			fs.AddFile("work/fresh/map.qgs", []byte("qgis"), now)

			app, _ = feed(app, shared.OpenFormMsg{})
			app, _ = feed(app, shared.ChooseDirectoryMsg{Initial: "work/fresh"})
			Expect(app.Directory().Value()).To(Equal("work/fresh"))

			app, _ = feed(app, shared.DirectoryPickedMsg{Path: "work/fresh"})

			form, _ := app.Form()
			Expect(form.LocalDir()).To(Equal("work/fresh"))
			Expect(app.Directory().Warning()).To(BeEmpty())
		})

		It("warns about a missing directory and keeps the prompt", func() {
			app, _ = feed(app, shared.OpenFormMsg{})
			app, _ = feed(app, shared.ChooseDirectoryMsg{Initial: "work/missing"})
			app, _ = feed(app, shared.DirectoryPickedMsg{Path: "work/missing"})

			Expect(app.Directory().Warning()).NotTo(BeEmpty())

			form, _ := app.Form()
			Expect(form.LocalDir()).To(BeEmpty())
		})

		It("returns to the form unchanged when the chooser is cancelled", func() {
			app, _ = feed(app, shared.OpenFormMsg{ProjectID: "p1"})
			app, _ = feed(app, shared.ChooseDirectoryMsg{ProjectID: "p1", Initial: "work/p1"})
			app, _ = feed(app, shared.DirectoryCancelledMsg{})

			form, open := app.Form()
			Expect(open).To(BeTrue())
			Expect(form.LocalDir()).To(Equal("work/p1"))
		})
	})

	Describe("delete", func() {
		BeforeEach(func() {
			app = newApp()
		})

		It("removes the binding and refreshes", func() {
			app, _ = feed(app, shared.DeleteProjectMsg{ProjectID: "p1"})

			Expect(api.deleted).To(ConsistOf("p1"))
			Expect(prefs.LocalDir("p1")).To(BeEmpty())
			Expect(cache.invalidated).To(ContainElement("p1"))
			Expect(app.Projects().Feedback()).To(Equal("Project deleted"))
			Expect(app.Projects().Busy()).To(BeFalse())
		})

		It("keeps the binding when the server refuses", func() {
			api.deleteErr = errBoom

			app, _ = feed(app, shared.DeleteProjectMsg{ProjectID: "p1"})

			Expect(prefs.LocalDir("p1")).To(Equal("work/p1"))
			Expect(app.Projects().Feedback()).To(Equal("Project delete failed: boom"))
		})
	})

	Describe("logout", func() {
		BeforeEach(func() {
			app = newApp()
		})

		It("clears the token and quits", func() {
			prefs.values.LastToken = "stored-token"

			var quit bool
			app, quit = feed(app, shared.LogoutRequestedMsg{})

			Expect(quit).To(BeTrue())
			Expect(prefs.Values().LastToken).To(BeEmpty())
		})

		It("stays when the server refuses", func() {
			api.logoutErr = errBoom

			var quit bool
			app, quit = feed(app, shared.LogoutRequestedMsg{})

			Expect(quit).To(BeFalse())
			Expect(app.Projects().Feedback()).To(Equal("Logout failed: boom"))
		})
	})

	Describe("cache events", func() {
		BeforeEach(func() {
			app = newApp()
		})

		It("returns to the login form when the session expired", func() {
			app, _ = feed(app, shared.ProjectsEventMsg{Event: projects.ProjectsError{Err: cloud.ErrUnauthorized}})

			Expect(app.View()).To(ContainSubstring("QFieldCloud login"))
			Expect(app.Login().Feedback()).To(Equal("Session expired, please log in again"))
		})

		It("shows other refresh failures under the list", func() {
			app, _ = feed(app, shared.ProjectsEventMsg{Event: projects.ProjectsError{Err: errBoom}})

			Expect(app.Projects().Feedback()).To(Equal("Project refresh failed: boom"))
		})

		It("fills the list when projects arrive", func() {
			cache.projects = cache.projects[:1]

			app, _ = feed(app, shared.ProjectsEventMsg{Event: projects.ProjectsUpdated{}})

			Expect(app.Projects().Projects()).To(HaveLen(1))
			Expect(app.Projects().Loading()).To(BeFalse())
		})
	})

	Describe("sync flow", func() {
		BeforeEach(func() {
			app = newApp()
		})

		It("uploads a bound project and returns to the list", func() {
			fs.AddFile("work/p1/map.qgs", []byte("qgis"), now)

			app, _ = feed(app, shared.SyncProjectMsg{ProjectID: "p1"})
			Expect(app.Machine().State()).To(Equal(syncflow.AwaitingConfirmation))

			app, _ = feed(app, key("u"))

			Expect(app.Machine().State()).To(Equal(syncflow.Completed))
			Expect(api.Uploads()).To(HaveKeyWithValue("map.qgs", []byte("qgis")))
			Expect(cache.invalidated).To(ContainElement("p1"))
			Expect(app.View()).To(ContainSubstring("Sync complete"))

			app, _ = feed(app, key("enter"))

			Expect(app.Machine().State()).To(Equal(syncflow.Idle))
			Expect(app.Status()).To(BeNil())
		})

		It("fetches a missing manifest before asking for a directory", func() {
			app, _ = feed(app, shared.SyncProjectMsg{ProjectID: "p3"})

			Expect(cache.fetched).To(ConsistOf("p3"))
			Expect(app.Machine().State()).To(Equal(syncflow.AwaitingDirectory))
		})

		It("rejects a directory with several project files", func() {
			fs.AddFile("work/two/a.qgs", []byte("a"), now)
			fs.AddFile("work/two/b.qgz", []byte("b"), now)

			app, _ = feed(app, shared.SyncProjectMsg{ProjectID: "p2"})
			app, _ = feed(app, shared.DirectoryPickedMsg{Path: "work/two"})

			Expect(app.Machine().State()).To(Equal(syncflow.AwaitingDirectory))
			Expect(app.Directory().Warning()).NotTo(BeEmpty())
			Expect(prefs.LocalDir("p2")).To(BeEmpty())
		})

		It("binds an acceptable directory and asks for confirmation", func() {
			fs.AddFile("work/one/a.qgs", []byte("a"), now)

			app, _ = feed(app, shared.SyncProjectMsg{ProjectID: "p2"})
			app, _ = feed(app, shared.DirectoryPickedMsg{Path: "work/one"})

			Expect(app.Machine().State()).To(Equal(syncflow.AwaitingConfirmation))
			Expect(prefs.LocalDir("p2")).To(Equal("work/one"))

			app, _ = feed(app, key("esc"))

			Expect(app.Machine().State()).To(Equal(syncflow.Idle))
			Expect(api.Uploads()).To(BeEmpty())
		})

		It("leaves the binding untouched when the prompt is cancelled", func() {
			app, _ = feed(app, shared.SyncProjectMsg{ProjectID: "p2"})
			app, _ = feed(app, shared.DirectoryCancelledMsg{})

			Expect(app.Machine().State()).To(Equal(syncflow.Idle))
			Expect(prefs.setCalls).To(BeZero())
		})

		It("reports an unknown project", func() {
			app, _ = feed(app, shared.SyncProjectMsg{ProjectID: "gone"})

			Expect(app.Machine().State()).To(Equal(syncflow.Idle))
			Expect(app.Projects().Feedback()).To(Equal("Project not found; refresh the list"))
		})
	})

	It("quits on ctrl+c", func() {
		app = newApp()

		var quit bool
		app, quit = feed(app, key("ctrl+c"))

		Expect(quit).To(BeTrue())
	})

	It("ignores keys while the manifest is loading", func() {
		app = newApp()

		model, cmd := app.Update(shared.SyncProjectMsg{ProjectID: "p3"})
		app = model.(tui.AppModel) //nolint:forcetypeassert // Update always returns AppModel
		Expect(cmd).NotTo(BeNil())
		Expect(app.Machine().State()).To(Equal(syncflow.AwaitingFileList))

		model, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		app = model.(tui.AppModel) //nolint:forcetypeassert // Update always returns AppModel

		Expect(cmd).To(BeNil())
		Expect(app.Machine().State()).To(Equal(syncflow.AwaitingFileList))
	})
})
