package tui_test

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"slices"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/preferences"
	"github.com/joe/qfieldsync/internal/projects"
	"github.com/joe/qfieldsync/internal/tui"
	"github.com/joe/qfieldsync/pkg/fileops"
)

const (
	serverURL  = "https://cloud.example.org"
	cmdTimeout = 2 * time.Second
)

type fakeAPI struct {
	mu        sync.Mutex
	token     string
	loginErr  error
	logoutErr error
	saveErr   error
	deleteErr error
	created   []cloud.ProjectInput
	updated   map[string]cloud.ProjectInput
	deleted   []string
	uploads   map[string][]byte
}

func newFakeAPI(token string) *fakeAPI {
	return &fakeAPI{
		token:   token,
		updated: map[string]cloud.ProjectInput{},
		uploads: map[string][]byte{},
	}
}

func (f *fakeAPI) HasToken() bool    { return f.token != "" }
func (f *fakeAPI) ServerURL() string { return serverURL }

func (f *fakeAPI) LoginAsync(_ context.Context, username, _ string) *cloud.Reply[cloud.Credentials] {
	if f.loginErr != nil {
		return cloud.ResolvedReply(cloud.Credentials{}, f.loginErr)
	}

	f.token = "token-" + username

	return cloud.ResolvedReply(cloud.Credentials{Token: f.token, Username: username}, nil)
}

func (f *fakeAPI) LogoutAsync(context.Context) *cloud.Reply[struct{}] {
	return cloud.ResolvedReply(struct{}{}, f.logoutErr)
}

func (f *fakeAPI) CreateProjectAsync(_ context.Context, input cloud.ProjectInput) *cloud.Reply[cloud.CloudProject] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return cloud.ResolvedReply(cloud.CloudProject{}, f.saveErr)
	}

	f.created = append(f.created, input)

	return cloud.ResolvedReply(cloud.CloudProject{ID: "new-id", Name: input.Name, Owner: "me"}, nil)
}

func (f *fakeAPI) UpdateProjectAsync(
	_ context.Context,
	id string,
	input cloud.ProjectInput,
) *cloud.Reply[cloud.CloudProject] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return cloud.ResolvedReply(cloud.CloudProject{}, f.saveErr)
	}

	f.updated[id] = input

	return cloud.ResolvedReply(cloud.CloudProject{ID: id, Name: input.Name}, nil)
}

func (f *fakeAPI) DeleteProjectAsync(_ context.Context, id string) *cloud.Reply[struct{}] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr == nil {
		f.deleted = append(f.deleted, id)
	}

	return cloud.ResolvedReply(struct{}{}, f.deleteErr)
}

func (f *fakeAPI) GetProjectFiles(context.Context, string) ([]cloud.CloudFile, error) {
	return []cloud.CloudFile{}, nil
}

func (f *fakeAPI) UploadFile(
	_ context.Context,
	_, name string,
	r io.Reader,
	size int64,
	progress fileops.ProgressCallback,
) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if progress != nil {
		progress(size, size, name)
	}

	f.mu.Lock()
	f.uploads[name] = data
	f.mu.Unlock()

	return nil
}

func (f *fakeAPI) DownloadFile(
	_ context.Context,
	_, name string,
	w io.Writer,
	_ fileops.ProgressCallback,
) (int64, error) {
	return io.Copy(w, bytes.NewReader([]byte("remote "+name)))
}

func (f *fakeAPI) Uploads() map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.uploads
}

type fakeCache struct {
	mu          sync.Mutex
	projects    []cloud.CloudProject
	refreshes   int
	invalidated []string
	fetched     []string
}

func (c *fakeCache) Subscribe(projects.EventEmitter) func() { return func() {} }

func (c *fakeCache) Refresh() *cloud.Reply[[]cloud.CloudProject] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refreshes++

	return cloud.ResolvedReply(slices.Clone(c.projects), nil)
}

func (c *fakeCache) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refreshes
}

func (c *fakeCache) GetProjectFiles(id string) *cloud.Reply[[]cloud.CloudFile] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetched = append(c.fetched, id)

	return cloud.ResolvedReply([]cloud.CloudFile{}, nil)
}

func (c *fakeCache) InvalidateFiles(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidated = append(c.invalidated, id)
}

func (c *fakeCache) Projects() []cloud.CloudProject {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.projects)
}

func (c *fakeCache) FindProject(id string) (cloud.CloudProject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, project := range c.projects {
		if project.ID == id {
			return project, true
		}
	}

	return cloud.CloudProject{}, false
}

type fakePrefs struct {
	mu       sync.Mutex
	values   preferences.Values
	setCalls int
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{values: preferences.Values{LastUsername: "ada", LocalDirs: map[string]string{}}}
}

func (p *fakePrefs) Values() preferences.Values {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.values
}

func (p *fakePrefs) LocalDir(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.values.LocalDirs[id]
}

func (p *fakePrefs) SetLocalDir(id, dir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.setCalls++

	if dir == "" {
		delete(p.values.LocalDirs, id)
	} else {
		p.values.LocalDirs[id] = dir
	}

	return nil
}

func (p *fakePrefs) SetCredentials(username, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if username != "" {
		p.values.LastUsername = username
	}

	p.values.LastToken = token

	return nil
}

// collect runs cmd and flattens batches. Commands that block past
// cmdTimeout, such as event listeners, yield nothing.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}

	done := make(chan tea.Msg, 1)

	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, inner := range batch {
				out = append(out, collect(inner)...)
			}

			return out
		}

		if msg == nil {
			return nil
		}

		return []tea.Msg{msg}
	case <-time.After(cmdTimeout):
		return nil
	}
}

//nolint:gochecknoglobals // package paths of messages fed back into the model
var feedbackPackages = []string{
	"github.com/joe/qfieldsync/internal/tui/shared",
	"github.com/joe/qfieldsync/internal/syncflow",
}

// feed delivers msg and every controller message its commands produce,
// returning the final model and whether the program asked to quit.
func feed(app tui.AppModel, msg tea.Msg) (tui.AppModel, bool) {
	queue := []tea.Msg{msg}
	quit := false

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		model, cmd := app.Update(next)
		app = model.(tui.AppModel) //nolint:forcetypeassert // Update always returns AppModel

		for _, out := range collect(cmd) {
			if _, ok := out.(tea.QuitMsg); ok {
				quit = true
				continue
			}

			if fedBack(out) {
				queue = append(queue, out)
			}
		}
	}

	return app, quit
}

func fedBack(msg tea.Msg) bool {
	msgType := reflect.TypeOf(msg)
	if msgType.Name() == "TickMsg" {
		return false
	}

	return slices.Contains(feedbackPackages, msgType.PkgPath())
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyCtrlF}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}

	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(app tui.AppModel, text string) tui.AppModel {
	for _, r := range text {
		app, _ = feed(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	return app
}
