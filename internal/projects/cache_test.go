//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package projects_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"github.com/rs/zerolog"

	"github.com/joe/qfieldsync/internal/cloud"
	"github.com/joe/qfieldsync/internal/projects"
)

type fakeAPI struct {
	projects  []cloud.CloudProject
	files     map[string][]cloud.CloudFile
	listErr   error
	gate      chan struct{}
	fileCalls atomic.Int32
}

func (f *fakeAPI) ListProjects(ctx context.Context) ([]cloud.CloudProject, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return f.projects, f.listErr
}

func (f *fakeAPI) GetProjectFiles(ctx context.Context, id string) ([]cloud.CloudFile, error) {
	f.fileCalls.Add(1)

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	files, ok := f.files[id]
	if !ok {
		return nil, &cloud.APIError{Method: "GET", Path: "/files/" + id + "/", StatusCode: 404}
	}

	return files, nil
}

type bindings map[string]string

func (b bindings) LocalDir(id string) string { return b[id] }

type recorder struct {
	mu     sync.Mutex
	events []projects.Event
}

func (r *recorder) Emit(event projects.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) Events() []projects.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]projects.Event(nil), r.events...)
}

func newAPI() *fakeAPI {
	return &fakeAPI{
		projects: []cloud.CloudProject{
			{ID: "p1", Name: "roads"},
			{ID: "p2", Name: "rivers"},
		},
		files: map[string][]cloud.CloudFile{
			"p1": {{Name: "roads.qgs", Size: 10}},
			"p2": {},
		},
	}
}

func TestRefresh_FillsLocalDirsAndNotifiesEverySubscriber(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cache := projects.NewCache(newAPI(), bindings{"p1": "/data/roads"}, zerolog.Nop())
	defer cache.Close()

	first, second := &recorder{}, &recorder{}
	cache.Subscribe(first)
	cache.Subscribe(second)

	g.Expect(cache.Loaded()).Should(BeFalse())

	list, err := cache.Refresh().Wait(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(list).Should(HaveLen(2))
	g.Expect(cache.Loaded()).Should(BeTrue())

	project, ok := cache.FindProject("p1")
	g.Expect(ok).Should(BeTrue())
	g.Expect(project.LocalDir).Should(Equal("/data/roads"))
	g.Expect(project.CloudFiles).Should(BeNil())

	for _, rec := range []*recorder{first, second} {
		g.Expect(rec.Events()).Should(Equal([]projects.Event{projects.ProjectsStarted{}, projects.ProjectsUpdated{}}))
	}
}

func TestRefresh_ErrorKeepsPreviousList(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	api := newAPI()
	cache := projects.NewCache(api, nil, zerolog.Nop())
	defer cache.Close()

	_, err := cache.Refresh().Wait(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	rec := &recorder{}
	cache.Subscribe(rec)

	api.listErr = errors.New("boom")
	_, err = cache.Refresh().Wait(context.Background())
	g.Expect(err).Should(MatchError("boom"))
	g.Expect(cache.Projects()).Should(HaveLen(2))
	g.Expect(rec.Events()).Should(ContainElement(projects.ProjectsError{Err: api.listErr}))
}

func TestRefresh_ConcurrentCallsShareReply(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	api := newAPI()
	api.gate = make(chan struct{})
	cache := projects.NewCache(api, nil, zerolog.Nop())
	defer cache.Close()

	first := cache.Refresh()
	second := cache.Refresh()
	g.Expect(second).Should(BeIdenticalTo(first))

	close(api.gate)
	_, err := first.Wait(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())
}

func TestGetProjectFiles_CachesAndDistinguishesEmpty(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	api := newAPI()
	cache := projects.NewCache(api, nil, zerolog.Nop())
	defer cache.Close()

	_, err := cache.Refresh().Wait(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	rec := &recorder{}
	cache.Subscribe(rec)

	files, err := cache.GetProjectFiles("p2").Wait(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).ShouldNot(BeNil())
	g.Expect(files).Should(BeEmpty())

	project, _ := cache.FindProject("p2")
	g.Expect(project.FilesFetched()).Should(BeTrue())

	reply := cache.GetProjectFiles("p2")
	g.Expect(reply.Done()).Should(BeClosed())
	g.Expect(api.fileCalls.Load()).Should(Equal(int32(1)))

	g.Expect(rec.Events()).Should(Equal([]projects.Event{
		projects.ProjectFilesStarted{ID: "p2"},
		projects.ProjectFilesUpdated{ID: "p2"},
	}))

	cache.InvalidateFiles("p2")
	project, _ = cache.FindProject("p2")
	g.Expect(project.FilesFetched()).Should(BeFalse())
}

func TestGetProjectFiles_ErrorIsKeyedByProject(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cache := projects.NewCache(newAPI(), nil, zerolog.Nop())
	defer cache.Close()

	rec := &recorder{}
	cache.Subscribe(rec)

	_, err := cache.GetProjectFiles("gone").Wait(context.Background())
	g.Expect(err).Should(HaveOccurred())

	events := rec.Events()
	g.Expect(events).Should(HaveLen(2))
	g.Expect(events[1]).Should(BeAssignableToTypeOf(projects.ProjectFilesError{}))
	g.Expect(events[1].(projects.ProjectFilesError).ID).Should(Equal("gone"))
}

func TestSubscribe_UnsubscribeStopsEvents(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cache := projects.NewCache(newAPI(), nil, zerolog.Nop())
	defer cache.Close()

	rec := &recorder{}
	unsubscribe := cache.Subscribe(rec)
	unsubscribe()
	unsubscribe()

	_, err := cache.Refresh().Wait(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(rec.Events()).Should(BeEmpty())
}

func TestProjects_ReturnsCopies(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cache := projects.NewCache(newAPI(), nil, zerolog.Nop())
	defer cache.Close()

	_, err := cache.Refresh().Wait(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	list := cache.Projects()
	list[0].Name = "changed"

	project, _ := cache.FindProject("p1")
	g.Expect(project.Name).Should(Equal("roads"))
}
