// Package projects holds the process-wide cache of remote projects and
// their file manifests. Every view subscribes to the same Cache and
// re-renders on its events.
package projects

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joe/qfieldsync/internal/cloud"
)

// API is the part of the cloud client the cache reads from.
type API interface {
	ListProjects(ctx context.Context) ([]cloud.CloudProject, error)
	GetProjectFiles(ctx context.Context, id string) ([]cloud.CloudFile, error)
}

// Bindings resolves the local directory bound to a project.
type Bindings interface {
	LocalDir(projectID string) string
}

type subscriber struct {
	id      int
	emitter EventEmitter
}

// Cache caches the project list and per-project manifests. Concurrent
// requests for the same data share one in-flight Reply.
type Cache struct {
	api      API
	bindings Bindings
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	mu          sync.RWMutex
	projects    []cloud.CloudProject
	loaded      bool
	refreshing  *cloud.Reply[[]cloud.CloudProject]
	fetching    map[string]*cloud.Reply[[]cloud.CloudFile]
	subscribers []subscriber
	nextSubID   int
}

// NewCache creates an empty cache. bindings may be nil.
func NewCache(api API, bindings Bindings, logger zerolog.Logger) *Cache {
	ctx, cancel := context.WithCancel(context.Background())

	return &Cache{
		api:      api,
		bindings: bindings,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		fetching: make(map[string]*cloud.Reply[[]cloud.CloudFile]),
	}
}

// Close aborts every in-flight request.
func (c *Cache) Close() {
	c.cancel()
}

// Subscribe registers emitter for all future events. The returned function
// unsubscribes it and is safe to call more than once.
func (c *Cache) Subscribe(emitter EventEmitter) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, emitter: emitter})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.subscribers = slices.DeleteFunc(c.subscribers, func(s subscriber) bool {
			return s.id == id
		})
	}
}

// Loaded reports whether at least one refresh has succeeded.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.loaded
}

// Projects returns a copy of the cached list with local dirs filled in.
func (c *Cache) Projects() []cloud.CloudProject {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]cloud.CloudProject, len(c.projects))
	for i, project := range c.projects {
		out[i] = c.withLocalDir(project)
	}

	return out
}

// FindProject returns the cached project with the given id.
func (c *Cache) FindProject(id string) (cloud.CloudProject, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return cloud.CloudProject{}, false
	}

	return c.withLocalDir(c.projects[idx]), true
}

// Refresh re-fetches the project list. While a refresh is running, further
// calls return the same Reply.
func (c *Cache) Refresh() *cloud.Reply[[]cloud.CloudProject] {
	c.mu.Lock()

	if c.refreshing != nil {
		reply := c.refreshing
		c.mu.Unlock()

		return reply
	}

	start := make(chan struct{})
	reply := cloud.NewReply(c.ctx, func(ctx context.Context) ([]cloud.CloudProject, error) {
		<-start

		projects, err := c.api.ListProjects(ctx)
		c.finishRefresh(projects, err)

		return projects, err
	})
	c.refreshing = reply
	c.mu.Unlock()

	c.emit(ProjectsStarted{})
	close(start)

	return reply
}

func (c *Cache) finishRefresh(projects []cloud.CloudProject, err error) {
	c.mu.Lock()
	c.refreshing = nil

	if err == nil {
		c.projects = projects
		c.loaded = true
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn().Err(err).Msg("project list refresh failed")
		c.emit(ProjectsError{Err: err})

		return
	}

	c.logger.Debug().Int("count", len(projects)).Msg("project list refreshed")
	c.emit(ProjectsUpdated{})
}

// GetProjectFiles returns the manifest of project id, from the cache when it
// was already fetched. Events are only emitted for real fetches.
func (c *Cache) GetProjectFiles(id string) *cloud.Reply[[]cloud.CloudFile] {
	c.mu.Lock()

	if idx := c.indexOf(id); idx >= 0 && c.projects[idx].CloudFiles != nil {
		files := slices.Clone(c.projects[idx].CloudFiles)
		c.mu.Unlock()

		return cloud.ResolvedReply(files, nil)
	}

	if reply, ok := c.fetching[id]; ok {
		c.mu.Unlock()

		return reply
	}

	start := make(chan struct{})
	reply := cloud.NewReply(c.ctx, func(ctx context.Context) ([]cloud.CloudFile, error) {
		<-start

		files, err := c.api.GetProjectFiles(ctx, id)
		c.finishFiles(id, files, err)

		return files, err
	})
	c.fetching[id] = reply
	c.mu.Unlock()

	c.emit(ProjectFilesStarted{ID: id})
	close(start)

	return reply
}

func (c *Cache) finishFiles(id string, files []cloud.CloudFile, err error) {
	c.mu.Lock()
	delete(c.fetching, id)

	if err == nil {
		if files == nil {
			files = []cloud.CloudFile{}
		}

		if idx := c.indexOf(id); idx >= 0 {
			c.projects[idx].CloudFiles = files
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn().Err(err).Str("project", id).Msg("manifest fetch failed")
		c.emit(ProjectFilesError{ID: id, Err: err})

		return
	}

	c.logger.Debug().Str("project", id).Int("files", len(files)).Msg("manifest fetched")
	c.emit(ProjectFilesUpdated{ID: id})
}

// InvalidateFiles forgets the cached manifest of project id, e.g. after a
// transfer changed it.
func (c *Cache) InvalidateFiles(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(id); idx >= 0 {
		c.projects[idx].CloudFiles = nil
	}
}

func (c *Cache) emit(event Event) {
	c.mu.RLock()
	subscribers := slices.Clone(c.subscribers)
	c.mu.RUnlock()

	for _, sub := range subscribers {
		sub.emitter.Emit(event)
	}
}

// indexOf must be called with c.mu held.
func (c *Cache) indexOf(id string) int {
	return slices.IndexFunc(c.projects, func(p cloud.CloudProject) bool {
		return p.ID == id
	})
}

// withLocalDir must be called with c.mu held.
func (c *Cache) withLocalDir(project cloud.CloudProject) cloud.CloudProject {
	if c.bindings != nil {
		project.LocalDir = c.bindings.LocalDir(project.ID)
	}

	project.CloudFiles = slices.Clone(project.CloudFiles)

	return project
}
