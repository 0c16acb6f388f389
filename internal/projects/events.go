package projects

// Event is the interface implemented by all cache events.
type Event interface {
	isEvent()
}

// EventEmitter receives cache events. Emit is called outside the cache lock
// and must not block.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit calls f(event).
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// ProjectsStarted is emitted when a project list refresh begins.
type ProjectsStarted struct{}

func (ProjectsStarted) isEvent() {}

// ProjectsUpdated is emitted when a refresh replaced the cached list.
type ProjectsUpdated struct{}

func (ProjectsUpdated) isEvent() {}

// ProjectsError is emitted when a refresh failed; the old list is kept.
type ProjectsError struct {
	Err error
}

func (ProjectsError) isEvent() {}

// ProjectFilesStarted is emitted when a manifest fetch begins.
type ProjectFilesStarted struct {
	ID string
}

func (ProjectFilesStarted) isEvent() {}

// ProjectFilesUpdated is emitted when project ID's manifest was stored.
type ProjectFilesUpdated struct {
	ID string
}

func (ProjectFilesUpdated) isEvent() {}

// ProjectFilesError is emitted when project ID's manifest could not be fetched.
type ProjectFilesError struct {
	ID  string
	Err error
}

func (ProjectFilesError) isEvent() {}
