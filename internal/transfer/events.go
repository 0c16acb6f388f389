package transfer

// Event is the interface implemented by all transfer events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events. Emit is called from
// worker goroutines and must not block.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit calls f(event).
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// TransferStarted is emitted once the plan is known.
type TransferStarted struct {
	SessionID string
	Files     int
	Bytes     int64
}

func (TransferStarted) isEvent() {}

// FileStarted is emitted when a worker picks up a file.
type FileStarted struct {
	SessionID string
	Name      string
	Action    Action
	Size      int64
}

func (FileStarted) isEvent() {}

// FileProgress is emitted as bytes of a file move.
type FileProgress struct {
	SessionID string
	Name      string
	Bytes     int64
	Total     int64
}

func (FileProgress) isEvent() {}

// FileCompleted is emitted when a file finished moving.
type FileCompleted struct {
	SessionID string
	Name      string
	Action    Action
	Size      int64
}

func (FileCompleted) isEvent() {}

// FileFailed is emitted when a file could not be moved.
type FileFailed struct {
	SessionID string
	Name      string
	Action    Action
	Err       error
}

func (FileFailed) isEvent() {}

// TransferCompleted is emitted last, whatever the outcome.
type TransferCompleted struct {
	SessionID string
	Result    *Result
	Err       error
}

func (TransferCompleted) isEvent() {}

// SessionOf returns the session id carried by event.
func SessionOf(event Event) string {
	switch e := event.(type) {
	case TransferStarted:
		return e.SessionID
	case FileStarted:
		return e.SessionID
	case FileProgress:
		return e.SessionID
	case FileCompleted:
		return e.SessionID
	case FileFailed:
		return e.SessionID
	case TransferCompleted:
		return e.SessionID
	default:
		return ""
	}
}
