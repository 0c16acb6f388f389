package shared

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/qfieldsync/internal/projects"
	"github.com/joe/qfieldsync/internal/transfer"
)

// eventBufferSize keeps cache and worker goroutines from blocking on a busy UI.
const eventBufferSize = 256

// ProjectsEventMsg wraps a projects.Event for use as a tea.Msg.
type ProjectsEventMsg struct {
	Event projects.Event
}

// TransferEventMsg wraps a transfer.Event for use as a tea.Msg.
type TransferEventMsg struct {
	Event transfer.Event
}

// EventBridge adapts cache and transfer events to bubble tea messages.
// It implements both projects.EventEmitter and transfer.EventEmitter.
type EventBridge struct {
	eventChan chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	dropped   atomic.Int64
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		eventChan: make(chan tea.Msg, eventBufferSize),
		done:      make(chan struct{}),
	}
}

// Emit implements projects.EventEmitter.
func (b *EventBridge) Emit(event projects.Event) {
	b.send(ProjectsEventMsg{Event: event})
}

// Transfer returns the transfer.EventEmitter side of the bridge.
func (b *EventBridge) Transfer() transfer.EventEmitter {
	return transfer.EmitterFunc(func(event transfer.Event) {
		b.send(TransferEventMsg{Event: event})
	})
}

// FileProgress is dropped when the buffer is full; the next one for the
// same file supersedes it. Every other event waits for room, or for Close.
func (b *EventBridge) send(msg tea.Msg) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	if droppable(msg) {
		select {
		case b.eventChan <- msg:
		default:
			b.dropped.Add(1)
		}

		return
	}

	select {
	case b.eventChan <- msg:
	case <-b.done:
	}
}

func droppable(msg tea.Msg) bool {
	wrapped, ok := msg.(TransferEventMsg)
	if !ok {
		return false
	}

	_, ok = wrapped.Event.(transfer.FileProgress)

	return ok
}

// Dropped counts progress events lost to a full buffer.
func (b *EventBridge) Dropped() int64 {
	return b.dropped.Load()
}

// Subscribe returns the event channel for receiving events.
func (b *EventBridge) Subscribe() <-chan tea.Msg {
	return b.eventChan
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// Re-issue it after handling each event to keep listening.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.eventChan
		if !ok {
			return nil
		}

		return msg
	}
}

// Close closes the event channel. Senders blocked on a full buffer give up.
func (b *EventBridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.eventChan)
	}
}
