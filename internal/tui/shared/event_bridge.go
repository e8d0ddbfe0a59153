package shared

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/mod-loader/internal/lifecycle"
)

// Exported constants.
const (
	// EventBufferSize bounds how many lifecycle events wait for the TUI.
	EventBufferSize = 100
)

// LifecycleEventMsg wraps a lifecycle.Event for use as a tea.Msg.
type LifecycleEventMsg struct {
	Event lifecycle.Event
}

// EventBridge adapts lifecycle events to bubble tea messages.
// It implements lifecycle.EventEmitter and provides a channel for TUI consumption.
type EventBridge struct {
	mu        sync.Mutex
	eventChan chan tea.Msg
	closed    bool
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		eventChan: make(chan tea.Msg, EventBufferSize),
	}
}

// Emit implements lifecycle.EventEmitter. Events are dropped when the buffer is full so
// the lifecycle manager never blocks on the UI.
func (b *EventBridge) Emit(event lifecycle.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	select {
	case b.eventChan <- LifecycleEventMsg{Event: event}:
	default:
	}
}

// Subscribe returns the event channel for receiving events.
func (b *EventBridge) Subscribe() <-chan tea.Msg {
	return b.eventChan
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// Use this in Init() or after processing an event to continue listening.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.eventChan
		if !ok {
			return nil
		}

		return msg
	}
}

// Close closes the event channel.
func (b *EventBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.eventChan)
	}
}
