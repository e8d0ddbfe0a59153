package lifecycle

import "github.com/joe/mod-loader/internal/registry"

// Event is the interface implemented by all lifecycle events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(event Event)

// Emit calls f(event).
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// InstallStarted is emitted before an archive is extracted.
type InstallStarted struct {
	Archive string
}

func (InstallStarted) isEvent() {}

// ModInstalled is emitted for each record an install creates.
type ModInstalled struct {
	Record registry.ModRecord
}

func (ModInstalled) isEvent() {}

// ModEnabled is emitted after a mod's files were copied into the game.
type ModEnabled struct {
	ID     string
	Report *EnableReport
}

func (ModEnabled) isEvent() {}

// ModDisabled is emitted after a mod's files were removed from the game.
type ModDisabled struct {
	ID string
}

func (ModDisabled) isEvent() {}

// ModDeleted is emitted after a mod was unregistered and its storage removed.
type ModDeleted struct {
	ID string
}

func (ModDeleted) isEvent() {}

// FileSkipped is emitted when one file of a mod could not be installed.
type FileSkipped struct {
	ID   string
	Path string
	Err  error
}

func (FileSkipped) isEvent() {}
