package tui

import (
	"github.com/joe/mod-loader/internal/lifecycle"
	"github.com/joe/mod-loader/internal/registry"
)

// ModsLoadedMsg carries a fresh snapshot of the registry.
type ModsLoadedMsg struct {
	Records []registry.ModRecord
}

// OperationDoneMsg reports the outcome of a lifecycle action started from the UI.
type OperationDoneMsg struct {
	Op        string
	ID        string
	Report    *lifecycle.EnableReport
	Batch     *lifecycle.BatchResult
	Installed []registry.ModRecord
	Err       error
}
