// Package tui is the interactive mod list.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/mod-loader/internal/config"
	"github.com/joe/mod-loader/internal/lifecycle"
	"github.com/joe/mod-loader/internal/registry"
	"github.com/joe/mod-loader/internal/tui/shared"
	"github.com/joe/mod-loader/pkg/errors"
)

// Exported constants.
const (
	// ActivityLogEntries is how many recent events stay on screen.
	ActivityLogEntries = 5
)

// Mods is the lifecycle surface the TUI drives.
type Mods interface {
	Install(ctx context.Context, archivePath string) ([]registry.ModRecord, error)
	Enable(ctx context.Context, id string) (*lifecycle.EnableReport, error)
	Disable(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	EnableAll(ctx context.Context) *lifecycle.BatchResult
	DisableAll(ctx context.Context) *lifecycle.BatchResult
	Store() *registry.Store
}

// Options wires a Model.
type Options struct {
	Context  context.Context //nolint:containedctx // Cancelled by main on shutdown
	Mods     Mods
	Bridge   *shared.EventBridge
	Enricher errors.Enricher
	Window   config.WindowSettings
}

// Model is the mod list screen.
type Model struct {
	ctx      context.Context //nolint:containedctx // Passed to every lifecycle command
	mods     Mods
	bridge   *shared.EventBridge
	enricher errors.Enricher

	list    list.Model
	spinner spinner.Model
	prompt  installPrompt
	keys    keyMap

	width  int
	height int

	busy          string
	pendingDelete string
	status        string
	statusErr     error
	statusDetail  string
	activity      []string
	quitting      bool
}

type keyMap struct {
	Install    key.Binding
	Enable     key.Binding
	Disable    key.Binding
	Delete     key.Binding
	EnableAll  key.Binding
	DisableAll key.Binding
	Confirm    key.Binding
	Submit     key.Binding
	Cancel     key.Binding
	Complete   key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Install:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "install")),
		Enable:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "enable")),
		Disable:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disable")),
		Delete:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		EnableAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "enable all")),
		DisableAll: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "disable all")),
		Confirm:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "install")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Complete:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
		Quit:       key.NewBinding(key.WithKeys("q", shared.KeyCtrlC), key.WithHelp("q", "quit")),
	}
}

// NewModel creates the mod list screen.
func NewModel(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	enricher := opts.Enricher
	if enricher == nil {
		enricher = errors.NewEnricher()
	}

	keys := newKeyMap()

	mods := list.New(nil, list.NewDefaultDelegate(), opts.Window.Width, opts.Window.Height)
	mods.Title = "Mods"
	mods.Filter = filterMods
	mods.SetShowStatusBar(true)
	mods.DisableQuitKeybindings()
	mods.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Install, keys.Enable, keys.Disable, keys.Delete, keys.EnableAll, keys.DisableAll}
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = shared.LabelStyle()

	model := &Model{
		ctx:      ctx,
		mods:     opts.Mods,
		bridge:   opts.Bridge,
		enricher: enricher,
		list:     mods,
		spinner:  spin,
		prompt:   newInstallPrompt(),
		keys:     keys,
		width:    opts.Window.Width,
		height:   opts.Window.Height,
	}

	model.list.SetItems(itemsFor(opts.Mods.Store().All()))
	model.resize()

	return model
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.bridge == nil {
		return nil
	}

	return m.bridge.ListenCmd()
}

// Busy returns the running operation, or "" when idle.
func (m *Model) Busy() string {
	return m.busy
}

// Status returns the last status line.
func (m *Model) Status() string {
	return m.status
}

// Activity returns the activity log entries.
func (m *Model) Activity() []string {
	return append([]string(nil), m.activity...)
}

func (m *Model) selected() (registry.ModRecord, bool) {
	item, ok := m.list.SelectedItem().(modItem)
	if !ok {
		return registry.ModRecord{}, false
	}

	return item.record, true
}
