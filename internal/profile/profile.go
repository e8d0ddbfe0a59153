// Package profile snapshots and restores the set of enabled mods under a name.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/joe/mod-loader/internal/lifecycle"
	"github.com/joe/mod-loader/internal/registry"
)

// Exported constants.
const (
	// FileName is the profiles document inside the storage root.
	FileName = "profiles.json"
)

// Exported variables.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidName     = errors.New("profile name must not be empty")
)

// Lifecycle is the part of the lifecycle manager a profile load drives.
type Lifecycle interface {
	Enable(ctx context.Context, id string) (*lifecycle.EnableReport, error)
	DisableAll(ctx context.Context) *lifecycle.BatchResult
}

// LoadResult describes what a profile load changed.
type LoadResult struct {
	Enabled []string
	// Missing lists snapshot ids no longer in the registry.
	Missing []string
	Failed  map[string]error
}

// Manager owns the profiles document.
type Manager struct {
	mu        sync.Mutex
	path      string
	store     *registry.Store
	lifecycle Lifecycle
	logger    *log.Logger
	profiles  map[string][]string
	loaded    bool
}

// NewManager creates a Manager whose document lives next to the registry.
func NewManager(store *registry.Store, lc Lifecycle, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Manager{
		path:      filepath.Join(store.StorageRoot(), FileName),
		store:     store,
		lifecycle: lc,
		logger:    logger,
		profiles:  make(map[string][]string),
	}
}

// Path returns the profiles document path.
func (m *Manager) Path() string {
	return m.path
}

// Save snapshots the currently enabled mods under name, replacing any profile of the
// same name.
func (m *Manager) Save(name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}

	ids := []string{}

	for _, record := range m.store.All() {
		if record.Enabled {
			ids = append(ids, record.ID)
		}
	}

	m.profiles[name] = ids

	if err := m.persist(); err != nil {
		return nil, err
	}

	m.logger.Info("saved profile", "profile", name, "mods", len(ids))

	return append([]string(nil), ids...), nil
}

// Load disables every enabled mod, then enables the ids stored in the profile. Ids no
// longer in the registry are skipped and reported in Missing.
func (m *Manager) Load(ctx context.Context, name string) (*LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}

	ids, ok := m.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	result := &LoadResult{Failed: make(map[string]error)}

	disabled := m.lifecycle.DisableAll(ctx)
	for id, err := range disabled.Failed {
		result.Failed[id] = fmt.Errorf("disable: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("load profile %s: %w", name, err)
		}

		if _, ok := m.store.Get(id); !ok {
			m.logger.Warn("profile references a mod that is no longer installed", "profile", name, "mod", id)
			result.Missing = append(result.Missing, id)

			continue
		}

		if _, err := m.lifecycle.Enable(ctx, id); err != nil && !errors.Is(err, lifecycle.ErrAlreadyEnabled) {
			result.Failed[id] = err

			continue
		}

		result.Enabled = append(result.Enabled, id)
	}

	m.logger.Info("loaded profile", "profile", name,
		"enabled", len(result.Enabled), "missing", len(result.Missing), "failed", len(result.Failed))

	return result, nil
}

// Delete removes the named profile.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(); err != nil {
		return err
	}

	if _, ok := m.profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	delete(m.profiles, name)

	return m.persist()
}

// List returns the profile names, sorted.
func (m *Manager) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(m.profiles))
	for name := range m.profiles {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// Get returns the ids stored under name.
func (m *Manager) Get(name string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}

	ids, ok := m.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	return append([]string(nil), ids...), nil
}

func (m *Manager) ensureLoaded() error {
	if m.loaded {
		return nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	profiles := make(map[string][]string)

	if len(data) > 0 {
		if err := json.Unmarshal(data, &profiles); err != nil {
			return fmt.Errorf("failed to parse %s: %w", FileName, err)
		}
	}

	m.profiles = profiles
	m.loaded = true

	return nil
}

func (m *Manager) persist() error {
	data, err := json.MarshalIndent(m.profiles, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}

	return registry.WriteFileAtomic(m.path, data)
}
