// Package lifecycle installs, enables, disables and deletes mods.
//
// A mod moves between three states: not installed, installed and disabled (files only in
// its storage folder), and installed and enabled (files also copied into the game). Every
// operation runs load, mutate and save under one lock so concurrent callers such as the TUI
// cannot interleave.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/joe/mod-loader/internal/inspector"
	"github.com/joe/mod-loader/internal/registry"
	"github.com/joe/mod-loader/pkg/fileops"
	"github.com/joe/mod-loader/pkg/filesystem"
)

// Exported constants.
const (
	// ScratchPrefix names the temporary extraction folders inside the storage root.
	ScratchPrefix = ".scratch-"
	// IconFileName is the stored icon's base name; the original extension is kept.
	IconFileName = "_icon"
)

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) ([]string, error)
}

// Config wires a Manager to its collaborators.
type Config struct {
	Store     *registry.Store
	Extractor Extractor
	// StorageFS holds the storage root. Extraction and inspection always use the local disk,
	// so this is a RealFileSystem outside of tests.
	StorageFS filesystem.FileSystem
	// PakTarget receives .pak bundles, flat.
	PakTarget *filesystem.Target
	// UE4SSTarget receives script mods, one folder per mod id.
	UE4SSTarget *filesystem.Target
	Logger      *log.Logger
	Emitter     EventEmitter
	// Now stamps InstalledAt; defaults to time.Now.
	Now func() time.Time
}

// Manager runs mod lifecycle operations.
type Manager struct {
	mu        sync.Mutex
	store     *registry.Store
	extractor Extractor
	storageFS filesystem.FileSystem
	pak       *filesystem.Target
	ue4ss     *filesystem.Target
	logger    *log.Logger
	emitter   EventEmitter
	now       func() time.Time
}

// NewManager creates a Manager from cfg.
func NewManager(cfg Config) *Manager {
	manager := &Manager{
		store:     cfg.Store,
		extractor: cfg.Extractor,
		storageFS: cfg.StorageFS,
		pak:       cfg.PakTarget,
		ue4ss:     cfg.UE4SSTarget,
		logger:    cfg.Logger,
		emitter:   cfg.Emitter,
		now:       cfg.Now,
	}

	if manager.storageFS == nil {
		manager.storageFS = filesystem.NewRealFileSystem()
	}

	if manager.logger == nil {
		manager.logger = log.New(io.Discard)
	}

	if manager.now == nil {
		manager.now = time.Now
	}

	return manager
}

// Store returns the registry the manager mutates.
func (m *Manager) Store() *registry.Store {
	return m.store
}

// contentUnit is one record-to-be produced by an install.
type contentUnit struct {
	baseName    string
	displayName string
	modType     registry.ModType
	// tree is the scratch-relative folder copied whole into storage; empty for pak units.
	tree string
	// sources are scratch-relative slash paths; targets are storage-relative slash paths.
	sources []string
	targets []string
}

// Install extracts archivePath, classifies it and registers one disabled record per
// content unit. The scratch folder is removed whatever the outcome.
func (m *Manager) Install(ctx context.Context, archivePath string) ([]registry.ModRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emit(InstallStarted{Archive: archivePath})

	root := m.store.StorageRoot()
	scratch := filepath.Join(root, ScratchPrefix+uuid.NewString())

	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			m.logger.Warn("could not remove scratch folder", "path", scratch, "error", err)
		}
	}()

	m.logger.Debug("extracting archive", "archive", archivePath, "path", scratch)

	if _, err := m.extractor.Extract(ctx, archivePath, scratch); err != nil {
		return nil, fmt.Errorf("install %s: %w", filepath.Base(archivePath), err)
	}

	classification, err := inspector.Classify(scratch)
	if err != nil {
		return nil, fmt.Errorf("install %s: %w", filepath.Base(archivePath), err)
	}

	if classification.Kind == inspector.KindInvalid {
		return nil, &NoModContentError{Archive: archivePath}
	}

	units := planUnits(classification, archivePath)
	created := make([]registry.ModRecord, 0, len(units))

	for _, unit := range units {
		record, err := m.commitUnit(ctx, scratch, unit, classification.Metadata, archivePath)
		if err != nil {
			m.rollback(created)

			return nil, fmt.Errorf("install %s: %w", filepath.Base(archivePath), err)
		}

		created = append(created, record)
	}

	if err := m.store.Save(); err != nil {
		m.rollback(created)

		return nil, fmt.Errorf("install %s: %w", filepath.Base(archivePath), err)
	}

	for _, record := range created {
		m.logger.Info("installed mod", "mod", record.ID, "type", record.Type, "files", len(record.Files))
		m.emit(ModInstalled{Record: record})
	}

	return created, nil
}

func planUnits(classification *inspector.Classification, archivePath string) []contentUnit {
	archiveStem := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	metaName := ""

	if classification.Metadata != nil {
		metaName = classification.Metadata.Name
	}

	if classification.Kind == inspector.KindUE4SS {
		unit := classification.UE4SS
		baseName := firstNonEmpty(unit.Name(), archiveStem)

		return []contentUnit{{
			baseName:    baseName,
			displayName: firstNonEmpty(metaName, baseName),
			modType:     registry.TypeUE4SS,
			tree:        unit.Root,
			targets:     append([]string(nil), unit.Files...),
		}}
	}

	units := make([]contentUnit, 0, len(classification.Paks))

	for _, bundle := range classification.Paks {
		displayName := firstNonEmpty(metaName, bundle.BaseName())
		if metaName != "" && len(classification.Paks) > 1 {
			displayName = fmt.Sprintf("%s (%s)", metaName, bundle.BaseName())
		}

		targets := make([]string, 0, len(bundle.Files))
		for _, file := range bundle.Files {
			targets = append(targets, path.Base(file))
		}

		units = append(units, contentUnit{
			baseName:    bundle.BaseName(),
			displayName: displayName,
			modType:     registry.TypePak,
			sources:     append([]string(nil), bundle.Files...),
			targets:     targets,
		})
	}

	return units
}

func (m *Manager) commitUnit(
	ctx context.Context,
	scratch string,
	unit contentUnit,
	meta *inspector.Metadata,
	archivePath string,
) (registry.ModRecord, error) {
	id := m.store.GenerateUniqueID(unit.baseName)
	storageDir := filepath.Join(m.store.StorageRoot(), id)
	ops := fileops.NewDualFileOps(filesystem.NewRealFileSystem(), m.storageFS)

	if err := m.storageFS.MkdirAll(storageDir, fileops.DefaultDirPermissions); err != nil {
		return registry.ModRecord{}, fmt.Errorf("failed to create storage for %s: %w", id, err)
	}

	if err := m.storeUnit(ctx, ops, scratch, storageDir, unit); err != nil {
		_ = m.storageFS.RemoveAll(storageDir)

		return registry.ModRecord{}, err
	}

	record := registry.ModRecord{
		ID:            id,
		DisplayName:   unit.displayName,
		Type:          unit.modType,
		StorageDir:    storageDir,
		Files:         unit.targets,
		SourceArchive: filepath.Base(archivePath),
		InstalledAt:   m.now().UTC(),
	}

	if meta != nil {
		record.Description = meta.Description
		record.Author = meta.Author
		record.Version = meta.Version

		if meta.Icon != "" {
			record.IconPath = m.storeIcon(ctx, ops, scratch, storageDir, meta.Icon, id)
		}
	}

	m.store.Put(record)

	return record, nil
}

// storeUnit copies a unit's files from scratch into storageDir. UE4SS trees are copied
// whole so their layout survives.
func (m *Manager) storeUnit(ctx context.Context, ops *fileops.FileOps, scratch, storageDir string, unit contentUnit) error {
	if unit.tree != "" {
		_, err := ops.CopyTree(ctx, filepath.Join(scratch, filepath.FromSlash(unit.tree)), storageDir)

		return err //nolint:wrapcheck // CopyTree names the failing file
	}

	for i, source := range unit.sources {
		src := filepath.Join(scratch, filepath.FromSlash(source))
		dst := m.storageFS.Join(storageDir, unit.targets[i])

		if _, err := ops.CopyFile(ctx, src, dst, nil); err != nil {
			return err //nolint:wrapcheck // CopyFile names the failing file
		}
	}

	return nil
}

func (m *Manager) storeIcon(ctx context.Context, ops *fileops.FileOps, scratch, storageDir, icon, id string) string {
	dst := m.storageFS.Join(storageDir, IconFileName+strings.ToLower(path.Ext(icon)))

	if _, err := ops.CopyFile(ctx, filepath.Join(scratch, filepath.FromSlash(icon)), dst, nil); err != nil {
		m.logger.Warn("could not store mod icon", "mod", id, "path", icon, "error", err)

		return ""
	}

	return dst
}

func (m *Manager) rollback(records []registry.ModRecord) {
	for _, record := range records {
		m.store.Delete(record.ID)

		if err := m.storageFS.RemoveAll(record.StorageDir); err != nil {
			m.logger.Warn("could not remove partial install", "mod", record.ID, "path", record.StorageDir, "error", err)
		}
	}
}

// Enable copies a disabled mod's files into the game. Files that fail to copy are skipped
// and listed in the report; if none copy, the mod stays disabled and ErrNothingInstalled is
// returned alongside the report.
func (m *Manager) Enable(ctx context.Context, id string) (*EnableReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prior, _ := m.store.Get(id)

	report, err := m.enableLocked(ctx, id)
	if err != nil {
		return report, err
	}

	if err := m.store.Save(); err != nil {
		m.revertEnable(prior, report)

		return report, fmt.Errorf("enable %s: %w", id, err)
	}

	m.emit(ModEnabled{ID: id, Report: report})

	return report, nil
}

func (m *Manager) enableLocked(ctx context.Context, id string) (*EnableReport, error) {
	record, ok := m.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModNotFound, id)
	}

	if record.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyEnabled, id)
	}

	if _, err := m.storageFS.Stat(record.StorageDir); record.StorageDir == "" || err != nil {
		return nil, &MissingSourceFileError{ID: id, Path: record.StorageDir}
	}

	target, err := m.targetFor(record.Type)
	if err != nil {
		return nil, err
	}

	inUse := m.installedByOthers(id)
	ops := fileops.NewDualFileOps(m.storageFS, target.FS)
	report := &EnableReport{ID: id}

	for _, rel := range record.Files {
		if ctx.Err() != nil {
			m.removeInstalled(target, record, report.Installed)

			return report, fmt.Errorf("enable %s: %w", id, ctx.Err())
		}

		src := m.storageFS.Join(record.StorageDir, filepath.FromSlash(rel))
		dst := m.destination(target, record, rel)

		var copyErr error
		if inUse[dst] {
			copyErr = ErrDestinationInUse
		} else {
			_, copyErr = ops.CopyFile(ctx, src, dst, nil)
		}

		if copyErr != nil {
			report.Skipped = append(report.Skipped, SkippedFile{Path: rel, Err: copyErr})
			m.logger.Warn("skipped file", "mod", id, "path", rel, "error", copyErr)
			m.emit(FileSkipped{ID: id, Path: rel, Err: copyErr})

			continue
		}

		report.Installed = append(report.Installed, dst)
	}

	if len(report.Installed) == 0 {
		m.removeInstalled(target, record, nil)

		return report, fmt.Errorf("enable %s: %w", id, ErrNothingInstalled)
	}

	record.Enabled = true
	record.InstalledPaths = report.Installed
	m.store.Put(record)

	m.logger.Info("enabled mod", "mod", id, "installed", len(report.Installed), "skipped", len(report.Skipped))

	return report, nil
}

// revertEnable backs out an enable whose registry save failed, leaving the game and the
// in-memory record as they were before.
func (m *Manager) revertEnable(prior registry.ModRecord, report *EnableReport) {
	if target, err := m.targetFor(prior.Type); err == nil {
		m.removeInstalled(target, prior, report.Installed)
	}

	m.store.Put(prior)
}

// destination maps a stored file to its path in the game: pak files go flat into the pak
// directory, UE4SS files keep their layout below a folder named after the mod id.
func (m *Manager) destination(target *filesystem.Target, record registry.ModRecord, rel string) string {
	if record.Type == registry.TypeUE4SS {
		return target.FS.Join(append([]string{target.Root, record.ID}, strings.Split(rel, "/")...)...)
	}

	return target.FS.Join(target.Root, path.Base(rel))
}

func (m *Manager) installedByOthers(id string) map[string]bool {
	inUse := map[string]bool{}

	for _, other := range m.store.All() {
		if other.ID == id || !other.Enabled {
			continue
		}

		for _, installed := range other.InstalledPaths {
			inUse[installed] = true
		}
	}

	return inUse
}

// removeInstalled backs out files written during a failed enable. For UE4SS mods the whole
// per-mod folder goes.
func (m *Manager) removeInstalled(target *filesystem.Target, record registry.ModRecord, installed []string) {
	if record.Type == registry.TypeUE4SS {
		_ = target.FS.RemoveAll(target.FS.Join(target.Root, record.ID))

		return
	}

	for _, p := range installed {
		_ = target.FS.Remove(p)
	}
}

func (m *Manager) targetFor(modType registry.ModType) (*filesystem.Target, error) {
	target := m.pak
	name := "pak_dir"

	if modType == registry.TypeUE4SS {
		target = m.ue4ss
		name = "ue4ss_mods_dir"
	}

	if target == nil || target.FS == nil || target.Root == "" {
		return nil, fmt.Errorf("%w: set %s", ErrTargetNotConfigured, name)
	}

	return target, nil
}

// Disable removes an enabled mod's files from the game. Files already gone count as
// removed. If some files cannot be removed the mod stays enabled with just those paths.
func (m *Manager) Disable(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.disableLocked(ctx, id); err != nil {
		return err
	}

	if err := m.store.Save(); err != nil {
		return fmt.Errorf("disable %s: %w", id, err)
	}

	m.emit(ModDisabled{ID: id})

	return nil
}

func (m *Manager) disableLocked(_ context.Context, id string) error {
	record, ok := m.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModNotFound, id)
	}

	if !record.Enabled {
		return fmt.Errorf("%w: %s", ErrAlreadyDisabled, id)
	}

	target, err := m.targetFor(record.Type)
	if err != nil {
		return err
	}

	var remaining []string

	var errs []error

	if record.Type == registry.TypeUE4SS {
		if err := target.FS.RemoveAll(target.FS.Join(target.Root, record.ID)); err != nil {
			remaining = record.InstalledPaths
			errs = append(errs, err)
		}
	} else {
		for _, installed := range record.InstalledPaths {
			err := target.FS.Remove(installed)
			if err == nil || errors.Is(err, fs.ErrNotExist) {
				continue
			}

			remaining = append(remaining, installed)
			errs = append(errs, err)
		}
	}

	if len(remaining) > 0 {
		record.InstalledPaths = remaining
		m.store.Put(record)

		if err := m.store.Save(); err != nil {
			errs = append(errs, err)
		}

		return fmt.Errorf("disable %s: %w", id, errors.Join(errs...))
	}

	record.Enabled = false
	record.InstalledPaths = nil
	m.store.Put(record)

	m.logger.Info("disabled mod", "mod", id)

	return nil
}

// Delete disables the mod if needed (failures are logged, not fatal), removes its storage
// folder and unregisters it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModNotFound, id)
	}

	if record.Enabled {
		if err := m.disableLocked(ctx, id); err != nil {
			m.logger.Warn("could not disable mod before delete", "mod", id, "error", err)
		}
	}

	if record.StorageDir != "" {
		if !m.insideStorage(record.StorageDir) {
			return fmt.Errorf("delete %s: %w: %s", id, ErrUnsafeStorageDir, record.StorageDir)
		}

		if err := m.storageFS.RemoveAll(record.StorageDir); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}

	m.store.Delete(id)

	if err := m.store.Save(); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	m.logger.Info("deleted mod", "mod", id)
	m.emit(ModDeleted{ID: id})

	return nil
}

func (m *Manager) insideStorage(dir string) bool {
	rel, err := filepath.Rel(m.store.StorageRoot(), dir)
	if err != nil {
		return false
	}

	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// EnableAll enables every disabled mod in listing order.
func (m *Manager) EnableAll(ctx context.Context) *BatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := newBatchResult()

	var reports []*EnableReport

	priors := map[string]registry.ModRecord{}

	for _, record := range m.store.All() {
		if record.Enabled {
			result.Skipped = append(result.Skipped, record.ID)

			continue
		}

		report, err := m.enableLocked(ctx, record.ID)
		if err != nil {
			result.Failed[record.ID] = err

			continue
		}

		result.Succeeded = append(result.Succeeded, record.ID)
		reports = append(reports, report)
		priors[record.ID] = record
	}

	if !m.saveBatch(result) {
		for _, report := range reports {
			m.revertEnable(priors[report.ID], report)
		}

		return result
	}

	for _, report := range reports {
		m.emit(ModEnabled{ID: report.ID, Report: report})
	}

	return result
}

// DisableAll disables every enabled mod in listing order.
func (m *Manager) DisableAll(ctx context.Context) *BatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := newBatchResult()

	for _, record := range m.store.All() {
		if !record.Enabled {
			result.Skipped = append(result.Skipped, record.ID)

			continue
		}

		if err := m.disableLocked(ctx, record.ID); err != nil {
			result.Failed[record.ID] = err

			continue
		}

		result.Succeeded = append(result.Succeeded, record.ID)
	}

	if m.saveBatch(result) {
		for _, id := range result.Succeeded {
			m.emit(ModDisabled{ID: id})
		}
	}

	return result
}

// saveBatch persists a batch; a failed save marks every success as failed and returns false.
func (m *Manager) saveBatch(result *BatchResult) bool {
	if len(result.Succeeded) == 0 {
		return true
	}

	if err := m.store.Save(); err != nil {
		for _, id := range result.Succeeded {
			result.Failed[id] = err
		}

		result.Succeeded = nil

		return false
	}

	return true
}

func (m *Manager) emit(event Event) {
	if m.emitter != nil {
		m.emitter.Emit(event)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
