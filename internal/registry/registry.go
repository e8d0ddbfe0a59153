// Package registry persists the set of installed mods as a JSON document in the
// storage root.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/joe/mod-loader/internal/filter"
	"github.com/joe/mod-loader/pkg/filesystem"
)

// Exported constants.
const (
	// FileName is the registry document inside the storage root.
	FileName = "mods.json"
	// DefaultID is used when a base name sanitizes to nothing.
	DefaultID = "mod"
)

// Exported variables.
var (
	ErrRegistryCorrupt = errors.New("mod registry is corrupt")
	ErrModNotFound     = errors.New("mod not found")
)

// RegistryCorruptionError reports an unreadable registry document. The original bytes
// were copied to BackupPath before the error was returned.
//
//nolint:revive // Name reads naturally at call sites as registry.RegistryCorruptionError
type RegistryCorruptionError struct {
	Path       string
	BackupPath string
	Err        error
}

func (e *RegistryCorruptionError) Error() string {
	if e.BackupPath == "" {
		return fmt.Sprintf("registry %s is corrupt: %v", e.Path, e.Err)
	}

	return fmt.Sprintf("registry %s is corrupt (backup at %s): %v", e.Path, e.BackupPath, e.Err)
}

// Is reports whether target is ErrRegistryCorrupt.
func (e *RegistryCorruptionError) Is(target error) bool {
	return target == ErrRegistryCorrupt
}

func (e *RegistryCorruptionError) Unwrap() error {
	return e.Err
}

// Store is the in-memory registry plus its on-disk document.
type Store struct {
	mu          sync.Mutex
	saveMu      sync.Mutex
	path        string
	storageRoot string
	fs          filesystem.FileSystem
	logger      *log.Logger
	mods        map[string]ModRecord
	now         func() time.Time
}

// NewStore creates a Store for the registry inside storageRoot. fsys is used to check for
// storage folders when allocating ids.
func NewStore(storageRoot string, fsys filesystem.FileSystem, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Store{
		path:        filepath.Join(storageRoot, FileName),
		storageRoot: storageRoot,
		fs:          fsys,
		logger:      logger,
		mods:        make(map[string]ModRecord),
		now:         time.Now,
	}
}

// Path returns the registry document path.
func (s *Store) Path() string {
	return s.path
}

// StorageRoot returns the directory mod storage folders live in.
func (s *Store) StorageRoot() string {
	return s.storageRoot
}

// Load replaces the in-memory registry with the document on disk. A missing document is
// an empty registry. A malformed one is backed up and reported as a
// *RegistryCorruptionError; the in-memory registry is left empty. Records written before
// mods had their own storage folder are migrated and the document is rewritten.
func (s *Store) Load() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mods = make(map[string]ModRecord)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to read registry: %w", err)
	}

	mods, legacy, err := s.decode(data)
	if err != nil {
		backup, backupErr := s.backupCorrupt(data)
		if backupErr != nil {
			s.logger.Error("could not back up corrupt registry", "path", s.path, "error", backupErr)
		}

		return &RegistryCorruptionError{Path: s.path, BackupPath: backup, Err: err}
	}

	s.mods = mods

	if len(legacy) == 0 {
		return nil
	}

	if err := s.migrateLegacy(legacy); err != nil {
		s.mods = make(map[string]ModRecord)

		return err
	}

	return nil
}

// decode parses the document. legacy maps ids of old flat-storage records to the stored
// file path they recorded.
func (s *Store) decode(data []byte) (map[string]ModRecord, map[string]string, error) {
	var document map[string]json.RawMessage
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	mods := make(map[string]ModRecord, len(document))
	legacy := map[string]string{}

	for key, raw := range document {
		decoded, err := decodeRecord(key, raw)
		if err != nil {
			return nil, nil, err
		}

		for _, warning := range decoded.warnings {
			s.logger.Warn("repaired registry record", "mod", key, "reason", warning)
		}

		mods[key] = decoded.record

		if decoded.legacyFile != "" {
			legacy[key] = decoded.legacyFile
		}
	}

	return mods, legacy, nil
}

type legacyMove struct {
	from, to string
}

// migrateLegacy gives each flat-storage record its own folder in the storage root, moves the
// stored file there and rewrites the document. Called with both locks held.
func (s *Store) migrateLegacy(legacy map[string]string) error {
	ids := make([]string, 0, len(legacy))
	for id := range legacy {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	var moves []legacyMove

	undo := func() {
		for i := len(moves) - 1; i >= 0; i-- {
			if err := os.Rename(moves[i].to, moves[i].from); err != nil {
				s.logger.Error("could not restore legacy file", "path", moves[i].from, "error", err)
			}
		}
	}

	reserved := map[string]bool{}

	for _, id := range ids {
		record := s.mods[id]
		base := record.Files[0]
		folder := s.freeFolder(strings.TrimSuffix(base, filepath.Ext(base)), reserved)
		record.StorageDir = filepath.Join(s.storageRoot, folder)

		if source := s.legacySource(legacy[id], base); source == "" {
			s.logger.Warn("stored file of legacy record is missing", "mod", id, "path", legacy[id])
		} else {
			dest := filepath.Join(record.StorageDir, base)

			if err := os.MkdirAll(record.StorageDir, 0o750); err != nil {
				undo()

				return fmt.Errorf("failed to migrate %s: %w", id, err)
			}

			if err := os.Rename(source, dest); err != nil {
				undo()

				return fmt.Errorf("failed to migrate %s: %w", id, err)
			}

			moves = append(moves, legacyMove{from: source, to: dest})
		}

		s.mods[id] = record
		s.logger.Info("migrated legacy record", "mod", id, "path", record.StorageDir)
	}

	data, err := json.MarshalIndent(s.mods, "", "    ")
	if err == nil {
		err = WriteFileAtomic(s.path, data)
	}

	if err != nil {
		undo()

		return fmt.Errorf("failed to save migrated registry: %w", err)
	}

	return nil
}

// legacySource finds a legacy record's stored file: the recorded path, else a file of the
// same name in the storage root (the root may have moved since it was written).
func (s *Store) legacySource(storagePath, base string) string {
	for _, candidate := range []string{storagePath, filepath.Join(s.storageRoot, base)} {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}

	return ""
}

// freeFolder returns a sanitized folder name derived from base that no record, file or
// reserved name in the storage root uses yet. Called with s.mu held.
func (s *Store) freeFolder(base string, reserved map[string]bool) string {
	folder := SanitizeID(base)

	for counter := 1; s.taken(folder) || reserved[strings.ToLower(folder)]; counter++ {
		folder = SanitizeID(base) + "_" + strconv.Itoa(counter)
	}

	reserved[strings.ToLower(folder)] = true

	return folder
}

func (s *Store) backupCorrupt(data []byte) (string, error) {
	backup := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format("20060102T150405Z"))

	if err := os.WriteFile(backup, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", backup, err)
	}

	return backup, nil
}

// Save writes the whole registry atomically. Concurrent saves are written in the order
// their snapshots were taken.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	data, err := json.MarshalIndent(s.mods, "", "    ")
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	return WriteFileAtomic(s.path, data)
}

// WriteFileAtomic writes data to a temp file in path's directory and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// Put inserts or replaces a record.
func (s *Store) Put(record ModRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mods[record.ID] = record.Clone()
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (ModRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.mods[id]
	if !ok {
		return ModRecord{}, false
	}

	return record.Clone(), true
}

// Delete removes id and reports whether it was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.mods[id]
	delete(s.mods, id)

	return ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.mods)
}

// All returns every record ordered by load order (unset last), then id.
func (s *Store) All() []ModRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]ModRecord, 0, len(s.mods))
	for _, record := range s.mods {
		records = append(records, record.Clone())
	}

	sortRecords(records)

	return records
}

// Filter returns the records whose display name or id matches pattern, in listing order.
func (s *Store) Filter(pattern string) []ModRecord {
	glob := filter.NewGlob(pattern)

	var matched []ModRecord

	for _, record := range s.All() {
		if glob.Matches(record.DisplayName, record.ID) {
			matched = append(matched, record)
		}
	}

	return matched
}

// SetLoadOrder sets or clears (nil) the advisory load order of id.
func (s *Store) SetLoadOrder(id string, order *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.mods[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModNotFound, id)
	}

	if order != nil {
		value := *order
		order = &value
	}

	record.LoadOrder = order
	s.mods[id] = record

	return nil
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled once, read-only
	unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// SanitizeID turns a display or file name into a folder-safe id.
func SanitizeID(base string) string {
	id := unsafeIDChars.ReplaceAllString(strings.TrimSpace(base), "_")
	id = strings.Trim(id, "._")

	if id == "" {
		return DefaultID
	}

	return id
}

// GenerateUniqueID returns a sanitized id derived from base that is neither a registry key
// nor an existing folder in the storage root, adding _1, _2, ... as needed.
func (s *Store) GenerateUniqueID(base string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := SanitizeID(base)

	for counter := 1; s.taken(id); counter++ {
		id = SanitizeID(base) + "_" + strconv.Itoa(counter)
	}

	return id
}

func (s *Store) taken(id string) bool {
	if _, ok := s.mods[id]; ok {
		return true
	}

	for key := range s.mods {
		if strings.EqualFold(key, id) {
			return true
		}
	}

	_, err := s.fs.Stat(s.fs.Join(s.storageRoot, id))

	return err == nil
}

func sortRecords(records []ModRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		left, right := records[i].LoadOrder, records[j].LoadOrder

		switch {
		case left != nil && right != nil && *left != *right:
			return *left < *right
		case left != nil && right == nil:
			return true
		case left == nil && right != nil:
			return false
		default:
			return records[i].ID < records[j].ID
		}
	})
}
