package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Exported constants.
const (
	TypePak   ModType = "pak"
	TypeUE4SS ModType = "ue4ss"
)

// ModType says where a mod's files are installed.
type ModType string

// ModRecord is one installed mod.
type ModRecord struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Type        ModType `json:"mod_type"`
	// StorageDir is owned exclusively by this record and removed on delete.
	StorageDir string `json:"storage_dir"`
	// Files are slash paths relative to StorageDir.
	Files   []string `json:"files"`
	Enabled bool     `json:"enabled"`
	// InstalledPaths are the destination paths written by the last enable.
	InstalledPaths []string  `json:"installed_paths,omitempty"`
	Description    string    `json:"description,omitempty"`
	Author         string    `json:"author,omitempty"`
	Version        string    `json:"version,omitempty"`
	IconPath       string    `json:"icon_path,omitempty"`
	LoadOrder      *int      `json:"load_order,omitempty"`
	SourceArchive  string    `json:"source_archive,omitempty"`
	InstalledAt    time.Time `json:"installed_at,omitzero"`
}

// Clone returns a deep copy so callers cannot mutate stored slices.
func (r ModRecord) Clone() ModRecord {
	r.Files = append([]string(nil), r.Files...)
	r.InstalledPaths = append([]string(nil), r.InstalledPaths...)

	if r.LoadOrder != nil {
		order := *r.LoadOrder
		r.LoadOrder = &order
	}

	return r
}

// rawRecord accepts the current document shape plus the keys older versions wrote.
type rawRecord struct {
	ID             string          `json:"id"`
	DisplayName    string          `json:"display_name"`
	Name           string          `json:"name"`
	Type           string          `json:"mod_type"`
	StorageDir     string          `json:"storage_dir"`
	StoragePath    string          `json:"storage_path"`
	Files          []string        `json:"files"`
	File           string          `json:"file"`
	Enabled        bool            `json:"enabled"`
	InstalledPaths []string        `json:"installed_paths"`
	GamePath       string          `json:"game_path"`
	Description    string          `json:"description"`
	Author         string          `json:"author"`
	Version        string          `json:"version"`
	IconPath       string          `json:"icon_path"`
	LoadOrder      *int            `json:"load_order"`
	SourceArchive  string          `json:"source_archive"`
	InstalledAt    json.RawMessage `json:"installed_at"`
}

// decodedRecord is one registry entry and the repairs loading it needs.
type decodedRecord struct {
	record ModRecord
	// legacyFile is the single stored file of a record written before mods had their own
	// storage folder. Store.Load moves it into one.
	legacyFile string
	warnings   []string
}

// decodeRecord converts one registry entry. The document key is the record id.
func decodeRecord(key string, data json.RawMessage) (decodedRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return decodedRecord{}, fmt.Errorf("record %q: %w", key, err)
	}

	var warnings []string

	record := ModRecord{
		ID:             key,
		DisplayName:    firstNonEmpty(raw.DisplayName, raw.Name, key),
		StorageDir:     raw.StorageDir,
		Files:          raw.Files,
		Enabled:        raw.Enabled,
		InstalledPaths: raw.InstalledPaths,
		Description:    raw.Description,
		Author:         raw.Author,
		Version:        raw.Version,
		IconPath:       raw.IconPath,
		LoadOrder:      raw.LoadOrder,
		SourceArchive:  raw.SourceArchive,
	}

	if raw.ID != "" && raw.ID != key {
		warnings = append(warnings, fmt.Sprintf("id field %q differs from its key, using the key", raw.ID))
	}

	if len(record.Files) == 0 && raw.File != "" {
		record.Files = []string{raw.File}
	}

	legacyFile := ""
	if record.StorageDir == "" && legacyBase(raw.StoragePath) != "" {
		legacyFile = raw.StoragePath
		record.Files = []string{legacyBase(raw.StoragePath)}
	}

	if len(record.InstalledPaths) == 0 && raw.GamePath != "" {
		record.InstalledPaths = []string{raw.GamePath}
	}

	switch ModType(raw.Type) {
	case TypePak, TypeUE4SS:
		record.Type = ModType(raw.Type)
	case "":
		record.Type = TypePak
	default:
		record.Type = TypePak

		warnings = append(warnings, fmt.Sprintf("unknown mod_type %q, treating as pak", raw.Type))
	}

	if len(raw.InstalledAt) > 0 {
		var installedAt time.Time
		if err := json.Unmarshal(raw.InstalledAt, &installedAt); err == nil {
			record.InstalledAt = installedAt
		} else {
			warnings = append(warnings, "ignoring unreadable installed_at")
		}
	}

	switch {
	case record.Enabled && len(record.InstalledPaths) == 0:
		record.Enabled = false

		warnings = append(warnings, "enabled without installed paths, marking disabled")
	case !record.Enabled && len(record.InstalledPaths) > 0:
		record.InstalledPaths = nil

		warnings = append(warnings, "disabled with installed paths, clearing them")
	}

	return decodedRecord{record: record, legacyFile: legacyFile, warnings: warnings}, nil
}

// legacyBase returns the file name of a stored path written on any platform.
func legacyBase(storagePath string) string {
	return storagePath[strings.LastIndexAny(storagePath, `/\`)+1:]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
