package lifecycle

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joe/mod-loader/internal/archive"
	"github.com/joe/mod-loader/internal/registry"
)

// Exported variables.
var (
	ErrExtraction          = archive.ErrExtraction
	ErrRegistryCorrupt     = registry.ErrRegistryCorrupt
	ErrModNotFound         = registry.ErrModNotFound
	ErrNoModContent        = errors.New("archive contains no mod content")
	ErrMissingSource       = errors.New("mod storage is missing")
	ErrAlreadyEnabled      = errors.New("mod is already enabled")
	ErrAlreadyDisabled     = errors.New("mod is already disabled")
	ErrNothingInstalled    = errors.New("no files could be installed")
	ErrTargetNotConfigured = errors.New("game directory not configured")
	ErrDestinationInUse    = errors.New("destination file belongs to another enabled mod")
	ErrUnsafeStorageDir    = errors.New("storage directory is outside the storage root")
)

// NoModContentError reports an archive with neither .pak files nor UE4SS content.
type NoModContentError struct {
	Archive string
}

func (e *NoModContentError) Error() string {
	return fmt.Sprintf("%s: %v", filepath.Base(e.Archive), ErrNoModContent)
}

// Is reports whether target is ErrNoModContent.
func (e *NoModContentError) Is(target error) bool {
	return target == ErrNoModContent
}

// MissingSourceFileError reports a record whose storage folder no longer exists.
type MissingSourceFileError struct {
	ID   string
	Path string
}

func (e *MissingSourceFileError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.ID, ErrMissingSource, e.Path)
}

// Is reports whether target is ErrMissingSource.
func (e *MissingSourceFileError) Is(target error) bool {
	return target == ErrMissingSource
}
