package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/pkg/sftp"
)

// SFTPFileSystem implements FileSystem over an SFTP session. Paths are slash-separated
// and resolved by the server (relative paths start in the login directory).
type SFTPFileSystem struct {
	client *sftp.Client
	closer io.Closer
}

// NewSFTPFileSystem wraps an established SFTP client. closer, if non-nil, is closed by Close
// (typically the owning SFTPConnection).
func NewSFTPFileSystem(client *sftp.Client, closer io.Closer) *SFTPFileSystem {
	return &SFTPFileSystem{
		client: client,
		closer: closer,
	}
}

// Chtimes changes the access and modification times of a remote file.
func (sfs *SFTPFileSystem) Chtimes(name string, atime, mtime time.Time) error {
	err := sfs.client.Chtimes(name, atime, mtime)
	if err != nil {
		return fmt.Errorf("failed to change times for remote file %s: %w", name, mapSFTPError(err))
	}

	return nil
}

// Close releases the underlying connection.
func (sfs *SFTPFileSystem) Close() error {
	if sfs.closer == nil {
		return nil
	}

	return sfs.closer.Close()
}

// Create creates a remote file for writing.
func (sfs *SFTPFileSystem) Create(name string) (File, error) {
	file, err := sfs.client.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote file %s: %w", name, mapSFTPError(err))
	}

	return file, nil
}

// Join joins elements with forward slashes.
func (sfs *SFTPFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// MkdirAll creates a remote directory and all necessary parents.
// perm is ignored; the server applies its default mode.
func (sfs *SFTPFileSystem) MkdirAll(name string, _ os.FileMode) error {
	err := sfs.client.MkdirAll(name)
	if err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", name, mapSFTPError(err))
	}

	return nil
}

// Open opens a remote file for reading.
func (sfs *SFTPFileSystem) Open(name string) (File, error) {
	file, err := sfs.client.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", name, mapSFTPError(err))
	}

	return file, nil
}

// Remove removes a remote file or empty directory.
func (sfs *SFTPFileSystem) Remove(name string) error {
	err := sfs.client.Remove(name)
	if err != nil {
		return fmt.Errorf("failed to remove remote file %s: %w", name, mapSFTPError(err))
	}

	return nil
}

// RemoveAll removes a remote tree, deepest entries first. A missing path is not an error.
func (sfs *SFTPFileSystem) RemoveAll(name string) error {
	info, err := sfs.client.Stat(name)
	if err != nil {
		if errors.Is(mapSFTPError(err), fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to stat remote tree %s: %w", name, mapSFTPError(err))
	}

	if !info.IsDir() {
		return sfs.Remove(name)
	}

	var files []string

	dirs := []string{name}

	scanner := sfs.Scan(name)
	for {
		entry, ok := scanner.Next()
		if !ok {
			break
		}

		if entry.IsDir {
			dirs = append(dirs, path.Join(name, entry.RelativePath))
		} else {
			files = append(files, path.Join(name, entry.RelativePath))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to list remote tree %s: %w", name, err)
	}

	for _, file := range files {
		if err := sfs.client.Remove(file); err != nil && !errors.Is(mapSFTPError(err), fs.ErrNotExist) {
			return fmt.Errorf("failed to remove remote file %s: %w", file, mapSFTPError(err))
		}
	}

	// Longest paths first so children go before parents.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	for _, dir := range dirs {
		if err := sfs.client.RemoveDirectory(dir); err != nil && !errors.Is(mapSFTPError(err), fs.ErrNotExist) {
			return fmt.Errorf("failed to remove remote directory %s: %w", dir, mapSFTPError(err))
		}
	}

	return nil
}

// Scan returns an iterator over all entries in a remote directory tree.
func (sfs *SFTPFileSystem) Scan(root string) FileScanner {
	return newSFTPScanner(sfs.client, root)
}

// Stat returns file information for a remote file.
func (sfs *SFTPFileSystem) Stat(name string) (os.FileInfo, error) {
	info, err := sfs.client.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat remote file %s: %w", name, mapSFTPError(err))
	}

	return info, nil
}

// mapSFTPError translates SFTP status codes into the io/fs sentinels callers check for.
func mapSFTPError(err error) error {
	var statusErr *sftp.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	switch statusErr.FxCode() {
	case sftp.ErrSSHFxNoSuchFile:
		return fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	case sftp.ErrSSHFxPermissionDenied:
		return fmt.Errorf("%w: %w", fs.ErrPermission, err)
	default:
		return err
	}
}
