package filesystem

import (
	"time"
)

// FileScanner is an iterator over files in a directory.
// It provides a simple Next pattern for traversing directory contents.
type FileScanner interface {
	// Next advances to the next file and returns its info.
	// Returns (FileInfo{}, false) when done or on error.
	// Check Err() after Next() returns false to distinguish between end-of-scan and error.
	Next() (FileInfo, bool)

	// Err returns any error that occurred during scanning.
	// Should be checked after Next() returns false.
	Err() error
}

// FileInfo contains metadata about a file.
// This is our own type (not os.FileInfo) to make it easier to work with.
type FileInfo struct {
	// RelativePath is the path relative to the scan root, always slash-separated
	RelativePath string

	// Size is the file size in bytes
	Size int64

	// ModTime is the modification time
	ModTime time.Time

	// IsDir indicates if this is a directory
	IsDir bool
}

// CollectFiles drains a scanner and returns the relative paths of regular files.
func CollectFiles(scanner FileScanner) ([]string, error) {
	var files []string

	for {
		info, ok := scanner.Next()
		if !ok {
			break
		}

		if !info.IsDir {
			files = append(files, info.RelativePath)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return files, nil
}
