// Package fileops copies mod files between filesystems: from an extraction scratch
// directory into mod storage, and from storage into a (possibly remote) game directory.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joe/mod-loader/pkg/filesystem"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for file copy operations (32KB)
	BufferSize = 32 * 1024
	// DefaultDirPermissions is the default permission mode for created directories
	DefaultDirPermissions = 0o750
)

// Exported variables.
var (
	ErrCopyCancelled = errors.New("copy cancelled")
)

// FileOps copies files from SourceFS to DestFS.
type FileOps struct {
	SourceFS filesystem.FileSystem
	DestFS   filesystem.FileSystem
}

// ProgressCallback is called during file operations to report progress
type ProgressCallback func(bytesTransferred int64, totalBytes int64, currentFile string)

// NewDualFileOps creates a FileOps that reads from sourceFS and writes to destFS.
func NewDualFileOps(sourceFS, destFS filesystem.FileSystem) *FileOps {
	return &FileOps{
		SourceFS: sourceFS,
		DestFS:   destFS,
	}
}

// NewFileOps creates a FileOps that reads and writes the same filesystem.
func NewFileOps(fs filesystem.FileSystem) *FileOps {
	return NewDualFileOps(fs, fs)
}

// NewRealFileOps creates a FileOps over the local disk.
func NewRealFileOps() *FileOps {
	return NewFileOps(filesystem.NewRealFileSystem())
}

// CopyFile copies src on the source filesystem to dst on the destination filesystem,
// creating dst's parent directories and preserving the modification time. A cancelled
// context stops the copy between buffers and returns ErrCopyCancelled.
func (fo *FileOps) CopyFile(ctx context.Context, src, dst string, progress ProgressCallback) (int64, error) {
	if err := checkCancellation(ctx); err != nil {
		return 0, err
	}

	sourceFile, err := fo.SourceFS.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file %s: %w", src, err)
	}

	defer func() {
		_ = sourceFile.Close()
	}()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat source file %s: %w", src, err)
	}

	dstDir := fo.DestFS.Join(dst, "..")

	err = fo.DestFS.MkdirAll(dstDir, DefaultDirPermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination directory %s: %w", dstDir, err)
	}

	destFile, err := fo.DestFS.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	written, err := copyLoop(ctx, sourceFile, destFile, sourceInfo.Size(), src, progress)

	closeErr := destFile.Close()

	if err != nil {
		_ = fo.DestFS.Remove(dst)

		return written, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	if closeErr != nil {
		return written, fmt.Errorf("failed to finish writing %s: %w", dst, closeErr)
	}

	err = fo.DestFS.Chtimes(dst, sourceInfo.ModTime(), sourceInfo.ModTime())
	if err != nil {
		return written, fmt.Errorf("failed to preserve modification time for %s: %w", dst, err)
	}

	return written, nil
}

// CopyTree copies every regular file under srcRoot to the same relative path under dstRoot
// and returns the copied relative paths (slash-separated, sorted).
func (fo *FileOps) CopyTree(ctx context.Context, srcRoot, dstRoot string) ([]string, error) {
	files, err := filesystem.CollectFiles(fo.SourceFS.Scan(srcRoot))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", srcRoot, err)
	}

	for _, rel := range files {
		_, err := fo.CopyFile(ctx, fo.SourceFS.Join(srcRoot, rel), fo.DestFS.Join(dstRoot, rel), nil)
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

func checkCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrCopyCancelled
	default:
		return nil
	}
}

// copyLoop performs a buffered copy with progress tracking.
//
//nolint:lll // Long function signature with many parameters
func copyLoop(ctx context.Context, sourceFile filesystem.File, destFile filesystem.File, sourceSize int64, srcPath string, progress ProgressCallback) (int64, error) {
	var written int64

	buf := make([]byte, BufferSize)

	for {
		if err := checkCancellation(ctx); err != nil {
			return written, err
		}

		nr, err := sourceFile.Read(buf) //nolint:varnamelen // nr is idiomatic for bytes read
		if nr > 0 {
			nw, err := destFile.Write(buf[0:nr]) //nolint:varnamelen // nw is idiomatic for bytes written
			if err != nil {
				return written, fmt.Errorf("failed to write to destination: %w", err)
			}

			if nr != nw {
				return written, fmt.Errorf("short write: %w", io.ErrShortWrite)
			}

			written += int64(nw)

			if progress != nil {
				progress(written, sourceSize, srcPath)
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return written, fmt.Errorf("failed to read from source: %w", err)
		}
	}

	return written, nil
}
