// Package archive unpacks downloaded mod archives into a scratch directory.
//
// Zip, RAR and 7z archives are decoded in-process. A RAR or 7z archive the decoders
// cannot read (a newer compression method, encryption) gets a second attempt with an
// external extractor found on PATH: unrar, then 7z.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/charmbracelet/log"
	"github.com/nwaples/rardecode/v2"

	pkgerrors "github.com/joe/mod-loader/pkg/errors"
	"github.com/joe/mod-loader/pkg/filesystem"
)

// Exported constants.
const (
	ExtZip      = ".zip"
	ExtRar      = ".rar"
	Ext7z       = ".7z"
	dirPerm     = 0o750
	unrarBinary = "unrar"
	sevenZip    = "7z"
)

// Exported variables.
var (
	ErrExtraction         = errors.New("archive extraction failed")
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	ErrNoExtractor        = errors.New("no external extractor found")
	ErrUnsafePath         = errors.New("archive entry escapes extraction directory")
)

// ExtractionError reports a failure to unpack Archive. errors.Is(err, ErrExtraction)
// holds for every ExtractionError.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", filepath.Base(e.Archive), e.Err)
}

// Is reports whether target is ErrExtraction.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor unpacks archives into a directory.
type Extractor struct {
	// LookPath finds fallback tools; defaults to exec.LookPath.
	LookPath func(file string) (string, error)
	Logger   *log.Logger
}

// NewExtractor returns an Extractor that discovers tools on PATH.
func NewExtractor(logger *log.Logger) *Extractor {
	return &Extractor{
		LookPath: exec.LookPath,
		Logger:   logger,
	}
}

// Supported reports whether path has an archive extension Extract can dispatch on.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtZip, ExtRar, Ext7z:
		return true
	default:
		return false
	}
}

// Extract unpacks archivePath into destDir and returns the extracted regular files as
// slash-separated paths relative to destDir, sorted.
func (x *Extractor) Extract(ctx context.Context, archivePath, destDir string) ([]string, error) {
	var err error

	switch ext := strings.ToLower(filepath.Ext(archivePath)); ext {
	case ExtZip:
		err = extractZip(ctx, archivePath, destDir)
	case ExtRar:
		err = x.extractWithFallback(ctx, archivePath, destDir, extractRar, unrarBinary, sevenZip)
	case Ext7z:
		err = x.extractWithFallback(ctx, archivePath, destDir, extractSevenZip, sevenZip)
	default:
		return nil, x.fail(archivePath, fmt.Errorf("%w: %q", ErrUnsupportedArchive, ext),
			"Supported formats are .zip, .rar and .7z",
			"Repack the mod as a .zip archive")
	}

	if err != nil {
		return nil, err
	}

	files, err := filesystem.CollectFiles(filesystem.NewRealFileSystem().Scan(destDir))
	if err != nil {
		return nil, x.fail(archivePath, err)
	}

	return files, nil
}

// extractWithFallback decodes in-process and hands the archive to an external tool when
// that fails for any reason other than cancellation or an escaping entry.
func (x *Extractor) extractWithFallback(
	ctx context.Context, archivePath, destDir string, decode decoder, tools ...string,
) error {
	decodeErr := decode(ctx, archivePath, destDir)

	switch {
	case decodeErr == nil:
		return nil
	case ctx.Err() != nil:
		return &ExtractionError{Archive: archivePath, Err: ctx.Err()}
	case errors.Is(decodeErr, ErrUnsafePath):
		return x.fail(archivePath, decodeErr, "The archive is malformed or malicious; do not install it")
	}

	if x.Logger != nil {
		x.Logger.Debug("in-process extraction failed, trying external tool",
			"archive", archivePath, "error", decodeErr)
	}

	return x.extractExternal(ctx, archivePath, destDir, decodeErr, tools...)
}

func (x *Extractor) extractExternal(
	ctx context.Context, archivePath, destDir string, decodeErr error, tools ...string,
) error {
	tool, toolPath, err := x.findTool(tools)
	if err != nil {
		return x.fail(archivePath, fmt.Errorf("%w; %w", decodeErr, err),
			"Re-download the archive; it may be truncated or password protected",
			"Convert the archive to .zip",
			"Install unrar or 7-Zip and make sure it is on PATH")
	}

	if err := os.MkdirAll(destDir, dirPerm); err != nil {
		return x.fail(archivePath, fmt.Errorf("failed to create %s: %w", destDir, err))
	}

	var args []string

	switch tool {
	case unrarBinary:
		args = []string{"x", "-o+", "-y", archivePath, destDir + string(os.PathSeparator)}
	default:
		args = []string{"x", "-y", "-o" + destDir, archivePath}
	}

	if x.Logger != nil {
		x.Logger.Debug("running external extractor", "tool", toolPath, "archive", archivePath)
	}

	//nolint:gosec // G204: tool path comes from PATH lookup, archive path from the user
	cmd := exec.CommandContext(ctx, toolPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return x.fail(archivePath, ctx.Err())
		}

		return x.fail(archivePath, fmt.Errorf("%s failed: %w: %s", tool, err, strings.TrimSpace(string(output))),
			"Re-download the archive; it may be truncated or password protected",
			"Convert the archive to .zip")
	}

	return nil
}

func (x *Extractor) findTool(tools []string) (name, path string, err error) {
	lookPath := x.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	for _, tool := range tools {
		found, lookErr := lookPath(tool)
		if lookErr == nil {
			return tool, found, nil
		}
	}

	return "", "", fmt.Errorf("%w (tried %s)", ErrNoExtractor, strings.Join(tools, ", "))
}

func (x *Extractor) fail(archivePath string, cause error, suggestions ...string) error {
	extractionErr := &ExtractionError{Archive: archivePath, Err: cause}

	if len(suggestions) == 0 {
		return extractionErr
	}

	return pkgerrors.Wrap(extractionErr, pkgerrors.CategoryArchive, archivePath, suggestions...)
}

// decoder unpacks one archive format in-process. Errors are returned bare so the caller
// can decide whether a fallback is worth trying.
type decoder func(ctx context.Context, archivePath, destDir string) error

func extractZip(ctx context.Context, archivePath, destDir string) (err error) {
	wrap := func(cause error) error {
		return pkgerrors.Wrap(&ExtractionError{Archive: archivePath, Err: cause}, pkgerrors.CategoryArchive,
			archivePath, "Re-download the archive; it may be truncated or corrupt")
	}

	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return wrap(err)
	}

	defer func() {
		if closeErr := zipReader.Close(); closeErr != nil && err == nil {
			err = wrap(closeErr)
		}
	}()

	out, err := newTree(destDir)
	if err != nil {
		return wrap(err)
	}

	for _, file := range zipReader.File {
		if ctx.Err() != nil {
			return &ExtractionError{Archive: archivePath, Err: ctx.Err()}
		}

		if entryErr := out.entry(file.Name, file.FileInfo().IsDir(), file.Mode().IsRegular(), file.Open); entryErr != nil {
			return wrap(entryErr)
		}
	}

	return nil
}

func extractSevenZip(ctx context.Context, archivePath, destDir string) (err error) {
	reader, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by extractWithFallback
	}

	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	out, err := newTree(destDir)
	if err != nil {
		return err
	}

	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // cancellation is reported as is
		}

		info := file.FileInfo()
		if err := out.entry(file.Name, info.IsDir(), info.Mode().IsRegular(), file.Open); err != nil {
			return err
		}
	}

	return nil
}

func extractRar(ctx context.Context, archivePath, destDir string) (err error) {
	reader, err := rardecode.OpenReader(archivePath)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by extractWithFallback
	}

	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	out, err := newTree(destDir)
	if err != nil {
		return err
	}

	// Entries are streamed; the reader yields the current entry's data until Next.
	current := func() (io.ReadCloser, error) { return io.NopCloser(reader), nil }

	for {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // cancellation is reported as is
		}

		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err //nolint:wrapcheck // wrapped by extractWithFallback
		}

		if err := out.entry(header.Name, header.IsDir, header.Mode().IsRegular(), current); err != nil {
			return err
		}
	}
}

// tree writes archive entries below an absolute extraction root.
type tree struct {
	root string
}

func newTree(destDir string) (*tree, error) {
	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller with the archive name
	}

	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller with the archive name
	}

	return &tree{root: root}, nil
}

// resolve maps an entry name to its path below the root. Backslashes count as separators.
func (t *tree) resolve(name string) (string, error) {
	destPath := filepath.Join(t.root, filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))

	relPath, err := filepath.Rel(t.root, destPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return destPath, nil
}

// entry writes one archive entry. Links and other special entries are skipped.
func (t *tree) entry(name string, isDir, regular bool, open func() (io.ReadCloser, error)) error {
	destPath, err := t.resolve(name)
	if err != nil {
		return err
	}

	if isDir {
		return os.MkdirAll(destPath, dirPerm) //nolint:wrapcheck // wrapped by caller with the archive name
	}

	if !regular {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), dirPerm); err != nil {
		return err //nolint:wrapcheck // wrapped by caller with the archive name
	}

	if err := writeEntry(open, destPath); err != nil {
		return fmt.Errorf("failed to extract %s: %w", name, err)
	}

	return nil
}

func writeEntry(open func() (io.ReadCloser, error), destPath string) (err error) {
	rc, err := open()
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G304: destPath validated against the extraction root
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by caller with the entry name
	}

	defer func() {
		if closeErr := destFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: archives come from the user's own downloads
	_, err = io.Copy(destFile, rc)

	return err //nolint:wrapcheck // wrapped by caller with the entry name
}
