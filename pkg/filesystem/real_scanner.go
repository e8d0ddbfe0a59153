package filesystem

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kr/fs"
)

// realFileScanner implements FileScanner using the kr/fs walker, the same walker
// pkg/sftp uses for remote trees.
type realFileScanner struct {
	root    string
	files   []FileInfo
	index   int
	err     error
	scanned bool
}

// newRealFileScanner creates a new scanner for the given directory.
func newRealFileScanner(root string) *realFileScanner {
	return &realFileScanner{
		root:  root,
		files: make([]FileInfo, 0),
		index: -1,
	}
}

// Next advances to the next file and returns its info.
func (s *realFileScanner) Next() (FileInfo, bool) {
	if !s.scanned {
		s.scan()
		s.scanned = true
	}

	if s.err != nil {
		return FileInfo{}, false
	}

	s.index++
	if s.index >= len(s.files) {
		return FileInfo{}, false
	}

	return s.files[s.index], true
}

// Err returns any error that occurred during scanning.
func (s *realFileScanner) Err() error {
	return s.err
}

// scan walks the directory tree and collects all entries in path order.
func (s *realFileScanner) scan() {
	walker := fs.Walk(s.root)

	for walker.Step() {
		if err := walker.Err(); err != nil {
			s.err = fmt.Errorf("error scanning %s: %w", s.root, err)
			return
		}

		relPath, err := filepath.Rel(s.root, walker.Path())
		if err != nil {
			s.err = fmt.Errorf("failed to get relative path for %s: %w", walker.Path(), err)
			return
		}

		if relPath == "." {
			continue
		}

		info := walker.Stat()
		s.files = append(s.files, FileInfo{
			RelativePath: filepath.ToSlash(relPath),
			Size:         info.Size(),
			ModTime:      info.ModTime(),
			IsDir:        info.IsDir(),
		})
	}

	sort.Slice(s.files, func(i, j int) bool {
		return s.files[i].RelativePath < s.files[j].RelativePath
	})
}
