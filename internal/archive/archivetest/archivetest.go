// Package archivetest builds mod archives for tests.
package archivetest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
)

// TB is the subset of testing.TB the helpers need; GinkgoT() satisfies it too.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// WriteZip creates a zip at dir/name holding entries (slash path -> content) and returns its path.
func WriteZip(t TB, dir, name string, entries map[string]string) string {
	t.Helper()

	archivePath := filepath.Join(dir, name)

	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create %s: %v", archivePath, err)
	}

	writer := zip.NewWriter(out)

	names := make([]string, 0, len(entries))
	for entry := range entries {
		names = append(names, entry)
	}

	sort.Strings(names)

	for _, entry := range names {
		w, err := writer.Create(entry)
		if err != nil {
			t.Fatalf("add %s: %v", entry, err)
		}

		if _, err := w.Write([]byte(entries[entry])); err != nil {
			t.Fatalf("write %s: %v", entry, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}

	if err := out.Close(); err != nil {
		t.Fatalf("close %s: %v", archivePath, err)
	}

	return archivePath
}
