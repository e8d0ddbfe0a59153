//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package archive_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/mod-loader/internal/archive"
	"github.com/joe/mod-loader/internal/archive/archivetest"
	pkgerrors "github.com/joe/mod-loader/pkg/errors"
)

func noTools(string) (string, error) {
	return "", exec.ErrNotFound
}

func TestExtract_Zip(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	zipPath := archivetest.WriteZip(t, dir, "CoolMod.ZIP", map[string]string{
		"CoolMod/CoolMod.pak":  "pak",
		"CoolMod/CoolMod.utoc": "toc",
		"CoolMod/modinfo.json": `{"name":"Cool"}`,
	})

	dest := filepath.Join(dir, "scratch")
	files, err := archive.NewExtractor(nil).Extract(context.Background(), zipPath, dest)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).Should(Equal([]string{
		"CoolMod/CoolMod.pak",
		"CoolMod/CoolMod.utoc",
		"CoolMod/modinfo.json",
	}))

	data, err := os.ReadFile(filepath.Join(dest, "CoolMod", "CoolMod.pak"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("pak"))
}

func TestExtract_ZipRejectsEscapingEntries(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	zipPath := archivetest.WriteZip(t, dir, "evil.zip", map[string]string{
		"../../outside.pak": "gotcha",
	})

	_, err := archive.NewExtractor(nil).Extract(context.Background(), zipPath, filepath.Join(dir, "scratch"))
	g.Expect(err).Should(MatchError(archive.ErrUnsafePath))
	g.Expect(errors.Is(err, archive.ErrExtraction)).Should(BeTrue())
	g.Expect(filepath.Join(dir, "..", "outside.pak")).ShouldNot(BeAnExistingFile())
}

func TestExtract_CorruptZip(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "broken.zip")
	g.Expect(os.WriteFile(zipPath, []byte("not a zip at all"), 0o644)).Should(Succeed())

	_, err := archive.NewExtractor(nil).Extract(context.Background(), zipPath, filepath.Join(dir, "scratch"))

	var extractionErr *archive.ExtractionError
	g.Expect(errors.As(err, &extractionErr)).Should(BeTrue())
	g.Expect(extractionErr.Archive).Should(Equal(zipPath))
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := archive.NewExtractor(nil).Extract(context.Background(), "/downloads/mod.tar.gz", t.TempDir())
	g.Expect(err).Should(MatchError(archive.ErrUnsupportedArchive))
	g.Expect(errors.Is(err, archive.ErrExtraction)).Should(BeTrue())
}

func TestExtract_RarInProcess(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	extractor := archive.NewExtractor(nil)
	extractor.LookPath = noTools

	dest := filepath.Join(t.TempDir(), "scratch")
	files, err := extractor.Extract(context.Background(), filepath.Join("testdata", "FromRar.rar"), dest)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).Should(Equal([]string{"Paks/FromRar.pak", "Paks/FromRar.ucas"}))

	data, err := os.ReadFile(filepath.Join(dest, "Paks", "FromRar.ucas"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("cas"))
}

func TestExtract_SevenZipInProcess(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	extractor := archive.NewExtractor(nil)
	extractor.LookPath = noTools

	dest := filepath.Join(t.TempDir(), "scratch")
	files, err := extractor.Extract(context.Background(), filepath.Join("testdata", "CoolMod.7z"), dest)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).Should(Equal([]string{"CoolMod/CoolMod.pak", "CoolMod/modinfo.json"}))

	data, err := os.ReadFile(filepath.Join(dest, "CoolMod", "CoolMod.pak"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("pak"))
}

func TestExtract_SevenZipStopsWhenCancelled(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var asked []string

	extractor := archive.NewExtractor(nil)
	extractor.LookPath = func(file string) (string, error) {
		asked = append(asked, file)

		return "", exec.ErrNotFound
	}

	_, err := extractor.Extract(ctx, filepath.Join("testdata", "CoolMod.7z"), t.TempDir())
	g.Expect(err).Should(MatchError(context.Canceled))
	g.Expect(errors.Is(err, archive.ErrExtraction)).Should(BeTrue())
	g.Expect(asked).Should(BeEmpty())
}

func TestExtract_UnreadableRarWithoutToolSuggestsRemedies(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	rarPath := filepath.Join(t.TempDir(), "mod.rar")
	g.Expect(os.WriteFile(rarPath, []byte("Rar!\x1a\x07\x01\x00truncated"), 0o644)).Should(Succeed())

	extractor := archive.NewExtractor(nil)
	extractor.LookPath = noTools

	_, err := extractor.Extract(context.Background(), rarPath, t.TempDir())
	g.Expect(err).Should(MatchError(archive.ErrNoExtractor))
	g.Expect(errors.Is(err, archive.ErrExtraction)).Should(BeTrue())

	var actionable pkgerrors.ActionableError
	g.Expect(errors.As(err, &actionable)).Should(BeTrue())
	g.Expect(actionable.Category()).Should(Equal(pkgerrors.CategoryArchive))
	g.Expect(pkgerrors.FormatSuggestions(err)).Should(And(
		ContainSubstring(".zip"),
		ContainSubstring("unrar"),
	))
}

func TestExtract_UnreadableRarFallsBackToDiscoveredTool(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("fake extractor is a shell script")
	}

	g := NewWithT(t)

	dir := t.TempDir()
	rarPath := filepath.Join(dir, "mod.rar")
	g.Expect(os.WriteFile(rarPath, []byte("not a rar the decoder knows"), 0o644)).Should(Succeed())

	fakeTool := filepath.Join(dir, "unrar")
	// unrar x -o+ -y <archive> <dest>/
	script := "#!/bin/sh\nmkdir -p \"$5/Paks\" && echo pak > \"$5/Paks/FromRar.pak\"\n"
	g.Expect(os.WriteFile(fakeTool, []byte(script), 0o755)).Should(Succeed())

	var asked []string

	extractor := archive.NewExtractor(nil)
	extractor.LookPath = func(file string) (string, error) {
		asked = append(asked, file)
		if file == "unrar" {
			return fakeTool, nil
		}

		return "", exec.ErrNotFound
	}

	files, err := extractor.Extract(context.Background(), rarPath, filepath.Join(dir, "scratch"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).Should(Equal([]string{"Paks/FromRar.pak"}))
	g.Expect(asked).Should(Equal([]string{"unrar"}))
}

func TestExtract_UnreadableSevenZipOnlyTriesSevenZip(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var asked []string

	extractor := archive.NewExtractor(nil)
	extractor.LookPath = func(file string) (string, error) {
		asked = append(asked, file)

		return "", exec.ErrNotFound
	}

	_, err := extractor.Extract(context.Background(), "/downloads/mod.7z", t.TempDir())
	g.Expect(err).Should(MatchError(archive.ErrNoExtractor))
	g.Expect(asked).Should(Equal([]string{"7z"}))
}

func TestSupported(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(archive.Supported("a.zip")).Should(BeTrue())
	g.Expect(archive.Supported("a.RAR")).Should(BeTrue())
	g.Expect(archive.Supported("a.7z")).Should(BeTrue())
	g.Expect(archive.Supported("a.pak")).Should(BeFalse())
}
