//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package filesystem_test

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/mod-loader/pkg/filesystem"
)

func TestMockFileSystem_CreateAndOpen(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mfs := filesystem.NewMockFileSystem()

	file, err := mfs.Create("game/Paks/mod.pak")
	g.Expect(err).ShouldNot(HaveOccurred())
	_, err = file.Write([]byte("pak data"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(file.Close()).Should(Succeed())

	g.Expect(mfs.Exists("game/Paks")).Should(BeTrue(), "parent directories are created implicitly")

	reader, err := mfs.Open("game/Paks/mod.pak")
	g.Expect(err).ShouldNot(HaveOccurred())

	data, err := io.ReadAll(reader)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("pak data"))
}

func TestMockFileSystem_MissingPathsAreNotExist(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mfs := filesystem.NewMockFileSystem()

	_, err := mfs.Stat("nope")
	g.Expect(errors.Is(err, fs.ErrNotExist)).Should(BeTrue())

	err = mfs.Remove("nope")
	g.Expect(errors.Is(err, fs.ErrNotExist)).Should(BeTrue())

	g.Expect(mfs.RemoveAll("nope")).Should(Succeed())
}

func TestMockFileSystem_RemoveAll(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("mods/Foo/Scripts/main.lua", []byte("print(1)"))
	mfs.AddFile("mods/Foo/enabled.txt", nil)
	mfs.AddFile("mods/Bar/Scripts/main.lua", []byte("print(2)"))

	g.Expect(mfs.RemoveAll("mods/Foo")).Should(Succeed())

	g.Expect(mfs.ListFiles()).Should(Equal([]string{"mods/Bar/Scripts/main.lua"}))
	g.Expect(mfs.Exists("mods/Foo")).Should(BeFalse())
}

func TestMockFileSystem_RemoveNonEmptyDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("dir/file.txt", []byte("x"))

	err := mfs.Remove("dir")
	g.Expect(err).Should(MatchError(ContainSubstring("directory not empty")))
}

func TestMockFileSystem_Scan(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("root/b.pak", []byte("b"))
	mfs.AddFile("root/sub/a.lua", []byte("a"))
	mfs.AddFile("other/c.pak", []byte("c"))

	files, err := filesystem.CollectFiles(mfs.Scan("root"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).Should(Equal([]string{"b.pak", "sub/a.lua"}))
}

func TestRealFileSystem_ScanUsesSlashPaths(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := t.TempDir()
	g.Expect(os.MkdirAll(filepath.Join(root, "Scripts", "lib"), 0o755)).Should(Succeed())
	g.Expect(os.WriteFile(filepath.Join(root, "Scripts", "main.lua"), []byte("x"), 0o644)).Should(Succeed())
	g.Expect(os.WriteFile(filepath.Join(root, "Scripts", "lib", "util.lua"), []byte("y"), 0o644)).Should(Succeed())

	rfs := filesystem.NewRealFileSystem()

	files, err := filesystem.CollectFiles(rfs.Scan(root))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(files).Should(Equal([]string{"Scripts/lib/util.lua", "Scripts/main.lua"}))
}

func TestRealFileSystem_ScanMissingRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	rfs := filesystem.NewRealFileSystem()

	_, err := filesystem.CollectFiles(rfs.Scan(filepath.Join(t.TempDir(), "missing")))
	g.Expect(err).Should(HaveOccurred())
}

func TestRealFileSystem_NotExistIsDetectable(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	rfs := filesystem.NewRealFileSystem()

	err := rfs.Remove(filepath.Join(t.TempDir(), "gone.pak"))
	g.Expect(errors.Is(err, fs.ErrNotExist)).Should(BeTrue(), "wrapped errors must keep fs.ErrNotExist")
}

func TestLocalTarget(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	target, err := filesystem.OpenTarget("/games/brickadia/Paks")
	g.Expect(err).ShouldNot(HaveOccurred())
	defer target.Close()

	g.Expect(target.Root).Should(Equal("/games/brickadia/Paks"))
	g.Expect(target.FS).Should(BeAssignableToTypeOf(&filesystem.RealFileSystem{}))
}
