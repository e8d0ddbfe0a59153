package lifecycle_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // Dot import is idiomatic for Ginkgo
	. "github.com/onsi/gomega"    //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/mod-loader/internal/archive"
	"github.com/joe/mod-loader/internal/archive/archivetest"
	"github.com/joe/mod-loader/internal/lifecycle"
	"github.com/joe/mod-loader/internal/registry"
	"github.com/joe/mod-loader/pkg/filesystem"
)

const (
	pakRoot   = "game/Paks"
	ue4ssRoot = "game/Mods"
)

type fixture struct {
	storageRoot string
	downloads   string
	store       *registry.Store
	pakFS       *filesystem.MockFileSystem
	ue4ssFS     *filesystem.MockFileSystem
	manager     *lifecycle.Manager
	events      []lifecycle.Event
}

func newFixture() *fixture {
	base, err := os.MkdirTemp("", "lifecycle-*")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, base)

	f := &fixture{
		storageRoot: filepath.Join(base, "storage"),
		downloads:   filepath.Join(base, "downloads"),
		pakFS:       filesystem.NewMockFileSystem(),
		ue4ssFS:     filesystem.NewMockFileSystem(),
	}

	Expect(os.MkdirAll(f.storageRoot, 0o755)).To(Succeed())
	Expect(os.MkdirAll(f.downloads, 0o755)).To(Succeed())

	f.store = registry.NewStore(f.storageRoot, filesystem.NewRealFileSystem(), nil)
	f.manager = lifecycle.NewManager(lifecycle.Config{
		Store:       f.store,
		Extractor:   archive.NewExtractor(nil),
		PakTarget:   &filesystem.Target{FS: f.pakFS, Root: pakRoot},
		UE4SSTarget: &filesystem.Target{FS: f.ue4ssFS, Root: ue4ssRoot},
		Emitter: lifecycle.EmitterFunc(func(event lifecycle.Event) {
			f.events = append(f.events, event)
		}),
	})

	return f
}

func (f *fixture) zip(name string, entries map[string]string) string {
	return archivetest.WriteZip(GinkgoT(), f.downloads, name, entries)
}

func (f *fixture) install(name string, entries map[string]string) []registry.ModRecord {
	records, err := f.manager.Install(context.Background(), f.zip(name, entries))
	Expect(err).NotTo(HaveOccurred())

	return records
}

func (f *fixture) scratchDirs() []string {
	entries, err := os.ReadDir(f.storageRoot)
	Expect(err).NotTo(HaveOccurred())

	var scratch []string

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), lifecycle.ScratchPrefix) {
			scratch = append(scratch, entry.Name())
		}
	}

	return scratch
}

var _ = Describe("Manager", func() {
	var (
		f   *fixture
		ctx context.Context
	)

	BeforeEach(func() {
		f = newFixture()
		ctx = context.Background()
	})

	Describe("Install", func() {
		It("creates one disabled record named after a lone pak", func() {
			records := f.install("CoolMod.zip", map[string]string{
				"CoolMod/CoolMod.pak": "pak",
				"readme.txt":          "hi",
			})

			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).To(Equal("CoolMod"))
			Expect(records[0].DisplayName).To(Equal("CoolMod"))
			Expect(records[0].Type).To(Equal(registry.TypePak))
			Expect(records[0].Enabled).To(BeFalse())
			Expect(records[0].Files).To(Equal([]string{"CoolMod.pak"}))
			Expect(records[0].SourceArchive).To(Equal("CoolMod.zip"))
			Expect(filepath.Join(records[0].StorageDir, "CoolMod.pak")).To(BeAnExistingFile())
			Expect(f.store.Len()).To(Equal(1))
			Expect(f.scratchDirs()).To(BeEmpty())
		})

		It("persists the registry", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})

			reloaded := registry.NewStore(f.storageRoot, filesystem.NewRealFileSystem(), nil)
			Expect(reloaded.Load()).To(Succeed())
			Expect(reloaded.Len()).To(Equal(1))
		})

		It("creates one record per pak with disjoint storage", func() {
			records := f.install("Pack.zip", map[string]string{
				"A.pak":          "a",
				"A.utoc":         "a-toc",
				"A.ucas":         "a-cas",
				"B.pak":          "b",
				"modinfo.json":   `{"name":"Cool Pack","author":"someone","version":"1.2"}`,
				"extras/notes.t": "n",
			})

			Expect(records).To(HaveLen(2))
			Expect(records[0].ID).To(Equal("A"))
			Expect(records[0].DisplayName).To(Equal("Cool Pack (A)"))
			Expect(records[0].Files).To(Equal([]string{"A.pak", "A.ucas", "A.utoc"}))
			Expect(records[0].Author).To(Equal("someone"))
			Expect(records[1].ID).To(Equal("B"))
			Expect(records[1].DisplayName).To(Equal("Cool Pack (B)"))
			Expect(records[0].StorageDir).NotTo(Equal(records[1].StorageDir))
			Expect(filepath.Join(records[1].StorageDir, "A.pak")).NotTo(BeAnExistingFile())
		})

		It("keeps the metadata name for a single pak", func() {
			records := f.install("One.zip", map[string]string{
				"One.pak":      "x",
				"modinfo.json": `{"name":"Nice Name"}`,
			})

			Expect(records[0].DisplayName).To(Equal("Nice Name"))
			Expect(records[0].ID).To(Equal("One"))
		})

		It("installs a UE4SS tree relative to its mod root with its icon", func() {
			records := f.install("Tweaks.zip", map[string]string{
				"Tweaks/Scripts/main.lua": "print(1)",
				"Tweaks/config.ini":       "x=1",
				"Tweaks/modinfo.json":     `{"name":"Game Tweaks","icon":"icon.png"}`,
				"Tweaks/icon.png":         "png",
				"readme.txt":              "outside the mod root",
			})

			Expect(records).To(HaveLen(1))

			record := records[0]
			Expect(record.Type).To(Equal(registry.TypeUE4SS))
			Expect(record.ID).To(Equal("Tweaks"))
			Expect(record.DisplayName).To(Equal("Game Tweaks"))
			Expect(record.Files).To(Equal([]string{"Scripts/main.lua", "config.ini", "icon.png"}))
			Expect(record.IconPath).To(Equal(filepath.Join(record.StorageDir, "_icon.png")))
			Expect(record.IconPath).To(BeAnExistingFile())
			Expect(filepath.Join(record.StorageDir, "Scripts", "main.lua")).To(BeAnExistingFile())
			Expect(filepath.Join(record.StorageDir, "config.ini")).To(BeAnExistingFile())
			Expect(filepath.Join(record.StorageDir, "readme.txt")).NotTo(BeAnExistingFile())
		})

		It("rejects archives without mod content and cleans up", func() {
			_, err := f.manager.Install(ctx, f.zip("Docs.zip", map[string]string{"readme.txt": "hi"}))

			Expect(errors.Is(err, lifecycle.ErrNoModContent)).To(BeTrue())

			var noContent *lifecycle.NoModContentError
			Expect(errors.As(err, &noContent)).To(BeTrue())
			Expect(f.store.Len()).To(Equal(0))
			Expect(f.scratchDirs()).To(BeEmpty())
		})

		It("reports extraction failures", func() {
			bad := filepath.Join(f.downloads, "bad.zip")
			Expect(os.WriteFile(bad, []byte("garbage"), 0o644)).To(Succeed())

			_, err := f.manager.Install(ctx, bad)

			Expect(errors.Is(err, lifecycle.ErrExtraction)).To(BeTrue())
			Expect(f.scratchDirs()).To(BeEmpty())
		})

		It("creates suffixed records when the same archive is installed twice", func() {
			first := f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})
			second, err := f.manager.Install(ctx, filepath.Join(f.downloads, "CoolMod.zip"))

			Expect(err).NotTo(HaveOccurred())
			Expect(first[0].ID).To(Equal("CoolMod"))
			Expect(second[0].ID).To(Equal("CoolMod_1"))
		})

		It("emits install events", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})

			Expect(f.events).To(HaveLen(2))
			Expect(f.events[0]).To(BeAssignableToTypeOf(lifecycle.InstallStarted{}))
			Expect(f.events[1]).To(BeAssignableToTypeOf(lifecycle.ModInstalled{}))
		})
	})

	Describe("Enable and Disable", func() {
		It("copies pak bundles flat into the pak dir and removes them again", func() {
			records := f.install("CoolMod.zip", map[string]string{
				"nested/CoolMod.pak":  "pak",
				"nested/CoolMod.utoc": "toc",
			})

			report, err := f.manager.Enable(ctx, records[0].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Skipped).To(BeEmpty())
			Expect(report.Installed).To(Equal([]string{"game/Paks/CoolMod.pak", "game/Paks/CoolMod.utoc"}))

			data, err := f.pakFS.GetFile("game/Paks/CoolMod.pak")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("pak"))

			record, _ := f.store.Get(records[0].ID)
			Expect(record.Enabled).To(BeTrue())
			Expect(record.InstalledPaths).To(Equal(report.Installed))

			Expect(f.manager.Disable(ctx, records[0].ID)).To(Succeed())

			record, _ = f.store.Get(records[0].ID)
			Expect(record.Enabled).To(BeFalse())
			Expect(record.InstalledPaths).To(BeEmpty())
			Expect(f.pakFS.ListFiles()).To(BeEmpty())
		})

		It("installs UE4SS mods under a folder named after the id", func() {
			records := f.install("Tweaks.zip", map[string]string{
				"Tweaks/Scripts/main.lua":     "print(1)",
				"Tweaks/Scripts/lib/util.lua": "print(2)",
			})

			_, err := f.manager.Enable(ctx, "Tweaks")
			Expect(err).NotTo(HaveOccurred())
			Expect(f.ue4ssFS.ListFiles()).To(Equal([]string{
				"game/Mods/Tweaks/Scripts/lib/util.lua",
				"game/Mods/Tweaks/Scripts/main.lua",
			}))

			Expect(f.manager.Disable(ctx, records[0].ID)).To(Succeed())
			Expect(f.ue4ssFS.ListFiles()).To(BeEmpty())
			Expect(f.ue4ssFS.Exists("game/Mods/Tweaks")).To(BeFalse())
		})

		It("treats a second enable or disable as informational", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})

			Expect(f.manager.Disable(ctx, "CoolMod")).To(MatchError(lifecycle.ErrAlreadyDisabled))

			_, err := f.manager.Enable(ctx, "CoolMod")
			Expect(err).NotTo(HaveOccurred())

			_, err = f.manager.Enable(ctx, "CoolMod")
			Expect(err).To(MatchError(lifecycle.ErrAlreadyEnabled))
		})

		It("reports unknown ids", func() {
			_, err := f.manager.Enable(ctx, "nope")
			Expect(err).To(MatchError(lifecycle.ErrModNotFound))
			Expect(f.manager.Disable(ctx, "nope")).To(MatchError(lifecycle.ErrModNotFound))
			Expect(f.manager.Delete(ctx, "nope")).To(MatchError(lifecycle.ErrModNotFound))
		})

		It("fails with MissingSourceFileError when storage vanished", func() {
			records := f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})
			Expect(os.RemoveAll(records[0].StorageDir)).To(Succeed())

			_, err := f.manager.Enable(ctx, "CoolMod")
			Expect(errors.Is(err, lifecycle.ErrMissingSource)).To(BeTrue())

			var missing *lifecycle.MissingSourceFileError
			Expect(errors.As(err, &missing)).To(BeTrue())
			Expect(missing.Path).To(Equal(records[0].StorageDir))
		})

		It("skips files that fail to copy and reports them", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak", "CoolMod.utoc": "toc"})
			f.pakFS.FailCreate = func(p string) bool { return strings.HasSuffix(p, ".utoc") }

			report, err := f.manager.Enable(ctx, "CoolMod")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Installed).To(Equal([]string{"game/Paks/CoolMod.pak"}))
			Expect(report.Skipped).To(HaveLen(1))
			Expect(report.Skipped[0].Path).To(Equal("CoolMod.utoc"))

			var skipped []lifecycle.FileSkipped

			for _, event := range f.events {
				if s, ok := event.(lifecycle.FileSkipped); ok {
					skipped = append(skipped, s)
				}
			}

			Expect(skipped).To(HaveLen(1))
		})

		It("leaves the mod disabled when nothing could be copied", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})
			f.pakFS.FailCreate = func(string) bool { return true }

			report, err := f.manager.Enable(ctx, "CoolMod")
			Expect(err).To(MatchError(lifecycle.ErrNothingInstalled))
			Expect(report.Skipped).To(HaveLen(1))

			record, _ := f.store.Get("CoolMod")
			Expect(record.Enabled).To(BeFalse())
			Expect(record.InstalledPaths).To(BeEmpty())
		})

		It("does not overwrite a pak another enabled mod installed", func() {
			f.install("First.zip", map[string]string{"Shared.pak": "first"})
			f.install("Second.zip", map[string]string{"Shared.pak": "second"})

			_, err := f.manager.Enable(ctx, "Shared")
			Expect(err).NotTo(HaveOccurred())

			_, err = f.manager.Enable(ctx, "Shared_1")
			Expect(err).To(MatchError(lifecycle.ErrNothingInstalled))

			data, err := f.pakFS.GetFile("game/Paks/Shared.pak")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("first"))
		})

		It("treats already-removed pak files as disabled", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})
			_, err := f.manager.Enable(ctx, "CoolMod")
			Expect(err).NotTo(HaveOccurred())

			Expect(f.pakFS.Remove("game/Paks/CoolMod.pak")).To(Succeed())
			Expect(f.manager.Disable(ctx, "CoolMod")).To(Succeed())
		})

		It("requires a configured destination", func() {
			manager := lifecycle.NewManager(lifecycle.Config{
				Store:     f.store,
				Extractor: archive.NewExtractor(nil),
			})

			_, err := manager.Install(ctx, f.zip("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"}))
			Expect(err).NotTo(HaveOccurred())

			_, err = manager.Enable(ctx, "CoolMod")
			Expect(err).To(MatchError(lifecycle.ErrTargetNotConfigured))
		})

		It("stops on cancellation and backs out copied files", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := f.manager.Enable(cancelled, "CoolMod")
			Expect(err).To(MatchError(context.Canceled))
			Expect(f.pakFS.ListFiles()).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		It("removes an enabled mod's record, storage and installed files", func() {
			records := f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})
			_, err := f.manager.Enable(ctx, "CoolMod")
			Expect(err).NotTo(HaveOccurred())

			Expect(f.manager.Delete(ctx, "CoolMod")).To(Succeed())

			_, ok := f.store.Get("CoolMod")
			Expect(ok).To(BeFalse())
			Expect(records[0].StorageDir).NotTo(BeADirectory())
			Expect(f.pakFS.ListFiles()).To(BeEmpty())
			Expect(f.events[len(f.events)-1]).To(Equal(lifecycle.ModDeleted{ID: "CoolMod"}))
		})

		It("refuses to remove storage outside the storage root", func() {
			f.store.Put(registry.ModRecord{ID: "evil", StorageDir: filepath.Dir(f.storageRoot)})

			Expect(f.manager.Delete(ctx, "evil")).To(MatchError(lifecycle.ErrUnsafeStorageDir))
			Expect(f.storageRoot).To(BeADirectory())
		})

		It("frees the id for the next install", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})
			Expect(f.manager.Delete(ctx, "CoolMod")).To(Succeed())

			records := f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})
			Expect(records[0].ID).To(Equal("CoolMod"))
		})
	})

	Describe("Batch operations", func() {
		BeforeEach(func() {
			f.install("A.zip", map[string]string{"A.pak": "a"})
			f.install("B.zip", map[string]string{"B.pak": "b"})
			f.install("C.zip", map[string]string{"C.pak": "c"})
		})

		It("enables everything and reports per-mod failures", func() {
			_, err := f.manager.Enable(ctx, "A")
			Expect(err).NotTo(HaveOccurred())

			record, _ := f.store.Get("C")
			Expect(os.RemoveAll(record.StorageDir)).To(Succeed())

			result := f.manager.EnableAll(ctx)

			Expect(result.Skipped).To(Equal([]string{"A"}))
			Expect(result.Succeeded).To(Equal([]string{"B"}))
			Expect(result.Failed).To(HaveKey("C"))
			Expect(errors.Is(result.Failed["C"], lifecycle.ErrMissingSource)).To(BeTrue())
		})

		It("disables everything", func() {
			result := f.manager.EnableAll(ctx)
			Expect(result.Succeeded).To(Equal([]string{"A", "B", "C"}))

			result = f.manager.DisableAll(ctx)
			Expect(result.Succeeded).To(Equal([]string{"A", "B", "C"}))
			Expect(result.Failed).To(BeEmpty())
			Expect(f.pakFS.ListFiles()).To(BeEmpty())

			for _, record := range f.store.All() {
				Expect(record.Enabled).To(BeFalse())
			}
		})
	})

	Describe("registry save failures", func() {
		breakRegistry := func() {
			document := f.store.Path()
			Expect(os.RemoveAll(document)).To(Succeed())
			Expect(os.MkdirAll(filepath.Join(document, "blocker"), 0o755)).To(Succeed())
		}

		It("backs out an enable whose save fails", func() {
			f.install("CoolMod.zip", map[string]string{"CoolMod.pak": "pak"})
			breakRegistry()

			_, err := f.manager.Enable(ctx, "CoolMod")
			Expect(err).To(HaveOccurred())

			record, _ := f.store.Get("CoolMod")
			Expect(record.Enabled).To(BeFalse())
			Expect(record.InstalledPaths).To(BeEmpty())
			Expect(f.pakFS.ListFiles()).To(BeEmpty())
		})

		It("backs out a whole batch enable whose save fails", func() {
			f.install("A.zip", map[string]string{"A.pak": "a"})
			f.install("B.zip", map[string]string{"B.pak": "b"})
			breakRegistry()

			result := f.manager.EnableAll(ctx)
			Expect(result.Succeeded).To(BeEmpty())
			Expect(result.Failed).To(HaveLen(2))

			for _, record := range f.store.All() {
				Expect(record.Enabled).To(BeFalse())
			}

			Expect(f.pakFS.ListFiles()).To(BeEmpty())
		})
	})

	Describe("records from flat-storage registries", func() {
		var stored string

		BeforeEach(func() {
			stored = filepath.Join(f.storageRoot, "Foo.pak")
			Expect(os.WriteFile(stored, []byte("pak"), 0o644)).To(Succeed())

			document := `{"Foo.pak": {"name": "Foo", "file": "Foo.pak", "enabled": false, "storage_path": ` +
				strconv.Quote(stored) + `}}`
			Expect(os.WriteFile(f.store.Path(), []byte(document), 0o644)).To(Succeed())
			Expect(f.store.Load()).To(Succeed())
		})

		It("enables and disables them", func() {
			report, err := f.manager.Enable(ctx, "Foo.pak")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Installed).To(Equal([]string{"game/Paks/Foo.pak"}))

			data, err := f.pakFS.GetFile("game/Paks/Foo.pak")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("pak"))

			Expect(f.manager.Disable(ctx, "Foo.pak")).To(Succeed())
			Expect(f.pakFS.ListFiles()).To(BeEmpty())
		})

		It("deletes the stored file with the record", func() {
			record, _ := f.store.Get("Foo.pak")

			Expect(f.manager.Delete(ctx, "Foo.pak")).To(Succeed())
			Expect(f.store.Len()).To(Equal(0))
			Expect(record.StorageDir).NotTo(BeADirectory())
			Expect(stored).NotTo(BeAnExistingFile())
			Expect(f.storageRoot).To(BeADirectory())
		})
	})
})
