package tui

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // Dot import is idiomatic for Ginkgo
	. "github.com/onsi/gomega"    //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/mod-loader/internal/archive"
	"github.com/joe/mod-loader/internal/archive/archivetest"
	"github.com/joe/mod-loader/internal/config"
	"github.com/joe/mod-loader/internal/lifecycle"
	"github.com/joe/mod-loader/internal/registry"
	"github.com/joe/mod-loader/internal/tui/shared"
	"github.com/joe/mod-loader/pkg/filesystem"
)

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and any batched children, returning the messages they produce.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}

	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, child := range batch {
			msgs = append(msgs, drain(child)...)
		}

		return msgs
	}

	return []tea.Msg{msg}
}

// send delivers msg and feeds operation results back until the model settles.
func send(model *Model, msg tea.Msg) {
	_, cmd := model.Update(msg)

	for _, produced := range drain(cmd) {
		switch produced.(type) {
		case OperationDoneMsg, ModsLoadedMsg:
			send(model, produced)
		}
	}
}

var _ = Describe("Model", func() {
	var (
		store     *registry.Store
		manager   *lifecycle.Manager
		pakFS     *filesystem.MockFileSystem
		model     *Model
		downloads string
	)

	install := func(downloads, name string, entries map[string]string) {
		_, err := manager.Install(context.Background(), archivetest.WriteZip(GinkgoT(), downloads, name, entries))
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		base, err := os.MkdirTemp("", "tui-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, base)

		storage := filepath.Join(base, "storage")
		downloads = filepath.Join(base, "downloads")
		Expect(os.MkdirAll(storage, 0o755)).To(Succeed())
		Expect(os.MkdirAll(downloads, 0o755)).To(Succeed())

		store = registry.NewStore(storage, filesystem.NewRealFileSystem(), nil)
		pakFS = filesystem.NewMockFileSystem()
		manager = lifecycle.NewManager(lifecycle.Config{
			Store:     store,
			Extractor: archive.NewExtractor(nil),
			PakTarget: &filesystem.Target{FS: pakFS, Root: "Paks"},
		})

		install(downloads, "Alpha.zip", map[string]string{"Alpha.pak": "a"})
		install(downloads, "Beta.zip", map[string]string{"Beta.pak": "b", "modinfo.json": `{"name":"Beta Mod","author":"someone"}`})

		model = NewModel(Options{
			Mods:   manager,
			Window: config.WindowSettings{Width: 120, Height: 40},
		})
	})

	It("lists installed mods", func() {
		view := model.View()

		Expect(view).To(ContainSubstring("Alpha"))
		Expect(view).To(ContainSubstring("Beta Mod"))
		Expect(view).To(ContainSubstring("ID:"))
	})

	It("enables the selected mod with e", func() {
		send(model, keyPress("e"))

		record, _ := store.Get("Alpha")
		Expect(record.Enabled).To(BeTrue())
		Expect(pakFS.ListFiles()).To(Equal([]string{"Paks/Alpha.pak"}))
		Expect(model.Busy()).To(BeEmpty())
		Expect(model.Status()).To(Equal("enable Alpha done"))
		Expect(model.View()).To(ContainSubstring("● enabled"))
	})

	It("disables the selected mod with d", func() {
		send(model, keyPress("e"))
		send(model, keyPress("d"))

		record, _ := store.Get("Alpha")
		Expect(record.Enabled).To(BeFalse())
		Expect(pakFS.ListFiles()).To(BeEmpty())
	})

	It("reports an already disabled mod without an error", func() {
		send(model, keyPress("d"))

		Expect(model.Status()).To(ContainSubstring("already disabled"))
		Expect(model.statusErr).NotTo(HaveOccurred())
	})

	It("asks before deleting", func() {
		send(model, keyPress("x"))

		Expect(model.Status()).To(ContainSubstring("press y to confirm"))
		Expect(store.Len()).To(Equal(2))

		send(model, keyPress("y"))

		_, ok := store.Get("Alpha")
		Expect(ok).To(BeFalse())
		Expect(model.list.Items()).To(HaveLen(1))
	})

	It("cancels a delete on any other key", func() {
		send(model, keyPress("x"))
		send(model, keyPress("e"))

		Expect(model.Status()).To(Equal("delete cancelled"))
		Expect(store.Len()).To(Equal(2))

		record, _ := store.Get("Alpha")
		Expect(record.Enabled).To(BeFalse())
	})

	It("enables and disables everything", func() {
		send(model, keyPress("a"))

		Expect(model.Status()).To(Equal("enable all: 2 done, 0 unchanged, 0 failed"))
		Expect(pakFS.ListFiles()).To(HaveLen(2))

		send(model, keyPress("n"))

		Expect(model.Status()).To(Equal("disable all: 2 done, 0 unchanged, 0 failed"))
		Expect(pakFS.ListFiles()).To(BeEmpty())
	})

	It("shows suggestions for failures", func() {
		record, _ := store.Get("Alpha")
		Expect(os.RemoveAll(record.StorageDir)).To(Succeed())

		send(model, keyPress("e"))

		Expect(model.Status()).To(Equal("enable Alpha failed"))
		Expect(model.View()).To(ContainSubstring("•"))
	})

	It("ignores actions while an operation runs", func() {
		_, cmd := model.Update(keyPress("e"))
		Expect(cmd).NotTo(BeNil())
		Expect(model.Busy()).To(Equal(OpEnable))

		_, cmd = model.Update(keyPress("a"))
		Expect(cmd).To(BeNil())
	})

	Describe("install prompt", func() {
		enter := tea.KeyMsg{Type: tea.KeyEnter}

		It("installs the archive typed after i", func() {
			archivePath := archivetest.WriteZip(GinkgoT(), downloads, "Gamma.zip", map[string]string{"Gamma.pak": "g"})

			model.Update(keyPress("i"))
			Expect(model.View()).To(ContainSubstring("Install archive:"))

			model.Update(keyPress(archivePath))
			send(model, enter)

			_, ok := store.Get("Gamma")
			Expect(ok).To(BeTrue())
			Expect(model.Busy()).To(BeEmpty())
			Expect(model.Status()).To(Equal("install Gamma.zip: installed Gamma"))
			Expect(model.list.Items()).To(HaveLen(3))
			Expect(model.View()).NotTo(ContainSubstring("Install archive:"))
		})

		It("keeps the prompt open for a path that is not an archive", func() {
			model.Update(keyPress("i"))
			model.Update(keyPress(filepath.Join(downloads, "notes.txt")))
			send(model, enter)

			Expect(model.prompt.open).To(BeTrue())
			Expect(model.View()).To(ContainSubstring("notes.txt is not a .zip, .rar or .7z archive"))
			Expect(store.Len()).To(Equal(2))
		})

		It("reports an unreadable archive with suggestions", func() {
			broken := filepath.Join(downloads, "Broken.zip")
			Expect(os.WriteFile(broken, []byte("not a zip"), 0o644)).To(Succeed())

			model.Update(keyPress("i"))
			model.Update(keyPress(broken))
			send(model, enter)

			Expect(model.Status()).To(Equal("install Broken.zip failed"))
			Expect(model.View()).To(ContainSubstring("•"))
			Expect(store.Len()).To(Equal(2))
		})

		It("treats keys as text until esc", func() {
			model.Update(keyPress("i"))
			model.Update(keyPress("q"))

			Expect(model.quitting).To(BeFalse())
			Expect(model.prompt.input.Value()).To(Equal("q"))

			model.Update(tea.KeyMsg{Type: tea.KeyEsc})

			Expect(model.prompt.open).To(BeFalse())
			Expect(model.Status()).To(Equal("install cancelled"))
			Expect(store.Len()).To(Equal(2))
		})

		It("completes and cycles archive paths with tab", func() {
			picks := filepath.Join(downloads, "picks")
			Expect(os.MkdirAll(filepath.Join(picks, "sub"), 0o755)).To(Succeed())

			for _, name := range []string{"One.zip", "Two.rar", "notes.txt"} {
				Expect(os.WriteFile(filepath.Join(picks, name), []byte("x"), 0o644)).To(Succeed())
			}

			tab := tea.KeyMsg{Type: tea.KeyTab}

			model.Update(keyPress("i"))
			model.Update(keyPress(filepath.Join(picks, "Tw")))
			model.Update(tab)
			Expect(model.prompt.input.Value()).To(Equal(filepath.Join(picks, "Two.rar")))

			model.prompt.input.SetValue(picks + string(filepath.Separator))
			model.Update(tab)
			Expect(model.prompt.input.Value()).To(Equal(filepath.Join(picks, "One.zip")))

			model.Update(tab)
			Expect(model.prompt.input.Value()).To(Equal(filepath.Join(picks, "Two.rar")))

			model.Update(tab)
			Expect(model.prompt.input.Value()).To(Equal(filepath.Join(picks, "sub") + string(filepath.Separator)))
			Expect(model.View()).NotTo(ContainSubstring("notes.txt"))
		})
	})

	It("quits with q", func() {
		_, cmd := model.Update(keyPress("q"))

		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(tea.Quit()))
		Expect(model.View()).To(BeEmpty())
	})

	It("records lifecycle events in the activity log", func() {
		model.Update(shared.LifecycleEventMsg{Event: lifecycle.ModEnabled{ID: "Alpha"}})

		Expect(model.Activity()).To(Equal([]string{"enabled Alpha"}))
		Expect(model.View()).To(ContainSubstring("enabled Alpha"))
	})

	It("keeps only the most recent activity", func() {
		for i := 0; i < ActivityLogEntries+3; i++ {
			model.Update(shared.LifecycleEventMsg{Event: lifecycle.ModDisabled{ID: "Alpha"}})
		}

		Expect(model.Activity()).To(HaveLen(ActivityLogEntries))
	})

	It("hides the detail panel on narrow terminals", func() {
		model.Update(tea.WindowSizeMsg{Width: 50, Height: 30})

		Expect(model.View()).NotTo(ContainSubstring("ID:"))
	})
})

var _ = Describe("filterMods", func() {
	targets := []string{
		"Alpha Alpha Alpha.pak",
		"Tweaks Tweaks Scripts/main.lua",
	}

	It("matches globs against every field", func() {
		ranks := filterMods("**/*.lua", targets)

		Expect(ranks).To(HaveLen(1))
		Expect(ranks[0].Index).To(Equal(1))
	})

	It("falls back to fuzzy matching for plain text", func() {
		ranks := filterMods("alph", targets)

		Expect(ranks).To(HaveLen(1))
		Expect(ranks[0].Index).To(Equal(0))
	})
})
