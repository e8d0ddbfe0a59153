package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/mod-loader/internal/archive"
	"github.com/joe/mod-loader/internal/tui/shared"
)

// unexported constants.
const (
	pathCharLimit  = 1024
	pathInputWidth = 60
)

// installPrompt is the archive path field opened with the install key.
type installPrompt struct {
	input           textinput.Model
	open            bool
	invalid         string
	completions     []string
	completionIndex int
	showCompletions bool
}

func newInstallPrompt() installPrompt {
	input := textinput.New()
	input.Placeholder = "/path/to/mod.zip"
	input.Prompt = "▶ "
	input.CharLimit = pathCharLimit
	input.Width = pathInputWidth

	return installPrompt{input: input}
}

func (m *Model) openInstallPrompt() (tea.Model, tea.Cmd) {
	m.prompt.open = true
	m.prompt.invalid = ""
	m.prompt.showCompletions = false
	m.prompt.input.SetValue("")
	m.setStatus("", nil, "")

	return m, m.prompt.input.Focus()
}

func (m *Model) closeInstallPrompt() {
	m.prompt.open = false
	m.prompt.showCompletions = false
	m.prompt.input.Blur()
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeInstallPrompt()
		m.setStatus("install cancelled", nil, "")

		return m, nil
	case key.Matches(msg, m.keys.Submit):
		path := archivePathFrom(m.prompt.input.Value())

		if problem := validateArchivePath(path); problem != "" {
			m.prompt.invalid = problem

			return m, nil
		}

		m.closeInstallPrompt()

		return m.start(OpInstall, installCmd(m.ctx, m.mods, path))
	case key.Matches(msg, m.keys.Complete):
		m.completeArchivePath()

		return m, nil
	}

	m.prompt.invalid = ""
	m.prompt.showCompletions = false

	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)

	return m, cmd
}

// completeArchivePath completes a single match, or cycles through several on repeated presses.
func (m *Model) completeArchivePath() {
	prompt := &m.prompt

	if prompt.showCompletions && len(prompt.completions) > 1 {
		prompt.completionIndex = (prompt.completionIndex + 1) % len(prompt.completions)
	} else {
		prompt.completions = archiveCompletions(prompt.input.Value())
		prompt.completionIndex = 0
		prompt.showCompletions = len(prompt.completions) > 1
	}

	if len(prompt.completions) == 0 {
		return
	}

	prompt.input.SetValue(prompt.completions[prompt.completionIndex])
	prompt.input.CursorEnd()
}

func (m *Model) renderPrompt() string {
	lines := []string{
		shared.RenderLabel("Install archive:"),
		m.prompt.input.View(),
	}

	if m.prompt.invalid != "" {
		lines = append(lines, shared.RenderError(m.prompt.invalid))
	}

	if m.prompt.showCompletions {
		names := make([]string, 0, len(m.prompt.completions))
		for i, completion := range m.prompt.completions {
			name := filepath.Base(completion)
			if i == m.prompt.completionIndex {
				name = shared.RenderLabel(name)
			}

			names = append(names, name)
		}

		lines = append(lines, shared.RenderDim(strings.Join(names, "  ")))
	}

	lines = append(lines, shared.RenderDim("enter install · tab complete · esc cancel"))

	return shared.JoinLines(lines...)
}

// archivePathFrom cleans a typed or pasted path: surrounding quotes go and ~ expands.
func archivePathFrom(value string) string {
	path := strings.Trim(strings.TrimSpace(value), `"'`)

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return path
}

func validateArchivePath(path string) string {
	if path == "" {
		return "enter the path of a .zip, .rar or .7z archive"
	}

	if !archive.Supported(path) {
		return fmt.Sprintf("%s is not a .zip, .rar or .7z archive", filepath.Base(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("cannot read %s", path)
	}

	if info.IsDir() {
		return fmt.Sprintf("%s is a directory", path)
	}

	return ""
}

// archiveCompletions lists directories and supported archives that extend input.
func archiveCompletions(input string) []string {
	input = archivePathFrom(input)
	if input == "" {
		input = "."
	}

	dir := filepath.Dir(input)
	prefix := filepath.Base(input)

	if strings.HasSuffix(input, string(filepath.Separator)) {
		dir = input
		prefix = ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var completions []string

	for _, entry := range entries {
		name := entry.Name()

		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		if !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			continue
		}

		switch {
		case entry.IsDir():
			completions = append(completions, filepath.Join(dir, name)+string(filepath.Separator))
		case archive.Supported(name):
			completions = append(completions, filepath.Join(dir, name))
		}
	}

	sort.Strings(completions)

	return completions
}
