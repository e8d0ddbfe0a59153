package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive program and blocks until the user quits.
func Run(opts Options, altScreen bool) error {
	model := NewModel(opts)

	programOpts := []tea.ProgramOption{}
	if altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}

	if _, err := tea.NewProgram(model, programOpts...).Run(); err != nil {
		return err //nolint:wrapcheck // Surface bubbletea errors as-is
	}

	return nil
}
