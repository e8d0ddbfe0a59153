package tui

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
)

// Exported constants.
const (
	OpInstall    = "install"
	OpEnable     = "enable"
	OpDisable    = "disable"
	OpDelete     = "delete"
	OpEnableAll  = "enable all"
	OpDisableAll = "disable all"
)

// Lifecycle operations run inside tea.Cmd goroutines; the manager serializes them.

func installCmd(ctx context.Context, mods Mods, archivePath string) tea.Cmd {
	return func() tea.Msg {
		records, err := mods.Install(ctx, archivePath)

		return OperationDoneMsg{Op: OpInstall, ID: filepath.Base(archivePath), Installed: records, Err: err}
	}
}

func enableCmd(ctx context.Context, mods Mods, id string) tea.Cmd {
	return func() tea.Msg {
		report, err := mods.Enable(ctx, id)

		return OperationDoneMsg{Op: OpEnable, ID: id, Report: report, Err: err}
	}
}

func disableCmd(ctx context.Context, mods Mods, id string) tea.Cmd {
	return func() tea.Msg {
		return OperationDoneMsg{Op: OpDisable, ID: id, Err: mods.Disable(ctx, id)}
	}
}

func deleteCmd(ctx context.Context, mods Mods, id string) tea.Cmd {
	return func() tea.Msg {
		return OperationDoneMsg{Op: OpDelete, ID: id, Err: mods.Delete(ctx, id)}
	}
}

func enableAllCmd(ctx context.Context, mods Mods) tea.Cmd {
	return func() tea.Msg {
		return OperationDoneMsg{Op: OpEnableAll, Batch: mods.EnableAll(ctx)}
	}
}

func disableAllCmd(ctx context.Context, mods Mods) tea.Cmd {
	return func() tea.Msg {
		return OperationDoneMsg{Op: OpDisableAll, Batch: mods.DisableAll(ctx)}
	}
}

func loadModsCmd(mods Mods) tea.Cmd {
	return func() tea.Msg {
		return ModsLoadedMsg{Records: mods.Store().All()}
	}
}
