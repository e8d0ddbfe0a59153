package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/mod-loader/internal/lifecycle"
	"github.com/joe/mod-loader/internal/tui/shared"
)

// unexported constants.
const (
	// chromeHeight is the rows used by the status line and activity log.
	chromeHeight = ActivityLogEntries + 4
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case shared.LifecycleEventMsg:
		if line := shared.DescribeEvent(msg.Event); line != "" {
			m.appendActivity(line)
		}

		if m.bridge == nil {
			return m, nil
		}

		return m, m.bridge.ListenCmd()
	case OperationDoneMsg:
		m.busy = ""
		m.finish(msg)

		return m, loadModsCmd(m.mods)
	case ModsLoadedMsg:
		return m, m.list.SetItems(itemsFor(msg.Records))
	}

	var cmd tea.Cmd

	if m.prompt.open {
		m.prompt.input, cmd = m.prompt.input.Update(msg)

		return m, cmd
	}

	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == shared.KeyCtrlC {
		m.quitting = true

		return m, tea.Quit
	}

	if m.prompt.open {
		return m.handlePromptKey(msg)
	}

	// While typing a filter every key belongs to the list.
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)

		return m, cmd
	}

	if m.pendingDelete != "" {
		id := m.pendingDelete
		m.pendingDelete = ""

		if key.Matches(msg, m.keys.Confirm) {
			return m.start(OpDelete, deleteCmd(m.ctx, m.mods, id))
		}

		m.setStatus("delete cancelled", nil, "")

		return m, nil
	}

	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true

		return m, tea.Quit
	}

	if m.busy != "" {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Install):
		return m.openInstallPrompt()
	case key.Matches(msg, m.keys.Enable):
		if record, ok := m.selected(); ok {
			return m.start(OpEnable, enableCmd(m.ctx, m.mods, record.ID))
		}
	case key.Matches(msg, m.keys.Disable):
		if record, ok := m.selected(); ok {
			return m.start(OpDisable, disableCmd(m.ctx, m.mods, record.ID))
		}
	case key.Matches(msg, m.keys.Delete):
		if record, ok := m.selected(); ok {
			m.pendingDelete = record.ID
			m.setStatus(fmt.Sprintf("delete %s and its stored files? press y to confirm", record.ID), nil, "")

			return m, nil
		}
	case key.Matches(msg, m.keys.EnableAll):
		return m.start(OpEnableAll, enableAllCmd(m.ctx, m.mods))
	case key.Matches(msg, m.keys.DisableAll):
		return m.start(OpDisableAll, disableAllCmd(m.ctx, m.mods))
	default:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m *Model) start(op string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = op
	m.setStatus(op+"...", nil, "")

	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m *Model) finish(msg OperationDoneMsg) {
	subject := msg.Op
	if msg.ID != "" {
		subject = msg.Op + " " + msg.ID
	}

	switch {
	case msg.Batch != nil:
		summary := fmt.Sprintf("%s: %d done, %d unchanged, %d failed",
			subject, len(msg.Batch.Succeeded), len(msg.Batch.Skipped), len(msg.Batch.Failed))
		m.setStatus(summary, nil, shared.RenderFailures(m.enricher, msg.Batch.Failed))
	case errors.Is(msg.Err, lifecycle.ErrAlreadyEnabled), errors.Is(msg.Err, lifecycle.ErrAlreadyDisabled):
		m.setStatus(msg.Err.Error(), nil, "")
	case msg.Err != nil:
		m.setStatus(subject+" failed", msg.Err, shared.RenderErrorDetail(m.enricher, msg.Err, ""))
	case len(msg.Installed) > 0:
		ids := make([]string, 0, len(msg.Installed))
		for _, record := range msg.Installed {
			ids = append(ids, record.ID)
		}

		m.setStatus(fmt.Sprintf("%s: installed %s", subject, strings.Join(ids, ", ")), nil, "")
	case msg.Report != nil && len(msg.Report.Skipped) > 0:
		m.setStatus(fmt.Sprintf("%s: %d installed, %d skipped", subject,
			len(msg.Report.Installed), len(msg.Report.Skipped)), nil, skippedDetail(msg.Report))
	default:
		m.setStatus(subject+" done", nil, "")
	}
}

func skippedDetail(report *lifecycle.EnableReport) string {
	lines := make([]string, 0, len(report.Skipped))
	for _, skipped := range report.Skipped {
		lines = append(lines, fmt.Sprintf("%s %s: %v", shared.WarningSymbol(), skipped.Path, skipped.Err))
	}

	return shared.JoinLines(lines...)
}

func (m *Model) setStatus(status string, err error, detail string) {
	m.status = status
	m.statusErr = err
	m.statusDetail = detail
}

func (m *Model) appendActivity(line string) {
	m.activity = append(m.activity, line)
	if len(m.activity) > ActivityLogEntries {
		m.activity = m.activity[len(m.activity)-ActivityLogEntries:]
	}
}

func (m *Model) resize() {
	listWidth := m.width
	if m.width >= shared.DetailPanelMinWidth {
		listWidth = int(float64(m.width) * 0.6)
	}

	m.list.SetSize(listWidth, max(m.height-chromeHeight, 1))
}
