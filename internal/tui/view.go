package tui

import (
	"fmt"
	"strings"

	"github.com/joe/mod-loader/internal/registry"
	"github.com/joe/mod-loader/internal/tui/shared"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	body := m.list.View()
	if m.width >= shared.DetailPanelMinWidth {
		body = shared.RenderTwoColumnLayout(body, m.renderDetail(), m.width, max(m.height-chromeHeight, 1))
	}

	return shared.JoinLines(body, m.renderStatus(), shared.RenderActivityLog("Activity", m.activity, ActivityLogEntries))
}

func (m *Model) renderStatus() string {
	if m.prompt.open {
		return m.renderPrompt()
	}

	if m.status == "" {
		return shared.RenderDim("i install · e enable · d disable · x delete · a enable all · n disable all · / filter · q quit")
	}

	line := m.status

	switch {
	case m.busy != "":
		line = m.spinner.View() + " " + line
	case m.statusErr != nil:
		line = shared.RenderError(line)
	case m.pendingDelete != "":
		line = shared.RenderWarning(line)
	default:
		line = shared.SuccessSymbol() + " " + line
	}

	return shared.JoinLines(line, m.statusDetail)
}

func (m *Model) renderDetail() string {
	record, ok := m.selected()
	if !ok {
		return shared.RenderWidgetBox("No mod selected", shared.RenderDim("press i to install an archive"), m.detailWidth())
	}

	return shared.RenderWidgetBox(record.DisplayName, describeRecord(record, m.detailWidth()), m.detailWidth())
}

func (m *Model) detailWidth() int {
	return m.width - int(float64(m.width)*0.6)
}

func describeRecord(record registry.ModRecord, width int) string {
	var builder strings.Builder

	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&builder, "%s %s\n", shared.RenderLabel(label+":"), value)
		}
	}

	row("ID", record.ID)
	row("Status", shared.StatusBadge(record.Enabled))
	row("Type", string(record.Type))
	row("Author", record.Author)
	row("Version", record.Version)

	if record.LoadOrder != nil {
		row("Order", fmt.Sprint(*record.LoadOrder))
	}

	row("Archive", record.SourceArchive)
	row("Installed", shared.FormatInstalledAt(record.InstalledAt))
	row("Files", fmt.Sprint(len(record.Files)))

	if record.Description != "" {
		builder.WriteString("\n")
		builder.WriteString(record.Description)
		builder.WriteString("\n")
	}

	for _, installed := range record.InstalledPaths {
		builder.WriteString(shared.RenderDim("  " + shared.TruncatePath(installed, width-6)))
		builder.WriteString("\n")
	}

	return strings.TrimRight(builder.String(), "\n")
}
