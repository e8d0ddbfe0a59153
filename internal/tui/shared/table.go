package shared

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderTable renders rows as aligned columns under a labelled header. Only the rule below
// the header is drawn, so cells stay easy to grep.
func RenderTable(headers []string, rows [][]string) string {
	cell := lipgloss.NewStyle().PaddingRight(DefaultPadding)
	header := LabelStyle().PaddingRight(DefaultPadding)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(DimStyle()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderRow(false).
		BorderHeader(true).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}

			return cell
		}).
		String()
}
