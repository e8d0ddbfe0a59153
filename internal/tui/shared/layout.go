package shared

import "github.com/charmbracelet/lipgloss"

// RenderTwoColumnLayout renders content in two columns with a 60-40 width split.
// Columns are joined horizontally, aligned at the top.
func RenderTwoColumnLayout(leftContent, rightContent string, width, height int) string {
	leftWidth := int(float64(width) * 0.6)
	rightWidth := width - leftWidth

	leftStyle := lipgloss.NewStyle().Width(leftWidth).Height(height)
	rightStyle := lipgloss.NewStyle().Width(rightWidth).Height(height)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(leftContent),
		rightStyle.Render(rightContent),
	)
}

// RenderWidgetBox renders content in a titled box. width includes the border and padding.
func RenderWidgetBox(title, content string, width int) string {
	const widthOverhead = 4 // Account for borders (2) and padding (2)

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor())
	boxStyle := BoxStyle().Width(width - widthOverhead)

	return boxStyle.Render(titleStyle.Render(title) + "\n" + content)
}
