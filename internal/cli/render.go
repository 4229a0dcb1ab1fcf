package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder  = lipgloss.Color("#282726")
	ColorTextDim = lipgloss.Color("#575653")
	ColorText    = lipgloss.Color("#FFFCF0")
	ColorAccent  = lipgloss.Color("#3AA99F")
	ColorGreen   = lipgloss.Color("#879A39")
	ColorOrange  = lipgloss.Color("#DA702C")
	ColorRed     = lipgloss.Color("#D14D41")
	ColorBlue    = lipgloss.Color("#4385BE")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. The first
// column is left-aligned, the rest right-aligned.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	writeRule(&b, widths, "╭", "┬", "╮")

	b.WriteString(dimStyle.Render("│"))
	for i, h := range t.Headers {
		b.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", widths[i], h)))
		b.WriteString(dimStyle.Render("│"))
	}
	b.WriteString("\n")

	writeRule(&b, widths, "├", "┼", "┤")

	for _, row := range t.Rows {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			var padded string
			if i == 0 {
				padded = fmt.Sprintf(" %-*s ", widths[i], cell)
			} else {
				padded = fmt.Sprintf(" %*s ", widths[i], cell)
			}
			b.WriteString(valueStyle.Render(padded))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}

	writeRule(&b, widths, "╰", "┴", "╯")

	return b.String()
}

func writeRule(b *strings.Builder, widths []int, left, mid, right string) {
	b.WriteString(dimStyle.Render(left))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < len(widths)-1 {
			b.WriteString(dimStyle.Render(mid))
		}
	}
	b.WriteString(dimStyle.Render(right))
	b.WriteString("\n")
}
