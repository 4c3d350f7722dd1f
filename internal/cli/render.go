package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorYellow    = lipgloss.Color("#D0A215")
)

// Styles
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

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	riskStyles = map[model.RiskLevel]lipgloss.Style{
		model.RiskLow:      lipgloss.NewStyle().Foreground(ColorGreen),
		model.RiskMedium:   lipgloss.NewStyle().Foreground(ColorYellow),
		model.RiskHigh:     lipgloss.NewStyle().Foreground(ColorOrange),
		model.RiskCritical: lipgloss.NewStyle().Foreground(ColorRed).Bold(true),
	}
)

// Align is a column alignment.
type Align int

// Column alignments. The zero value right-aligns every column but the first.
const (
	AlignAuto Align = iota
	AlignLeft
	AlignRight
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Aligns  []Align // optional per-column alignment
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. Cells may
// carry lipgloss styling; widths are measured on the visible text. A row
// holding the single cell "---" renders as a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > numCols && !isSeparator(row) {
			numCols = len(row)
		}
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			continue
		}
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")

	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			h := ""
			if i < len(t.Headers) {
				h = t.Headers[i]
			}
			b.WriteString(headerStyle.Render(" " + pad(h, widths[i], AlignLeft) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
		rule("├", "┼", "┤")
	}

	for _, row := range t.Rows {
		if isSeparator(row) {
			rule("├", "┼", "┤")
			continue
		}
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(" " + pad(cell, widths[i], t.align(i)) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	rule("╰", "┴", "╯")
	return b.String()
}

func (t Table) align(col int) Align {
	if col < len(t.Aligns) && t.Aligns[col] != AlignAuto {
		return t.Aligns[col]
	}
	if col == 0 {
		return AlignLeft
	}
	return AlignRight
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == "---"
}

func pad(s string, width int, a Align) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if a == AlignRight {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// RenderRisk renders a risk label in its severity color.
func RenderRisk(level model.RiskLevel) string {
	style, ok := riskStyles[level]
	if !ok {
		return string(level)
	}
	return style.Render(string(level))
}

// RenderTrend renders a trend label with a direction marker.
func RenderTrend(trend string) string {
	switch trend {
	case model.TrendIncreasing:
		return lipgloss.NewStyle().Foreground(ColorOrange).Render("▲ " + trend)
	case model.TrendDecreasing:
		return lipgloss.NewStyle().Foreground(ColorGreen).Render("▼ " + trend)
	case model.TrendStable:
		return lipgloss.NewStyle().Foreground(ColorBlue).Render("● " + trend)
	default:
		return mutedStyle.Render(trend)
	}
}

// RenderProgressBar renders a simple text progress bar.
func RenderProgressBar(current, total int, width int) string {
	if total <= 0 {
		return ""
	}

	pct := float64(current) / float64(total)
	if pct > 1 {
		pct = 1
	}

	filled := min(int(pct*float64(width)), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s",
		mutedStyle.Render(bar),
		FormatNumber(int64(current)),
		FormatNumber(int64(total)),
	)
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = max(0, min(idx, len(blocks)-1))
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderHorizontalBar renders a bar of value relative to maxValue.
func RenderHorizontalBar(value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 || value <= 0 {
		return ""
	}
	barLen := min(int(value/maxValue*float64(maxWidth)), maxWidth)
	return lipgloss.NewStyle().Foreground(ColorAccent).Render(strings.Repeat("█", barLen))
}

// Muted renders s in the muted text color.
func Muted(s string) string {
	return mutedStyle.Render(s)
}
