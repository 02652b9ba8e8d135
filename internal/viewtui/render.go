package viewtui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/runviewer/internal/fetch"
	"github.com/tOgg1/runviewer/internal/viewer"
	"github.com/tOgg1/runviewer/internal/viewtui/styles"
)

const upperHalfBlock = "▀"

func (m *Model) renderHeader(theme styles.Theme, frame viewer.Frame) string {
	left := "runviewer"
	if m.task != "" {
		left += " · " + string(m.task)
	}
	center := frame.RunText
	if frame.RunID != "" {
		center = fmt.Sprintf("%s · %s · frame %d/%d", frame.RunText, frame.RunID, frame.Requested, frame.MaxFrame)
	}

	transport := fmt.Sprintf("⏸ %dfps", frame.FPS)
	if frame.Playing {
		transport = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Playing)).Render(fmt.Sprintf("▶ %dfps", frame.FPS))
	}
	right := transport
	if frame.Loading {
		right = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Loading)).Render("loading…") + "  " + transport
	}

	line := joinHeader(left, center, right, maxInt(0, m.width-2))
	return theme.Bar(theme.Chrome.Header).Bold(true).Width(maxInt(0, m.width)).Render(line)
}

func (m *Model) renderFooter(theme styles.Theme) string {
	base := "space play  ←/→ step  home/end  [/] run  1-6 speed  ? help  q quit"
	if m.status != "" {
		status := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Error)).Render(m.status)
		base = status + "  " + base
	}
	return theme.Bar(theme.Chrome.Footer).Width(maxInt(0, m.width)).Render(truncate(base, maxInt(0, m.width-2)))
}

func (m *Model) renderPanes(theme styles.Theme, frame viewer.Frame, height int) string {
	if m.width < 8 || height < 4 {
		return ""
	}
	paneWidth := (m.width - 1) / 2
	cols := paneWidth - 2
	rows := height - 3

	left := renderPane(theme, "env", frame, frame.Env, cols, rows)
	right := renderPane(theme, "memory", frame, frame.Memory, cols, rows)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func renderPane(theme styles.Theme, title string, frame viewer.Frame, img *fetch.Image, cols, rows int) string {
	switch {
	case img == nil:
		title += theme.Muted().Render(" · waiting")
	case !frame.Exact:
		title += theme.Muted().Render(fmt.Sprintf(" · showing frame %d", frame.Shown))
	}

	var content string
	if img == nil || img.Image == nil {
		content = lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, theme.Muted().Render("loading…"))
	} else {
		content = lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, strings.Join(renderThumbnail(img.Image, cols, rows), "\n"))
	}
	body := truncate(title, cols) + "\n" + content
	return theme.Pane().Width(cols).Height(rows + 1).Render(body)
}

// renderThumbnail scales img into cols x rows cells, two pixels per cell using
// the upper half block, preserving aspect ratio.
func renderThumbnail(img image.Image, cols, rows int) []string {
	if img == nil || cols <= 0 || rows <= 0 {
		return nil
	}
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil
	}

	outW := cols
	outH := srcH * cols / srcW
	if outH > rows*2 {
		outH = rows * 2
		outW = srcW * outH / srcH
	}
	outW = maxInt(1, outW)
	outH = maxInt(2, outH+outH%2)

	sample := func(x, y int) color.Color {
		sx := bounds.Min.X + x*srcW/outW
		sy := bounds.Min.Y + y*srcH/outH
		return img.At(sx, sy)
	}

	lines := make([]string, 0, outH/2)
	for y := 0; y < outH; y += 2 {
		var b strings.Builder
		for x := 0; x < outW; x++ {
			cell := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hexColor(sample(x, y)))).
				Background(lipgloss.Color(hexColor(sample(x, y+1))))
			b.WriteString(cell.Render(upperHalfBlock))
		}
		lines = append(lines, b.String())
	}
	return lines
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

func (m *Model) renderSlider(theme styles.Theme, frame viewer.Frame) string {
	label := fmt.Sprintf(" %4d ", frame.Requested)
	barWidth := m.width - lipgloss.Width(label) - 1
	coverage := m.ctrl.Coverage()
	if barWidth <= 0 || len(coverage) == 0 {
		return label
	}
	return label + renderCoverageBar(theme, coverage, frame.Requested, barWidth)
}

// renderCoverageBar draws one cell per frame, or one per bucket of frames when
// the run is wider than the bar. The cell holding current is the cursor.
func renderCoverageBar(theme styles.Theme, coverage []viewer.Coverage, current, width int) string {
	count := len(coverage)
	if count < width {
		width = count
	}
	cursor := current * width / count

	var b strings.Builder
	for cell := 0; cell < width; cell++ {
		if cell == cursor {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Coverage.Cursor)).Render("●"))
			continue
		}
		colorCode := coverageColor(theme, coverage[cell*count/width])
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(colorCode)).Render("━"))
	}
	return b.String()
}

func coverageColor(theme styles.Theme, c viewer.Coverage) string {
	switch c {
	case viewer.CoverageLoaded:
		return theme.Coverage.Loaded
	case viewer.CoveragePartial:
		return theme.Coverage.Partial
	case viewer.CoverageFailed:
		return theme.Coverage.Failed
	default:
		return theme.Coverage.Missing
	}
}

type helpItem struct {
	key  string
	desc string
}

var helpItems = []helpItem{
	{key: "space", desc: "play / pause"},
	{key: "←/→ h/l", desc: "previous / next frame"},
	{key: "home/end g/G", desc: "first / last frame"},
	{key: "[ ] p/n", desc: "previous / next run"},
	{key: "1-6", desc: "speed 1, 2, 5, 10, 20, 30 fps"},
	{key: "?", desc: "toggle help"},
	{key: "q / Ctrl+C", desc: "quit"},
}

func renderHelp(width, height int, theme styles.Theme) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	keyStyle := theme.Accent().Bold(true)
	lines := []string{lipgloss.NewStyle().Bold(true).Render("Keys"), ""}
	for _, item := range helpItems {
		lines = append(lines, "  "+keyStyle.Render(fmt.Sprintf("%-14s", item.key))+item.desc)
	}
	lines = append(lines, "", theme.Muted().Render("Dismiss: ? or Esc"))

	panel := theme.Pane().Padding(1, 2).Width(minInt(maxInt(40, width-10), 72))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, panel.Render(strings.Join(lines, "\n")))
}

func joinHeader(left, center, right string, width int) string {
	if width <= 0 {
		return left
	}
	space := width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if space < 2 {
		return truncate(left+"  "+center, width)
	}
	leftGap := space / 2
	rightGap := space - leftGap
	return left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 1 || len(runes) <= max {
		return string(runes[:minInt(max, len(runes))])
	}
	return string(runes[:max-1]) + "…"
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
