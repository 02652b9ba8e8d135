package styles

import "github.com/charmbracelet/lipgloss"

// BaseColors defines global UI colors.
type BaseColors struct {
	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header  string
	Footer  string
	Loading string
	Playing string
	Error   string
}

// CoverageColors colors the frame slider by cache state.
type CoverageColors struct {
	Loaded  string
	Partial string
	Failed  string
	Missing string
	Cursor  string
}

// Theme defines the viewer's style tokens.
type Theme struct {
	Name     string
	Base     BaseColors
	Chrome   ChromeColors
	Coverage CoverageColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// Lookup returns the named theme, falling back to the default palette.
func Lookup(name string) Theme {
	if theme, ok := Themes[name]; ok {
		return theme
	}
	return DefaultTheme
}

func (t Theme) Muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Muted))
}

func (t Theme) Accent() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Accent))
}

func (t Theme) Pane() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Base.Border))
}

func (t Theme) Bar(background string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Base.Foreground)).
		Background(lipgloss.Color(background)).
		Padding(0, 1)
}
