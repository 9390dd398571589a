package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme holds the picker's colors and pre-built styles.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Selection states
	All     lipgloss.AdaptiveColor
	Partial lipgloss.AdaptiveColor
	None    lipgloss.AdaptiveColor

	Warning   lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Cursor   lipgloss.Style
	Header   lipgloss.Style
	Muted    lipgloss.Style
	Status   lipgloss.Style
	Alert    lipgloss.Style
	Input    lipgloss.Style
	Group    lipgloss.Style
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		All:     lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Partial: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		None:    lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},

		Warning:   lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Cursor = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Muted = r.NewStyle().Foreground(t.Secondary)
	t.Status = r.NewStyle().Foreground(t.Subtext).Italic(true)
	t.Alert = r.NewStyle().Foreground(t.Warning).Bold(true)
	t.Input = r.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(t.Secondary)
	t.Group = r.NewStyle().Bold(true)
	t.HelpKey = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.HelpDesc = r.NewStyle().Foreground(t.Subtext)

	return t
}

// StateColor returns the color of a selection state.
func (t Theme) StateColor(s model.SelectionState) lipgloss.AdaptiveColor {
	switch s {
	case model.All:
		return t.All
	case model.Include, model.Exclude:
		return t.Partial
	}
	return t.None
}

// Checkbox renders the box of a selection state.
func (t Theme) Checkbox(s model.SelectionState) string {
	var box string
	switch s {
	case model.All:
		box = "[x]"
	case model.Include:
		box = "[+]"
	case model.Exclude:
		box = "[-]"
	default:
		box = "[ ]"
	}
	return t.Renderer.NewStyle().Foreground(t.StateColor(s)).Render(box)
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
