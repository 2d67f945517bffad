// Package ui renders colored terminal output for the CLI.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	Accent = lipgloss.Color("#7C3AED") // Purple
	Pass   = lipgloss.Color("#10B981") // Green
	Warn   = lipgloss.Color("#F59E0B") // Amber
	Fail   = lipgloss.Color("#EF4444") // Red
	Muted  = lipgloss.Color("#6B7280") // Gray
)

var renderer = lipgloss.NewRenderer(os.Stdout)

// SetOutput points rendering at w. Colors are dropped when w is not a
// terminal or NO_COLOR is set.
func SetOutput(w io.Writer) {
	renderer = lipgloss.NewRenderer(w, termenv.WithColorCache(true))
	if os.Getenv("NO_COLOR") != "" {
		renderer.SetColorProfile(termenv.Ascii)
	}
}

// Plain disables colors.
func Plain() {
	renderer.SetColorProfile(termenv.Ascii)
}

func render(c lipgloss.Color, bold bool, s string) string {
	return renderer.NewStyle().Foreground(c).Bold(bold).Render(s)
}

// RenderAccent renders s as a heading.
func RenderAccent(s string) string { return render(Accent, true, s) }

// RenderPass renders s as a success.
func RenderPass(s string) string { return render(Pass, false, s) }

// RenderWarn renders s as a warning.
func RenderWarn(s string) string { return render(Warn, false, s) }

// RenderFail renders s as a failure.
func RenderFail(s string) string { return render(Fail, true, s) }

// RenderMuted renders s as secondary text.
func RenderMuted(s string) string { return render(Muted, false, s) }

// Label pads a key for aligned "key: value" lines.
func Label(key string, width int) string {
	return renderer.NewStyle().Width(width).Foreground(Muted).Render(key)
}
