// Package ui renders terminal output for the clinic CLI: status glyphs,
// tables, machine-readable encodings and interactive prompts.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

var (
	renderer = lipgloss.NewRenderer(os.Stdout)

	accentColor = lipgloss.AdaptiveColor{Light: "#005F87", Dark: "#5FAFFF"}
	passColor   = lipgloss.AdaptiveColor{Light: "#007A3D", Dark: "#5FD787"}
	warnColor   = lipgloss.AdaptiveColor{Light: "#AF5F00", Dark: "#FFD75F"}
	failColor   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"}
)

// SetOutput points styling at w. Color is dropped when w is not a
// terminal or NO_COLOR is set.
func SetOutput(w io.Writer) {
	renderer = lipgloss.NewRenderer(w, termenv.WithColorCache(true))
	if os.Getenv("NO_COLOR") != "" {
		renderer.SetColorProfile(termenv.Ascii)
	}
}

// DisableColor forces plain output.
func DisableColor() {
	renderer.SetColorProfile(termenv.Ascii)
}

func RenderAccent(s string) string {
	return renderer.NewStyle().Foreground(accentColor).Render(s)
}

func RenderPass(s string) string {
	return renderer.NewStyle().Foreground(passColor).Render(s)
}

func RenderWarn(s string) string {
	return renderer.NewStyle().Foreground(warnColor).Render(s)
}

func RenderFail(s string) string {
	return renderer.NewStyle().Foreground(failColor).Bold(true).Render(s)
}

func RenderMuted(s string) string {
	return renderer.NewStyle().Foreground(mutedColor).Render(s)
}

func RenderBold(s string) string {
	return renderer.NewStyle().Bold(true).Render(s)
}

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	header := renderer.NewStyle().Bold(true).Foreground(accentColor).Padding(0, 1)
	cell := renderer.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(renderer.NewStyle().Foreground(mutedColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	return t.String()
}
