package runlog

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorCyan   = lipgloss.Color("#06b6d4")

	infoStyle    = lipgloss.NewStyle().Foreground(colorBlue)
	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	stepStyle    = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
)

const (
	infoMark    = "[..]"
	successMark = "[OK]"
	warnMark    = "[??]"
	errorMark   = "[!!]"
)

// styled renders the entry for a terminal console.
func (e Entry) styled() string {
	switch e.Level {
	case LevelStep:
		rule := strings.Repeat("=", 60)
		return stepStyle.Render(rule + "\n" + e.Message + "\n" + rule)
	case LevelSuccess:
		return successStyle.Render(successMark + " " + e.Message)
	case LevelWarn:
		return warnStyle.Render(warnMark + " " + e.Message)
	case LevelError:
		return errorStyle.Render(errorMark + " " + e.Message)
	default:
		return infoStyle.Render(infoMark) + " " + e.Message
	}
}
