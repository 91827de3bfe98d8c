package handlers

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/kinstall/internal/orchestration"
)

var listHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// listSteps prints the registered steps in order.
func listSteps(w io.Writer, reg *orchestration.Registry, styled bool) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "STEP", "CRITICAL", "DESCRIPTION")
	for _, s := range reg.Steps() {
		critical := "no"
		if s.Critical {
			critical = "yes"
		}
		t.Row(strconv.Itoa(s.Ordinal), s.Name, critical, s.Action.Describe())
	}
	if styled {
		t.StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			return lipgloss.NewStyle()
		})
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
