package orchestration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/kinstall/internal/failure"
	"github.com/imamik/kinstall/internal/runlog"
)

// OutcomeValidated is the message of a step that passed a dry run.
const OutcomeValidated = "validated"

// StepResult is the terminal record of one selected step.
type StepResult struct {
	Name     string
	Ordinal  int
	Critical bool
	Status   StepStatus
	Duration time.Duration
	Kind     failure.Kind
	Message  string
}

// RunSummary aggregates a run.
type RunSummary struct {
	RunID    string
	DryRun   bool
	LogPath  string
	Results  []StepResult
	Duration time.Duration
	// Err is a run-level error (invalid selection, unreachable cluster)
	// that prevented steps from executing.
	Err      error
	ExitCode int
}

// Result returns the entry of the named step.
func (s *RunSummary) Result(name string) (StepResult, bool) {
	for _, r := range s.Results {
		if r.Name == name {
			return r, true
		}
	}
	return StepResult{}, false
}

// HasFailures reports whether any step failed.
func (s *RunSummary) HasFailures() bool {
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Count returns the number of steps with the given status.
func (s *RunSummary) Count(status StepStatus) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// computeExitCode sets ExitCode: 0 only when there is no run-level error,
// no step failed and every critical step succeeded.
func (s *RunSummary) computeExitCode() {
	s.ExitCode = 0
	if s.Err != nil || s.HasFailures() {
		s.ExitCode = 1
		return
	}
	for _, r := range s.Results {
		if r.Critical && r.Status != StatusSuccess {
			s.ExitCode = 1
			return
		}
	}
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	successStyle = cellStyle.Foreground(lipgloss.Color("42"))
	failedStyle  = cellStyle.Foreground(lipgloss.Color("196"))
	skippedStyle = cellStyle.Foreground(lipgloss.Color("241"))
)

func statusCellStyle(status StepStatus) lipgloss.Style {
	switch status {
	case StatusSuccess:
		return successStyle
	case StatusFailed:
		return failedStyle
	case StatusSkipped:
		return skippedStyle
	}
	return cellStyle
}

// Render formats the summary as a table followed by totals.
func (s *RunSummary) Render(styled bool) string {
	const statusCol = 3

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "STEP", "CRITICAL", "STATUS", "DURATION", "DETAIL")
	for _, r := range s.Results {
		t.Row(strconv.Itoa(r.Ordinal), r.Name, yesNo(r.Critical), string(r.Status), formatDuration(r), detail(r))
	}

	results := s.Results
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case styled && col == statusCol && row >= 0 && row < len(results):
			return statusCellStyle(results[row].Status)
		}
		return cellStyle
	})

	var b strings.Builder
	title := "Run summary"
	if s.DryRun {
		title = "Dry run summary"
	}
	fmt.Fprintf(&b, "%s (%s)\n", title, s.RunID)
	b.WriteString(t.Render())
	b.WriteString("\n")
	for _, line := range s.footer(true) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// Recorder receives summary lines destined for the run log.
type Recorder interface {
	Record(level runlog.Level, msg string)
}

// Record writes one entry per step followed by the totals, so the run log
// holds the same outcome the console shows.
func (s *RunSummary) Record(r Recorder) {
	for _, res := range s.Results {
		level := runlog.LevelInfo
		switch res.Status {
		case StatusSuccess:
			level = runlog.LevelSuccess
		case StatusFailed:
			level = runlog.LevelError
		}
		msg := fmt.Sprintf("Summary %d %s: %s in %s", res.Ordinal, res.Name, res.Status, formatDuration(res))
		if d := detail(res); d != "" {
			msg += " (" + d + ")"
		}
		r.Record(level, msg)
	}
	for _, line := range s.footer(false) {
		r.Record(runlog.LevelInfo, line)
	}
}

func (s *RunSummary) footer(withLogPath bool) []string {
	lines := []string{fmt.Sprintf("%d step(s): %d succeeded, %d failed, %d skipped in %s",
		len(s.Results), s.Count(StatusSuccess), s.Count(StatusFailed), s.Count(StatusSkipped),
		s.Duration.Round(time.Millisecond))}
	if s.Err != nil {
		lines = append(lines, fmt.Sprintf("Error: [%s] %v", failure.KindOf(s.Err), s.Err))
	}
	if withLogPath && s.LogPath != "" {
		lines = append(lines, "Run log: "+s.LogPath)
	}
	return append(lines, fmt.Sprintf("Exit code: %d", s.ExitCode))
}

func detail(r StepResult) string {
	if r.Kind != "" && r.Status == StatusFailed {
		return fmt.Sprintf("[%s] %s", r.Kind, r.Message)
	}
	return r.Message
}

func formatDuration(r StepResult) string {
	if r.Status == StatusSkipped || r.Status == StatusPending {
		return "-"
	}
	return r.Duration.Round(time.Millisecond).String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
