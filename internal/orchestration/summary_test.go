package orchestration

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/kinstall/internal/failure"
	"github.com/imamik/kinstall/internal/runlog"
)

func TestRunSummary_ExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		results []StepResult
		err     error
		want    int
	}{
		{name: "all success", results: []StepResult{{Critical: true, Status: StatusSuccess}, {Status: StatusSuccess}}, want: 0},
		{name: "non-critical skipped", results: []StepResult{{Critical: true, Status: StatusSuccess}, {Status: StatusSkipped}}, want: 0},
		{name: "critical skipped", results: []StepResult{{Critical: true, Status: StatusSkipped}}, want: 1},
		{name: "critical failed", results: []StepResult{{Critical: true, Status: StatusFailed}}, want: 1},
		{name: "non-critical failed", results: []StepResult{{Critical: true, Status: StatusSuccess}, {Status: StatusFailed}}, want: 1},
		{name: "run error", err: failure.Connectivity("connect", errors.New("refused")), want: 1},
		{name: "nothing selected", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &RunSummary{Results: tt.results, Err: tt.err}
			s.computeExitCode()
			assert.Equal(t, tt.want, s.ExitCode)
		})
	}
}

func TestRunSummary_Render(t *testing.T) {
	t.Parallel()

	s := &RunSummary{
		RunID:   "20261017-120000",
		LogPath: "logs/kinstall-20261017-120000.log",
		Results: []StepResult{
			{Name: "namespaces", Ordinal: 1, Critical: true, Status: StatusSuccess, Duration: 1500 * time.Millisecond},
			{Name: "karpenter", Ordinal: 2, Critical: true, Status: StatusFailed, Duration: time.Minute, Kind: failure.KindReadinessTimeout, Message: "not ready after 1m0s"},
			{Name: "monitoring", Ordinal: 3, Status: StatusSkipped, Message: "skipped: critical step karpenter failed"},
		},
		Duration: 61 * time.Second,
	}
	s.computeExitCode()

	for _, styled := range []bool{false, true} {
		out := s.Render(styled)
		assert.Contains(t, out, "Run summary (20261017-120000)")
		assert.Contains(t, out, "namespaces")
		assert.Contains(t, out, "SUCCESS")
		assert.Contains(t, out, "[ReadinessTimeout] not ready after 1m0s")
		assert.Contains(t, out, "skipped: critical step karpenter failed")
		assert.Contains(t, out, "1.5s")
		assert.Contains(t, out, "3 step(s): 1 succeeded, 1 failed, 1 skipped in 1m1s")
		assert.Contains(t, out, "Run log: logs/kinstall-20261017-120000.log")
		assert.Contains(t, out, "Exit code: 1")
	}
}

func TestRunSummary_RenderDryRunAndError(t *testing.T) {
	t.Parallel()

	s := &RunSummary{RunID: "r", DryRun: true, Err: failure.Validationf("unknown step(s) x")}
	s.computeExitCode()

	out := s.Render(false)
	assert.Contains(t, out, "Dry run summary (r)")
	assert.Contains(t, out, "Error: [ValidationError] unknown step(s) x")
	assert.NotContains(t, out, "Run log:")
}

type recordedLine struct {
	level runlog.Level
	msg   string
}

type lineRecorder struct{ lines []recordedLine }

func (r *lineRecorder) Record(level runlog.Level, msg string) {
	r.lines = append(r.lines, recordedLine{level: level, msg: msg})
}

func TestRunSummary_Record(t *testing.T) {
	t.Parallel()

	s := &RunSummary{
		RunID:   "r",
		LogPath: "logs/kinstall-r.log",
		Results: []StepResult{
			{Name: "namespaces", Ordinal: 1, Critical: true, Status: StatusSuccess, Duration: 1500 * time.Millisecond},
			{Name: "karpenter", Ordinal: 2, Critical: true, Status: StatusFailed, Duration: time.Minute, Kind: failure.KindReadinessTimeout, Message: "not ready after 1m0s"},
			{Name: "monitoring", Ordinal: 3, Status: StatusSkipped, Message: "skipped: critical step karpenter failed"},
		},
		Duration: 61 * time.Second,
	}
	s.computeExitCode()

	var rec lineRecorder
	s.Record(&rec)

	assert.Equal(t, []recordedLine{
		{runlog.LevelSuccess, "Summary 1 namespaces: SUCCESS in 1.5s"},
		{runlog.LevelError, "Summary 2 karpenter: FAILED in 1m0s ([ReadinessTimeout] not ready after 1m0s)"},
		{runlog.LevelInfo, "Summary 3 monitoring: SKIPPED in - (skipped: critical step karpenter failed)"},
		{runlog.LevelInfo, "3 step(s): 1 succeeded, 1 failed, 1 skipped in 1m1s"},
		{runlog.LevelInfo, "Exit code: 1"},
	}, rec.lines)
}
