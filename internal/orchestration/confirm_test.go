package orchestration

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineGate_Answers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "Y\n", want: true},
		{input: "yes\n", want: true},
		{input: "  YeS  \n", want: true},
		{input: "yes", want: true},
		{input: "\n", want: false},
		{input: "n\n", want: false},
		{input: "no\n", want: false},
		{input: "yess\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			gate := NewLineGate(strings.NewReader(tt.input), &out)
			assert.Equal(t, tt.want, gate.Confirm(context.Background(), "Continue?"))
			assert.Equal(t, "Continue? [y/N]: ", out.String())
		})
	}
}

func TestLineGate_ReadsOneLinePerPrompt(t *testing.T) {
	t.Parallel()

	gate := NewLineGate(strings.NewReader("yes\nno\ny\n"), io.Discard)
	ctx := context.Background()

	assert.True(t, gate.Confirm(ctx, "first"))
	assert.False(t, gate.Confirm(ctx, "second"))
	assert.True(t, gate.Confirm(ctx, "third"))
	assert.False(t, gate.Confirm(ctx, "eof"))
}

func TestLineGate_CanceledWhileBlocked(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	gate := NewLineGate(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.False(t, gate.Confirm(ctx, "Continue?"))
}

func TestLineGate_AnswerAfterCancelGoesToNextPrompt(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	gate := NewLineGate(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.False(t, gate.Confirm(ctx, "first"))

	go func() { _, _ = io.WriteString(w, "y\n") }()

	next, cancelNext := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelNext()
	assert.True(t, gate.Confirm(next, "second"))
}

func TestLineGate_ClosedInputDeclinesEveryPrompt(t *testing.T) {
	t.Parallel()

	gate := NewLineGate(strings.NewReader("y\n"), io.Discard)
	ctx := context.Background()

	assert.True(t, gate.Confirm(ctx, "first"))
	assert.False(t, gate.Confirm(ctx, "second"))
	assert.False(t, gate.Confirm(ctx, "third"))
}

func TestConfirm_AutoConfirmAndEmptyInput(t *testing.T) {
	t.Parallel()

	auto := newTestRunContext(t, RunConfig{AutoConfirm: true, Gate: NewLineGate(strings.NewReader(""), io.Discard)})
	assert.True(t, auto.Confirm(context.Background(), "Continue?"))

	manual := newTestRunContext(t, RunConfig{Gate: NewLineGate(strings.NewReader("\n"), io.Discard)})
	assert.False(t, manual.Confirm(context.Background(), "Continue?"))
}

func TestDefaultGate_NonTerminal(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	_, ok := DefaultGate(f, io.Discard).(*LineGate)
	assert.True(t, ok)
}
