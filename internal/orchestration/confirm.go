package orchestration

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Gate decides whether the run continues. Implementations fail closed:
// anything but an explicit yes is a no.
type Gate interface {
	Confirm(ctx context.Context, prompt string) bool
}

// LineGate reads one answer line per prompt. A single reader goroutine
// owns the input; a line that arrives after a prompt was canceled answers
// the next prompt.
type LineGate struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan string
}

// NewLineGate creates a gate prompting on out and reading answers from in.
func NewLineGate(in io.Reader, out io.Writer) *LineGate {
	return &LineGate{in: bufio.NewReader(in), out: out, lines: make(chan string)}
}

// Confirm implements Gate. "y" and "yes" in any case confirm; empty input,
// EOF, read errors and cancellation decline.
func (g *LineGate) Confirm(ctx context.Context, prompt string) bool {
	_, _ = fmt.Fprintf(g.out, "%s [y/N]: ", prompt)
	g.once.Do(func() { go g.read() })

	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(g.out)
		return false
	case line, ok := <-g.lines:
		return ok && isYes(line)
	}
}

// read feeds lines to Confirm until the input ends, then closes g.lines.
func (g *LineGate) read() {
	defer close(g.lines)
	for {
		line, err := g.in.ReadString('\n')
		if line != "" {
			g.lines <- line
		}
		if err != nil {
			return
		}
	}
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// TerminalGate renders an interactive yes/no prompt. The default answer is
// No.
type TerminalGate struct{}

// Confirm implements Gate.
func (TerminalGate) Confirm(ctx context.Context, prompt string) bool {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).RunWithContext(ctx)
	if err != nil {
		return false
	}
	return ok
}

// DefaultGate returns a TerminalGate when in is a terminal and a LineGate
// otherwise.
func DefaultGate(in *os.File, out io.Writer) Gate {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return TerminalGate{}
	}
	return NewLineGate(in, out)
}
