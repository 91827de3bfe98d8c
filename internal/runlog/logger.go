package runlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/utils/clock"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// FilePrefix is prepended to the run ID to name the log file.
const FilePrefix = "kinstall-"

// Options configures a Logger.
type Options struct {
	// Dir is the directory the run log is created in. Created on first use.
	Dir string
	// RunID names the log file, e.g. "20261017-150405".
	RunID string
	// Console receives the interactive output. Defaults to os.Stdout.
	Console io.Writer
	// Styled enables level-specific terminal styling on the console.
	Styled bool
	// Clock stamps entries. Defaults to the real clock.
	Clock clock.PassiveClock
}

// Logger duplicates every entry to the console and to the run log file.
type Logger struct {
	opts Options
	path string

	mu      sync.Mutex
	file    *os.File
	sink    logr.Logger
	fileErr error
	closed  bool
}

// New creates a Logger. No file is touched until the first entry is emitted.
func New(opts Options) *Logger {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return &Logger{
		opts: opts,
		path: filepath.Join(opts.Dir, FilePrefix+opts.RunID+".log"),
	}
}

// Path returns the location of the run log file.
func (l *Logger) Path() string {
	return l.path
}

// Emit writes one entry to the console and the run log.
func (l *Logger) Emit(level Level, msg string) {
	entry := Entry{Time: l.opts.Clock.Now(), Level: level, Message: msg}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.opts.Styled {
		_, _ = fmt.Fprintln(l.opts.Console, entry.styled())
	} else {
		_, _ = fmt.Fprintln(l.opts.Console, entry.plain())
	}
	l.write(entry)
}

// Record writes one entry to the run log only. Output already shown on the
// console, such as the summary table, goes through here.
func (l *Logger) Record(level Level, msg string) {
	entry := Entry{Time: l.opts.Clock.Now(), Level: level, Message: msg}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(entry)
}

// write appends entry to the file, opening it on first use. Callers hold l.mu.
func (l *Logger) write(entry Entry) {
	if l.closed {
		return
	}
	if l.file == nil && l.fileErr == nil {
		if err := l.open(); err != nil {
			l.fileErr = err
			_, _ = fmt.Fprintf(l.opts.Console, "[WARN] run log disabled: %v\n", err)
		}
	}
	if l.file != nil {
		l.sink.Info(entry.Message, "level", string(entry.Level), "ts", entry.Time.Format(time.RFC3339Nano))
	}
}

// open creates the log directory and file. Callers hold l.mu.
func (l *Logger) open() error {
	if err := os.MkdirAll(l.opts.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", l.opts.Dir, err)
	}

	// #nosec G304 -- path is built from the configured log dir and run ID
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open run log %s: %w", l.path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.LevelKey = ""
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	encCfg.TimeKey = ""

	l.file = f
	// Development mode disables sampling, so every entry reaches the file.
	l.sink = crzap.New(
		crzap.UseDevMode(true),
		crzap.WriteTo(f),
		crzap.Encoder(zapcore.NewJSONEncoder(encCfg)),
	).WithValues("run", l.opts.RunID)
	return nil
}

// Infof emits an INFO entry.
func (l *Logger) Infof(format string, args ...any) { l.Emit(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf emits a WARN entry.
func (l *Logger) Warnf(format string, args ...any) { l.Emit(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf emits an ERROR entry.
func (l *Logger) Errorf(format string, args ...any) { l.Emit(LevelError, fmt.Sprintf(format, args...)) }

// Successf emits a SUCCESS entry.
func (l *Logger) Successf(format string, args ...any) {
	l.Emit(LevelSuccess, fmt.Sprintf(format, args...))
}

// Stepf emits a STEP entry.
func (l *Logger) Stepf(format string, args ...any) { l.Emit(LevelStep, fmt.Sprintf(format, args...)) }

// Opened reports whether the run log file has been created.
func (l *Logger) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file != nil
}

// Close flushes and closes the run log. Later entries reach the console only.
// Close is idempotent.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.file == nil {
		return nil
	}

	syncErr := l.file.Sync()
	closeErr := l.file.Close()
	l.file = nil
	l.sink = logr.Discard()
	return errors.Join(syncErr, closeErr)
}
