package runlog

import (
	"fmt"
	"time"
)

// Level is the severity or kind of a log entry.
type Level string

// Log levels.
const (
	LevelInfo    Level = "INFO"
	LevelWarn    Level = "WARN"
	LevelError   Level = "ERROR"
	LevelSuccess Level = "SUCCESS"
	LevelStep    Level = "STEP"
)

// Levels lists every level in display order.
var Levels = []Level{LevelStep, LevelInfo, LevelSuccess, LevelWarn, LevelError}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}

// Entry is a single log record. Entries are never mutated after emission.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// plain renders the entry for non-terminal consoles.
func (e Entry) plain() string {
	return fmt.Sprintf("%s [%s] %s", e.Time.Format("2006-01-02 15:04:05"), e.Level, e.Message)
}
