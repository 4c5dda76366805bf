// Package logger writes leveled diagnostics for the fundlink CLI to stderr.
// Warnings and errors are always shown; --verbose adds the debug and info
// lines that follow an ingestion run stage by stage.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level orders message severity.
type Level int

// Levels from most to least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = [...]string{
	LevelDebug: "[DEBUG]",
	LevelInfo:  "[INFO]",
	LevelWarn:  "[WARN]",
	LevelError: "[ERROR]",
}

// String returns the level's prefix tag.
func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("[LEVEL%d]", int(l))
	}
	return levelTags[l]
}

var (
	mu        sync.RWMutex
	threshold           = LevelWarn
	output    io.Writer = os.Stderr
)

// SetLevel sets the lowest level that is written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	threshold = l
}

// CurrentLevel returns the lowest level that is written.
func CurrentLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return threshold
}

// SetVerbose switches between debug output and warnings only.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelWarn)
	}
}

// IsVerbose returns true if debug messages are written.
func IsVerbose() bool {
	return CurrentLevel() <= LevelDebug
}

// SetOutput redirects log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Writes take the exclusive lock so lines never interleave.
func logf(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < threshold {
		return
	}
	fmt.Fprintf(output, l.String()+" "+format+"\n", args...)
}

// Debug writes a debug message.
func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

// Info writes an informational message.
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warn writes a warning. Degraded runs report here.
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error writes an error.
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section writes a header line in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if threshold <= LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Timed writes a section header and returns a func that logs the elapsed
// time. Use with defer.
func Timed(name string) func() {
	Section(name)
	start := time.Now()
	return func() {
		Debug("%s finished in %s", name, time.Since(start).Round(time.Millisecond))
	}
}
