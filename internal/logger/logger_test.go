package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

// capture redirects output for the duration of the test.
func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(LevelWarn)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, LevelWarn)

	if IsVerbose() {
		t.Error("expected quiet by default")
	}

	SetVerbose(true)
	if !IsVerbose() || CurrentLevel() != LevelDebug {
		t.Errorf("expected debug level, got %v", CurrentLevel())
	}

	SetVerbose(false)
	if IsVerbose() || CurrentLevel() != LevelWarn {
		t.Errorf("expected warn level, got %v", CurrentLevel())
	}
}

func TestLevels_Threshold(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		want  string
	}{
		{"debug shows all", LevelDebug, "[DEBUG] d\n[INFO] i\n[WARN] w\n[ERROR] e\n"},
		{"info hides debug", LevelInfo, "[INFO] i\n[WARN] w\n[ERROR] e\n"},
		{"warn is the quiet default", LevelWarn, "[WARN] w\n[ERROR] e\n"},
		{"error only", LevelError, "[ERROR] e\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.level)

			Debug("d")
			Info("i")
			Warn("w")
			Error("e")

			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDebug_Formats(t *testing.T) {
	buf := capture(t, LevelDebug)

	Debug("embedded %d chunks with %s", 32, "hashing-384")

	if got := buf.String(); got != "[DEBUG] embedded 32 chunks with hashing-384\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestLevel_String(t *testing.T) {
	if LevelWarn.String() != "[WARN]" {
		t.Errorf("unexpected tag %q", LevelWarn.String())
	}
	if Level(9).String() != "[LEVEL9]" {
		t.Errorf("unexpected tag %q", Level(9).String())
	}
}

func TestSection(t *testing.T) {
	buf := capture(t, LevelDebug)
	Section("Stage: scraped")
	if got := buf.String(); got != "\n=== Stage: scraped ===\n" {
		t.Errorf("unexpected section output: %q", got)
	}

	quiet := capture(t, LevelWarn)
	Section("Stage: scraped")
	if quiet.Len() > 0 {
		t.Errorf("expected no section when quiet, got %q", quiet.String())
	}
}

func TestTimed(t *testing.T) {
	buf := capture(t, LevelDebug)

	done := Timed("Stage: chunked")
	done()

	output := buf.String()
	if !strings.Contains(output, "=== Stage: chunked ===") {
		t.Errorf("missing section header: %q", output)
	}
	if !strings.Contains(output, "[DEBUG] Stage: chunked finished in") {
		t.Errorf("missing timing line: %q", output)
	}
}

func TestConcurrentAccess(t *testing.T) {
	capture(t, LevelWarn)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(i%2 == 0)
			Debug("concurrent %d", i)
			Warn("concurrent %d", i)
			IsVerbose()
		}()
	}
	wg.Wait()
}
