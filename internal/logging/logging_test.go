package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/belfry/internal/logtail"
)

func TestNewWritesParseableLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden below info")
	logger.Warn("primary attempt failed", "command", "toggle-bells")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if logger.Path() != filepath.Join(dir, FileName) {
		t.Fatalf("Path = %q", logger.Path())
	}
	lines, err := logtail.Read(logger.Path(), 10)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want one warning", lines)
	}
	entry := logtail.Parse(lines[0])
	if entry.Level != logtail.LevelWarn || !strings.Contains(entry.Message, "command=toggle-bells") {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestNewDebugMirrorsToConsole(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Options{Dir: t.TempDir(), Debug: true, Console: &console})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer logger.Close()

	logger.Debug("dispatch", "command", "stop-melody")
	if !strings.Contains(console.String(), "dispatch") {
		t.Fatalf("console = %q, want debug line", console.String())
	}
}

func TestNewRejectsEmptyDir(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("New with empty dir returned nil error")
	}
	Discard().Error("dropped")
	if _, err := os.Stat(FileName); err == nil {
		t.Fatalf("Discard created %s in the working directory", FileName)
	}
}
