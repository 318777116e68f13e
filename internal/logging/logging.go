// Package logging builds the client logger: charmbracelet/log text output
// into a size-rotated file, optionally mirrored to a console writer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file written inside the log directory.
const FileName = "belfry.log"

// Options configures New.
type Options struct {
	Dir   string
	Debug bool
	// Console also receives every line when non-nil. Leave it nil while the
	// dashboard owns the terminal.
	Console io.Writer
}

// Logger pairs the logger with the rotating file behind it.
type Logger struct {
	*log.Logger
	file *lumberjack.Logger
}

// New creates the log directory and returns a logger writing to
// <dir>/belfry.log. Info and above are recorded; Debug adds debug lines and
// caller information.
func New(opts Options) (*Logger, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("log dir is empty")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, FileName),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	var writer io.Writer = file
	if opts.Console != nil {
		writer = io.MultiWriter(opts.Console, file)
	}

	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(writer, log.Options{
		ReportCaller:    opts.Debug,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	return &Logger{Logger: logger, file: file}, nil
}

// Path returns the active log file path.
func (l *Logger) Path() string {
	return l.file.Filename
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
