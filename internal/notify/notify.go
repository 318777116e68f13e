// Package notify carries user-facing outcome messages from the cache, editors
// and pollers to whatever is rendering them.
package notify

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Level classifies a notification.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Message is one notification.
type Message struct {
	Level Level
	Text  string
	At    time.Time
}

// Sink receives notifications. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(level Level, text string)
}

// Discard drops every notification.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Level, string) {}

// LogSink writes notifications to a charmbracelet logger.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink returns a sink backed by logger. A nil logger discards.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify implements Sink.
func (s *LogSink) Notify(level Level, text string) {
	if s == nil || s.logger == nil {
		return
	}
	switch level {
	case Error:
		s.logger.Error(text)
	case Warning:
		s.logger.Warn(text)
	default:
		s.logger.Info(text, "kind", level.String())
	}
}

// Feed keeps the most recent notifications in memory.
type Feed struct {
	mu    sync.RWMutex
	limit int
	items []Message
	now   func() time.Time
}

// NewFeed returns a Feed holding at most limit messages.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit, now: time.Now}
}

// Notify implements Sink.
func (f *Feed) Notify(level Level, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, Message{Level: level, Text: text, At: f.now()})
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append([]Message(nil), f.items[over:]...)
	}
}

// Latest returns the newest message, if any.
func (f *Feed) Latest() (Message, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.items) == 0 {
		return Message{}, false
	}
	return f.items[len(f.items)-1], true
}

// Recent returns up to n messages, oldest first.
func (f *Feed) Recent(n int) []Message {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if n <= 0 || n > len(f.items) {
		n = len(f.items)
	}
	out := make([]Message, n)
	copy(out, f.items[len(f.items)-n:])
	return out
}

// Fanout delivers each notification to every sink in order.
type Fanout []Sink

// Notify implements Sink.
func (fs Fanout) Notify(level Level, text string) {
	for _, s := range fs {
		if s != nil {
			s.Notify(level, text)
		}
	}
}
