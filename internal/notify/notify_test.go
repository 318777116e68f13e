package notify

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestFeedKeepsNewest(t *testing.T) {
	f := NewFeed(2)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return clock }

	if _, ok := f.Latest(); ok {
		t.Fatalf("Latest on empty feed returned ok")
	}
	f.Notify(Info, "one")
	f.Notify(Warning, "two")
	f.Notify(Error, "three")

	got := f.Recent(0)
	if len(got) != 2 || got[0].Text != "two" || got[1].Text != "three" {
		t.Fatalf("Recent = %+v, want two, three", got)
	}
	latest, ok := f.Latest()
	if !ok || latest.Level != Error || !latest.At.Equal(clock) {
		t.Fatalf("Latest = %+v", latest)
	}
	if n := len(f.Recent(1)); n != 1 {
		t.Fatalf("Recent(1) returned %d messages", n)
	}
}

func TestLogSinkAndFanout(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	feed := NewFeed(5)

	Fanout{NewLogSink(logger), feed, nil}.Notify(Warning, "bells disabled")

	if !strings.Contains(buf.String(), "bells disabled") {
		t.Fatalf("log output = %q, want message", buf.String())
	}
	if latest, ok := feed.Latest(); !ok || latest.Text != "bells disabled" {
		t.Fatalf("feed latest = %+v", latest)
	}

	// A nil logger must not panic.
	NewLogSink(nil).Notify(Error, "ignored")
	Discard.Notify(Error, "ignored")
}
