package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/notify"
	"github.com/five82/belfry/internal/prefs"
	"github.com/five82/belfry/internal/state"
)

type fakeDevice struct {
	mu        sync.Mutex
	calls     []string
	bellsReq  []bool
	played    []int
	bellsErr  error
	emergency int
}

func (f *fakeDevice) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeDevice) StopMelody(context.Context) error {
	f.record("stop")
	return nil
}

func (f *fakeDevice) SetBells(_ context.Context, enabled bool) (bool, error) {
	f.record("bells")
	f.bellsReq = append(f.bellsReq, enabled)
	if f.bellsErr != nil {
		return false, f.bellsErr
	}
	return enabled, nil
}

func (f *fakeDevice) EmergencyStop(context.Context) error {
	f.record("emergency")
	f.emergency++
	return nil
}

func (f *fakeDevice) PlayMelody(_ context.Context, id int) (device.Result, error) {
	f.record("play")
	f.played = append(f.played, id)
	return device.Result{}, nil
}

type fakeCollections struct {
	melodies []device.Melody
	weekly   []device.WeeklySchedule
	special  []device.SpecialEvent
	toggled  []int
	loads    int
	sink     notify.Sink
}

func (f *fakeCollections) Melodies() []device.Melody       { return f.melodies }
func (f *fakeCollections) Weekly() []device.WeeklySchedule { return f.weekly }
func (f *fakeCollections) Special() []device.SpecialEvent  { return f.special }

func (f *fakeCollections) MelodyLabel(index int) string {
	for _, m := range f.melodies {
		if m.ID == index {
			return m.Name
		}
	}
	return "melody not found"
}

func (f *fakeCollections) LoadAll(context.Context) error {
	f.loads++
	return nil
}

func (f *fakeCollections) ToggleWeekly(_ context.Context, id int) (bool, error) {
	f.toggled = append(f.toggled, id)
	f.sink.Notify(notify.Error, "schedule not found")
	return false, &device.BusinessError{Command: device.CmdToggleWeekly, Message: "schedule not found"}
}

func (f *fakeCollections) ToggleSpecial(_ context.Context, id int) (bool, error) {
	f.toggled = append(f.toggled, id)
	return true, nil
}

type harness struct {
	model Model
	dev   *fakeDevice
	coll  *fakeCollections
	store *state.Store
	feed  *notify.Feed
	prefs string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	feed := notify.NewFeed(10)
	coll := &fakeCollections{
		melodies: []device.Melody{{ID: 0, Name: "Angelus", NoteCount: 3, DurationMS: 4500}, {ID: 3, Name: "Westminster"}},
		weekly:   []device.WeeklySchedule{{ID: 7, Name: "Sunday Mass", DayOfWeek: 0, Hour: 9, Minute: 30, MelodyIndex: 3, IsActive: true}},
		special:  []device.SpecialEvent{{ID: 2, Name: "Easter", Type: device.EventFeast, Year: 2027, Month: 3, Day: 28, Hour: 10, MelodyIndex: 9}},
		sink:     feed,
	}
	h := &harness{
		dev:   &fakeDevice{},
		coll:  coll,
		store: &state.Store{},
		feed:  feed,
		prefs: filepath.Join(t.TempDir(), "prefs.toml"),
	}
	h.model = New(Options{
		Device:    h.dev,
		Cache:     coll,
		Store:     h.store,
		Feed:      feed,
		Sink:      feed,
		PrefsPath: h.prefs,
	})
	h.send(tea.WindowSizeMsg{Width: 160, Height: 30})
	return h
}

// send delivers msg and runs any returned command, feeding its message back
// once. Batches and ticks are not followed.
func (h *harness) send(msg tea.Msg) {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	if cmd == nil {
		return
	}
	if out := cmd(); out != nil {
		if am, ok := out.(actionMsg); ok {
			next, _ = h.model.Update(am)
			h.model = next.(Model)
		}
	}
}

func (h *harness) press(keys string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
}

func latest(t *testing.T, feed *notify.Feed) notify.Message {
	t.Helper()
	msg, ok := feed.Latest()
	if !ok {
		t.Fatalf("no notification")
	}
	return msg
}

func TestBellsToggleTargetsOppositeOfSnapshot(t *testing.T) {
	h := newHarness(t)
	h.store.UpdateStatus(&device.SystemStatus{BellsEnabled: false}, nil)
	h.send(snapshotMsg(h.store.Snapshot()))

	h.press("b")
	if len(h.dev.bellsReq) != 1 || !h.dev.bellsReq[0] {
		t.Fatalf("bells requests = %v, want [true]", h.dev.bellsReq)
	}
	if !h.store.Snapshot().Status.BellsEnabled {
		t.Fatalf("confirmed bells state not written to the store")
	}
	if msg := latest(t, h.feed); msg.Level != notify.Success || msg.Text != "Bells enabled" {
		t.Fatalf("notification = %+v", msg)
	}
}

func TestBellsFailureLeavesStore(t *testing.T) {
	h := newHarness(t)
	h.dev.bellsErr = &device.BusinessError{Command: device.CmdToggleBells, Message: "relay fault"}
	h.press("b")
	if h.store.Snapshot().Status.BellsEnabled {
		t.Fatalf("store changed after failed toggle")
	}
	if msg := latest(t, h.feed); msg.Level != notify.Error || !strings.Contains(msg.Text, "relay fault") {
		t.Fatalf("notification = %+v", msg)
	}
}

func TestEmergencyStopNeedsConfirmation(t *testing.T) {
	h := newHarness(t)

	h.press("X")
	if !strings.Contains(h.model.View(), "halt all bells") {
		t.Fatalf("confirmation prompt not shown")
	}
	h.press("n")
	if h.dev.emergency != 0 {
		t.Fatalf("emergency stop sent without confirmation")
	}

	h.press("X")
	h.press("y")
	if h.dev.emergency != 1 {
		t.Fatalf("emergency stops = %d, want 1", h.dev.emergency)
	}
}

func TestPlaySelectedMelody(t *testing.T) {
	h := newHarness(t)
	h.send(tea.KeyMsg{Type: tea.KeyDown})
	h.press("p")
	if len(h.dev.played) != 1 || h.dev.played[0] != 3 {
		t.Fatalf("played = %v, want [3]", h.dev.played)
	}
	if msg := latest(t, h.feed); msg.Text != `Playing "Westminster"` {
		t.Fatalf("notification = %+v", msg)
	}
}

func TestToggleGoesThroughCache(t *testing.T) {
	h := newHarness(t)
	h.press("2")
	if h.model.tab != TabWeekly {
		t.Fatalf("tab = %s", h.model.tab)
	}
	h.press("a")
	if len(h.coll.toggled) != 1 || h.coll.toggled[0] != 7 {
		t.Fatalf("toggled = %v, want [7]", h.coll.toggled)
	}
	if got := len(h.feed.Recent(0)); got != 1 {
		t.Fatalf("cache failure reported %d times, want once", got)
	}
}

func TestTableResolvesMelodyNames(t *testing.T) {
	h := newHarness(t)
	h.press("3")
	view := h.model.View()
	if !strings.Contains(view, "melody not found") || !strings.Contains(view, "2027-03-28") {
		t.Fatalf("special tab view missing fields:\n%s", view)
	}
	h.press("2")
	if !strings.Contains(h.model.View(), "Westminster") {
		t.Fatalf("weekly tab should resolve melody 3")
	}
}

func TestThemeCycleSavesPrefs(t *testing.T) {
	h := newHarness(t)
	h.press("3")
	h.press("T")
	p, err := prefs.Load(h.prefs)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Kanagawa" || p.LastTab != "special" {
		t.Fatalf("prefs = %+v", p)
	}
}

func TestHeaderFromSnapshot(t *testing.T) {
	h := newHarness(t)
	h.store.UpdateStatus(&device.SystemStatus{
		APMode: true, APIP: "192.168.4.1", NTPSynced: false,
		TimezoneDescription: "CET", IsDST: true, BellsEnabled: true,
	}, nil)
	h.store.UpdateRelay(&device.RelayStatus{Relay1Raw: 0, Relay2Raw: 1, StatusLEDRaw: 1}, nil)
	h.store.UpdateStatus(nil, errors.New("timeout"))
	h.store.UpdateStatus(nil, errors.New("timeout"))
	h.send(snapshotMsg(h.store.Snapshot()))

	header := h.model.renderHeader()
	for _, want := range []string{"OFFLINE", "Access Point", "192.168.4.1", "not synced", "CET (DST)", "ON (0V)", "OFF (3.3V)", "ON (3.3V)"} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q:\n%s", want, header)
		}
	}
}

func TestParseTab(t *testing.T) {
	tests := map[string]Tab{"weekly": TabWeekly, " LOG ": TabLog, "": TabMelodies, "queue": TabMelodies}
	for in, want := range tests {
		if got := ParseTab(in); got != want {
			t.Errorf("ParseTab(%q) = %s, want %s", in, got, want)
		}
	}
}
