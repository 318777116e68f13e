package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/notify"
)

// MelodyNotFound is rendered for a melodyIndex with no matching melody.
const MelodyNotFound = "melody not found"

// Collection endpoints.
const (
	PathMelodies = "/api/melodies"
	PathWeekly   = "/api/weekly-schedules"
	PathSpecial  = "/api/special-events"
)

const defaultReconcileTimeout = 10 * time.Second

// Remote is the subset of the device client the cache needs.
type Remote interface {
	FetchCollection(ctx context.Context, path string) (json.RawMessage, error)
	FetchMelody(ctx context.Context, index int) (device.MelodyDetail, error)
	Mutate(ctx context.Context, cmd device.Command, p device.Payload) (device.Result, error)
}

var _ Remote = (*device.Client)(nil)

// MutationObserver is told the outcome of every confirmed-mutation call.
type MutationObserver interface {
	ObserveMutation(command string, ok bool)
}

// Cache holds the device's three entity collections. Readers get deep copies;
// writers only commit after the device confirms.
type Cache struct {
	remote           Remote
	sink             notify.Sink
	logger           *log.Logger
	observer         MutationObserver
	reconcileTimeout time.Duration

	melodies Collection[device.Melody]
	weekly   Collection[device.WeeklySchedule]
	special  Collection[device.SpecialEvent]

	wg sync.WaitGroup
}

// Option customizes a Cache.
type Option func(*Cache)

// WithSink routes user-facing outcomes to s.
func WithSink(s notify.Sink) Option {
	return func(c *Cache) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithObserver reports mutation outcomes to o.
func WithObserver(o MutationObserver) Option {
	return func(c *Cache) { c.observer = o }
}

// WithReconcileTimeout bounds background reloads.
func WithReconcileTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.reconcileTimeout = d
		}
	}
}

// New returns an empty cache backed by remote.
func New(remote Remote, opts ...Option) *Cache {
	c := &Cache{
		remote:           remote,
		sink:             notify.Discard,
		reconcileTimeout: defaultReconcileTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Melodies returns a copy of the melody collection.
func (c *Cache) Melodies() []device.Melody { return c.melodies.Items() }

// Weekly returns a copy of the weekly schedule collection.
func (c *Cache) Weekly() []device.WeeklySchedule { return c.weekly.Items() }

// Special returns a copy of the special event collection.
func (c *Cache) Special() []device.SpecialEvent { return c.special.Items() }

// Melody returns the melody with the given id.
func (c *Cache) Melody(id int) (device.Melody, bool) {
	for _, m := range c.melodies.Items() {
		if m.ID == id {
			return m, true
		}
	}
	return device.Melody{}, false
}

// MelodyLabel resolves a melodyIndex to a melody name.
func (c *Cache) MelodyLabel(index int) string {
	if m, ok := c.Melody(index); ok {
		return m.Name
	}
	return MelodyNotFound
}

// Wait blocks until background reconcile loads have finished.
func (c *Cache) Wait() { c.wg.Wait() }

// LoadMelodies fetches and replaces the melody collection. On failure the
// cached collection is kept.
func (c *Cache) LoadMelodies(ctx context.Context) error {
	return load(ctx, c, &c.melodies, PathMelodies, KeyMelodies, "melodies")
}

// LoadWeekly fetches and replaces the weekly schedule collection.
func (c *Cache) LoadWeekly(ctx context.Context) error {
	return load(ctx, c, &c.weekly, PathWeekly, KeyWeekly, "weekly schedules")
}

// LoadSpecial fetches and replaces the special event collection.
func (c *Cache) LoadSpecial(ctx context.Context) error {
	return load(ctx, c, &c.special, PathSpecial, KeySpecial, "special events")
}

// LoadAll loads the three collections concurrently and returns the first error.
func (c *Cache) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.LoadMelodies(ctx) })
	g.Go(func() error { return c.LoadWeekly(ctx) })
	g.Go(func() error { return c.LoadSpecial(ctx) })
	return g.Wait()
}

func load[T Cloner[T]](ctx context.Context, c *Cache, coll *Collection[T], path, key, label string) error {
	seq := coll.Begin()
	raw, err := c.remote.FetchCollection(ctx, path)
	if err != nil {
		c.sink.Notify(notify.Error, fmt.Sprintf("load %s: %s", label, device.UserMessage(err)))
		return fmt.Errorf("load %s: %w", label, err)
	}
	items, shape := Normalize[T](raw, key)
	if !coll.Commit(seq, items) {
		c.debug("discarded stale load", "collection", label, "seq", seq)
		return nil
	}
	c.debug("loaded collection", "collection", label, "shape", shape, "count", len(items), "seq", seq)
	return nil
}

type melodyBody struct {
	Index *int          `json:"index,omitempty"`
	Name  string        `json:"name"`
	Notes []device.Note `json:"notes"`
}

// SaveMelody creates a melody and reloads the collection.
func (c *Cache) SaveMelody(ctx context.Context, name string, notes []device.Note) error {
	if err := c.validateMelody(name, notes); err != nil {
		return err
	}
	body := melodyBody{Name: strings.TrimSpace(name), Notes: notes}
	if _, err := c.mutate(ctx, device.CmdSaveMelody, device.Payload{Body: body}, "Melody saved"); err != nil {
		return err
	}
	_ = c.LoadMelodies(ctx)
	return nil
}

// UpdateMelody overwrites the melody stored at index and reloads the collection.
func (c *Cache) UpdateMelody(ctx context.Context, index int, name string, notes []device.Note) error {
	if err := c.validateMelody(name, notes); err != nil {
		return err
	}
	body := melodyBody{Index: &index, Name: strings.TrimSpace(name), Notes: notes}
	if _, err := c.mutate(ctx, device.CmdUpdateMelody, device.Payload{Body: body}, "Melody updated"); err != nil {
		return err
	}
	_ = c.LoadMelodies(ctx)
	return nil
}

// DeleteMelody removes the melody with id and reloads the collection.
func (c *Cache) DeleteMelody(ctx context.Context, id int) error {
	if _, err := c.mutate(ctx, device.CmdDeleteMelody, device.Payload{Body: map[string]int{"index": id}}, "Melody deleted"); err != nil {
		return err
	}
	c.melodies.Patch(func(items []device.Melody) []device.Melody {
		return removeWhere(items, func(m device.Melody) bool { return m.ID == id })
	})
	_ = c.LoadMelodies(ctx)
	return nil
}

// FetchMelodyNotes retrieves the notes of melody id and attaches them to the
// cached entry.
func (c *Cache) FetchMelodyNotes(ctx context.Context, id int) ([]device.Note, error) {
	detail, err := c.remote.FetchMelody(ctx, id)
	if err != nil {
		c.sink.Notify(notify.Error, fmt.Sprintf("load melody: %s", device.UserMessage(err)))
		return nil, fmt.Errorf("fetch melody %d: %w", id, err)
	}
	c.melodies.Patch(func(items []device.Melody) []device.Melody {
		for i := range items {
			if items[i].ID == id {
				items[i].Notes = append([]device.Note(nil), detail.Notes...)
				items[i].NoteCount = len(detail.Notes)
			}
		}
		return items
	})
	return detail.Notes, nil
}

// AddWeekly creates a weekly schedule and reloads the collection.
func (c *Cache) AddWeekly(ctx context.Context, s device.WeeklySchedule) error {
	if err := c.validate(s.Validate()); err != nil {
		return err
	}
	body := struct {
		Name        string `json:"name"`
		DayOfWeek   int    `json:"dayOfWeek"`
		Hour        int    `json:"hour"`
		Minute      int    `json:"minute"`
		MelodyIndex int    `json:"melodyIndex"`
	}{strings.TrimSpace(s.Name), s.DayOfWeek, s.Hour, s.Minute, s.MelodyIndex}
	if _, err := c.mutate(ctx, device.CmdAddWeekly, device.Payload{Body: body}, "Schedule added"); err != nil {
		return err
	}
	_ = c.LoadWeekly(ctx)
	return nil
}

// DeleteWeekly removes the weekly schedule with id.
func (c *Cache) DeleteWeekly(ctx context.Context, id int) error {
	if _, err := c.mutate(ctx, device.CmdDeleteWeekly, idPayload(id), "Schedule deleted"); err != nil {
		return err
	}
	c.weekly.Patch(func(items []device.WeeklySchedule) []device.WeeklySchedule {
		return removeWhere(items, func(w device.WeeklySchedule) bool { return w.ID == id })
	})
	_ = c.LoadWeekly(ctx)
	return nil
}

// ToggleWeekly flips the schedule's active flag and returns the new state.
func (c *Cache) ToggleWeekly(ctx context.Context, id int) (bool, error) {
	res, err := c.mutate(ctx, device.CmdToggleWeekly, idPayload(id), "")
	if err != nil {
		return false, err
	}
	active := false
	c.weekly.Patch(func(items []device.WeeklySchedule) []device.WeeklySchedule {
		for i := range items {
			if items[i].ID == id {
				items[i].IsActive = toggled(res, items[i].IsActive)
				active = items[i].IsActive
			}
		}
		return items
	})
	if res.Active != nil {
		active = *res.Active
	}
	c.sink.Notify(notify.Success, activeText("Schedule", active))
	_ = c.LoadWeekly(ctx)
	return active, nil
}

// ReplaceWeekly submits the whole collection. On success the cache holds the
// submitted items and a background load picks up device-assigned fields.
func (c *Cache) ReplaceWeekly(ctx context.Context, items []device.WeeklySchedule) error {
	body := struct {
		Schedules []device.WeeklySchedule `json:"schedules"`
	}{nonNil(items)}
	if _, err := c.mutate(ctx, device.CmdReplaceWeekly, device.Payload{Body: body}, "Weekly schedules saved"); err != nil {
		return err
	}
	// Sequenced at confirmation so a load that finished meanwhile is older.
	c.weekly.Commit(c.weekly.Begin(), items)
	c.reconcile(ctx, c.LoadWeekly)
	return nil
}

// AddSpecial creates a special event and reloads the collection.
func (c *Cache) AddSpecial(ctx context.Context, e device.SpecialEvent) error {
	if err := c.validate(e.Validate()); err != nil {
		return err
	}
	body := struct {
		Name        string           `json:"name"`
		Type        device.EventType `json:"type"`
		Year        int              `json:"year"`
		Month       int              `json:"month"`
		Day         int              `json:"day"`
		Hour        int              `json:"hour"`
		Minute      int              `json:"minute"`
		MelodyIndex int              `json:"melodyIndex"`
		IsRecurring bool             `json:"isRecurring"`
	}{strings.TrimSpace(e.Name), e.Type, e.Year, e.Month, e.Day, e.Hour, e.Minute, e.MelodyIndex, e.IsRecurring}
	if _, err := c.mutate(ctx, device.CmdAddSpecial, device.Payload{Body: body}, "Event added"); err != nil {
		return err
	}
	_ = c.LoadSpecial(ctx)
	return nil
}

// DeleteSpecial removes the special event with id.
func (c *Cache) DeleteSpecial(ctx context.Context, id int) error {
	if _, err := c.mutate(ctx, device.CmdDeleteSpecial, idPayload(id), "Event deleted"); err != nil {
		return err
	}
	c.special.Patch(func(items []device.SpecialEvent) []device.SpecialEvent {
		return removeWhere(items, func(e device.SpecialEvent) bool { return e.ID == id })
	})
	_ = c.LoadSpecial(ctx)
	return nil
}

// ToggleSpecial flips the event's active flag and returns the new state.
func (c *Cache) ToggleSpecial(ctx context.Context, id int) (bool, error) {
	res, err := c.mutate(ctx, device.CmdToggleSpecial, idPayload(id), "")
	if err != nil {
		return false, err
	}
	active := false
	c.special.Patch(func(items []device.SpecialEvent) []device.SpecialEvent {
		for i := range items {
			if items[i].ID == id {
				items[i].IsActive = toggled(res, items[i].IsActive)
				active = items[i].IsActive
			}
		}
		return items
	})
	if res.Active != nil {
		active = *res.Active
	}
	c.sink.Notify(notify.Success, activeText("Event", active))
	_ = c.LoadSpecial(ctx)
	return active, nil
}

// ReplaceSpecial submits the whole special event collection.
func (c *Cache) ReplaceSpecial(ctx context.Context, items []device.SpecialEvent) error {
	body := struct {
		Events []device.SpecialEvent `json:"events"`
	}{nonNil(items)}
	if _, err := c.mutate(ctx, device.CmdReplaceSpecial, device.Payload{Body: body}, "Special events saved"); err != nil {
		return err
	}
	c.special.Commit(c.special.Begin(), items)
	c.reconcile(ctx, c.LoadSpecial)
	return nil
}

func (c *Cache) mutate(ctx context.Context, cmd device.Command, p device.Payload, okText string) (device.Result, error) {
	res, err := c.remote.Mutate(ctx, cmd, p)
	if c.observer != nil {
		c.observer.ObserveMutation(string(cmd), err == nil)
	}
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("mutation rejected", "command", cmd, "err", err)
		}
		c.sink.Notify(notify.Error, device.UserMessage(err))
		return res, err
	}
	if okText != "" {
		c.sink.Notify(notify.Success, okText)
	}
	return res, nil
}

func (c *Cache) validateMelody(name string, notes []device.Note) error {
	if strings.TrimSpace(name) == "" {
		return c.validate(&device.ValidationError{Field: "name", Reason: "enter a melody name"})
	}
	if len(notes) == 0 {
		return c.validate(&device.ValidationError{Field: "notes", Reason: "add at least one note"})
	}
	for i, n := range notes {
		if err := n.Validate(); err != nil {
			return c.validate(fmt.Errorf("note %d: %w", i+1, err))
		}
	}
	return nil
}

func (c *Cache) validate(err error) error {
	if err != nil {
		c.sink.Notify(notify.Warning, err.Error())
	}
	return err
}

// reconcile reloads in the background. The load outlives ctx's cancellation
// but is bounded by the reconcile timeout.
func (c *Cache) reconcile(ctx context.Context, loadFn func(context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.reconcileTimeout)
		defer cancel()
		_ = loadFn(rctx)
	}()
}

func (c *Cache) debug(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}

func idPayload(id int) device.Payload {
	return device.Payload{Body: map[string]int{"id": id}}
}

func toggled(res device.Result, current bool) bool {
	if res.Active != nil {
		return *res.Active
	}
	return !current
}

func activeText(kind string, active bool) string {
	if active {
		return kind + " enabled"
	}
	return kind + " disabled"
}

func removeWhere[T any](items []T, match func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if !match(item) {
			out = append(out, item)
		}
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
