package editor

import (
	"context"
	"time"

	"github.com/five82/belfry/internal/device"
)

// ScheduleStore holds the schedule collections. *cache.Cache implements it.
type ScheduleStore interface {
	Weekly() []device.WeeklySchedule
	Special() []device.SpecialEvent
	ReplaceWeekly(ctx context.Context, items []device.WeeklySchedule) error
	ReplaceSpecial(ctx context.Context, items []device.SpecialEvent) error
}

// Schedules edits whole schedule collections through rendered rows.
type Schedules struct {
	store ScheduleStore
	now   func() time.Time
}

// NewSchedules returns an editor over store.
func NewSchedules(store ScheduleStore) *Schedules {
	return &Schedules{store: store, now: time.Now}
}

// WeeklyRows renders the cached weekly schedules.
func (s *Schedules) WeeklyRows() []Row {
	items := s.store.Weekly()
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = WeeklyRow(item)
	}
	return rows
}

// SpecialRows renders the cached special events.
func (s *Schedules) SpecialRows() []Row {
	items := s.store.Special()
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = SpecialRow(item)
	}
	return rows
}

// SaveWeekly merges rows over the cached weekly schedules and submits the
// result as one replace.
func (s *Schedules) SaveWeekly(ctx context.Context, rows []Row) error {
	return s.store.ReplaceWeekly(ctx, ReconstructWeekly(s.store.Weekly(), rows))
}

// SaveSpecial merges rows over the cached special events and submits the
// result as one replace.
func (s *Schedules) SaveSpecial(ctx context.Context, rows []Row) error {
	return s.store.ReplaceSpecial(ctx, ReconstructSpecial(s.store.Special(), rows, s.now()))
}
