package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/editor"
)

var weekdays = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// parseWeekday accepts a day name or 0 (Sunday) to 6.
func parseWeekday(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdays[s]; ok {
		return d, nil
	}
	if d, err := strconv.Atoi(s); err == nil && d >= 0 && d <= 6 {
		return d, nil
	}
	return 0, &device.ValidationError{Field: "day", Reason: fmt.Sprintf("%q is not a weekday", s)}
}

type WeeklyListCmd struct{}

func (w *WeeklyListCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Cache.LoadAll(c.Ctx); err != nil {
		return reported(err)
	}
	items := env.Cache.Weekly()
	if len(items) == 0 {
		c.printf("No weekly schedules\n")
		return nil
	}
	rows := make([][]string, len(items))
	for i, s := range items {
		rows[i] = []string{
			strconv.Itoa(s.ID), s.Name, s.DayLabel(), clock(s.Hour, s.Minute),
			env.Cache.MelodyLabel(s.MelodyIndex), yesNo(s.IsActive),
		}
	}
	c.printf("%s\n", renderTable([]string{"ID", "Name", "Day", "Time", "Melody", "Active"}, rows))
	return nil
}

type WeeklyAddCmd struct {
	Name   string `arg:"" help:"Schedule name."`
	Day    string `arg:"" help:"Weekday name or 0 (Sunday) to 6."`
	At     string `arg:"" help:"Time as HH:MM."`
	Melody int    `arg:"" help:"Melody id to ring."`
}

func (w *WeeklyAddCmd) Run(c *Context) error {
	day, err := parseWeekday(w.Day)
	if err != nil {
		return err
	}
	hour, minute, err := parseClock(w.At)
	if err != nil {
		return err
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	return reported(env.Cache.AddWeekly(c.Ctx, device.WeeklySchedule{
		Name: w.Name, DayOfWeek: day, Hour: hour, Minute: minute, MelodyIndex: w.Melody,
	}))
}

type WeeklyEditCmd struct {
	ID  int      `arg:"" help:"Schedule id."`
	Set []string `arg:"" help:"FIELD=VALUE pairs: name, dayOfWeek, time, melodyIndex, isActive."`
}

func (w *WeeklyEditCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Cache.LoadWeekly(c.Ctx); err != nil {
		return reported(err)
	}
	pos := -1
	for i, s := range env.Cache.Weekly() {
		if s.ID == w.ID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return &device.ValidationError{Field: "id", Reason: fmt.Sprintf("no weekly schedule with id %d", w.ID)}
	}
	sched := editor.NewSchedules(env.Cache)
	rows := sched.WeeklyRows()
	if err := applyFields(&rows[pos], w.Set); err != nil {
		return err
	}
	return reported(sched.SaveWeekly(c.Ctx, rows))
}

type WeeklyToggleCmd struct {
	ID int `arg:"" help:"Schedule id."`
}

func (w *WeeklyToggleCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	_, err = env.Cache.ToggleWeekly(c.Ctx, w.ID)
	return reported(err)
}

type WeeklyDeleteCmd struct {
	ID  int  `arg:"" help:"Schedule id."`
	Yes bool `help:"Skip the confirmation prompt." short:"y"`
}

func (w *WeeklyDeleteCmd) Run(c *Context) error {
	if !w.Yes {
		if ok, err := confirm(c, "Delete schedule", fmt.Sprintf("Delete weekly schedule %d?", w.ID)); !ok {
			return err
		}
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	return reported(env.Cache.DeleteWeekly(c.Ctx, w.ID))
}

type EventListCmd struct{}

func (e *EventListCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Cache.LoadAll(c.Ctx); err != nil {
		return reported(err)
	}
	items := env.Cache.Special()
	if len(items) == 0 {
		c.printf("No special events\n")
		return nil
	}
	rows := make([][]string, len(items))
	for i, ev := range items {
		rows[i] = []string{
			strconv.Itoa(ev.ID), ev.Name, ev.Type.String(),
			fmt.Sprintf("%04d-%02d-%02d", ev.Year, ev.Month, ev.Day), clock(ev.Hour, ev.Minute),
			env.Cache.MelodyLabel(ev.MelodyIndex), yesNo(ev.IsActive), yesNo(ev.IsRecurring),
		}
	}
	c.printf("%s\n", renderTable([]string{"ID", "Name", "Type", "Date", "Time", "Melody", "Active", "Yearly"}, rows))
	return nil
}

type EventAddCmd struct {
	Name      string `arg:"" help:"Event name."`
	Date      string `arg:"" help:"Date as YYYY-MM-DD."`
	At        string `arg:"" help:"Time as HH:MM."`
	Melody    int    `arg:"" help:"Melody id to ring."`
	Type      string `help:"Mass, Angelus, Wedding, Funeral, Feast or Custom." default:"Custom"`
	Recurring bool   `help:"Repeat every year."`
}

func (e *EventAddCmd) Run(c *Context) error {
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(e.Date))
	if err != nil {
		return &device.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", e.Date)}
	}
	hour, minute, err := parseClock(e.At)
	if err != nil {
		return err
	}
	kind, err := device.ParseEventType(e.Type)
	if err != nil {
		return &device.ValidationError{Field: "type", Reason: err.Error()}
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	return reported(env.Cache.AddSpecial(c.Ctx, device.SpecialEvent{
		Name: e.Name, Type: kind,
		Year: day.Year(), Month: int(day.Month()), Day: day.Day(),
		Hour: hour, Minute: minute,
		MelodyIndex: e.Melody, IsRecurring: e.Recurring,
	}))
}

type EventEditCmd struct {
	ID  int      `arg:"" help:"Event id."`
	Set []string `arg:"" help:"FIELD=VALUE pairs: name, type, date, time, melodyIndex, isActive, isRecurring."`
}

func (e *EventEditCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Cache.LoadSpecial(c.Ctx); err != nil {
		return reported(err)
	}
	pos := -1
	for i, ev := range env.Cache.Special() {
		if ev.ID == e.ID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return &device.ValidationError{Field: "id", Reason: fmt.Sprintf("no special event with id %d", e.ID)}
	}
	sched := editor.NewSchedules(env.Cache)
	rows := sched.SpecialRows()
	if err := applyFields(&rows[pos], e.Set); err != nil {
		return err
	}
	return reported(sched.SaveSpecial(c.Ctx, rows))
}

type EventToggleCmd struct {
	ID int `arg:"" help:"Event id."`
}

func (e *EventToggleCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	_, err = env.Cache.ToggleSpecial(c.Ctx, e.ID)
	return reported(err)
}

type EventDeleteCmd struct {
	ID  int  `arg:"" help:"Event id."`
	Yes bool `help:"Skip the confirmation prompt." short:"y"`
}

func (e *EventDeleteCmd) Run(c *Context) error {
	if !e.Yes {
		if ok, err := confirm(c, "Delete event", fmt.Sprintf("Delete special event %d?", e.ID)); !ok {
			return err
		}
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	return reported(env.Cache.DeleteSpecial(c.Ctx, e.ID))
}

// applyFields sets each FIELD=VALUE pair on row.
func applyFields(row *editor.Row, pairs []string) error {
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return &device.ValidationError{Field: "set", Reason: fmt.Sprintf("%q is not FIELD=VALUE", pair)}
		}
		name = strings.TrimSpace(name)
		if name == "type" {
			if kind, err := device.ParseEventType(value); err == nil {
				value = strconv.Itoa(int(kind))
			}
		}
		if name == "dayOfWeek" {
			if day, err := parseWeekday(value); err == nil {
				value = strconv.Itoa(day)
			}
		}
		if err := row.Set(name, value); err != nil {
			return &device.ValidationError{Field: "set", Reason: err.Error()}
		}
	}
	return nil
}
