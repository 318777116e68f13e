package editor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/five82/belfry/internal/device"
)

// FieldKind is the input control a field is rendered with.
type FieldKind int

const (
	Text FieldKind = iota
	Number
	Checkbox
)

// Field is one editable value of a rendered row.
type Field struct {
	Name    string
	Kind    FieldKind
	Value   string
	Checked bool
}

// Row is the editable rendering of one schedule or event.
type Row struct {
	Fields []Field
}

// Get returns the named field.
func (r Row) Get(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Set changes the value of the named field. For checkboxes any of
// true/1/yes/on checks the box.
func (r *Row) Set(name, value string) error {
	for i := range r.Fields {
		if r.Fields[i].Name != name {
			continue
		}
		if r.Fields[i].Kind == Checkbox {
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "true", "1", "yes", "on":
				r.Fields[i].Checked = true
			default:
				r.Fields[i].Checked = false
			}
			return nil
		}
		r.Fields[i].Value = value
		return nil
	}
	return fmt.Errorf("row has no field %q", name)
}

// WeeklyRow renders s as an editable row.
func WeeklyRow(s device.WeeklySchedule) Row {
	return Row{Fields: []Field{
		{Name: "name", Kind: Text, Value: s.Name},
		{Name: "dayOfWeek", Kind: Number, Value: strconv.Itoa(s.DayOfWeek)},
		{Name: "time", Kind: Text, Value: fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)},
		{Name: "melodyIndex", Kind: Number, Value: strconv.Itoa(s.MelodyIndex)},
		{Name: "isActive", Kind: Checkbox, Checked: s.IsActive},
	}}
}

// SpecialRow renders e as an editable row.
func SpecialRow(e device.SpecialEvent) Row {
	return Row{Fields: []Field{
		{Name: "name", Kind: Text, Value: e.Name},
		{Name: "type", Kind: Number, Value: strconv.Itoa(int(e.Type))},
		{Name: "date", Kind: Text, Value: fmt.Sprintf("%04d-%02d-%02d", e.Year, e.Month, e.Day)},
		{Name: "time", Kind: Text, Value: fmt.Sprintf("%02d:%02d", e.Hour, e.Minute)},
		{Name: "melodyIndex", Kind: Number, Value: strconv.Itoa(e.MelodyIndex)},
		{Name: "isActive", Kind: Checkbox, Checked: e.IsActive},
		{Name: "isRecurring", Kind: Checkbox, Checked: e.IsRecurring},
	}}
}

// ReconstructWeekly rebuilds a weekly collection from rows. Row i starts from
// a copy of prev[i] (or a zero schedule past the end of prev) and every field
// present in the row overwrites the matching entity field.
func ReconstructWeekly(prev []device.WeeklySchedule, rows []Row) []device.WeeklySchedule {
	out := make([]device.WeeklySchedule, 0, len(rows))
	for i, row := range rows {
		var s device.WeeklySchedule
		if i < len(prev) {
			s = prev[i].Clone()
		}
		for _, f := range row.Fields {
			switch f.Name {
			case "time":
				s.Hour, s.Minute = splitClock(f.Value)
			case "name":
				s.Name = f.Value
			case "isActive":
				s.IsActive = f.Checked
			case "id":
				s.ID = leadingInt(f.Value, 0)
			case "dayOfWeek":
				s.DayOfWeek = leadingInt(f.Value, 0)
			case "hour":
				s.Hour = leadingInt(f.Value, 0)
			case "minute":
				s.Minute = leadingInt(f.Value, 0)
			case "melodyIndex":
				s.MelodyIndex = leadingInt(f.Value, 0)
			}
		}
		out = append(out, s)
	}
	return out
}

// ReconstructSpecial rebuilds a special event collection from rows. An
// unparseable date component falls back to now's year, January, or the 1st.
func ReconstructSpecial(prev []device.SpecialEvent, rows []Row, now time.Time) []device.SpecialEvent {
	out := make([]device.SpecialEvent, 0, len(rows))
	for i, row := range rows {
		var e device.SpecialEvent
		if i < len(prev) {
			e = prev[i].Clone()
		}
		for _, f := range row.Fields {
			switch f.Name {
			case "date":
				parts := strings.SplitN(f.Value, "-", 3)
				e.Year = leadingInt(part(parts, 0), now.Year())
				e.Month = leadingInt(part(parts, 1), 1)
				e.Day = leadingInt(part(parts, 2), 1)
			case "time":
				e.Hour, e.Minute = splitClock(f.Value)
			case "name":
				e.Name = f.Value
			case "type":
				e.Type = device.EventType(leadingInt(f.Value, 0))
			case "isActive":
				e.IsActive = f.Checked
			case "isRecurring":
				e.IsRecurring = f.Checked
			case "id":
				e.ID = leadingInt(f.Value, 0)
			case "year":
				e.Year = leadingInt(f.Value, 0)
			case "month":
				e.Month = leadingInt(f.Value, 0)
			case "day":
				e.Day = leadingInt(f.Value, 0)
			case "hour":
				e.Hour = leadingInt(f.Value, 0)
			case "minute":
				e.Minute = leadingInt(f.Value, 0)
			case "melodyIndex":
				e.MelodyIndex = leadingInt(f.Value, 0)
			}
		}
		out = append(out, e)
	}
	return out
}

func splitClock(value string) (int, int) {
	parts := strings.SplitN(value, ":", 2)
	return leadingInt(part(parts, 0), 0), leadingInt(part(parts, 1), 0)
}

func part(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// leadingInt parses an optional sign and the leading digits of s. A string
// with no digits, or one that parses to zero, yields fallback.
func leadingInt(s string, fallback int) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return fallback
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n == 0 {
		return fallback
	}
	return n
}
