package device

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const deviceTimestampLayout = "2006-01-02 15:04:05"

// Note bounds enforced by the firmware.
const (
	MinNoteDuration = 100
	MaxNoteDuration = 2000
	MinNoteDelay    = 50
	MaxNoteDelay    = 5000
)

// Note is a single bell strike within a melody.
type Note struct {
	BellNumber int `json:"bellNumber"`
	DurationMS int `json:"duration"`
	DelayMS    int `json:"delay"`
}

// Validate checks the note against the firmware bounds.
func (n Note) Validate() error {
	switch {
	case n.BellNumber != 1 && n.BellNumber != 2:
		return &ValidationError{Field: "bellNumber", Reason: fmt.Sprintf("bell must be 1 or 2, got %d", n.BellNumber)}
	case n.DurationMS < MinNoteDuration || n.DurationMS > MaxNoteDuration:
		return &ValidationError{Field: "duration", Reason: fmt.Sprintf("duration must be %d-%d ms, got %d", MinNoteDuration, MaxNoteDuration, n.DurationMS)}
	case n.DelayMS < MinNoteDelay || n.DelayMS > MaxNoteDelay:
		return &ValidationError{Field: "delay", Reason: fmt.Sprintf("delay must be %d-%d ms, got %d", MinNoteDelay, MaxNoteDelay, n.DelayMS)}
	}
	return nil
}

// Melody mirrors an entry of /api/melodies. The list endpoint omits notes;
// /api/melody?index= returns them.
type Melody struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Notes      []Note `json:"notes,omitempty"`
	NoteCount  int    `json:"noteCount"`
	DurationMS int    `json:"duration"`
	IsActive   bool   `json:"isActive"`
}

// Clone returns a copy that shares no slices with m.
func (m Melody) Clone() Melody {
	if m.Notes != nil {
		notes := make([]Note, len(m.Notes))
		copy(notes, m.Notes)
		m.Notes = notes
	}
	return m
}

// TotalDurationMS sums duration and delay over notes.
func TotalDurationMS(notes []Note) int {
	total := 0
	for _, n := range notes {
		total += n.DurationMS + n.DelayMS
	}
	return total
}

// MelodyDetail mirrors /api/melody?index=.
type MelodyDetail struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	NoteCount int    `json:"noteCount"`
	Notes     []Note `json:"notes"`
}

// WeeklySchedule is a recurring weekly ring.
type WeeklySchedule struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DayOfWeek   int    `json:"dayOfWeek"`
	Hour        int    `json:"hour"`
	Minute      int    `json:"minute"`
	MelodyIndex int    `json:"melodyIndex"`
	IsActive    bool   `json:"isActive"`
}

// Clone returns a copy of w.
func (w WeeklySchedule) Clone() WeeklySchedule { return w }

// Validate checks the fields a new schedule must carry.
func (w WeeklySchedule) Validate() error {
	switch {
	case strings.TrimSpace(w.Name) == "":
		return &ValidationError{Field: "name", Reason: "name is required"}
	case w.DayOfWeek < 0 || w.DayOfWeek > 6:
		return &ValidationError{Field: "dayOfWeek", Reason: "day must be 0 (Sunday) to 6"}
	case w.MelodyIndex < 0:
		return &ValidationError{Field: "melodyIndex", Reason: "select a melody"}
	}
	return validateClock(w.Hour, w.Minute)
}

var weekdayShort = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DayLabel returns the short weekday name or "?" when out of range.
func (w WeeklySchedule) DayLabel() string {
	if w.DayOfWeek < 0 || w.DayOfWeek >= len(weekdayShort) {
		return "?"
	}
	return weekdayShort[w.DayOfWeek]
}

// EventType classifies a special event.
type EventType int

const (
	EventMass EventType = iota
	EventAngelus
	EventWedding
	EventFuneral
	EventFeast
	EventCustom
)

var eventTypeNames = [...]string{"Mass", "Angelus", "Wedding", "Funeral", "Feast", "Custom"}

func (t EventType) String() string {
	if t < 0 || int(t) >= len(eventTypeNames) {
		return "Unknown"
	}
	return eventTypeNames[t]
}

// ParseEventType accepts a name (case-insensitive) or the numeric wire value.
func ParseEventType(s string) (EventType, error) {
	trimmed := strings.TrimSpace(s)
	for i, name := range eventTypeNames {
		if strings.EqualFold(trimmed, name) || trimmed == fmt.Sprint(i) {
			return EventType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// SpecialEvent is a dated ring, optionally recurring every year.
type SpecialEvent struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Type        EventType `json:"type"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Day         int       `json:"day"`
	Hour        int       `json:"hour"`
	Minute      int       `json:"minute"`
	MelodyIndex int       `json:"melodyIndex"`
	IsActive    bool      `json:"isActive"`
	IsRecurring bool      `json:"isRecurring"`
}

// Clone returns a copy of e.
func (e SpecialEvent) Clone() SpecialEvent { return e }

// Validate checks the fields a new event must carry.
func (e SpecialEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return &ValidationError{Field: "name", Reason: "name is required"}
	case e.Type < EventMass || e.Type > EventCustom:
		return &ValidationError{Field: "type", Reason: "unknown event type"}
	case e.MelodyIndex < 0:
		return &ValidationError{Field: "melodyIndex", Reason: "select a melody"}
	case e.Year < 2000 || e.Year > 2099:
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("year %d out of range", e.Year)}
	}
	day := time.Date(e.Year, time.Month(e.Month), e.Day, 0, 0, 0, 0, time.UTC)
	if e.Month < 1 || e.Month > 12 || e.Day < 1 || day.Day() != e.Day {
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("%04d-%02d-%02d is not a valid date", e.Year, e.Month, e.Day)}
	}
	return validateClock(e.Hour, e.Minute)
}

func validateClock(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return &ValidationError{Field: "time", Reason: fmt.Sprintf("%02d:%02d is not a valid time", hour, minute)}
	}
	return nil
}

// SystemStatus mirrors /api/status.
type SystemStatus struct {
	WifiConnected       bool
	RTCConnected        bool
	BellsEnabled        bool
	SchedulerActive     bool
	TestMode            bool
	TotalRings          int
	LastRingTime        *time.Time
	APMode              bool
	WifiIP              string
	APIP                string
	NTPSynced           bool
	TimezoneDescription string
	IsDST               bool
	FirmwareVersion     string
	UptimeMS            int64
	BootEpoch           int64
	Temperature         float64
	TemperatureStatus   string
	TemperatureWarning  bool
	ThermalProtection   bool
}

type statusWire struct {
	WifiConnected       bool            `json:"wifiConnected"`
	RTCConnected        bool            `json:"rtcConnected"`
	BellsEnabled        bool            `json:"bellsEnabled"`
	SchedulerActive     bool            `json:"schedulerActive"`
	TestMode            bool            `json:"testMode"`
	TotalRings          *int            `json:"totalRings"`
	TotalBellRings      int             `json:"totalBellRings"`
	LastRingTime        json.RawMessage `json:"lastRingTime"`
	LastBellTime        int64           `json:"lastBellTime"`
	APMode              bool            `json:"apMode"`
	WifiIP              string          `json:"wifiIP"`
	APIP                string          `json:"apIP"`
	NTPSynced           bool            `json:"ntpSynced"`
	TimezoneDescription string          `json:"timezoneDescription"`
	IsDST               bool            `json:"isDST"`
	FirmwareVersion     string          `json:"firmwareVersion"`
	UptimeMS            int64           `json:"uptimeMs"`
	BootEpoch           int64           `json:"bootEpoch"`
	Temperature         float64         `json:"esp32Temperature"`
	TemperatureStatus   string          `json:"temperatureStatus"`
	TemperatureWarning  bool            `json:"temperatureWarning"`
	ThermalProtection   bool            `json:"thermalProtection"`
}

// UnmarshalJSON accepts both the documented field names and the ones the
// firmware emits (totalBellRings, lastBellTime as uptime milliseconds).
func (s *SystemStatus) UnmarshalJSON(data []byte) error {
	var w statusWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = SystemStatus{
		WifiConnected:       w.WifiConnected,
		RTCConnected:        w.RTCConnected,
		BellsEnabled:        w.BellsEnabled,
		SchedulerActive:     w.SchedulerActive,
		TestMode:            w.TestMode,
		TotalRings:          w.TotalBellRings,
		APMode:              w.APMode,
		WifiIP:              w.WifiIP,
		APIP:                w.APIP,
		NTPSynced:           w.NTPSynced,
		TimezoneDescription: w.TimezoneDescription,
		IsDST:               w.IsDST,
		FirmwareVersion:     w.FirmwareVersion,
		UptimeMS:            w.UptimeMS,
		BootEpoch:           w.BootEpoch,
		Temperature:         w.Temperature,
		TemperatureStatus:   w.TemperatureStatus,
		TemperatureWarning:  w.TemperatureWarning,
		ThermalProtection:   w.ThermalProtection,
	}
	if w.TotalRings != nil {
		s.TotalRings = *w.TotalRings
	}
	if t := parseRingTime(w.LastRingTime); !t.IsZero() {
		s.LastRingTime = &t
	} else if w.LastBellTime > 0 && w.BootEpoch > 0 {
		t := time.Unix(w.BootEpoch, 0).Add(time.Duration(w.LastBellTime) * time.Millisecond)
		s.LastRingTime = &t
	}
	return nil
}

// NetworkMode describes how the device is reachable.
func (s SystemStatus) NetworkMode() string {
	switch {
	case s.APMode:
		return "Access Point"
	case s.WifiConnected:
		return "WiFi"
	default:
		return "Disconnected"
	}
}

// IP returns the address matching the current network mode.
func (s SystemStatus) IP() string {
	ip := ""
	switch {
	case s.APMode:
		ip = s.APIP
	case s.WifiConnected:
		ip = s.WifiIP
	}
	if ip == "" {
		return "N/A"
	}
	return ip
}

// RelayStatus mirrors /api/relay-status. Relays are active low.
type RelayStatus struct {
	Relay1Raw    int  `json:"relay1_raw"`
	Relay2Raw    int  `json:"relay2_raw"`
	StatusLEDRaw int  `json:"statusLed_raw"`
	Enabled      bool `json:"enabled"`
}

// RelayLabel renders a relay pin level.
func RelayLabel(raw int) string {
	if raw == 0 {
		return "ON (0V)"
	}
	return "OFF (3.3V)"
}

// LEDLabel renders the status LED pin level.
func LEDLabel(raw int) string {
	if raw == 1 {
		return "ON (3.3V)"
	}
	return "OFF (0V)"
}

// Clock mirrors /api/time.
type Clock struct {
	Time string `json:"time"`
	Date string `json:"date"`
}

// Parsed returns the device wall clock in loc, or zero when the device has
// not got a valid time yet.
func (c Clock) Parsed(loc *time.Location) time.Time {
	t, err := time.ParseInLocation("02/01/2006 15:04:05", c.Date+" "+c.Time, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Result is the generic confirmation body returned by mutating endpoints.
type Result struct {
	Success  *bool  `json:"success"`
	Message  string `json:"message"`
	Enabled  *bool  `json:"enabled"`
	Active   *bool  `json:"active"`
	TestMode *bool  `json:"testMode"`
}

// OK reports whether the payload carried success:true.
func (r Result) OK() bool {
	return r.Success != nil && *r.Success
}

func parseRingTime(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseTime(s)
	}
	var epoch int64
	if err := json.Unmarshal(raw, &epoch); err == nil && epoch > 0 {
		return time.Unix(epoch, 0)
	}
	return time.Time{}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(deviceTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
