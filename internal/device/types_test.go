package device

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestSystemStatus_FirmwareFieldNames(t *testing.T) {
	raw := `{"wifiConnected":true,"bellsEnabled":true,"totalBellRings":42,
		"lastBellTime":60000,"bootEpoch":1700000000,"wifiIP":"10.0.0.9",
		"timezoneDescription":"Italia UTC+1 (Ora Solare)"}`
	var s SystemStatus
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if s.TotalRings != 42 {
		t.Fatalf("TotalRings = %d, want 42", s.TotalRings)
	}
	if s.LastRingTime == nil || !s.LastRingTime.Equal(time.Unix(1700000060, 0)) {
		t.Fatalf("LastRingTime = %v, want boot+60s", s.LastRingTime)
	}
	if s.NetworkMode() != "WiFi" || s.IP() != "10.0.0.9" {
		t.Fatalf("NetworkMode/IP = %s/%s", s.NetworkMode(), s.IP())
	}
}

func TestSystemStatus_DocumentedFieldNames(t *testing.T) {
	raw := `{"totalRings":7,"lastRingTime":"2025-12-13T10:11:12Z","apMode":true,"apIP":"192.168.4.1"}`
	var s SystemStatus
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if s.TotalRings != 7 {
		t.Fatalf("TotalRings = %d, want 7", s.TotalRings)
	}
	if s.LastRingTime == nil || s.LastRingTime.UTC().Hour() != 10 {
		t.Fatalf("LastRingTime = %v, want 10:11:12Z", s.LastRingTime)
	}
	if s.NetworkMode() != "Access Point" || s.IP() != "192.168.4.1" {
		t.Fatalf("NetworkMode/IP = %s/%s", s.NetworkMode(), s.IP())
	}

	var empty SystemStatus
	if err := json.Unmarshal([]byte(`{"lastRingTime":null}`), &empty); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if empty.LastRingTime != nil || empty.IP() != "N/A" || empty.NetworkMode() != "Disconnected" {
		t.Fatalf("empty status = %+v", empty)
	}
}

func TestNoteValidate(t *testing.T) {
	cases := []struct {
		name  string
		note  Note
		field string
	}{
		{"ok", Note{1, 500, 1000}, ""},
		{"bell", Note{3, 500, 1000}, "bellNumber"},
		{"short", Note{2, 99, 1000}, "duration"},
		{"long", Note{2, 2001, 1000}, "duration"},
		{"delay low", Note{1, 100, 49}, "delay"},
		{"delay high", Note{1, 2000, 5001}, "delay"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.note.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("Validate = %v, want nil", err)
				}
				return
			}
			var val *ValidationError
			if !errors.As(err, &val) || val.Field != tc.field {
				t.Fatalf("Validate = %v, want field %s", err, tc.field)
			}
		})
	}
}

func TestMelodyCloneIsIndependent(t *testing.T) {
	m := Melody{ID: 1, Notes: []Note{{1, 300, 700}}}
	c := m.Clone()
	c.Notes[0].BellNumber = 2
	if m.Notes[0].BellNumber != 1 {
		t.Fatalf("Clone shares notes with original")
	}
	if TotalDurationMS(m.Notes) != 1000 {
		t.Fatalf("TotalDurationMS = %d, want 1000", TotalDurationMS(m.Notes))
	}
}

func TestEventTypeParseAndString(t *testing.T) {
	if EventFuneral.String() != "Funeral" || EventType(9).String() != "Unknown" {
		t.Fatalf("EventType.String mismatch")
	}
	for _, in := range []string{"wedding", "2", " Wedding "} {
		got, err := ParseEventType(in)
		if err != nil || got != EventWedding {
			t.Fatalf("ParseEventType(%q) = %v, %v; want Wedding", in, got, err)
		}
	}
	if _, err := ParseEventType("party"); err == nil {
		t.Fatalf("ParseEventType(party) returned nil error")
	}
}

func TestLabels(t *testing.T) {
	if RelayLabel(0) != "ON (0V)" || RelayLabel(1) != "OFF (3.3V)" {
		t.Fatalf("RelayLabel mismatch")
	}
	if LEDLabel(1) != "ON (3.3V)" || LEDLabel(0) != "OFF (0V)" {
		t.Fatalf("LEDLabel mismatch")
	}
	if (WeeklySchedule{DayOfWeek: 0}).DayLabel() != "Sun" || (WeeklySchedule{DayOfWeek: 7}).DayLabel() != "?" {
		t.Fatalf("DayLabel mismatch")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(&BusinessError{Command: CmdSaveMelody}); got != GenericFailure {
		t.Fatalf("UserMessage(empty business) = %q", got)
	}
	if got := UserMessage(&BusinessError{Message: "full"}); got != "full" {
		t.Fatalf("UserMessage(business) = %q", got)
	}
	if got := UserMessage(&TransportError{Status: 500}); got != CommunicationFailure {
		t.Fatalf("UserMessage(transport) = %q", got)
	}
}
