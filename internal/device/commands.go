package device

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MinSecretLength is the shortest WiFi key or admin password accepted locally.
const MinSecretLength = 8

// DefaultRelayTestMS is the pulse length used when none is given.
const DefaultRelayTestMS = 500

// FetchStatus retrieves /api/status.
func (c *Client) FetchStatus(ctx context.Context) (*SystemStatus, error) {
	var payload SystemStatus
	if err := c.getJSON(ctx, &url.URL{Path: "/api/status"}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchRelayStatus retrieves /api/relay-status.
func (c *Client) FetchRelayStatus(ctx context.Context) (*RelayStatus, error) {
	var payload RelayStatus
	if err := c.getJSON(ctx, &url.URL{Path: "/api/relay-status"}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchClock retrieves /api/time.
func (c *Client) FetchClock(ctx context.Context) (*Clock, error) {
	var payload Clock
	if err := c.getJSON(ctx, &url.URL{Path: "/api/time"}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchCollection returns the undecoded body of a collection endpoint.
func (c *Client) FetchCollection(ctx context.Context, path string) (json.RawMessage, error) {
	data, err := c.getRaw(ctx, &url.URL{Path: path})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// FetchMelody retrieves the notes of the melody stored at index.
func (c *Client) FetchMelody(ctx context.Context, index int) (MelodyDetail, error) {
	values := url.Values{}
	values.Set("index", strconv.Itoa(index))
	var payload MelodyDetail
	if err := c.getJSON(ctx, &url.URL{Path: "/api/melody", RawQuery: values.Encode()}, &payload); err != nil {
		return MelodyDetail{}, err
	}
	return payload, nil
}

// Backup downloads the device backup blob.
func (c *Client) Backup(ctx context.Context) ([]byte, error) {
	return c.getRaw(ctx, &url.URL{Path: "/api/backup"})
}

// PlayMelody starts the stored melody id.
func (c *Client) PlayMelody(ctx context.Context, id int) (Result, error) {
	return c.Mutate(ctx, CmdTestMelody, Payload{Body: map[string]int{"melodyId": id}})
}

// TestNotes plays an ad hoc note sequence without storing it.
func (c *Client) TestNotes(ctx context.Context, notes []Note) (Result, error) {
	if len(notes) == 0 {
		return Result{}, &ValidationError{Field: "notes", Reason: "add at least one note"}
	}
	return c.Control(ctx, CmdTestMelody, Payload{Body: struct {
		Notes []Note `json:"notes"`
	}{notes}})
}

// StopMelody stops playback, falling back to GET when POST is rejected.
func (c *Client) StopMelody(ctx context.Context) error {
	_, err := c.Control(ctx, CmdStopMelody, Payload{})
	return err
}

// SetBells enables or disables the bells and returns the confirmed state.
func (c *Client) SetBells(ctx context.Context, enabled bool) (bool, error) {
	flag := "0"
	if enabled {
		flag = "1"
	}
	resp, err := c.Send(ctx, CmdToggleBells, Payload{
		Body:  map[string]bool{"enabled": enabled},
		Query: url.Values{"enabled": []string{flag}},
	})
	if err != nil {
		return false, err
	}
	res, err := resp.Result()
	if err != nil {
		return false, &BusinessError{Command: CmdToggleBells}
	}
	if res.OK() || (res.Enabled != nil && *res.Enabled == enabled) {
		return enabled, nil
	}
	return false, &BusinessError{Command: CmdToggleBells, Message: res.Message}
}

// ToggleTestMode flips test mode and returns the new state.
func (c *Client) ToggleTestMode(ctx context.Context) (bool, error) {
	res, err := c.Control(ctx, CmdToggleTestMode, Payload{})
	if err != nil {
		return false, err
	}
	return res.TestMode != nil && *res.TestMode, nil
}

// SetRelay drives a relay pin directly. Relays are active low: 0 is ON.
func (c *Client) SetRelay(ctx context.Context, relay, value int) error {
	if err := validateRelay(relay); err != nil {
		return err
	}
	if value != 0 && value != 1 {
		return &ValidationError{Field: "value", Reason: "value must be 0 or 1"}
	}
	_, err := c.Mutate(ctx, CmdSetRelay, Payload{Query: url.Values{
		"relay": []string{strconv.Itoa(relay)},
		"value": []string{strconv.Itoa(value)},
	}})
	return err
}

// TestRelay pulses a relay for durationMS milliseconds.
func (c *Client) TestRelay(ctx context.Context, relay, durationMS int) error {
	if err := validateRelay(relay); err != nil {
		return err
	}
	if durationMS <= 0 {
		durationMS = DefaultRelayTestMS
	}
	_, err := c.Mutate(ctx, CmdTestRelay, Payload{Query: url.Values{
		"relay":    []string{strconv.Itoa(relay)},
		"duration": []string{strconv.Itoa(durationMS)},
	}})
	return err
}

// EmergencyStop halts all bells. Any 2xx confirms it.
func (c *Client) EmergencyStop(ctx context.Context) error {
	_, err := c.Send(ctx, CmdEmergencyStop, Payload{})
	return err
}

// ChangePassword replaces the device admin password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" || next == "" {
		return &ValidationError{Field: "password", Reason: "both current and new password are required"}
	}
	if len(next) < MinSecretLength {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("new password must be at least %d characters", MinSecretLength)}
	}
	_, err := c.Mutate(ctx, CmdChangePassword, Payload{Body: struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}{current, next}})
	return err
}

type legacyTime struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// SetTime sets the device clock to t's wall-clock fields. The ISO form is
// tried first, then the legacy field-by-field body.
func (c *Client) SetTime(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		return &ValidationError{Field: "time", Reason: "date and time are required"}
	}
	_, err := c.Mutate(ctx, CmdSetTime, Payload{
		Body: map[string]string{"dateTime": t.Format("2006-01-02T15:04:05")},
		Fallback: legacyTime{
			Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
			Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
		},
	})
	return err
}

// ConfigureWiFi stores new station credentials. The device reboots on success.
func (c *Client) ConfigureWiFi(ctx context.Context, ssid, password string) error {
	ssid = strings.TrimSpace(ssid)
	if ssid == "" {
		return &ValidationError{Field: "ssid", Reason: "network name is required"}
	}
	if len(password) < MinSecretLength {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("password must be at least %d characters", MinSecretLength)}
	}
	_, err := c.Mutate(ctx, CmdConfigureWiFi, Payload{Body: struct {
		SSID     string `json:"ssid"`
		Password string `json:"password"`
	}{ssid, password}})
	return err
}

// ResyncNTP asks the device to resynchronize with its NTP server.
func (c *Client) ResyncNTP(ctx context.Context) error {
	_, err := c.Control(ctx, CmdResyncNTP, Payload{})
	return err
}

// Restore uploads a backup blob previously produced by Backup.
func (c *Client) Restore(ctx context.Context, blob []byte) error {
	if !json.Valid(blob) {
		return &ValidationError{Field: "backup", Reason: "backup is not valid JSON"}
	}
	_, err := c.Mutate(ctx, CmdRestore, Payload{Raw: blob})
	return err
}

// ResetAll erases every melody, schedule and event on the device.
func (c *Client) ResetAll(ctx context.Context) error {
	_, err := c.Mutate(ctx, CmdResetAll, Payload{})
	return err
}

func validateRelay(relay int) error {
	if relay < 1 || relay > 2 {
		return &ValidationError{Field: "relay", Reason: "relay must be 1 or 2"}
	}
	return nil
}
