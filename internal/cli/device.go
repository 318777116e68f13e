package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/five82/belfry/internal/app"
	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/secret"
	"github.com/five82/belfry/internal/state"
)

// relayRefreshDelay is how long after a relay set the relay status is re-read.
const relayRefreshDelay = 500 * time.Millisecond

type DashCmd struct{}

func (d *DashCmd) Run(c *Context) error {
	opts := c.Options
	// The dashboard owns the terminal.
	opts.Console = nil
	return app.Run(c.Ctx, opts)
}

type StatusCmd struct{}

func (s *StatusCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	env.Poller.Refresh(c.Ctx)
	snap := env.Store.Snapshot()
	if !snap.HasStatus {
		if snap.LastError != nil {
			return snap.LastError
		}
		return &device.TransportError{Command: "status", Err: errors.New("no status received")}
	}
	c.printf("%s", formatStatus(env.Client.BaseURL(), snap))
	return nil
}

func formatStatus(base string, snap state.Snapshot) string {
	st := snap.Status
	if snap.HasInfo {
		st.FirmwareVersion = snap.Info.FirmwareVersion
		st.Temperature = snap.Info.Temperature
		st.TemperatureWarning = snap.Info.TemperatureWarning
		st.ThermalProtection = snap.Info.ThermalProtection
	}
	rows := [][]string{
		{"Device", base},
		{"Bells", onOff(st.BellsEnabled)},
		{"Scheduler", onOff(st.SchedulerActive)},
		{"Test mode", onOff(st.TestMode)},
		{"Network", st.NetworkMode() + " " + st.IP()},
		{"NTP synced", yesNo(st.NTPSynced)},
		{"RTC", yesNo(st.RTCConnected)},
		{"Rings", fmt.Sprint(st.TotalRings)},
	}
	if st.LastRingTime != nil {
		rows = append(rows, []string{"Last ring", st.LastRingTime.Format(time.DateTime)})
	}
	if tz := st.TimezoneDescription; tz != "" {
		if st.IsDST {
			tz += " (DST)"
		}
		rows = append(rows, []string{"Timezone", tz})
	}
	if snap.HasClock {
		rows = append(rows, []string{"Clock", snap.Clock.Date + " " + snap.Clock.Time})
	}
	if snap.HasRelay {
		rows = append(rows,
			[]string{"Relay 1", device.RelayLabel(snap.Relay.Relay1Raw)},
			[]string{"Relay 2", device.RelayLabel(snap.Relay.Relay2Raw)},
			[]string{"Status LED", device.LEDLabel(snap.Relay.StatusLEDRaw)},
		)
	}
	if st.Temperature > 0 {
		temp := fmt.Sprintf("%.1f°C", st.Temperature)
		switch {
		case st.ThermalProtection:
			temp += " thermal protection"
		case st.TemperatureWarning:
			temp += " warning"
		}
		rows = append(rows, []string{"Temperature", temp})
	}
	if st.FirmwareVersion != "" {
		rows = append(rows, []string{"Firmware", st.FirmwareVersion})
	}
	if st.UptimeMS > 0 {
		rows = append(rows, []string{"Uptime", (time.Duration(st.UptimeMS) * time.Millisecond).Truncate(time.Second).String()})
	}
	return renderTable([]string{"Field", "Value"}, rows) + "\n"
}

type StopCmd struct{}

func (s *StopCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.StopMelody(c.Ctx); err != nil {
		return err
	}
	c.printf("Melody stopped\n")
	return nil
}

type BellsCmd struct {
	State string `arg:"" optional:"" enum:"on,off,toggle" default:"toggle" help:"on, off or toggle."`
}

func (b *BellsCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	var target bool
	switch b.State {
	case "on":
		target = true
	case "off":
		target = false
	default:
		// The requested state is the opposite of what the device last reported.
		if env.Poller.Poll(c.Ctx, state.SectionStatus) != app.Updated {
			if err := env.Store.Snapshot().LastError; err != nil {
				return err
			}
			return device.ErrRateLimited
		}
		snap := env.Store.Snapshot()
		target = !snap.Status.BellsEnabled
	}
	confirmed, err := env.Client.SetBells(c.Ctx, target)
	if err != nil {
		return err
	}
	env.Store.SetBellsEnabled(confirmed)
	if confirmed {
		c.printf("Bells enabled\n")
	} else {
		c.printf("Bells disabled\n")
	}
	return nil
}

type TestModeCmd struct{}

func (t *TestModeCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	enabled, err := env.Client.ToggleTestMode(c.Ctx)
	if err != nil {
		return err
	}
	c.printf("Test mode %s\n", onOff(enabled))
	return nil
}

type EmergencyStopCmd struct {
	Yes bool `help:"Skip the confirmation prompt." short:"y"`
}

func (e *EmergencyStopCmd) Run(c *Context) error {
	if !e.Yes {
		if ok, err := confirm(c, "Emergency stop", "Halt all bells now?"); !ok {
			return err
		}
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.EmergencyStop(c.Ctx); err != nil {
		return err
	}
	c.printf("Emergency stop sent\n")
	return nil
}

type RelaySetCmd struct {
	Relay int `arg:"" help:"Relay number (1 or 2)."`
	Value int `arg:"" help:"Pin level: 0 is ON, 1 is OFF."`
}

func (r *RelaySetCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.SetRelay(c.Ctx, r.Relay, r.Value); err != nil {
		return err
	}
	c.printf("Relay %d set to %d\n", r.Relay, r.Value)
	if env.Poller.RefreshAfter(c.Ctx, state.SectionRelay, relayRefreshDelay) == app.Updated {
		snap := env.Store.Snapshot()
		c.printf("Relay 1 %s, relay 2 %s\n", device.RelayLabel(snap.Relay.Relay1Raw), device.RelayLabel(snap.Relay.Relay2Raw))
	}
	return nil
}

type RelayTestCmd struct {
	Relay    int `arg:"" help:"Relay number (1 or 2)."`
	Duration int `help:"Pulse length in milliseconds." default:"500"`
}

func (r *RelayTestCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.TestRelay(c.Ctx, r.Relay, r.Duration); err != nil {
		return err
	}
	c.printf("Bell %d rung\n", r.Relay)
	return nil
}

type TimeSetCmd struct {
	At string `arg:"" optional:"" help:"Local time as YYYY-MM-DD HH:MM[:SS]; defaults to now."`
}

func (t *TimeSetCmd) Run(c *Context) error {
	at := c.Now()
	if t.At != "" {
		parsed, err := parseDateTime(t.At)
		if err != nil {
			return err
		}
		at = parsed
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.SetTime(c.Ctx, at); err != nil {
		return err
	}
	c.printf("Device clock set to %s\n", at.Format(time.DateTime))
	return nil
}

func parseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(strings.Replace(value, "T", " ", 1))
	for _, layout := range []string{time.DateTime, "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &device.ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not YYYY-MM-DD HH:MM[:SS]", value)}
}

type TimeSyncCmd struct{}

func (t *TimeSyncCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.ResyncNTP(c.Ctx); err != nil {
		return err
	}
	c.printf("NTP resync requested\n")
	return nil
}

type WiFiCmd struct {
	SSID string `arg:"" optional:"" help:"Network name; prompted when omitted."`
}

func (w *WiFiCmd) Run(c *Context) error {
	ssid := w.SSID
	if ssid == "" {
		var err error
		ssid, err = c.Prompt.Input("Network name", required)
		if done, err := aborted(c, err); done {
			return err
		}
	}
	password, err := c.Prompt.Secret("WiFi password", minLength(device.MinSecretLength))
	if done, err := aborted(c, err); done {
		return err
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.ConfigureWiFi(c.Ctx, ssid, password); err != nil {
		return err
	}
	c.printf("WiFi configured for %s; the device is restarting\n", ssid)
	return nil
}

type PasswordCmd struct{}

func (p *PasswordCmd) Run(c *Context) error {
	current, err := c.Prompt.Secret("Current password", required)
	if done, err := aborted(c, err); done {
		return err
	}
	next, err := c.Prompt.Secret("New password", minLength(device.MinSecretLength))
	if done, err := aborted(c, err); done {
		return err
	}
	again, err := c.Prompt.Secret("Repeat new password", nil)
	if done, err := aborted(c, err); done {
		return err
	}
	if again != next {
		return &device.ValidationError{Field: "password", Reason: "passwords do not match"}
	}

	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.ChangePassword(c.Ctx, current, next); err != nil {
		return err
	}
	env.Client.SetPassword(next)
	if err := secret.Set(env.Config.Device, env.Config.Username, next); err != nil {
		env.Logger.Warn("could not store new password", "err", err)
		c.printf("Password changed, but it could not be saved to the keyring: %v\n", err)
		return nil
	}
	c.printf("Password changed\n")
	return nil
}

type LoginCmd struct{}

func (l *LoginCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	password, err := c.Prompt.Secret(fmt.Sprintf("Password for %s", secret.Account(env.Config.Device, env.Config.Username)), required)
	if done, err := aborted(c, err); done {
		return err
	}
	if err := secret.Set(env.Config.Device, env.Config.Username, password); err != nil {
		return err
	}
	env.Client.SetPassword(password)
	c.printf("Password stored\n")
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	err = secret.Delete(env.Config.Device, env.Config.Username)
	switch {
	case errors.Is(err, secret.ErrNotFound):
		c.printf("No password stored\n")
	case err != nil:
		return err
	default:
		c.printf("Password removed\n")
	}
	return nil
}

type ResetCmd struct {
	Yes bool `help:"Skip the confirmation prompt." short:"y"`
}

func (r *ResetCmd) Run(c *Context) error {
	if !r.Yes {
		if ok, err := confirm(c, "Reset device", "Erase every melody, schedule and event? This cannot be undone."); !ok {
			return err
		}
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Client.ResetAll(c.Ctx); err != nil {
		return err
	}
	c.printf("Device reset\n")
	return nil
}

// aborted reports whether the command should stop after a prompt. An abort
// prints a notice and is not an error.
func aborted(c *Context, err error) (bool, error) {
	if errors.Is(err, ErrCancelled) {
		c.printf("Cancelled\n")
		return true, nil
	}
	return err != nil, err
}

// confirm asks a yes/no question. A declined or aborted prompt prints a notice
// and returns false with a nil error.
func confirm(c *Context, title, description string) (bool, error) {
	ok, err := c.Prompt.Confirm(title, description)
	if done, err := aborted(c, err); done {
		return false, err
	}
	if !ok {
		c.printf("Cancelled\n")
	}
	return ok, nil
}
