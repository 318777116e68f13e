package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/belfry/internal/device"
)

// renderHeader renders the two status lines from the current snapshot.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	if !m.snapshot.HasStatus {
		return styles.Header.Width(m.width).Render(m.connectingLine(styles))
	}
	lines := []string{m.statusLine(styles), m.deviceLine(styles)}
	return styles.Header.Width(m.width).Render(strings.Join(lines, "\n"))
}

func (m Model) connectingLine(styles Styles) string {
	parts := []string{styles.Logo.Render("belfry")}
	if m.snapshot.LastError != nil {
		parts = append(parts,
			styles.DangerText.Render("DEVICE "+classifyError(m.snapshot.LastError)),
			styles.WarningText.Render("Retrying..."),
		)
	} else {
		parts = append(parts, styles.WarningText.Render("Connecting to "+m.deviceURL+"..."))
	}
	return strings.Join(parts, "  ")
}

func (m Model) statusLine(styles Styles) string {
	snap := m.snapshot
	st := snap.Status
	compact := m.width < LayoutCompactWidth

	parts := []string{styles.Logo.Render("belfry")}
	if snap.IsOffline() {
		parts = append(parts, styles.DangerText.Render("● OFFLINE"))
	} else {
		parts = append(parts, styles.SuccessText.Render("● ONLINE"))
	}

	if st.BellsEnabled {
		parts = append(parts, label(styles, "Bells", styles.SuccessText.Render("ON")))
	} else {
		parts = append(parts, label(styles, "Bells", styles.DangerText.Render("OFF")))
	}
	parts = append(parts, label(styles, "Scheduler", styles.Text.Render(onOff(st.SchedulerActive, "active", "idle"))))
	if st.TestMode {
		parts = append(parts, styles.WarningText.Render("TEST MODE"))
	}

	if snap.HasClock {
		parts = append(parts, label(styles, "Clock", styles.Text.Render(snap.Clock.Time+" "+snap.Clock.Date)))
	}

	info := st
	if snap.HasInfo {
		info = snap.Info
	}
	if info.Temperature > 0 {
		temp := fmt.Sprintf("%.1f°C", info.Temperature)
		style := styles.Text
		switch {
		case info.ThermalProtection:
			style = styles.DangerText
			temp += " PROTECT"
		case info.TemperatureWarning:
			style = styles.WarningText
		}
		parts = append(parts, label(styles, "Temp", style.Render(temp)))
	}
	if !compact {
		parts = append(parts, label(styles, "Rings", styles.Text.Render(fmt.Sprintf("%d", st.TotalRings))))
		if st.LastRingTime != nil {
			parts = append(parts, label(styles, "Last", styles.MutedText.Render(st.LastRingTime.Format("02 Jan 15:04"))))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) deviceLine(styles Styles) string {
	snap := m.snapshot
	st := snap.Status
	compact := m.width < LayoutCompactWidth

	network := st.NetworkMode()
	netStyle := styles.Text
	if network == "Disconnected" {
		netStyle = styles.DangerText
	}
	parts := []string{
		label(styles, "Net", netStyle.Render(network)+" "+styles.MutedText.Render(st.IP())),
		label(styles, "NTP", styles.Text.Render(onOff(st.NTPSynced, "synced", "not synced"))),
	}

	tz := st.TimezoneDescription
	if tz == "" {
		tz = "N/A"
	}
	if st.IsDST {
		tz += " (DST)"
	}
	parts = append(parts, label(styles, "TZ", styles.Text.Render(tz)))

	if snap.HasRelay {
		parts = append(parts,
			label(styles, "R1", relayStyle(styles, snap.Relay.Relay1Raw).Render(device.RelayLabel(snap.Relay.Relay1Raw))),
			label(styles, "R2", relayStyle(styles, snap.Relay.Relay2Raw).Render(device.RelayLabel(snap.Relay.Relay2Raw))),
			label(styles, "LED", styles.Text.Render(device.LEDLabel(snap.Relay.StatusLEDRaw))),
		)
	}

	if !compact && snap.HasInfo {
		if v := snap.Info.FirmwareVersion; v != "" {
			parts = append(parts, label(styles, "FW", styles.MutedText.Render(v)))
		}
		if snap.Info.UptimeMS > 0 {
			uptime := time.Duration(snap.Info.UptimeMS) * time.Millisecond
			parts = append(parts, label(styles, "Up", styles.MutedText.Render(uptime.Truncate(time.Minute).String())))
		}
	}

	if snap.LastError != nil {
		parts = append(parts, styles.WarningText.Render(snap.ErrorSection.String()+": "+truncate(classifyError(snap.LastError), 40)))
	}
	return strings.Join(parts, "  ")
}

func label(styles Styles, name, value string) string {
	return styles.FaintText.Render(name+":") + " " + value
}

func relayStyle(styles Styles, raw int) lipgloss.Style {
	if raw == 0 {
		return styles.SuccessText
	}
	return styles.MutedText
}

// classifyError turns a poll error into a short header phrase.
func classifyError(err error) string {
	var transport *device.TransportError
	if errors.As(err, &transport) && transport.Status != 0 {
		return fmt.Sprintf("HTTP %d", transport.Status)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return "UNREACHABLE"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "NO ROUTE"
	case strings.Contains(msg, "decode response"):
		return "BAD RESPONSE"
	default:
		return device.UserMessage(err)
	}
}
