package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// action runs fn off the UI loop with a bounded context.
func (m Model) action(label string, fn func(ctx context.Context) actionMsg) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, actionTimeout)
		defer cancel()
		msg := fn(ctx)
		msg.label = label
		return msg
	}
}

func (m Model) stopCmd() tea.Cmd {
	dev := m.device
	return m.action("Stop", func(ctx context.Context) actionMsg {
		if err := dev.StopMelody(ctx); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: "Melody stopped"}
	})
}

// bellsCmd requests target, which the caller derives from the last status
// snapshot.
func (m Model) bellsCmd(target bool) tea.Cmd {
	dev := m.device
	return m.action("Bells", func(ctx context.Context) actionMsg {
		confirmed, err := dev.SetBells(ctx, target)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: "Bells " + onOff(confirmed, "enabled", "disabled"), bells: &confirmed}
	})
}

func (m Model) emergencyStopCmd() tea.Cmd {
	dev := m.device
	return m.action("Emergency stop", func(ctx context.Context) actionMsg {
		if err := dev.EmergencyStop(ctx); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: "Emergency stop sent"}
	})
}

func (m Model) playCmd(id int) tea.Cmd {
	dev := m.device
	name := m.cache.MelodyLabel(id)
	return m.action("Play", func(ctx context.Context) actionMsg {
		if _, err := dev.PlayMelody(ctx, id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: fmt.Sprintf("Playing %q", name)}
	})
}

func (m Model) toggleCmd(tab Tab, id int) tea.Cmd {
	c := m.cache
	return m.action("Toggle", func(ctx context.Context) actionMsg {
		var err error
		if tab == TabWeekly {
			_, err = c.ToggleWeekly(ctx, id)
		} else {
			_, err = c.ToggleSpecial(ctx, id)
		}
		return actionMsg{err: err, notified: true}
	})
}

func (m Model) reloadCmd() tea.Cmd {
	c := m.cache
	poller := m.poller
	return m.action("Reload", func(ctx context.Context) actionMsg {
		if poller != nil {
			poller.Refresh(ctx)
		}
		if err := c.LoadAll(ctx); err != nil {
			return actionMsg{err: err, notified: true}
		}
		return actionMsg{text: "Reloaded from device"}
	})
}
