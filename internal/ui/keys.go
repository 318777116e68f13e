package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the dashboard.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	Melodies   key.Binding
	Weekly     key.Binding
	Special    key.Binding
	Log        key.Binding
	Reload     key.Binding

	// Device control
	Stop      key.Binding
	Bells     key.Binding
	Emergency key.Binding
	Confirm   key.Binding

	// Rows
	Up     key.Binding
	Down   key.Binding
	Play   key.Binding
	Toggle key.Binding

	// Log tab
	LogLevel key.Binding
}

// defaultKeyMap returns the default key bindings.
func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous tab"),
		),
		Melodies: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Melodies"),
		),
		Weekly: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Weekly schedules"),
		),
		Special: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Special events"),
		),
		Log: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Log"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload from device"),
		),

		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Stop melody"),
		),
		Bells: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Bells on/off"),
		),
		Emergency: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Emergency stop"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Confirm"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Play: key.NewBinding(
			key.WithKeys("p", "enter"),
			key.WithHelp("p", "Play melody"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "a"),
			key.WithHelp("space", "Toggle active"),
		),

		LogLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle log level"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Bells, k.Emergency, k.Play, k.Toggle, k.Reload, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Melodies, k.Weekly, k.Special, k.Log},
		{k.Up, k.Down, k.Play, k.Toggle, k.LogLevel},
		{k.Stop, k.Bells, k.Emergency, k.Reload},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
