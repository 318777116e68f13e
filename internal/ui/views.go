package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/logtail"
)

func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	parts := make([]string, 0, len(tabTitles)+1)
	for i, title := range tabTitles {
		text := fmt.Sprintf("%d %s", i+1, title)
		if Tab(i) == m.tab {
			parts = append(parts, styles.TabActive.Render(text))
		} else {
			parts = append(parts, styles.TabIdle.Render(text))
		}
	}
	if m.tab == TabLog {
		parts = append(parts, styles.FaintText.Render("level ≥ "+m.logMin.String()))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderBody() string {
	if m.tab == TabLog {
		if len(m.logEntries) == 0 {
			return m.theme.Styles().MutedText.Render("No log lines yet.")
		}
		return m.logs.View()
	}
	if len(m.rowIDs) == 0 {
		return m.theme.Styles().MutedText.Render("Nothing loaded. Press r to reload from the device.")
	}
	return m.table.View()
}

func (m Model) renderToast() string {
	styles := m.theme.Styles()
	if m.confirmEmergency {
		return styles.DangerText.Render("Emergency stop: halt all bells now? y to confirm, any other key cancels")
	}
	var prefix string
	if m.pending > 0 {
		prefix = styles.AccentText.Render("working... ")
	}
	if m.feed == nil {
		return prefix
	}
	msg, ok := m.feed.Latest()
	if !ok || m.now().Sub(msg.At) > ToastTTL {
		return prefix
	}
	return prefix + styles.NotifyStyle(msg.Level).Render(truncate(msg.Text, m.width-12))
}

func (m Model) renderFooter() string {
	return m.theme.Styles().Footer.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

// rebuildTable refreshes columns and rows for the current tab from the cache.
func (m *Model) rebuildTable() {
	if m.cache == nil || m.tab == TabLog {
		m.rowIDs = nil
		return
	}
	cols, rows, ids := m.tableData()
	cursor := m.table.Cursor()
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.rowIDs = ids
	if len(rows) == 0 {
		return
	}
	m.table.SetCursor(min(max(cursor, 0), len(rows)-1))
}

func (m Model) tableData() ([]table.Column, []table.Row, []int) {
	name := m.nameWidth()
	switch m.tab {
	case TabWeekly:
		items := m.cache.Weekly()
		cols := []table.Column{
			{Title: "ID", Width: 4},
			{Title: "Name", Width: name},
			{Title: "Day", Width: 5},
			{Title: "Time", Width: 6},
			{Title: "Melody", Width: name},
			{Title: "Active", Width: 7},
		}
		rows := make([]table.Row, 0, len(items))
		ids := make([]int, 0, len(items))
		for _, w := range items {
			rows = append(rows, table.Row{
				fmt.Sprint(w.ID),
				truncate(w.Name, name),
				w.DayLabel(),
				fmt.Sprintf("%02d:%02d", w.Hour, w.Minute),
				truncate(m.cache.MelodyLabel(w.MelodyIndex), name),
				onOff(w.IsActive, "yes", "no"),
			})
			ids = append(ids, w.ID)
		}
		return cols, rows, ids
	case TabSpecial:
		items := m.cache.Special()
		cols := []table.Column{
			{Title: "ID", Width: 4},
			{Title: "Name", Width: name},
			{Title: "Type", Width: 8},
			{Title: "Date", Width: 11},
			{Title: "Time", Width: 6},
			{Title: "Melody", Width: name},
			{Title: "Yearly", Width: 7},
			{Title: "Active", Width: 7},
		}
		rows := make([]table.Row, 0, len(items))
		ids := make([]int, 0, len(items))
		for _, e := range items {
			rows = append(rows, table.Row{
				fmt.Sprint(e.ID),
				truncate(e.Name, name),
				e.Type.String(),
				fmt.Sprintf("%04d-%02d-%02d", e.Year, e.Month, e.Day),
				fmt.Sprintf("%02d:%02d", e.Hour, e.Minute),
				truncate(m.cache.MelodyLabel(e.MelodyIndex), name),
				onOff(e.IsRecurring, "yes", "no"),
				onOff(e.IsActive, "yes", "no"),
			})
			ids = append(ids, e.ID)
		}
		return cols, rows, ids
	default:
		items := m.cache.Melodies()
		cols := []table.Column{
			{Title: "ID", Width: 4},
			{Title: "Name", Width: name},
			{Title: "Notes", Width: 6},
			{Title: "Length", Width: 8},
		}
		rows := make([]table.Row, 0, len(items))
		ids := make([]int, 0, len(items))
		for _, mel := range items {
			notes := mel.NoteCount
			ms := mel.DurationMS
			if len(mel.Notes) > 0 {
				notes = len(mel.Notes)
				ms = device.TotalDurationMS(mel.Notes)
			}
			rows = append(rows, table.Row{
				fmt.Sprint(mel.ID),
				truncate(mel.Name, name),
				fmt.Sprint(notes),
				fmt.Sprintf("%.1fs", float64(ms)/1000),
			})
			ids = append(ids, mel.ID)
		}
		return cols, rows, ids
	}
}

func (m Model) nameWidth() int {
	w := (m.width - 60) / 2
	if w < 16 {
		return 16
	}
	if w > 40 {
		return 40
	}
	return w
}

func (m *Model) setLogLines(lines []string) {
	m.logEntries = logtail.Filter(lines, m.logMin)
	styles := m.theme.Styles()
	var b strings.Builder
	for i, e := range m.logEntries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styles.LogStyle(e.Level).Render(e.Raw))
	}
	atBottom := m.logs.AtBottom()
	m.logs.SetContent(b.String())
	if atBottom || m.logs.YOffset == 0 {
		m.logs.GotoBottom()
	}
}

func (m Model) readLogCmd() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logMsg{lines: lines, err: err}
	}
}

func nextLogLevel(l logtail.Level) logtail.Level {
	switch l {
	case logtail.LevelDebug:
		return logtail.LevelInfo
	case logtail.LevelInfo:
		return logtail.LevelWarn
	case logtail.LevelWarn:
		return logtail.LevelError
	default:
		return logtail.LevelDebug
	}
}
