package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/editor"
)

type MelodyListCmd struct{}

func (m *MelodyListCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Cache.LoadMelodies(c.Ctx); err != nil {
		return reported(err)
	}
	melodies := env.Cache.Melodies()
	if len(melodies) == 0 {
		c.printf("No melodies stored\n")
		return nil
	}
	rows := make([][]string, 0, len(melodies))
	for _, mel := range melodies {
		duration := mel.DurationMS
		if len(mel.Notes) > 0 {
			duration = device.TotalDurationMS(mel.Notes)
		}
		rows = append(rows, []string{
			strconv.Itoa(mel.ID),
			mel.Name,
			strconv.Itoa(mel.NoteCount),
			seconds(duration),
		})
	}
	c.printf("%s\n", renderTable([]string{"ID", "Name", "Notes", "Length"}, rows))
	return nil
}

type MelodyPlayCmd struct {
	ID int `arg:"" help:"Melody id."`
}

func (m *MelodyPlayCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if _, err := env.Client.PlayMelody(c.Ctx, m.ID); err != nil {
		return err
	}
	// The name is cosmetic; a failed load still leaves the melody playing.
	if env.Cache.LoadMelodies(c.Ctx) == nil {
		c.printf("Playing %q\n", env.Cache.MelodyLabel(m.ID))
		return nil
	}
	c.printf("Playing melody %d\n", m.ID)
	return nil
}

type MelodyNotesCmd struct {
	ID int `arg:"" help:"Melody id."`
}

func (m *MelodyNotesCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	notes, err := env.Cache.FetchMelodyNotes(c.Ctx, m.ID)
	if err != nil {
		return reported(err)
	}
	rows := make([][]string, len(notes))
	for i, n := range notes {
		rows[i] = []string{strconv.Itoa(i + 1), strconv.Itoa(n.BellNumber), strconv.Itoa(n.DurationMS), strconv.Itoa(n.DelayMS)}
	}
	c.printf("%s\n", renderTable([]string{"#", "Bell", "Duration ms", "Delay ms"}, rows))
	c.printf("%d notes, %.1fs\n", len(notes), editor.ComputeDuration(notes))
	return nil
}

type MelodySaveCmd struct {
	Name  string   `arg:"" help:"Melody name."`
	Notes []string `arg:"" help:"Notes as BELL:DURATION:DELAY in milliseconds, e.g. 1:500:1000."`
}

func (m *MelodySaveCmd) Run(c *Context) error {
	notes, err := parseNotes(m.Notes)
	if err != nil {
		return err
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	ed := editor.NewMelodyEditor(env.Cache, env.Client)
	ed.SetName(m.Name)
	for i := range notes {
		ed.AddNote(&notes[i])
	}
	return reported(ed.Save(c.Ctx))
}

type MelodyEditCmd struct {
	ID     int      `arg:"" help:"Melody id."`
	Name   string   `help:"New name."`
	Notes  []string `name:"notes" help:"Replace every note (BELL:DURATION:DELAY)." sep:","`
	Set    []string `name:"set" help:"Replace one note, as N=BELL:DURATION:DELAY (1-based)."`
	Remove []int    `name:"remove" help:"Remove note N (1-based)."`
	Add    []string `name:"add" help:"Append a note (BELL:DURATION:DELAY)."`
	Test   bool     `help:"Play the edited melody instead of saving it."`
}

func (m *MelodyEditCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if err := env.Cache.LoadMelodies(c.Ctx); err != nil {
		return reported(err)
	}
	ed := editor.NewMelodyEditor(env.Cache, env.Client)
	if err := ed.Edit(c.Ctx, m.ID); err != nil {
		return reported(err)
	}
	if err := m.apply(ed); err != nil {
		return err
	}
	if m.Test {
		if err := ed.TestCurrent(c.Ctx); err != nil {
			return err
		}
		c.printf("Playing %d notes (%.1fs), not saved\n", len(ed.Notes()), ed.Duration())
		return nil
	}
	return reported(ed.Save(c.Ctx))
}

func (m *MelodyEditCmd) apply(ed *editor.MelodyEditor) error {
	if name := strings.TrimSpace(m.Name); name != "" {
		ed.SetName(name)
	}
	if len(m.Notes) > 0 {
		notes, err := parseNotes(m.Notes)
		if err != nil {
			return err
		}
		for range ed.Notes() {
			_ = ed.RemoveNote(0)
		}
		for i := range notes {
			ed.AddNote(&notes[i])
		}
	}
	for _, spec := range m.Set {
		pos, raw, ok := strings.Cut(spec, "=")
		if !ok {
			return &device.ValidationError{Field: "set", Reason: fmt.Sprintf("%q is not N=BELL:DURATION:DELAY", spec)}
		}
		i, err := strconv.Atoi(strings.TrimSpace(pos))
		if err != nil {
			return &device.ValidationError{Field: "set", Reason: fmt.Sprintf("%q is not a note number", pos)}
		}
		n, err := parseNote(raw)
		if err != nil {
			return err
		}
		if err := ed.SetNote(i-1, n); err != nil {
			return &device.ValidationError{Field: "set", Reason: err.Error()}
		}
	}
	// Remove from the highest position so earlier numbers stay valid.
	removals := slices.Clone(m.Remove)
	slices.Sort(removals)
	slices.Reverse(removals)
	for _, pos := range removals {
		if err := ed.RemoveNote(pos - 1); err != nil {
			return &device.ValidationError{Field: "remove", Reason: err.Error()}
		}
	}
	for _, raw := range m.Add {
		n, err := parseNote(raw)
		if err != nil {
			return err
		}
		ed.AddNote(&n)
	}
	return nil
}

type MelodyTestCmd struct {
	Notes []string `arg:"" help:"Notes as BELL:DURATION:DELAY in milliseconds."`
}

func (m *MelodyTestCmd) Run(c *Context) error {
	notes, err := parseNotes(m.Notes)
	if err != nil {
		return err
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	ed := editor.NewMelodyEditor(env.Cache, env.Client)
	for i := range notes {
		ed.AddNote(&notes[i])
	}
	if err := ed.TestCurrent(c.Ctx); err != nil {
		return err
	}
	c.printf("Playing %d notes (%.1fs)\n", len(notes), ed.Duration())
	return nil
}

type MelodyDeleteCmd struct {
	ID  int  `arg:"" help:"Melody id."`
	Yes bool `help:"Skip the confirmation prompt." short:"y"`
}

func (m *MelodyDeleteCmd) Run(c *Context) error {
	env, err := c.Env()
	if err != nil {
		return err
	}
	if !m.Yes {
		label := fmt.Sprintf("melody %d", m.ID)
		if env.Cache.LoadMelodies(c.Ctx) == nil {
			label = fmt.Sprintf("%q", env.Cache.MelodyLabel(m.ID))
		}
		if ok, err := confirm(c, "Delete melody", "Delete "+label+"?"); !ok {
			return err
		}
	}
	return reported(env.Cache.DeleteMelody(c.Ctx, m.ID))
}

// parseNote reads BELL[:DURATION[:DELAY]]; missing parts take the editor's
// default note values.
func parseNote(raw string) (device.Note, error) {
	n := editor.DefaultNote
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) > 3 || parts[0] == "" {
		return n, &device.ValidationError{Field: "note", Reason: fmt.Sprintf("%q is not BELL:DURATION:DELAY", raw)}
	}
	dest := []*int{&n.BellNumber, &n.DurationMS, &n.DelayMS}
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return n, &device.ValidationError{Field: "note", Reason: fmt.Sprintf("%q is not BELL:DURATION:DELAY", raw)}
		}
		*dest[i] = v
	}
	if err := n.Validate(); err != nil {
		return n, err
	}
	return n, nil
}

func parseNotes(raw []string) ([]device.Note, error) {
	notes := make([]device.Note, 0, len(raw))
	for i, r := range raw {
		n, err := parseNote(r)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i+1, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func seconds(ms int) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 1, 64) + "s"
}
