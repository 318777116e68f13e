package editor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/five82/belfry/internal/device"
)

// DefaultNote is appended by AddNote when no note is given.
var DefaultNote = device.Note{BellNumber: 1, DurationMS: 500, DelayMS: 1000}

// MelodyStore persists melodies. *cache.Cache implements it.
type MelodyStore interface {
	Melody(id int) (device.Melody, bool)
	SaveMelody(ctx context.Context, name string, notes []device.Note) error
	UpdateMelody(ctx context.Context, index int, name string, notes []device.Note) error
	FetchMelodyNotes(ctx context.Context, id int) ([]device.Note, error)
}

// Previewer plays notes without storing them. *device.Client implements it.
type Previewer interface {
	TestNotes(ctx context.Context, notes []device.Note) (device.Result, error)
}

// MelodyEditor is the scratch buffer for composing a melody. Local edits never
// reach the device; Save and TestCurrent do.
type MelodyEditor struct {
	store   MelodyStore
	preview Previewer

	name    string
	notes   []device.Note
	editing int
}

// NewMelodyEditor returns an empty editor.
func NewMelodyEditor(store MelodyStore, preview Previewer) *MelodyEditor {
	return &MelodyEditor{store: store, preview: preview, editing: -1}
}

// Name returns the melody name in the buffer.
func (e *MelodyEditor) Name() string { return e.name }

// SetName sets the melody name.
func (e *MelodyEditor) SetName(name string) { e.name = name }

// Notes returns a copy of the buffered notes.
func (e *MelodyEditor) Notes() []device.Note {
	return append([]device.Note(nil), e.notes...)
}

// Editing returns the index of the stored melody being edited, if any.
func (e *MelodyEditor) Editing() (int, bool) {
	return e.editing, e.editing >= 0
}

// AddNote appends n, or DefaultNote when n is nil.
func (e *MelodyEditor) AddNote(n *device.Note) {
	if n == nil {
		e.notes = append(e.notes, DefaultNote)
		return
	}
	e.notes = append(e.notes, *n)
}

// SetNote replaces the note at position i.
func (e *MelodyEditor) SetNote(i int, n device.Note) error {
	if i < 0 || i >= len(e.notes) {
		return fmt.Errorf("note %d out of range", i+1)
	}
	e.notes[i] = n
	return nil
}

// RemoveNote deletes the note at position i.
func (e *MelodyEditor) RemoveNote(i int) error {
	if i < 0 || i >= len(e.notes) {
		return fmt.Errorf("note %d out of range", i+1)
	}
	e.notes = append(e.notes[:i], e.notes[i+1:]...)
	return nil
}

// Duration returns the buffer's total length in seconds.
func (e *MelodyEditor) Duration() float64 {
	return ComputeDuration(e.notes)
}

// Reset clears the buffer and leaves edit mode.
func (e *MelodyEditor) Reset() {
	e.name = ""
	e.notes = nil
	e.editing = -1
}

// Edit loads the stored melody id into the buffer. A later Save updates it in
// place instead of creating a new melody.
func (e *MelodyEditor) Edit(ctx context.Context, id int) error {
	notes, err := e.store.FetchMelodyNotes(ctx, id)
	if err != nil {
		return err
	}
	name := ""
	if m, ok := e.store.Melody(id); ok {
		name = m.Name
	}
	e.name = name
	e.notes = append([]device.Note(nil), notes...)
	e.editing = id
	return nil
}

// Save persists the buffer and clears it once the device has confirmed.
// Validation happens in the store; a rejected save keeps the buffer.
func (e *MelodyEditor) Save(ctx context.Context) error {
	name := strings.TrimSpace(e.name)
	var err error
	if idx, ok := e.Editing(); ok {
		err = e.store.UpdateMelody(ctx, idx, name, e.Notes())
	} else {
		err = e.store.SaveMelody(ctx, name, e.Notes())
	}
	if err != nil {
		return err
	}
	e.Reset()
	return nil
}

// TestCurrent plays the buffered notes on the device.
func (e *MelodyEditor) TestCurrent(ctx context.Context) error {
	if len(e.notes) == 0 {
		return &device.ValidationError{Field: "notes", Reason: "add at least one note"}
	}
	_, err := e.preview.TestNotes(ctx, e.Notes())
	return err
}

// ComputeDuration sums duration and delay over notes, in seconds rounded to
// one decimal.
func ComputeDuration(notes []device.Note) float64 {
	ms := device.TotalDurationMS(notes)
	return math.Round(float64(ms)/100) / 10
}
