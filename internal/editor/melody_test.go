package editor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/five82/belfry/internal/cache"
	"github.com/five82/belfry/internal/device"
)

func TestComputeDuration(t *testing.T) {
	cases := []struct {
		name  string
		notes []device.Note
		want  float64
	}{
		{"empty", nil, 0},
		{"two notes", []device.Note{{BellNumber: 1, DurationMS: 300, DelayMS: 700}, {BellNumber: 2, DurationMS: 500, DelayMS: 1000}}, 2.5},
		{"rounds", []device.Note{{BellNumber: 1, DurationMS: 120, DelayMS: 55}}, 0.2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeDuration(tc.notes); got != tc.want {
				t.Fatalf("ComputeDuration = %v, want %v", got, tc.want)
			}
		})
	}
}

type fakeStore struct {
	saveErr   error
	saved     []string
	updated   []int
	melodies  map[int]device.Melody
	notesByID map[int][]device.Note
}

func (s *fakeStore) Melody(id int) (device.Melody, bool) {
	m, ok := s.melodies[id]
	return m, ok
}

func (s *fakeStore) SaveMelody(_ context.Context, name string, _ []device.Note) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, name)
	return nil
}

func (s *fakeStore) UpdateMelody(_ context.Context, index int, _ string, _ []device.Note) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.updated = append(s.updated, index)
	return nil
}

func (s *fakeStore) FetchMelodyNotes(_ context.Context, id int) ([]device.Note, error) {
	notes, ok := s.notesByID[id]
	if !ok {
		return nil, errors.New("no such melody")
	}
	return notes, nil
}

type fakePreview struct {
	played [][]device.Note
}

func (p *fakePreview) TestNotes(_ context.Context, notes []device.Note) (device.Result, error) {
	p.played = append(p.played, notes)
	return device.Result{}, nil
}

func TestMelodyEditorBufferOps(t *testing.T) {
	e := NewMelodyEditor(&fakeStore{}, &fakePreview{})
	e.AddNote(nil)
	e.AddNote(&device.Note{BellNumber: 2, DurationMS: 300, DelayMS: 200})
	if got := e.Notes(); len(got) != 2 || got[0] != DefaultNote {
		t.Fatalf("Notes = %+v", got)
	}
	if err := e.SetNote(1, device.Note{BellNumber: 1, DurationMS: 300, DelayMS: 200}); err != nil {
		t.Fatalf("SetNote returned error: %v", err)
	}
	if err := e.RemoveNote(0); err != nil {
		t.Fatalf("RemoveNote returned error: %v", err)
	}
	if err := e.RemoveNote(5); err == nil {
		t.Fatalf("RemoveNote(5) returned nil error")
	}
	if got := e.Duration(); got != 0.5 {
		t.Fatalf("Duration = %v, want 0.5", got)
	}
}

func TestMelodyEditorSaveClearsOnlyOnSuccess(t *testing.T) {
	store := &fakeStore{saveErr: &device.BusinessError{Message: "memory full"}}
	e := NewMelodyEditor(store, &fakePreview{})
	e.SetName("Gloria")
	e.AddNote(nil)

	if err := e.Save(context.Background()); err == nil {
		t.Fatalf("Save returned nil error")
	}
	if e.Name() != "Gloria" || len(e.Notes()) != 1 {
		t.Fatalf("buffer cleared after failed save")
	}

	store.saveErr = nil
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if e.Name() != "" || len(e.Notes()) != 0 {
		t.Fatalf("buffer not cleared after save")
	}
	if len(store.saved) != 1 || store.saved[0] != "Gloria" {
		t.Fatalf("saved = %v", store.saved)
	}
}

func TestMelodyEditorEditThenSaveUpdates(t *testing.T) {
	store := &fakeStore{
		melodies:  map[int]device.Melody{3: {ID: 3, Name: "Angelus"}},
		notesByID: map[int][]device.Note{3: {{BellNumber: 1, DurationMS: 400, DelayMS: 600}}},
	}
	e := NewMelodyEditor(store, &fakePreview{})
	if err := e.Edit(context.Background(), 3); err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if idx, ok := e.Editing(); !ok || idx != 3 || e.Name() != "Angelus" {
		t.Fatalf("Editing = %d, %v; name %q", idx, ok, e.Name())
	}
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if len(store.updated) != 1 || store.updated[0] != 3 || len(store.saved) != 0 {
		t.Fatalf("updated = %v saved = %v", store.updated, store.saved)
	}
	if _, ok := e.Editing(); ok {
		t.Fatalf("editor still in edit mode after save")
	}
}

func TestTestCurrent(t *testing.T) {
	preview := &fakePreview{}
	e := NewMelodyEditor(&fakeStore{}, preview)

	var val *device.ValidationError
	if err := e.TestCurrent(context.Background()); !errors.As(err, &val) {
		t.Fatalf("TestCurrent on empty buffer = %v, want validation error", err)
	}
	e.AddNote(nil)
	if err := e.TestCurrent(context.Background()); err != nil {
		t.Fatalf("TestCurrent returned error: %v", err)
	}
	if len(preview.played) != 1 || len(preview.played[0]) != 1 {
		t.Fatalf("played = %+v", preview.played)
	}
}

func TestSaveThroughCacheAgainstDevice(t *testing.T) {
	var (
		mu       sync.Mutex
		saveBody string
		loads    int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/api/save-melody":
			data, _ := io.ReadAll(r.Body)
			saveBody = string(data)
			_, _ = io.WriteString(w, `{"success":true}`)
		case "/api/melodies":
			loads++
			_, _ = io.WriteString(w, `[{"id":0,"name":"Test","noteCount":1,"duration":1500}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client, err := device.NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	c := cache.New(client)
	e := NewMelodyEditor(c, client)
	e.SetName("Test")
	e.AddNote(&device.Note{BellNumber: 1, DurationMS: 500, DelayMS: 1000})

	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if want := `{"name":"Test","notes":[{"bellNumber":1,"duration":500,"delay":1000}]}`; saveBody != want {
		t.Fatalf("save body = %s, want %s", saveBody, want)
	}
	if loads != 1 {
		t.Fatalf("melody loads = %d, want 1", loads)
	}
	if e.Name() != "" || len(e.Notes()) != 0 {
		t.Fatalf("buffer not cleared")
	}
	if c.MelodyLabel(0) != "Test" {
		t.Fatalf("MelodyLabel(0) = %q", c.MelodyLabel(0))
	}
}
