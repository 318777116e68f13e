package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/five82/belfry/internal/config"
)

func TestFileName(t *testing.T) {
	at := time.Date(2026, time.March, 7, 22, 15, 0, 0, time.Local)
	if got := FileName(at); got != "church-bells-backup-2026-03-07.json" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestDirStoreLoadList(t *testing.T) {
	root := filepath.Join(t.TempDir(), "backups")
	d := NewDir(root)
	ctx := context.Background()

	names, err := d.List(ctx)
	if err != nil || names != nil {
		t.Fatalf("List on missing dir = %v, %v", names, err)
	}

	for _, name := range []string{"church-bells-backup-2026-03-08.json", "church-bells-backup-2026-03-07.json"} {
		loc, err := d.Store(ctx, name, []byte(`{"melodies":[]}`))
		if err != nil {
			t.Fatalf("Store(%s) returned error: %v", name, err)
		}
		if loc != filepath.Join(root, name) {
			t.Fatalf("location = %q", loc)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	names, err = d.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	want := []string{"church-bells-backup-2026-03-07.json", "church-bells-backup-2026-03-08.json"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("List = %v, want %v", names, want)
	}

	data, err := d.Load(ctx, want[0])
	if err != nil || string(data) != `{"melodies":[]}` {
		t.Fatalf("Load = %q, %v", data, err)
	}
	if _, err := d.Load(ctx, "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDirRejectsPathNames(t *testing.T) {
	d := NewDir(t.TempDir())
	for _, name := range []string{"", "../escape.json", "sub/file.json", ".hidden.json"} {
		if _, err := d.Store(context.Background(), name, []byte("{}")); err == nil {
			t.Errorf("Store(%q) returned nil error", name)
		}
	}
}

func TestOpenPicksDirWithoutBucket(t *testing.T) {
	cfg := config.Default()
	cfg.BackupDir = t.TempDir()
	sink, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, ok := sink.(*Dir); !ok {
		t.Fatalf("Open returned %T, want *Dir", sink)
	}
}
