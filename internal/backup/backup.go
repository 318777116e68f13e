// Package backup stores controller backup blobs in a local directory or an
// S3-compatible bucket.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/five82/belfry/internal/config"
)

// ErrNotFound is returned by Load when no backup has the given name.
var ErrNotFound = errors.New("backup not found")

// Sink is where backup blobs are kept.
type Sink interface {
	// Store writes data under name and returns where it went.
	Store(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, name string) ([]byte, error)
	// List returns the stored backup names, oldest first.
	List(ctx context.Context) ([]string, error)
}

// FileName is the name a backup taken at t is saved under.
func FileName(t time.Time) string {
	return "church-bells-backup-" + t.Format(time.DateOnly) + ".json"
}

// Open returns the bucket sink when cfg names a bucket and the directory
// sink otherwise.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (Sink, error) {
	if cfg.S3.Bucket != "" {
		return NewBucket(ctx, cfg.S3, opts...)
	}
	return NewDir(cfg.BackupDir), nil
}

// Dir keeps backups as files in one directory.
type Dir struct {
	path string
}

// NewDir returns a directory sink rooted at path. The directory is created
// on first Store.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

func (d *Dir) Store(_ context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	target := filepath.Join(d.path, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename backup: %w", err)
	}
	return target, nil
}

func (d *Dir) Load(_ context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.path, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return data, nil
}

func (d *Dir) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid backup name %q", name)
	}
	return nil
}
