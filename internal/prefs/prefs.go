// Package prefs persists the dashboard's cosmetic settings (theme and last
// tab) in ~/.config/belfry/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/belfry/internal/config"
)

// Prefs holds dashboard preferences.
type Prefs struct {
	Theme   string `toml:"theme"`
	LastTab string `toml:"last_tab"`
}

const (
	defaultPrefsPath = "~/.config/belfry/prefs.toml"
	defaultTheme     = "Nightfox"
	defaultTab       = "melodies"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// withDefaults fills blank fields.
func (p Prefs) withDefaults() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	p.LastTab = strings.ToLower(strings.TrimSpace(p.LastTab))
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	if p.LastTab == "" {
		p.LastTab = defaultTab
	}
	return p
}

// Load reads preferences from path. Preferences are cosmetic: a missing,
// unreadable or malformed file yields defaults and a nil error.
func Load(path string) (Prefs, error) {
	resolved, err := config.ExpandPath(orDefault(path))
	if err != nil {
		return Prefs{}.withDefaults(), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Prefs{}.withDefaults(), nil
	}
	var p Prefs
	if err := toml.Unmarshal(data, &p); err != nil {
		return Prefs{}.withDefaults(), nil
	}
	return p.withDefaults(), nil
}

// Save writes p to path through a temporary file, creating directories as
// needed.
func Save(path string, p Prefs) error {
	resolved, err := config.ExpandPath(orDefault(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p.withDefaults())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, resolved); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func orDefault(path string) string {
	if strings.TrimSpace(path) == "" {
		return defaultPrefsPath
	}
	return path
}
