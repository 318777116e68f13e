package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything belfry reads from config.toml.
type Config struct {
	Device         string
	Username       string
	RequestTimeout time.Duration
	ClockPoll      time.Duration
	StatusPoll     time.Duration
	RelayPoll      time.Duration
	InfoPoll       time.Duration
	LogDir         string
	Debug          bool
	MetricsAddr    string
	BackupDir      string
	S3             S3
}

// S3 configures the optional backup bucket. An empty Bucket disables it.
type S3 struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
	Prefix    string `toml:"prefix"`
}

const (
	defaultConfigPath = "~/.config/belfry/config.toml"
	defaultDevice     = "192.168.4.1"
	defaultUsername   = "admin"
	defaultLogDir     = "~/.local/state/belfry"
	defaultBackupDir  = "~/.local/share/belfry/backups"
)

// Default poll cadences and request timeout.
const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultClockPoll      = time.Second
	DefaultStatusPoll     = 5 * time.Second
	DefaultRelayPoll      = 10 * time.Second
	DefaultInfoPoll       = 30 * time.Second
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Device:         defaultDevice,
		Username:       defaultUsername,
		RequestTimeout: DefaultRequestTimeout,
		ClockPoll:      DefaultClockPoll,
		StatusPoll:     DefaultStatusPoll,
		RelayPoll:      DefaultRelayPoll,
		InfoPoll:       DefaultInfoPoll,
		LogDir:         mustExpand(defaultLogDir),
		BackupDir:      mustExpand(defaultBackupDir),
	}
}

type rawConfig struct {
	Device         string `toml:"device"`
	Username       string `toml:"username"`
	RequestTimeout string `toml:"request_timeout"`
	ClockPoll      string `toml:"clock_poll"`
	StatusPoll     string `toml:"status_poll"`
	RelayPoll      string `toml:"relay_poll"`
	InfoPoll       string `toml:"info_poll"`
	LogDir         string `toml:"log_dir"`
	Debug          bool   `toml:"debug"`
	MetricsAddr    string `toml:"metrics_addr"`
	BackupDir      string `toml:"backup_dir"`
	S3             S3     `toml:"s3"`
}

// Load locates and parses the belfry config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Device = orDefault(raw.Device, defaultDevice)
	cfg.Username = orDefault(raw.Username, defaultUsername)
	cfg.LogDir = mustExpand(orDefault(raw.LogDir, defaultLogDir))
	cfg.BackupDir = mustExpand(orDefault(raw.BackupDir, defaultBackupDir))
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	cfg.Debug = raw.Debug
	cfg.S3 = S3{
		Bucket:    strings.TrimSpace(raw.S3.Bucket),
		Region:    strings.TrimSpace(raw.S3.Region),
		Endpoint:  strings.TrimSpace(raw.S3.Endpoint),
		PathStyle: raw.S3.PathStyle,
		Prefix:    strings.Trim(strings.TrimSpace(raw.S3.Prefix), "/"),
	}

	durations := []struct {
		key   string
		value string
		dest  *time.Duration
	}{
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
		{"clock_poll", raw.ClockPoll, &cfg.ClockPoll},
		{"status_poll", raw.StatusPoll, &cfg.StatusPoll},
		{"relay_poll", raw.RelayPoll, &cfg.RelayPoll},
		{"info_poll", raw.InfoPoll, &cfg.InfoPoll},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.value, d.dest); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// LogPath returns the path of the client log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/belfry.log")
	}
	return filepath.Join(c.LogDir, "belfry.log")
}

func parseDuration(key, value string, dest *time.Duration) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("parse config: %s must be positive, got %s", key, trimmed)
	}
	*dest = d
	return nil
}

func orDefault(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
