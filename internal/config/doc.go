// Package config loads belfry's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/belfry/config.toml (default)
//  3. If the config file doesn't exist, fall back to built-in defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// # Default Values
//
//   - Device: 192.168.4.1 (the controller's access point address)
//   - Username: admin
//   - Request timeout: 5s
//   - Poll cadences: clock 1s, status 5s, relay 10s, system info 30s
//   - Log directory: ~/.local/state/belfry (client log: <log_dir>/belfry.log)
//   - Backup directory: ~/.local/share/belfry/backups
//   - Metrics: disabled unless metrics_addr is set
//   - S3 backups: disabled unless [s3] bucket is set
//
// # TOML Format
//
//	device = "192.168.4.1"
//	username = "admin"
//	request_timeout = "5s"
//	clock_poll = "1s"
//	status_poll = "5s"
//	relay_poll = "10s"
//	info_poll = "30s"
//	log_dir = "~/.local/state/belfry"
//	debug = false
//	metrics_addr = "127.0.0.1:9464"
//	backup_dir = "~/.local/share/belfry/backups"
//
//	[s3]
//	bucket = "parish-backups"
//	region = "eu-south-1"
//	endpoint = "http://127.0.0.1:9000"  # S3-compatible stores
//	path_style = true
//	prefix = "belfry"
//
// Durations use Go syntax ("500ms", "2s"). An unparseable or non-positive
// duration is an error; every other problem falls back to the default.
//
// The device password is not stored here. It lives in the OS keyring; see
// package secret.
package config
