// Package config loads the MediaGrab TOML configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/mediagrab/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/mediagrab/config.toml
//   - Backend endpoint: 127.0.0.1:7488
//   - Data directory: ~/.local/share/mediagrab
//   - Log file: <data_dir>/mediagrab.log
//   - Backup database: <data_dir>/backup.db
//   - Log level: info
//   - Command timeout: 30s (0 disables)
//   - Preference save debounce: 500ms
//   - Schedule check interval: 10s
//   - Theme: Nightfox
//
// # TOML Format
//
//	backend_url = "127.0.0.1:7488"
//	data_dir = "~/.local/share/mediagrab"
//	log_level = "debug"
//	command_timeout = "45s"
//	save_debounce = "500ms"
//	schedule_interval = "10s"
//	theme = "Kanagawa"
//
// Every field is optional. Durations use Go duration syntax and must not be
// negative. A zero schedule_interval falls back to the default. Tilde
// expansion is performed on the config path and on data_dir.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - Malformed or negative durations
//
// Missing config files are NOT an error. MediaGrab works out of the box
// against a backend on the default port.
package config
