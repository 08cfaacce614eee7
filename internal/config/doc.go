// Package config loads notebook's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/notebook/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/notebook/config.toml
//   - Data directory: ~/.local/share/notebook
//   - Notes document: <data_dir>/notes.json
//   - Sandbox root: <data_dir>/sandbox (holds the private notebook-notes directory)
//   - Log file: <data_dir>/notebook.log (TUI mode)
//   - Preferences: ~/.config/notebook/prefs.toml
//   - Control API: 127.0.0.1:7488
//   - Sync quiet period: 3000 ms
//
// # Example
//
//	data_dir = "~/notes"
//	listen = "127.0.0.1:9000"
//	log_level = "debug"
//	sync_delay_ms = 1500
//
// Paths beginning with ~ are expanded against the user's home directory and
// made absolute. A non-positive sync_delay_ms falls back to the default.
package config
