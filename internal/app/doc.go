// Package app provides the orchestration layer for notebook.
//
// # Overview
//
// This package wires configuration, preferences, the notes store and the
// file sync session together and hands the result to one of three front
// ends: the TUI, the headless control API, or a one-shot CLI command. Env is
// the composition root all of them share.
//
// # Startup
//
//  1. Load config.toml and apply command-line overrides
//  2. Initialize the zap logger (log file for the TUI, stderr otherwise)
//  3. Load preferences; unreadable preferences fall back to defaults
//  4. Load notes.json
//  5. Build a filesync.Session with the picker suited to the front end
//  6. Start: restore the previous setup, push the current notes, subscribe
//     to changes and watch notes.json for edits made elsewhere
//
// # Data Flow
//
//	notes.Store ──Subscribe──> Session.Notify ──debounce──> sync pass
//	     ▲                                                    │
//	     │ Reload                                             ▼
//	notes.Watch / StartPoller                         sync directory
//
// # Watching
//
// notes.Watch uses fsnotify on the notes file's directory. When the watcher
// cannot start, StartPoller reloads on an interval (default 2 seconds) and
// backs off exponentially while reloads fail, capped at 30 seconds.
//
// # Front Ends
//
//   - Run: the bubbletea TUI; directory prompts appear as an overlay
//   - Serve: the control API; directories come from setup requests
//   - SyncOnce, PrintStatus, AddNote, Export: one-shot commands
package app
