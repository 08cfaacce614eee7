// Package state provides the thread-safe status surface for note syncing.
//
// # Overview
//
// The sync session is the only writer: it flips the setup and enabled flags,
// records pass results and errors. The TUI refresh loop and the control API
// are readers. Store mediates between them the same way for every consumer.
//
//	Producer (filesync.Session):      Consumers:
//	┌──────────────────────┐         ┌──────────────────────┐
//	│ Setup / Disable      │         │ ui refresh tick      │
//	│ pass completed       │         │   store.Snapshot()   │
//	│      ↓               │         │                      │
//	│ store.Update(fn)     │────────→│ control API          │
//	│      ↓               │ (mutex) │   store.Subscribe()  │
//	│ broadcast latest     │         │   websocket stream   │
//	└──────────────────────┘         └──────────────────────┘
//
// # Core Types
//
// SyncStatus:
//   - IsEnabled / IsSetup gate every write pass (both must be true)
//   - LastSync, SyncCount, LastPassFailures describe the latest completed pass
//   - Error carries the human readable message for setup and pass failures
//   - State and Phase expose the session state machine for display
//
// Store:
//   - Update(fn) mutates under the write lock and returns the new value
//   - Snapshot() copies under the read lock
//   - Subscribe() hands out a one-slot channel; slow readers skip
//     intermediate values and only observe the newest status
//
// # Zero Value
//
// A zero Store is ready to use and reports DefaultStatus until the first
// update.
package state
