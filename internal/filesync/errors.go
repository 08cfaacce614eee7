package filesync

import (
	"errors"
	"fmt"
)

var (
	// ErrPickCanceled is returned by a DirectoryPicker when the user backs out.
	// Setup treats it as a silent abort.
	ErrPickCanceled = errors.New("directory selection canceled")
	// ErrUnsupported means neither backend is usable in this environment.
	ErrUnsupported = errors.New("no storage backend available")
	// ErrNotSetup is returned by operations that need an active session.
	ErrNotSetup = errors.New("sync is not set up and enabled")
	// ErrResetupRequired means a user-selected directory has no live handle
	// and cannot be re-acquired without asking the user again.
	ErrResetupRequired = errors.New("sync directory must be selected again")
	// ErrNotSandboxed is returned by Export when the active backend is not
	// the private sandboxed directory.
	ErrNotSandboxed = errors.New("export requires the sandboxed backend")
	// ErrPassFailed wraps failures that stop a pass before any file is written.
	ErrPassFailed = errors.New("sync pass failed")
)

// Messages shown on the status surface.
const (
	unsupportedMessage = "File sync not supported in this environment. Configure a data directory or run interactively to choose a folder."
	setupFailedMessage = "Failed to setup sync directory. Please try again."
	resetupMessage     = "Please re-setup sync directory (folder access is not kept across restarts)"
	passFailedMessage  = "Sync failed. Please check directory permissions."
)

// FileError records a single file that could not be written during a pass.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
