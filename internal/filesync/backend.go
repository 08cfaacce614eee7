package filesync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// BackendKind identifies where synced files live.
type BackendKind string

const (
	KindNone         BackendKind = "none"
	KindSandboxed    BackendKind = "sandboxed"
	KindUserSelected BackendKind = "user-selected"
)

// Persisted marker values for prefs.KeySyncSetup.
const (
	markerSandboxed    = "opfs"
	markerUserSelected = "manual"
)

// SandboxDirName is the fixed subdirectory of the sandbox root that holds
// this application's notes.
const SandboxDirName = "notebook-notes"

const (
	dirPerm       = 0o755
	filePerm      = 0o644
	writeProbeRaw = ".notebook-write-probe"
)

// Marker returns the value stored in preferences for k.
func (k BackendKind) Marker() string {
	switch k {
	case KindSandboxed:
		return markerSandboxed
	case KindUserSelected:
		return markerUserSelected
	default:
		return ""
	}
}

// KindFromMarker maps a persisted marker back to a kind.
func KindFromMarker(marker string) BackendKind {
	switch strings.TrimSpace(marker) {
	case markerSandboxed:
		return KindSandboxed
	case markerUserSelected:
		return KindUserSelected
	default:
		return KindNone
	}
}

// StorageBackend obtains a writable Directory.
type StorageBackend interface {
	Kind() BackendKind
	// Available reports whether the backend can work here, without side effects.
	Available() bool
	// Open acquires a directory, asking the user if the backend needs consent.
	Open(ctx context.Context) (*Directory, error)
	// Reopen re-acquires the last directory without user interaction.
	Reopen(ctx context.Context) (*Directory, error)
}

// SandboxedBackend is a private, application-owned directory that needs no
// consent and survives restarts.
type SandboxedBackend struct {
	Root string
	Fs   afero.Fs
}

var _ StorageBackend = (*SandboxedBackend)(nil)

func (b *SandboxedBackend) Kind() BackendKind { return KindSandboxed }

func (b *SandboxedBackend) Available() bool {
	if b == nil || strings.TrimSpace(b.Root) == "" {
		return false
	}
	info, err := b.fs().Stat(b.Root)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	return info.IsDir()
}

// Path returns the notes directory inside the sandbox root.
func (b *SandboxedBackend) Path() string {
	return filepath.Join(b.Root, SandboxDirName)
}

func (b *SandboxedBackend) Open(ctx context.Context) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !b.Available() {
		return nil, fmt.Errorf("sandbox root %q: %w", b.Root, ErrUnsupported)
	}
	path := b.Path()
	if err := b.fs().MkdirAll(path, dirPerm); err != nil {
		return nil, fmt.Errorf("create sandbox dir %q: %w", path, err)
	}
	return newDirectory(KindSandboxed, path, b.fs()), nil
}

func (b *SandboxedBackend) Reopen(ctx context.Context) (*Directory, error) {
	return b.Open(ctx)
}

func (b *SandboxedBackend) fs() afero.Fs {
	if b.Fs == nil {
		return afero.NewOsFs()
	}
	return b.Fs
}

// UserSelectedBackend writes into a directory the user picks. The choice is
// remembered for the lifetime of the process only.
type UserSelectedBackend struct {
	Picker DirectoryPicker
	Fs     afero.Fs

	mu     sync.Mutex
	chosen string
}

var _ StorageBackend = (*UserSelectedBackend)(nil)

func (b *UserSelectedBackend) Kind() BackendKind { return KindUserSelected }

func (b *UserSelectedBackend) Available() bool {
	return b != nil && b.Picker != nil
}

func (b *UserSelectedBackend) Open(ctx context.Context) (*Directory, error) {
	if !b.Available() {
		return nil, fmt.Errorf("directory picker: %w", ErrUnsupported)
	}
	path, err := b.Picker.PickDirectory(ctx, PurposeSync)
	if err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrPickCanceled
	}
	if err := checkWritableDir(b.fs(), path); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.chosen = path
	b.mu.Unlock()
	return newDirectory(KindUserSelected, path, b.fs()), nil
}

func (b *UserSelectedBackend) Reopen(ctx context.Context) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	path := b.chosen
	b.mu.Unlock()
	if path == "" {
		return nil, ErrResetupRequired
	}
	if err := checkDir(b.fs(), path); err != nil {
		return nil, err
	}
	return newDirectory(KindUserSelected, path, b.fs()), nil
}

// Forget drops the remembered directory.
func (b *UserSelectedBackend) Forget() {
	b.mu.Lock()
	b.chosen = ""
	b.mu.Unlock()
}

func (b *UserSelectedBackend) fs() afero.Fs {
	if b.Fs == nil {
		return afero.NewOsFs()
	}
	return b.Fs
}

func checkDir(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return fmt.Errorf("open directory %q: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("open directory %q: not a directory", path)
	}
	return nil
}

func checkWritableDir(fs afero.Fs, path string) error {
	if err := checkDir(fs, path); err != nil {
		return err
	}
	probe := filepath.Join(path, writeProbeRaw)
	if err := afero.WriteFile(fs, probe, nil, filePerm); err != nil {
		return fmt.Errorf("directory %q is not writable: %w", path, err)
	}
	_ = fs.Remove(probe)
	return nil
}
