package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Listen != defaultListen {
		t.Fatalf("Listen = %q, want %q", cfg.Listen, defaultListen)
	}

	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
	if cfg.NotesFile != filepath.Join(wantDataDir, "notes.json") {
		t.Fatalf("NotesFile = %q, want under data dir", cfg.NotesFile)
	}
	if cfg.SandboxDir != filepath.Join(wantDataDir, "sandbox") {
		t.Fatalf("SandboxDir = %q, want under data dir", cfg.SandboxDir)
	}
	if cfg.LogFile != filepath.Join(wantDataDir, "notebook.log") {
		t.Fatalf("LogFile = %q, want under data dir", cfg.LogFile)
	}
	if cfg.SyncDelay != 3*time.Second {
		t.Fatalf("SyncDelay = %v, want 3s", cfg.SyncDelay)
	}
	if cfg != Default() {
		t.Fatalf("Load of missing file should equal Default()")
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
data_dir = "  ~/.notes  "
listen = "  10.0.0.5:9999  "
log_level = "DEBUG"
sync_delay_ms = 500
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Listen != "10.0.0.5:9999" {
		t.Fatalf("Listen = %q, want %q", cfg.Listen, "10.0.0.5:9999")
	}
	if cfg.DataDir != filepath.Join(home, ".notes") {
		t.Fatalf("DataDir = %q, want it under HOME %q", cfg.DataDir, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.SyncDelay != 500*time.Millisecond {
		t.Fatalf("SyncDelay = %v, want 500ms", cfg.SyncDelay)
	}
}

func TestLoad_NonPositiveDelayUsesDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("sync_delay_ms = -5\nlisten = \"   \"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SyncDelay != defaultSyncDelayMS*time.Millisecond {
		t.Fatalf("SyncDelay = %v, want default", cfg.SyncDelay)
	}
	if cfg.Listen != defaultListen {
		t.Fatalf("Listen = %q, want %q", cfg.Listen, defaultListen)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`listen = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestWithDataDir_RederivesPaths(t *testing.T) {
	dir := t.TempDir()
	base := Default()
	base.Listen = "127.0.0.1:9999"
	base.SyncDelay = 500 * time.Millisecond

	cfg := base.WithDataDir(dir)
	if cfg.DataDir != dir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.NotesFile != filepath.Join(dir, "notes.json") {
		t.Fatalf("NotesFile = %q", cfg.NotesFile)
	}
	if cfg.SandboxDir != filepath.Join(dir, "sandbox") {
		t.Fatalf("SandboxDir = %q", cfg.SandboxDir)
	}
	if cfg.PrefsFile != base.PrefsFile || cfg.Listen != base.Listen || cfg.SyncDelay != base.SyncDelay {
		t.Fatalf("WithDataDir changed unrelated settings: %+v", cfg)
	}
}
