package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/notebook/internal/filesync"
	"github.com/five82/notebook/internal/prefs"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := "sync_delay_ms = 20\nlisten = \"127.0.0.1:1\"\nlog_level = \"error\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return Options{
		ConfigPath: cfgPath,
		PrefsPath:  filepath.Join(dir, "prefs.toml"),
		DataDir:    filepath.Join(dir, "data"),
	}
}

func sandboxDir(opts Options) string {
	return filepath.Join(opts.DataDir, "sandbox", filesync.SandboxDirName)
}

func TestAddNoteAndSyncIntoDirectory(t *testing.T) {
	opts := testOptions(t)
	var out bytes.Buffer
	if err := AddNote(opts, "Work", "Standup", "Daily sync", &out); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if !strings.Contains(out.String(), "Work_Standup.md") {
		t.Fatalf("AddNote output = %q", out.String())
	}
	if err := AddNote(opts, "Work", "Plan", "Ship", &out); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	target := t.TempDir()
	out.Reset()
	if err := SyncOnce(context.Background(), opts, target, &out); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if !strings.Contains(out.String(), "Synced 3 files") {
		t.Fatalf("SyncOnce output = %q", out.String())
	}
	for _, name := range []string{"Work_Standup.md", "Work_Plan.md", "README.md"} {
		if _, err := os.Stat(filepath.Join(target, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestSyncOnceUsesSandboxAndExport(t *testing.T) {
	opts := testOptions(t)
	var out bytes.Buffer
	if err := AddNote(opts, "Personal", "Groceries", "Milk", &out); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if err := SyncOnce(context.Background(), opts, "", &out); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(sandboxDir(opts), "README.md"))
	if err != nil {
		t.Fatalf("read README: %v", err)
	}
	if !strings.Contains(string(data), "Total Notes: 1") {
		t.Fatalf("README = %q", data)
	}

	// The sandboxed setup is restored on the next run.
	out.Reset()
	if err := SyncOnce(context.Background(), opts, "", &out); err != nil {
		t.Fatalf("second SyncOnce: %v", err)
	}

	target := t.TempDir()
	out.Reset()
	if err := Export(context.Background(), opts, target, &out); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(out.String(), "Exported 2 files") {
		t.Fatalf("Export output = %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(target, "Personal_Groceries.md")); err != nil {
		t.Fatalf("exported note missing: %v", err)
	}
}

func TestExportRequiresSetup(t *testing.T) {
	opts := testOptions(t)
	if err := Export(context.Background(), opts, t.TempDir(), &bytes.Buffer{}); err == nil {
		t.Fatalf("Export without setup should fail")
	}
}

func TestPrintStatusWithoutServer(t *testing.T) {
	opts := testOptions(t)
	var out bytes.Buffer
	if err := PrintStatus(context.Background(), opts, &out); err != nil {
		t.Fatalf("PrintStatus: %v", err)
	}
	for _, want := range []string{"Server not reachable", "Setup:     none", "Enabled:   false", "Notes:     0 in 0 lists"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("PrintStatus output missing %q:\n%s", want, out.String())
		}
	}
}

func TestEnvStartSyncsOnNoteChanges(t *testing.T) {
	opts := testOptions(t)
	env, err := Open(opts, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer env.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !env.Session.Setup(ctx, filesync.SetupOptions{}) {
		t.Fatalf("Setup failed: %+v", env.Session.Status())
	}
	env.Start(ctx, 1)

	c, err := env.Notes.CreateCollection("Work")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if _, err := env.Notes.AddNote(c.ID, "Standup", "hello"); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	path := filepath.Join(sandboxDir(opts), "Work_Standup.md")
	deadline := time.Now().Add(3 * time.Second)
	for {
		if data, err := os.ReadFile(path); err == nil && strings.Contains(string(data), "hello") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("note was not synced; status %+v", env.Session.Status())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOpenFallsBackToMemoryPrefs(t *testing.T) {
	opts := testOptions(t)
	opts.PrefsPath = "~/notebook/prefs.toml"
	t.Setenv("HOME", "")

	env, err := Open(opts, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer env.Close()

	if _, ok := env.Prefs.Get(prefs.KeySyncSetup); ok {
		t.Fatalf("fresh preferences should be empty")
	}
	if !env.Session.Setup(context.Background(), filesync.SetupOptions{}) {
		t.Fatalf("Setup failed: %+v", env.Session.Status())
	}
	if v, _ := env.Prefs.Get(prefs.KeySyncEnabled); v != "true" {
		t.Fatalf("enabled = %q, want true", v)
	}
}
