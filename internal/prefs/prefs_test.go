package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if want := filepath.Join(home, ".config", "notebook", "prefs.toml"); s.Path() != want {
		t.Fatalf("Path = %q, want %q", s.Path(), want)
	}
	if _, ok := s.Get(KeySyncSetup); ok {
		t.Fatalf("expected no %s value", KeySyncSetup)
	}
	if Theme(s) != defaultTheme {
		t.Fatalf("Theme = %q, want %q", Theme(s), defaultTheme)
	}
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	prefsDir := filepath.Join(home, ".config", "notebook")
	if err := os.MkdirAll(prefsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := "localFileSyncSetup = \"opfs\"\nlocalFileSyncEnabled = \"true\"\ntheme = \"Slate\"\n"
	if err := os.WriteFile(filepath.Join(prefsDir, "prefs.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if v, _ := s.Get(KeySyncSetup); v != "opfs" {
		t.Fatalf("%s = %q, want opfs", KeySyncSetup, v)
	}
	if v, _ := s.Get(KeySyncEnabled); v != "true" {
		t.Fatalf("%s = %q, want true", KeySyncEnabled, v)
	}
	if Theme(s) != "Slate" {
		t.Fatalf("Theme = %q, want Slate", Theme(s))
	}
}

func TestSetRemove_PersistAndCreateDirs(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	s, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := s.Set(KeySyncSetup, "manual"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeySyncForceManual, "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Remove(KeySyncForceManual); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove("never-set"); err != nil {
		t.Fatalf("Remove missing key: %v", err)
	}

	loaded, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if v, _ := loaded.Get(KeySyncSetup); v != "manual" {
		t.Fatalf("%s = %q, want manual", KeySyncSetup, v)
	}
	if _, ok := loaded.Get(KeySyncForceManual); ok {
		t.Fatalf("%s should have been removed", KeySyncForceManual)
	}
	if keys := loaded.Keys(); len(keys) != 1 || keys[0] != KeySyncSetup {
		t.Fatalf("Keys = %v, want [%s]", keys, KeySyncSetup)
	}
}

func TestLoad_InvalidTOMLFallsBackToEmpty(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(prefsFile, []byte("not valid toml {{{\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("Keys = %v, want none", s.Keys())
	}
}

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	if err := m.Set(KeySyncEnabled, "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := m.Get(KeySyncEnabled); !ok || v != "true" {
		t.Fatalf("Get = %q, %v; want true, true", v, ok)
	}
	_ = m.Remove(KeySyncEnabled)
	if _, ok := m.Get(KeySyncEnabled); ok {
		t.Fatalf("value should be removed")
	}
}
