package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures notebook's runtime settings.
type Config struct {
	DataDir    string
	NotesFile  string
	PrefsFile  string
	SandboxDir string
	LogFile    string
	Listen     string
	LogLevel   string
	SyncDelay  time.Duration
}

const (
	defaultConfigPath  = "~/.config/notebook/config.toml"
	defaultDataDir     = "~/.local/share/notebook"
	defaultPrefsFile   = "~/.config/notebook/prefs.toml"
	defaultListen      = "127.0.0.1:7488"
	defaultLogLevel    = "info"
	defaultSyncDelayMS = 3000
)

// Load locates and parses the notebook config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw struct {
		DataDir     string `toml:"data_dir"`
		NotesFile   string `toml:"notes_file"`
		PrefsFile   string `toml:"prefs_file"`
		SandboxDir  string `toml:"sandbox_dir"`
		Listen      string `toml:"listen"`
		LogLevel    string `toml:"log_level"`
		SyncDelayMS int    `toml:"sync_delay_ms"`
	}

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	return fromRaw(raw.DataDir, raw.NotesFile, raw.PrefsFile, raw.SandboxDir, raw.Listen, raw.LogLevel, raw.SyncDelayMS), nil
}

func fromRaw(dataDir, notesFile, prefsFile, sandboxDir, listen, logLevel string, delayMS int) Config {
	cfg := Config{
		DataDir:  mustExpand(orDefault(dataDir, defaultDataDir)),
		Listen:   orDefault(listen, defaultListen),
		LogLevel: strings.ToLower(orDefault(logLevel, defaultLogLevel)),
	}
	cfg.NotesFile = mustExpand(orDefault(notesFile, filepath.Join(cfg.DataDir, "notes.json")))
	cfg.PrefsFile = mustExpand(orDefault(prefsFile, defaultPrefsFile))
	cfg.SandboxDir = mustExpand(orDefault(sandboxDir, filepath.Join(cfg.DataDir, "sandbox")))
	cfg.LogFile = filepath.Join(cfg.DataDir, "notebook.log")

	if delayMS <= 0 {
		delayMS = defaultSyncDelayMS
	}
	cfg.SyncDelay = time.Duration(delayMS) * time.Millisecond
	return cfg
}

// WithDataDir re-derives the notes file, sandbox and log paths from dir.
// Preferences, listen address, log level and delay are kept.
func (c Config) WithDataDir(dir string) Config {
	out := fromRaw(dir, "", "", "", c.Listen, c.LogLevel, int(c.SyncDelay/time.Millisecond))
	out.PrefsFile = c.PrefsFile
	return out
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return fromRaw("", "", "", "", "", "", 0)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
