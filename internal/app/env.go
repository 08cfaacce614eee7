package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/notebook/internal/config"
	"github.com/five82/notebook/internal/filesync"
	"github.com/five82/notebook/internal/logger"
	"github.com/five82/notebook/internal/notes"
	"github.com/five82/notebook/internal/prefs"
	"github.com/five82/notebook/internal/state"
)

// Options configure every notebook mode.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses the config value
	DataDir    string // overrides data_dir and everything derived from it
	Listen     string
	LogLevel   string
	// LogFile sends JSON logs to the configured log file instead of stderr.
	LogFile bool
	// PollEvery is the fallback notes poll interval in seconds.
	PollEvery int
}

// Env is the wired runtime shared by the TUI, the server and one-shot
// commands.
type Env struct {
	Config  config.Config
	Prefs   prefs.KV
	Notes   *notes.Store
	Status  *state.Store
	Session *filesync.Session
	Log     *zap.Logger

	logger *logger.Logger
}

// Open loads configuration, preferences and notes and builds a sync session
// that asks picker when a directory is needed.
func Open(opts Options, picker filesync.DirectoryPicker) (*Env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	lg := logger.New()
	logPath := ""
	if opts.LogFile {
		logPath = cfg.LogFile
	}
	if err := lg.Init(cfg.LogLevel, logPath); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	prefsPath := cfg.PrefsFile
	if strings.TrimSpace(opts.PrefsPath) != "" {
		prefsPath = opts.PrefsPath
	}
	userPrefs := loadPrefs(prefsPath, lg.Log)

	store, err := notes.Load(cfg.NotesFile)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	status := &state.Store{}
	session := filesync.NewSession(filesync.Options{
		SandboxRoot: cfg.SandboxDir,
		Picker:      picker,
		Prefs:       userPrefs,
		Status:      status,
		Delay:       cfg.SyncDelay,
		Logger:      lg.Log,
	})

	return &Env{
		Config:  cfg,
		Prefs:   userPrefs,
		Notes:   store,
		Status:  status,
		Session: session,
		Log:     lg.Log,
		logger:  lg,
	}, nil
}

// loadPrefs falls back to in-memory preferences when the file cannot be used.
func loadPrefs(path string, log *zap.Logger) prefs.KV {
	p, err := prefs.Load(path)
	if err != nil {
		log.Warn("preferences unavailable, using in-memory defaults", zap.String("path", path), zap.Error(err))
		return prefs.NewMemory()
	}
	return p
}

func loadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if dir := strings.TrimSpace(opts.DataDir); dir != "" {
		cfg = cfg.WithDataDir(dir)
	}
	if v := strings.TrimSpace(opts.Listen); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return cfg, nil
}

// Start restores a previous session, feeds the current notes to it and keeps
// it fed as the notes file changes. It returns immediately.
func (e *Env) Start(ctx context.Context, pollEvery int) {
	e.Session.Initialize(ctx)
	e.Session.Notify(e.Notes.Snapshot())
	unsubscribe := e.Notes.Subscribe(e.Session.Notify)
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	go e.watch(ctx, pollEvery)
}

func (e *Env) watch(ctx context.Context, pollEvery int) {
	reload := func() {
		if _, err := e.Notes.Reload(); err != nil {
			e.Log.Warn("notes reload failed", zap.Error(err))
		}
	}
	err := notes.Watch(ctx, e.Notes.Path(), e.Log, reload)
	if err == nil || ctx.Err() != nil {
		return
	}
	e.Log.Warn("notes watcher unavailable, polling instead", zap.Error(err))
	StartPoller(ctx, e.Notes, e.Log, intervalFrom(pollEvery))
}

// Close stops the scheduler and flushes logs.
func (e *Env) Close() {
	if e == nil {
		return
	}
	e.Session.Close()
	e.logger.Sync()
}
