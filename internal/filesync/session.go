package filesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/five82/notebook/internal/notes"
	"github.com/five82/notebook/internal/prefs"
	"github.com/five82/notebook/internal/state"
)

// Options configures a Session. Zero fields get working defaults except
// Prefs and Status, which are created fresh and not persisted.
type Options struct {
	// SandboxRoot enables the sandboxed backend when non-empty.
	SandboxRoot string
	// Picker enables the user-selected backend when non-nil.
	Picker   DirectoryPicker
	Fs       afero.Fs
	Prefs    prefs.KV
	Status   *state.Store
	Delay    time.Duration
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
}

// SetupOptions tunes a single Setup call.
type SetupOptions struct {
	// ForceManual skips the sandboxed backend.
	ForceManual bool
}

// Session is the sync controller: it owns the directory handle, the
// debounced scheduler and the status surface.
type Session struct {
	fs           afero.Fs
	sandboxed    *SandboxedBackend
	userSelected *UserSelectedBackend
	handles      handleManager
	engine       *Engine
	debounce     *Debouncer
	status       *state.Store
	prefs        prefs.KV
	log          *zap.Logger
	now          func() time.Time

	passMu sync.Mutex

	mu     sync.Mutex
	latest notes.Snapshot
}

func NewSession(opts Options) *Session {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemory()
	}
	if opts.Status == nil {
		opts.Status = &state.Store{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		fs:     opts.Fs,
		status: opts.Status,
		prefs:  opts.Prefs,
		log:    opts.Logger.Named("filesync"),
		now:    opts.Now,
	}
	if opts.SandboxRoot != "" {
		s.sandboxed = &SandboxedBackend{Root: opts.SandboxRoot, Fs: opts.Fs}
	}
	if opts.Picker != nil {
		s.userSelected = &UserSelectedBackend{Picker: opts.Picker, Fs: opts.Fs}
	}
	s.engine = NewEngine(Serializer{Location: opts.Location}, s.log, opts.Now)
	s.debounce = NewDebouncer(opts.Delay, s.runScheduled)
	return s
}

// Capabilities probes the configured backends.
func (s *Session) Capabilities() Capabilities {
	return Probe(s.backends()...)
}

// IsSupported reports whether any backend is usable.
func (s *Session) IsSupported() bool {
	return s.Capabilities().Supported()
}

// Status returns the current status surface.
func (s *Session) Status() state.SyncStatus {
	return s.status.Snapshot()
}

// Store exposes the status store for subscribers.
func (s *Session) Store() *state.Store {
	return s.status
}

// Delay is the current debounce delay.
func (s *Session) Delay() time.Duration {
	return s.debounce.Delay()
}

// SetDelay changes the debounce delay for later notifications.
func (s *Session) SetDelay(d time.Duration) {
	s.debounce.SetDelay(d)
}

// Initialize restores a previously enabled session at start-up. A sandboxed
// session is re-acquired silently; a user-selected one cannot be and is
// marked as needing setup again.
func (s *Session) Initialize(ctx context.Context) {
	enabled, _ := s.prefs.Get(prefs.KeySyncEnabled)
	if enabled != "true" {
		s.log.Debug("sync not enabled, skipping restore")
		return
	}
	if !s.IsSupported() {
		s.log.Info("sync enabled but no backend is available")
		return
	}
	marker, _ := s.prefs.Get(prefs.KeySyncSetup)
	switch KindFromMarker(marker) {
	case KindSandboxed:
		if s.sandboxed == nil || !s.sandboxed.Available() {
			s.log.Warn("sandboxed sync configured but sandbox is unavailable")
			return
		}
		if _, err := s.handles.Acquire(ctx, s.sandboxed); err != nil {
			s.log.Warn("failed to restore sandboxed sync", zap.Error(err))
			return
		}
		s.activate(KindSandboxed)
		s.log.Info("restored sandboxed sync", zap.String("dir", s.sandboxed.Path()))
	case KindUserSelected:
		s.status.Update(func(st *state.SyncStatus) {
			st.IsSetup = false
			st.Error = resetupMessage
			st.Backend = string(KindUserSelected)
			st.State = state.StateNeedsResetup
		})
		s.log.Info("user-selected sync needs to be set up again")
	default:
		s.log.Debug("no sync setup recorded")
	}
}

// Setup acquires a directory and enables sync. It returns false when no
// directory was acquired; a canceled picker leaves the status untouched.
func (s *Session) Setup(ctx context.Context, opts SetupOptions) bool {
	if !s.IsSupported() {
		s.status.Update(func(st *state.SyncStatus) { st.Error = unsupportedMessage })
		s.log.Warn("sync setup requested but unsupported")
		return false
	}

	force := opts.ForceManual || s.consumeForceManual()
	before := s.status.Snapshot()

	if !force && s.sandboxed != nil && s.sandboxed.Available() {
		s.status.Update(func(st *state.SyncStatus) { st.State = state.StateProbing })
		dir, err := s.handles.Acquire(ctx, s.sandboxed)
		if err == nil {
			s.status.Update(func(st *state.SyncStatus) { st.State = state.StateSetupSandboxed })
			s.completeSetup(KindSandboxed, dir)
			return true
		}
		setupsTotal.WithLabelValues(string(KindSandboxed), "failed").Inc()
		s.log.Warn("sandboxed setup failed, trying user-selected directory", zap.Error(err))
	}

	if s.userSelected == nil {
		s.failSetup(before, errors.New("no directory picker configured"))
		return false
	}

	dir, err := s.handles.Acquire(ctx, s.userSelected)
	if err != nil {
		if errors.Is(err, ErrPickCanceled) || errors.Is(err, context.Canceled) {
			s.status.Update(func(st *state.SyncStatus) { *st = before })
			setupsTotal.WithLabelValues(string(KindUserSelected), "canceled").Inc()
			s.log.Info("directory selection canceled")
			return false
		}
		setupsTotal.WithLabelValues(string(KindUserSelected), "failed").Inc()
		s.failSetup(before, err)
		return false
	}
	s.status.Update(func(st *state.SyncStatus) { st.State = state.StateSetupManual })
	s.completeSetup(KindUserSelected, dir)
	return true
}

func (s *Session) completeSetup(kind BackendKind, dir *Directory) {
	if err := s.prefs.Set(prefs.KeySyncSetup, kind.Marker()); err != nil {
		s.log.Warn("failed to persist sync setup", zap.Error(err))
	}
	if err := s.prefs.Set(prefs.KeySyncEnabled, "true"); err != nil {
		s.log.Warn("failed to persist sync enabled flag", zap.Error(err))
	}
	s.activate(kind)
	setupsTotal.WithLabelValues(string(kind), "ok").Inc()
	s.log.Info("sync directory ready", zap.String("backend", string(kind)), zap.String("dir", dir.Path()))
	s.debounce.Trigger()
	s.status.Update(func(st *state.SyncStatus) { st.Phase = state.PhasePending })
}

func (s *Session) activate(kind BackendKind) {
	s.status.Update(func(st *state.SyncStatus) {
		st.IsSetup = true
		st.IsEnabled = true
		st.Error = ""
		st.Backend = string(kind)
		st.State = state.StateActive
		st.Phase = state.PhaseIdle
	})
}

func (s *Session) failSetup(before state.SyncStatus, err error) {
	s.status.Update(func(st *state.SyncStatus) {
		*st = before
		st.Error = setupFailedMessage
	})
	s.log.Error("sync setup failed", zap.Error(err))
}

func (s *Session) consumeForceManual() bool {
	v, ok := s.prefs.Get(prefs.KeySyncForceManual)
	if !ok {
		return false
	}
	if err := s.prefs.Remove(prefs.KeySyncForceManual); err != nil {
		s.log.Warn("failed to clear force-manual flag", zap.Error(err))
	}
	return v == "true"
}

// Notify records the latest snapshot and, when sync is active, schedules a
// pass after the debounce delay. Later notifications replace earlier ones.
func (s *Session) Notify(snap notes.Snapshot) {
	s.mu.Lock()
	s.latest = snap.Clone()
	s.mu.Unlock()

	if !s.status.Snapshot().Active() {
		return
	}
	s.debounce.Trigger()
	s.status.Update(func(st *state.SyncStatus) {
		if st.Phase != state.PhaseWriting {
			st.Phase = state.PhasePending
		}
	})
}

// ManualSync runs a pass immediately, dropping any pending scheduled pass.
func (s *Session) ManualSync(ctx context.Context) (PassResult, error) {
	if !s.status.Snapshot().Active() {
		return PassResult{}, ErrNotSetup
	}
	s.debounce.Cancel()
	return s.runPass(ctx, "manual")
}

func (s *Session) runScheduled() {
	if _, err := s.runPass(context.Background(), "scheduled"); err != nil && !errors.Is(err, ErrNotSetup) {
		s.log.Debug("scheduled pass did not complete", zap.Error(err))
	}
}

func (s *Session) runPass(ctx context.Context, trigger string) (PassResult, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	if !s.status.Snapshot().Active() {
		return PassResult{}, ErrNotSetup
	}

	s.mu.Lock()
	snap := s.latest
	s.mu.Unlock()

	s.status.Update(func(st *state.SyncStatus) { st.Phase = state.PhaseWriting })
	s.log.Debug("sync pass starting",
		zap.String("trigger", trigger),
		zap.Uint64("version", snap.Version),
		zap.Int("notes", snap.TotalNotes()),
	)

	dir, err := s.handles.Current(ctx)
	if err != nil {
		passesTotal.WithLabelValues("failed").Inc()
		return PassResult{}, s.passFailed(err)
	}
	res, err := s.engine.Run(ctx, dir, snap)
	if err != nil {
		s.handles.Invalidate()
		passesTotal.WithLabelValues("failed").Inc()
		return res, s.passFailed(err)
	}

	finished := s.now()
	pending := s.debounce.Pending()
	s.status.Update(func(st *state.SyncStatus) {
		st.LastSync = finished
		st.SyncCount++
		st.Error = ""
		st.LastPassFailures = res.Failed
		st.Phase = phaseAfterPass(pending)
	})
	passesTotal.WithLabelValues(res.Outcome()).Inc()
	filesTotal.WithLabelValues("written").Add(float64(res.Written))
	filesTotal.WithLabelValues("failed").Add(float64(res.Failed))
	passDuration.Observe(res.Duration.Seconds())
	return res, nil
}

func (s *Session) passFailed(err error) error {
	pending := s.debounce.Pending()
	if errors.Is(err, ErrResetupRequired) {
		s.status.Update(func(st *state.SyncStatus) {
			st.IsSetup = false
			st.Error = resetupMessage
			st.State = state.StateNeedsResetup
			st.Phase = state.PhaseIdle
		})
		s.log.Warn("sync directory must be selected again")
		return err
	}
	s.status.Update(func(st *state.SyncStatus) {
		st.Error = passFailedMessage
		st.Phase = phaseAfterPass(pending)
	})
	s.log.Error("sync pass failed", zap.Error(err))
	if !errors.Is(err, ErrPassFailed) {
		err = fmt.Errorf("%w: %w", ErrPassFailed, err)
	}
	return err
}

func phaseAfterPass(pending bool) state.Phase {
	if pending {
		return state.PhasePending
	}
	return state.PhaseIdle
}

// Pause stops scheduling passes but keeps the directory handle.
func (s *Session) Pause() bool {
	if !s.status.Snapshot().IsSetup {
		return false
	}
	s.debounce.Cancel()
	if err := s.prefs.Set(prefs.KeySyncEnabled, "false"); err != nil {
		s.log.Warn("failed to persist sync enabled flag", zap.Error(err))
	}
	s.status.Update(func(st *state.SyncStatus) {
		st.IsEnabled = false
		st.State = state.StatePaused
		st.Phase = state.PhaseIdle
	})
	s.log.Info("sync paused")
	return true
}

// Resume re-enables a paused session and schedules a pass.
func (s *Session) Resume(ctx context.Context) bool {
	st := s.status.Snapshot()
	if st.State != state.StatePaused {
		return false
	}
	if _, err := s.handles.Current(ctx); err != nil {
		s.passFailed(err)
		return false
	}
	if err := s.prefs.Set(prefs.KeySyncEnabled, "true"); err != nil {
		s.log.Warn("failed to persist sync enabled flag", zap.Error(err))
	}
	s.activate(s.handles.Kind())
	s.debounce.Trigger()
	s.status.Update(func(st *state.SyncStatus) { st.Phase = state.PhasePending })
	s.log.Info("sync resumed")
	return true
}

// Disable drops the directory, clears the persisted setup and resets the
// status to its defaults.
func (s *Session) Disable() {
	s.debounce.Cancel()
	s.handles.Release()
	if err := s.prefs.Remove(prefs.KeySyncSetup); err != nil {
		s.log.Warn("failed to clear sync setup", zap.Error(err))
	}
	if err := s.prefs.Set(prefs.KeySyncEnabled, "false"); err != nil {
		s.log.Warn("failed to persist sync enabled flag", zap.Error(err))
	}
	s.status.Reset()
	s.log.Info("sync disabled")
}

// Reset disables sync so the next Setup starts from scratch.
func (s *Session) Reset() {
	s.Disable()
	s.log.Info("sync reset, run setup to choose a directory again")
}

// ListFiles returns the files currently in the sync directory.
func (s *Session) ListFiles(ctx context.Context) ([]FileInfo, error) {
	if !s.status.Snapshot().IsSetup {
		return nil, ErrNotSetup
	}
	dir, err := s.handles.Current(ctx)
	if err != nil {
		return nil, err
	}
	return dir.List()
}

// Close stops the scheduler. A pass already running completes.
func (s *Session) Close() {
	s.debounce.Stop()
	// Wait for an in-flight pass.
	s.passMu.Lock()
	defer s.passMu.Unlock()
}

func (s *Session) backends() []StorageBackend {
	var out []StorageBackend
	if s.sandboxed != nil {
		out = append(out, s.sandboxed)
	}
	if s.userSelected != nil {
		out = append(out, s.userSelected)
	}
	return out
}
