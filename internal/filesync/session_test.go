package filesync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/notebook/internal/notes"
	"github.com/five82/notebook/internal/prefs"
	"github.com/five82/notebook/internal/state"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const sandboxRoot = "/data/sandbox"

func sandboxPath() string { return filepath.Join(sandboxRoot, SandboxDirName) }

// failingFs refuses to open files with a given base name for writing.
type failingFs struct {
	afero.Fs
	deny string
}

func (f failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if filepath.Base(name) == f.deny && flag&os.O_WRONLY != 0 {
		return nil, errors.New("permission denied")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

type harness struct {
	fs      afero.Fs
	prefs   *prefs.Memory
	session *Session
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{fs: afero.NewMemMapFs(), prefs: prefs.NewMemory()}
	opts := Options{
		SandboxRoot: sandboxRoot,
		Fs:          h.fs,
		Prefs:       h.prefs,
		Delay:       time.Hour,
		Location:    time.UTC,
		Now:         func() time.Time { return fixedNow },
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.fs = opts.Fs
	h.session = NewSession(opts)
	t.Cleanup(h.session.Close)
	return h
}

func (h *harness) read(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := afero.ReadFile(h.fs, filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func sampleSnapshot() notes.Snapshot {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	return notes.Snapshot{Version: 1, Collections: []notes.Collection{
		{Name: "Work", CreatedAt: day, UpdatedAt: day, Notes: []notes.Note{
			{Title: "Standup", Content: "Daily sync", CreatedAt: day, UpdatedAt: day},
			{Title: "Plan: Q3", Content: "Ship it", CreatedAt: day, UpdatedAt: day},
		}},
		{Name: "Personal", CreatedAt: day, UpdatedAt: day, Notes: []notes.Note{
			{Title: "Groceries", Content: "Milk", CreatedAt: day, UpdatedAt: day},
		}},
	}}
}

func TestSetupPrefersSandboxed(t *testing.T) {
	h := newHarness(t, nil)
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))

	st := h.session.Status()
	assert.True(t, st.IsSetup)
	assert.True(t, st.IsEnabled)
	assert.Equal(t, "sandboxed", st.Backend)
	assert.Equal(t, state.StateActive, st.State)
	assert.Empty(t, st.Error)

	setup, _ := h.prefs.Get(prefs.KeySyncSetup)
	enabled, _ := h.prefs.Get(prefs.KeySyncEnabled)
	assert.Equal(t, "opfs", setup)
	assert.Equal(t, "true", enabled)
}

func TestSetupSyncsSnapshotIntoSandbox(t *testing.T) {
	h := newHarness(t, nil)
	h.session.Notify(sampleSnapshot())
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))

	res, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Written)

	files, err := h.session.ListFiles(context.Background())
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"Work_Standup.md", "Work_Plan__Q3.md", "Personal_Groceries.md", "README.md"}, names)

	readme := h.read(t, sandboxPath(), "README.md")
	assert.Contains(t, readme, "Total Note Lists: 2\n")
	assert.Contains(t, readme, "Total Notes: 3\n")
	assert.Contains(t, h.read(t, sandboxPath(), "Work_Standup.md"), "Topic: Work\n")

	st := h.session.Status()
	assert.Equal(t, 1, st.SyncCount)
	assert.Equal(t, fixedNow, st.LastSync)
	assert.Equal(t, state.PhaseIdle, st.Phase)
}

func TestSyncWithNoCollectionsWritesIndexOnly(t *testing.T) {
	h := newHarness(t, nil)
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	_, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)

	readme := h.read(t, sandboxPath(), IndexFileName)
	assert.Contains(t, readme, "Total Note Lists: 0\n")
	assert.Contains(t, readme, "Total Notes: 0\n")
	files, err := h.session.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestForceManualUsesPicker(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Picker = StaticPicker("/picked") })
	require.NoError(t, h.fs.MkdirAll("/picked", 0o755))
	require.NoError(t, h.prefs.Set(prefs.KeySyncForceManual, "true"))

	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	assert.Equal(t, "user-selected", h.session.Status().Backend)
	setup, _ := h.prefs.Get(prefs.KeySyncSetup)
	assert.Equal(t, "manual", setup)
	_, ok := h.prefs.Get(prefs.KeySyncForceManual)
	assert.False(t, ok, "force-manual flag should be consumed")

	_, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)
	exists, _ := afero.Exists(h.fs, "/picked/README.md")
	assert.True(t, exists)
}

func TestSetupCancelLeavesStatusUnchanged(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.SandboxRoot = ""
		o.Picker = StaticPicker("")
	})
	before := h.session.Status()
	assert.False(t, h.session.Setup(context.Background(), SetupOptions{}))
	assert.Equal(t, before, h.session.Status())
	_, ok := h.prefs.Get(prefs.KeySyncSetup)
	assert.False(t, ok)
}

func TestSetupFailureReportsError(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.SandboxRoot = ""
		o.Picker = StaticPicker("/does/not/exist")
	})
	assert.False(t, h.session.Setup(context.Background(), SetupOptions{}))
	st := h.session.Status()
	assert.False(t, st.IsSetup)
	assert.Equal(t, setupFailedMessage, st.Error)
}

func TestSetupUnsupported(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.SandboxRoot = "" })
	assert.False(t, h.session.IsSupported())
	assert.False(t, h.session.Setup(context.Background(), SetupOptions{}))
	assert.Equal(t, unsupportedMessage, h.session.Status().Error)
}

func TestSandboxFailureFallsBackToPicker(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Picker = StaticPicker("/picked") })
	require.NoError(t, h.fs.MkdirAll("/picked", 0o755))
	h.session.sandboxed.Fs = afero.NewReadOnlyFs(h.fs)

	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	assert.Equal(t, "user-selected", h.session.Status().Backend)
}

func TestDebouncedNotificationsProduceOnePass(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Delay = 40 * time.Millisecond })
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	// Setup schedules a pass; the notifications below supersede it.
	for i := 1; i <= 3; i++ {
		snap := sampleSnapshot()
		snap.Version = uint64(i)
		snap.Collections[0].Notes[0].Content = strings.Repeat("v", i)
		h.session.Notify(snap)
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, state.PhasePending, h.session.Status().Phase)

	require.Eventually(t, func() bool { return h.session.Status().SyncCount == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, h.session.Status().SyncCount)
	assert.Contains(t, h.read(t, sandboxPath(), "Work_Standup.md"), "\nvvv\n")
}

func TestNotifyIgnoredWhenNotActive(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Delay = 10 * time.Millisecond })
	h.session.Notify(sampleSnapshot())
	time.Sleep(40 * time.Millisecond)
	st := h.session.Status()
	assert.Equal(t, 0, st.SyncCount)
	assert.Equal(t, state.PhaseIdle, st.Phase)

	_, err := h.session.ManualSync(context.Background())
	assert.ErrorIs(t, err, ErrNotSetup)
}

func TestManualSyncCancelsPendingPass(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Delay = 30 * time.Millisecond })
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	h.session.Notify(sampleSnapshot())
	_, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, h.session.Status().SyncCount)
}

func TestPerFileFailureIsCounted(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Fs = failingFs{Fs: afero.NewMemMapFs(), deny: "Work_Standup.md"}
	})
	h.session.Notify(sampleSnapshot())
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))

	res, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Written)
	assert.Equal(t, 1, res.Failed)
	var ferr *FileError
	require.ErrorAs(t, res.Err(), &ferr)
	assert.Equal(t, "Work_Standup.md", ferr.Name)

	st := h.session.Status()
	assert.Equal(t, 1, st.SyncCount)
	assert.Equal(t, 1, st.LastPassFailures)
	assert.Empty(t, st.Error)
	assert.Equal(t, "partial", res.Outcome())

	exists, _ := afero.Exists(h.fs, filepath.Join(sandboxPath(), "Work_Standup.md"))
	assert.False(t, exists)
	exists, _ = afero.Exists(h.fs, filepath.Join(sandboxPath(), "README.md"))
	assert.True(t, exists)
}

func TestPassFailureKeepsCountersAndReacquires(t *testing.T) {
	h := newHarness(t, nil)
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	_, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)
	first := h.session.Status()

	require.NoError(t, h.fs.RemoveAll(sandboxPath()))
	_, err = h.session.ManualSync(context.Background())
	require.ErrorIs(t, err, ErrPassFailed)

	st := h.session.Status()
	assert.Equal(t, passFailedMessage, st.Error)
	assert.Equal(t, first.SyncCount, st.SyncCount)
	assert.Equal(t, first.LastSync, st.LastSync)
	assert.False(t, h.session.handles.Live())

	_, err = h.session.ManualSync(context.Background())
	require.NoError(t, err)
	st = h.session.Status()
	assert.Equal(t, first.SyncCount+1, st.SyncCount)
	assert.Empty(t, st.Error)
}

func TestUserSelectedPassFailureStaysFailed(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.SandboxRoot = ""
		o.Picker = StaticPicker("/picked")
	})
	require.NoError(t, h.fs.MkdirAll("/picked", 0o755))
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	require.NoError(t, h.fs.RemoveAll("/picked"))

	_, err := h.session.ManualSync(context.Background())
	require.ErrorIs(t, err, ErrPassFailed)
	_, err = h.session.ManualSync(context.Background())
	require.ErrorIs(t, err, ErrPassFailed)
	assert.Equal(t, 0, h.session.Status().SyncCount)
}

func TestInitializeRestoresSandboxed(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.prefs.Set(prefs.KeySyncEnabled, "true"))
	require.NoError(t, h.prefs.Set(prefs.KeySyncSetup, "opfs"))

	h.session.Initialize(context.Background())
	st := h.session.Status()
	assert.True(t, st.Active())
	assert.Equal(t, "sandboxed", st.Backend)
	_, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)
}

func TestInitializeManualNeedsResetup(t *testing.T) {
	var asked atomic.Bool
	picker := PickerFunc(func(context.Context, Purpose) (string, error) {
		asked.Store(true)
		return "", ErrPickCanceled
	})
	h := newHarness(t, func(o *Options) { o.Picker = picker })
	require.NoError(t, h.prefs.Set(prefs.KeySyncEnabled, "true"))
	require.NoError(t, h.prefs.Set(prefs.KeySyncSetup, "manual"))

	h.session.Initialize(context.Background())
	st := h.session.Status()
	assert.False(t, st.IsSetup)
	assert.Equal(t, state.StateNeedsResetup, st.State)
	assert.Equal(t, resetupMessage, st.Error)
	assert.False(t, asked.Load(), "restore must not prompt")
}

func TestInitializeSkipsWhenDisabled(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.prefs.Set(prefs.KeySyncSetup, "opfs"))
	h.session.Initialize(context.Background())
	assert.Equal(t, state.DefaultStatus(), h.session.Status())
}

func TestDisableClearsEverything(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Delay = 20 * time.Millisecond })
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	h.session.Notify(sampleSnapshot())
	h.session.Disable()

	assert.Equal(t, state.DefaultStatus(), h.session.Status())
	_, ok := h.prefs.Get(prefs.KeySyncSetup)
	assert.False(t, ok)
	enabled, _ := h.prefs.Get(prefs.KeySyncEnabled)
	assert.Equal(t, "false", enabled)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, h.session.Status().SyncCount)
	_, err := h.session.ListFiles(context.Background())
	assert.ErrorIs(t, err, ErrNotSetup)
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t, nil)
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))

	require.True(t, h.session.Pause())
	st := h.session.Status()
	assert.Equal(t, state.StatePaused, st.State)
	assert.False(t, st.IsEnabled)
	assert.True(t, st.IsSetup)
	_, err := h.session.ManualSync(context.Background())
	assert.ErrorIs(t, err, ErrNotSetup)

	require.True(t, h.session.Resume(context.Background()))
	assert.Equal(t, state.StateActive, h.session.Status().State)
	assert.False(t, h.session.Resume(context.Background()))
}

func TestExportCopiesSandboxFiles(t *testing.T) {
	h := newHarness(t, nil)
	h.session.Notify(sampleSnapshot())
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	_, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)

	require.NoError(t, h.fs.MkdirAll("/export", 0o755))
	n, err := h.session.Export(context.Background(), StaticPicker("/export"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, h.read(t, sandboxPath(), "README.md"), h.read(t, "/export", "README.md"))

	_, err = h.session.Export(context.Background(), StaticPicker(""))
	assert.ErrorIs(t, err, ErrPickCanceled)
}

func TestExportRequiresSandbox(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.SandboxRoot = ""
		o.Picker = StaticPicker("/picked")
	})
	require.NoError(t, h.fs.MkdirAll("/picked", 0o755))
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))
	_, err := h.session.Export(context.Background(), StaticPicker("/export"))
	assert.ErrorIs(t, err, ErrNotSandboxed)
}

func TestSyncWritesExampleNoteLists(t *testing.T) {
	h := newHarness(t, nil)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	h.session.Notify(notes.Snapshot{Version: 1, Collections: []notes.Collection{
		{Name: "Work", CreatedAt: day, UpdatedAt: day, Notes: []notes.Note{
			{Title: "Plan", Content: "Step 1", CreatedAt: day, UpdatedAt: day},
			{Title: "Review", Content: "", CreatedAt: day, UpdatedAt: day},
		}},
		{Name: "Personal", CreatedAt: day, UpdatedAt: day, Notes: []notes.Note{
			{Title: "Gift Ideas", Content: "Book", CreatedAt: day, UpdatedAt: day},
		}},
	}})
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))

	res, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Written)
	assert.Zero(t, res.Failed)

	files, err := h.session.ListFiles(context.Background())
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"Work_Plan.md", "Work_Review.md", "Personal_Gift_Ideas.md", "README.md"}, names)

	review := h.read(t, sandboxPath(), "Work_Review.md")
	assert.True(t, strings.HasPrefix(review, "# Review\n"), review)
	assert.True(t, strings.HasSuffix(review, "---\n\n\n"), review)

	index := h.read(t, sandboxPath(), "README.md")
	assert.Contains(t, index, "Total Note Lists: 2\n")
	assert.Contains(t, index, "Total Notes: 3\n")
	assert.Contains(t, index, "### Work\n- Notes: 2\n")
	assert.Contains(t, index, "### Personal\n- Notes: 1\n")
}

func TestSyncWritesLongMultibyteTitleOnDisk(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t, func(o *Options) {
		o.Fs = afero.NewOsFs()
		o.SandboxRoot = root
	})
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	title := strings.Repeat("漢", 120)
	h.session.Notify(notes.Snapshot{Version: 1, Collections: []notes.Collection{
		{Name: "日記", CreatedAt: day, UpdatedAt: day, Notes: []notes.Note{
			{Title: title, Content: "今日", CreatedAt: day, UpdatedAt: day},
		}},
	}})
	require.True(t, h.session.Setup(context.Background(), SetupOptions{}))

	res, err := h.session.ManualSync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Failed, "errors: %v", res.Errors)
	assert.Equal(t, 2, res.Written)

	body := h.read(t, filepath.Join(root, SandboxDirName), FileName("日記", title))
	assert.Contains(t, body, "今日")
}
