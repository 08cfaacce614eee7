package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/five82/notebook/internal/control"
	"github.com/five82/notebook/internal/filesync"
	"github.com/five82/notebook/internal/notes"
	"github.com/five82/notebook/internal/prefs"
)

// SyncOnce restores or sets up sync and runs one pass. dir, when set,
// forces the user-selected backend with that directory; otherwise the
// session uses the sandbox or prompts on the terminal.
func SyncOnce(ctx context.Context, opts Options, dir string, out io.Writer) error {
	var picker filesync.DirectoryPicker = filesync.NewPromptPicker()
	if strings.TrimSpace(dir) != "" {
		picker = filesync.StaticPicker(dir)
	}
	env, err := Open(opts, picker)
	if err != nil {
		return err
	}
	defer env.Close()

	env.Session.Initialize(ctx)
	env.Session.Notify(env.Notes.Snapshot())
	if dir != "" || !env.Session.Status().Active() {
		if !env.Session.Setup(ctx, filesync.SetupOptions{ForceManual: dir != ""}) {
			if msg := env.Session.Status().Error; msg != "" {
				return errors.New(msg)
			}
			return errors.New("setup canceled")
		}
	}

	res, err := env.Session.ManualSync(ctx)
	if err != nil {
		if msg := env.Session.Status().Error; msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}
	fmt.Fprintf(out, "Synced %d files", res.Written)
	if res.Failed > 0 {
		fmt.Fprintf(out, ", %d failed", res.Failed)
	}
	fmt.Fprintln(out)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %v\n", e)
	}
	return nil
}

// PrintStatus reports the status of a running server, or the persisted
// setup when none is reachable.
func PrintStatus(ctx context.Context, opts Options, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	client, err := control.NewClient(cfg.Listen)
	if err != nil {
		return err
	}
	st, err := client.FetchStatus(ctx)
	if err == nil {
		fmt.Fprintf(out, "State:     %s\n", st.State)
		fmt.Fprintf(out, "Backend:   %s\n", st.Backend)
		fmt.Fprintf(out, "Enabled:   %t\n", st.Enabled)
		fmt.Fprintf(out, "Syncs:     %d\n", st.SyncCount)
		if st.LastSync != nil {
			fmt.Fprintf(out, "Last sync: %s\n", st.LastSync.Local().Format("2006-01-02 15:04:05"))
		}
		if st.LastPassFailures > 0 {
			fmt.Fprintf(out, "Failures:  %d in last pass\n", st.LastPassFailures)
		}
		if st.Error != "" {
			fmt.Fprintf(out, "Error:     %s\n", st.Error)
		}
		return nil
	}

	env, openErr := Open(opts, nil)
	if openErr != nil {
		return openErr
	}
	defer env.Close()
	setup, _ := env.Prefs.Get(prefs.KeySyncSetup)
	enabled, _ := env.Prefs.Get(prefs.KeySyncEnabled)
	fmt.Fprintf(out, "Server not reachable at %s\n", cfg.Listen)
	fmt.Fprintf(out, "Setup:     %s\n", filesync.KindFromMarker(setup))
	fmt.Fprintf(out, "Enabled:   %s\n", orValue(enabled, "false"))
	snap := env.Notes.Snapshot()
	fmt.Fprintf(out, "Notes:     %d in %d lists\n", snap.TotalNotes(), len(snap.Collections))
	return nil
}

// AddNote appends a note, creating the collection when needed.
func AddNote(opts Options, collection, title, content string, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	store, err := notes.Load(cfg.NotesFile)
	if err != nil {
		return err
	}
	c, ok := store.FindCollection(collection)
	if !ok {
		if c, err = store.CreateCollection(collection); err != nil {
			return err
		}
	}
	n, err := store.AddNote(c.ID, title, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %q to %s (%s)\n", n.Title, c.Name, filesync.FileName(c.Name, n.Title))
	return nil
}

// Export copies the sandboxed sync directory into dir.
func Export(ctx context.Context, opts Options, dir string, out io.Writer) error {
	env, err := Open(opts, nil)
	if err != nil {
		return err
	}
	defer env.Close()

	env.Session.Initialize(ctx)
	if !env.Session.Status().IsSetup {
		return fmt.Errorf("export: %w", filesync.ErrNotSetup)
	}
	var picker filesync.DirectoryPicker = filesync.NewPromptPicker()
	if strings.TrimSpace(dir) != "" {
		picker = filesync.StaticPicker(dir)
	}
	n, err := env.Session.Export(ctx, picker)
	if errors.Is(err, filesync.ErrPickCanceled) {
		fmt.Fprintln(out, "Export canceled")
		return nil
	}
	fmt.Fprintf(out, "Exported %d files\n", n)
	return err
}

func orValue(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
