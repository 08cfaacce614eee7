package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/notebook/internal/prefs"
	"github.com/five82/notebook/internal/ui"
)

// Run boots the TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	opts.LogFile = true
	picker := ui.NewPicker()
	env, err := Open(opts, picker)
	if err != nil {
		return err
	}
	defer env.Close()

	env.Start(ctx, opts.PollEvery)

	err = ui.Run(ui.Options{
		Context:    ctx,
		Controller: env.Session,
		Notes:      env.Notes,
		Prefs:      env.Prefs,
		Picker:     picker,
		LogPath:    env.Config.LogFile,
		SyncDir:    env.Config.SandboxDir,
		ThemeName:  prefs.Theme(env.Prefs),
	})
	if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
