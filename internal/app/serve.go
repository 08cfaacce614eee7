package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/five82/notebook/internal/control"
	"github.com/five82/notebook/internal/filesync"
)

// Serve runs the sync session headless behind the control API. Directories
// for the user-selected backend come from the setup request body.
func Serve(ctx context.Context, opts Options) error {
	env, err := Open(opts, filesync.ContextPicker{})
	if err != nil {
		return err
	}
	defer env.Close()

	env.Start(ctx, opts.PollEvery)
	env.Log.Info("notebook serving",
		zap.String("notes", env.Notes.Path()),
		zap.String("sandbox", env.Config.SandboxDir),
		zap.Duration("delay", env.Session.Delay()),
	)

	srv := control.NewServer(env.Session, env.Log)
	if err := srv.ListenAndServe(ctx, env.Config.Listen); err != nil {
		return fmt.Errorf("control api: %w", err)
	}
	return nil
}
