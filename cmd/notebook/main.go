package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/notebook/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "notebook: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:           "notebook",
		Short:         "Notes with a local Markdown folder kept in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/notebook/config.toml)")
	flags.StringVar(&opts.PrefsPath, "prefs", "", "preferences file (overrides config)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "data directory for notes, sandbox and logs")
	flags.StringVar(&opts.Listen, "listen", "", "control API address")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.IntVar(&opts.PollEvery, "poll", 0, "notes poll interval in seconds when file watching is unavailable")

	root.AddCommand(
		newServeCommand(&opts),
		newSyncCommand(&opts),
		newStatusCommand(&opts),
		newNoteCommand(&opts),
		newExportCommand(&opts),
	)
	return root
}

func newServeCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run sync headless behind the control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Serve(cmd.Context(), *opts)
		},
	}
}

func newSyncCommand(opts *app.Options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass, setting up sync first when needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.SyncOnce(cmd.Context(), *opts, dir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "sync into this directory instead of the sandbox")
	return cmd
}

func newStatusCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.PrintStatus(cmd.Context(), *opts, cmd.OutOrStdout())
		},
	}
}

func newNoteCommand(opts *app.Options) *cobra.Command {
	note := &cobra.Command{
		Use:   "note",
		Short: "Edit notes",
	}

	var collection, title, content string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a note to a list, creating the list when needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.AddNote(*opts, collection, title, content, cmd.OutOrStdout())
		},
	}
	add.Flags().StringVar(&collection, "collection", "", "note list name")
	add.Flags().StringVar(&title, "title", "", "note title")
	add.Flags().StringVar(&content, "content", "", "note body")
	_ = add.MarkFlagRequired("collection")

	note.AddCommand(add)
	return note
}

func newExportCommand(opts *app.Options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the sandboxed sync folder to another directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Export(cmd.Context(), *opts, dir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "destination directory (prompts when empty)")
	return cmd
}
