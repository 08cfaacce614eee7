package filesync

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Purpose tells a picker why a directory is being requested.
type Purpose string

const (
	PurposeSync   Purpose = "sync"
	PurposeExport Purpose = "export"
)

// DirectoryPicker asks the user for a directory. Implementations return
// ErrPickCanceled when the user declines.
type DirectoryPicker interface {
	PickDirectory(ctx context.Context, purpose Purpose) (string, error)
}

// PickerFunc adapts a function to DirectoryPicker.
type PickerFunc func(ctx context.Context, purpose Purpose) (string, error)

func (f PickerFunc) PickDirectory(ctx context.Context, purpose Purpose) (string, error) {
	return f(ctx, purpose)
}

// StaticPicker always answers with the same path. An empty path cancels.
type StaticPicker string

func (p StaticPicker) PickDirectory(ctx context.Context, _ Purpose) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := strings.TrimSpace(string(p))
	if path == "" {
		return "", ErrPickCanceled
	}
	return expandHome(path), nil
}

type directoryKey struct{}

// WithDirectory attaches a pre-chosen directory to ctx for ContextPicker.
func WithDirectory(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, directoryKey{}, path)
}

// ContextPicker answers with the directory attached by WithDirectory. When
// none is attached it asks Fallback, or cancels if Fallback is nil.
type ContextPicker struct {
	Fallback DirectoryPicker
}

func (p ContextPicker) PickDirectory(ctx context.Context, purpose Purpose) (string, error) {
	if path, ok := ctx.Value(directoryKey{}).(string); ok && strings.TrimSpace(path) != "" {
		return StaticPicker(path).PickDirectory(ctx, purpose)
	}
	if p.Fallback != nil {
		return p.Fallback.PickDirectory(ctx, purpose)
	}
	return "", ErrPickCanceled
}

// PromptPicker reads a directory path from a line-oriented terminal.
type PromptPicker struct {
	In  io.Reader
	Out io.Writer
}

// NewPromptPicker prompts on stdout and reads from stdin.
func NewPromptPicker() *PromptPicker {
	return &PromptPicker{In: os.Stdin, Out: os.Stdout}
}

func (p *PromptPicker) PickDirectory(ctx context.Context, purpose Purpose) (string, error) {
	prompt := "Folder for note sync"
	if purpose == PurposeExport {
		prompt = "Folder to export notes into"
	}
	fmt.Fprintf(p.Out, "%s (leave empty to cancel): ", prompt)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		line := strings.TrimSpace(a.line)
		if line == "" {
			if a.err != nil && a.err != io.EOF {
				return "", fmt.Errorf("read directory: %w", a.err)
			}
			return "", ErrPickCanceled
		}
		return expandHome(line), nil
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
