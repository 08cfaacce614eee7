package filesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/notebook/internal/notes"
)

// PassResult summarises one sync pass.
type PassResult struct {
	Written  int
	Failed   int
	Errors   []error
	Duration time.Duration
}

// Outcome classifies the pass for logging and metrics.
func (r PassResult) Outcome() string {
	switch {
	case r.Failed == 0:
		return "success"
	case r.Written == 0:
		return "failed"
	default:
		return "partial"
	}
}

// Engine writes a snapshot into a Directory.
type Engine struct {
	serializer Serializer
	log        *zap.Logger
	now        func() time.Time
}

func NewEngine(serializer Serializer, log *zap.Logger, now func() time.Time) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{serializer: serializer, log: log, now: now}
}

// Run writes every note then the index. It returns an error wrapping
// ErrPassFailed only when the directory is unusable; individual file
// failures are collected in the result and do not stop the pass.
func (e *Engine) Run(ctx context.Context, dir *Directory, snap notes.Snapshot) (PassResult, error) {
	var res PassResult
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if dir == nil {
		return res, fmt.Errorf("%w: no directory", ErrPassFailed)
	}
	start := e.now()
	if err := dir.Check(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrPassFailed, err)
	}

	for _, f := range e.serializer.Render(snap, start) {
		if err := dir.WriteFile(f.Name, []byte(f.Content)); err != nil {
			ferr := &FileError{Name: f.Name, Err: err}
			res.Failed++
			res.Errors = append(res.Errors, ferr)
			e.log.Warn("failed to write file", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		res.Written++
	}

	res.Duration = e.now().Sub(start)
	e.log.Info("sync pass finished",
		zap.String("dir", dir.Path()),
		zap.String("result", res.Outcome()),
		zap.Int("written", res.Written),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Err joins the per-file errors, or returns nil.
func (r PassResult) Err() error {
	return errors.Join(r.Errors...)
}
