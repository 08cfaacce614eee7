package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// Reloader re-reads a backing file and reports whether it changed.
type Reloader interface {
	Reload() (bool, error)
}

// StartPoller launches a background goroutine that reloads the notes file at
// a fixed cadence, backing off while reads keep failing. It returns
// immediately.
func StartPoller(ctx context.Context, r Reloader, log *zap.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		failures := 0
		for {
			if refresh(r, log) {
				failures = 0
			} else {
				failures++
			}
			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func refresh(r Reloader, log *zap.Logger) bool {
	changed, err := r.Reload()
	if err != nil {
		log.Warn("notes poll failed", zap.Error(err))
		return false
	}
	if changed {
		log.Debug("notes changed on disk")
	}
	return true
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func intervalFrom(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultPollInterval
	}
	return time.Duration(seconds) * time.Second
}
