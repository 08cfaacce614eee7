package filesync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notebook",
		Subsystem: "sync",
		Name:      "passes_total",
		Help:      "Sync passes by outcome (success, partial, failed).",
	}, []string{"result"})

	filesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notebook",
		Subsystem: "sync",
		Name:      "files_total",
		Help:      "Files handled by sync passes (written, failed).",
	}, []string{"result"})

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "notebook",
		Subsystem: "sync",
		Name:      "pass_duration_seconds",
		Help:      "Wall time of completed sync passes.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	setupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notebook",
		Subsystem: "sync",
		Name:      "setups_total",
		Help:      "Setup attempts by backend and result.",
	}, []string{"backend", "result"})

	exportedFiles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "notebook",
		Subsystem: "sync",
		Name:      "exported_files_total",
		Help:      "Files copied out of the sandboxed directory.",
	})
)
