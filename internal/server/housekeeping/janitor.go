// Package housekeeping runs periodic cleanup of expired server state.
package housekeeping

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task removes expired records and reports how many were removed.
type Task struct {
	Name  string
	Purge func(ctx context.Context) (int64, error)
}

// Janitor runs every task once at start and then on each tick.
type Janitor struct {
	tasks    []Task
	interval time.Duration
	logger   logging.Logger

	runs   prometheus.Counter
	purged *prometheus.CounterVec
	errors *prometheus.CounterVec
}

const defaultInterval = 10 * time.Minute

// NewJanitor falls back to a ten minute interval when interval is not
// positive.
func NewJanitor(interval time.Duration, logger logging.Logger, reg prometheus.Registerer, tasks ...Task) *Janitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	factory := promauto.With(reg)
	return &Janitor{
		tasks:    tasks,
		interval: interval,
		logger:   logger.With("module", "janitor"),
		runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "gophshare_janitor_runs_total",
			Help: "Completed janitor passes.",
		}),
		purged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gophshare_janitor_purged_total",
			Help: "Expired records removed, by task.",
		}, []string{"task"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gophshare_janitor_errors_total",
			Help: "Failed purge attempts, by task.",
		}, []string{"task"}),
	}
}

// Run blocks until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info(ctx, "Stopping janitor...")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes each task. A failing task does not stop the others.
func (j *Janitor) RunOnce(ctx context.Context) {
	for _, t := range j.tasks {
		n, err := t.Purge(ctx)
		if err != nil {
			j.errors.WithLabelValues(t.Name).Inc()
			j.logger.Error(ctx, "purge failed", "task", t.Name, "error", err)
			continue
		}
		j.purged.WithLabelValues(t.Name).Add(float64(n))
		if n > 0 {
			j.logger.Debug(ctx, "purged expired records", "task", t.Name, "count", n)
		}
	}
	j.runs.Inc()
}
