// Package janitor clears device storage nobody will read again: transient
// selections left behind by abandoned detail screens, and devices that have
// not been seen for the retention period.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/robfig/cron/v3"
)

type Purger interface {
	PurgeSelections(ctx context.Context, cutoff time.Time, limit int) (int, error)
	PurgeDevices(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type Config struct {
	// Schedule is a standard cron expression or descriptor ("@every 10m").
	Schedule        string
	SelectionTTL    time.Duration
	DeviceRetention time.Duration
	Batch           int
}

type Janitor struct {
	store    Purger
	schedule cron.Schedule
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

func New(store Purger, cfg Config, logger *slog.Logger) (*Janitor, error) {
	sched, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse janitor schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Batch < 1 {
		cfg.Batch = 500
	}
	return &Janitor{
		store:    store,
		schedule: sched,
		cfg:      cfg,
		logger:   logger.With("component", "janitor"),
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source. Tests only.
func (j *Janitor) WithClock(now func() time.Time) *Janitor {
	j.now = now
	return j
}

type Result struct {
	Selections int
	Devices    int
}

// Start runs a sweep at every schedule tick until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor started", "schedule", j.cfg.Schedule, "selection_ttl", j.cfg.SelectionTTL, "retention", j.cfg.DeviceRetention)

	for {
		next := j.schedule.Next(j.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor shut down")
			return
		case <-timer.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.logger.Error("janitor sweep", "error", err)
			}
		}
	}
}

// Sweep purges in batches until nothing old is left.
func (j *Janitor) Sweep(ctx context.Context) (Result, error) {
	began := time.Now()
	defer func() {
		metrics.JanitorCycleDuration.Observe(time.Since(began).Seconds())
	}()
	start := j.now()

	var res Result
	var err error
	res.Selections, err = j.drain(ctx, "selection", start.Add(-j.cfg.SelectionTTL), j.store.PurgeSelections)
	if err != nil {
		return res, err
	}
	res.Devices, err = j.drain(ctx, "device", start.Add(-j.cfg.DeviceRetention), j.store.PurgeDevices)
	if err != nil {
		return res, err
	}

	if res.Selections > 0 || res.Devices > 0 {
		j.logger.Info("janitor purged", "selections", res.Selections, "devices", res.Devices)
	}
	return res, nil
}

func (j *Janitor) drain(ctx context.Context, kind string, cutoff time.Time, purge func(context.Context, time.Time, int) (int, error)) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := purge(ctx, cutoff, j.cfg.Batch)
		if err != nil {
			return total, fmt.Errorf("purge %ss: %w", kind, err)
		}
		total += n
		metrics.JanitorPurgedTotal.WithLabelValues(kind).Add(float64(n))
		if n < j.cfg.Batch {
			return total, nil
		}
	}
}
