package cron

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drops expired cache entries and reports how many were removed.
type Sweeper interface {
	Sweep() int
}

type evictionRecorder interface {
	AddCacheEvictions(reason string, n int)
}

type CacheJobs struct {
	sweeper  Sweeper
	metrics  evictionRecorder
	logger   *slog.Logger
	interval time.Duration
}

func NewCacheJobs(sweeper Sweeper, metrics evictionRecorder, logger *slog.Logger, interval time.Duration) *CacheJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheJobs{sweeper: sweeper, metrics: metrics, logger: logger, interval: interval}
}

func (j *CacheJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("cache_sweep", j.interval, j.SweepExpired)
}

// SweepExpired removes expired in-memory results.
func (j *CacheJobs) SweepExpired(_ context.Context) error {
	removed := j.sweeper.Sweep()
	if j.metrics != nil {
		j.metrics.AddCacheEvictions("sweep", removed)
	}
	if removed > 0 {
		j.logger.Info("Cron: swept expired cache entries", "removed", removed)
	}
	return nil
}
