package service

import (
	"context"
	"log/slog"
	"time"
)

type revocationSweeper interface {
	Sweep(now time.Time) int
}

type expiredEntryCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

type idlePruner interface {
	Prune() int
}

// Janitor periodically drops revocation entries for tokens that have expired
// on their own and purges stale idempotency cache rows.
type Janitor struct {
	revocations revocationSweeper
	idempotency expiredEntryCleaner
	limiters    []idlePruner
	logger      *slog.Logger
	interval    time.Duration
	now         func() time.Time
}

func NewJanitor(revocations revocationSweeper, idempotency expiredEntryCleaner, logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		revocations: revocations,
		idempotency: idempotency,
		logger:      logger,
		interval:    interval,
		now:         time.Now,
	}
}

// WithLimiters adds rate limiters whose idle buckets are dropped on each sweep.
func (j *Janitor) WithLimiters(ls ...idlePruner) *Janitor {
	j.limiters = append(j.limiters, ls...)
	return j
}

func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor started", "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	revoked := j.revocations.Sweep(j.now())

	cleaned, err := j.idempotency.CleanExpired(ctx)
	if err != nil {
		j.logger.Error("failed to clean idempotency cache", "error", err)
	}

	pruned := 0
	for _, l := range j.limiters {
		pruned += l.Prune()
	}

	if revoked > 0 || cleaned > 0 || pruned > 0 {
		j.logger.Info("janitor sweep",
			"revocations_dropped", revoked,
			"idempotency_rows_deleted", cleaned,
			"limiters_pruned", pruned,
		)
	}
}
