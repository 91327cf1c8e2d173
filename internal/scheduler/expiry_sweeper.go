package scheduler

import (
	"context"
	"fmt"
	"time"

	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"

	"go.uber.org/multierr"
)

const (
	jobExpirySweep          = "expiry_sweep"
	defaultExpiryBatchSize  = 200
	maxExpiryBatchesPerTick = 20
)

// Expirer expires up to limit overdue records and reports how many changed.
type Expirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// ExpirySweeper expires overdue quotes and pending offers in batches.
// Lazy expiry on read keeps behavior correct between sweeps.
type ExpirySweeper struct {
	quotes  Expirer
	offers  Expirer
	batch   int
	metrics *metrics.JobMetrics
	log     *logger.Logger
}

func NewExpirySweeper(quotes, offers Expirer, batch int, m *metrics.JobMetrics, log *logger.Logger) *ExpirySweeper {
	if batch < 1 {
		batch = defaultExpiryBatchSize
	}
	return &ExpirySweeper{quotes: quotes, offers: offers, batch: batch, metrics: m, log: log}
}

// Sweep runs until both backlogs are drained or the batch cap is hit. A
// failure in one entity does not stop the other.
func (s *ExpirySweeper) Sweep(ctx context.Context) error {
	start := time.Now()
	quotes, quoteErr := s.drain(ctx, "quote", s.quotes)
	offers, offerErr := s.drain(ctx, "offer", s.offers)
	err := multierr.Combine(quoteErr, offerErr)

	s.metrics.ObserveDuration(jobExpirySweep, time.Since(start))
	s.metrics.AddAffected(jobExpirySweep, quotes+offers)
	if err != nil {
		s.metrics.IncFailure(jobExpirySweep)
		s.log.Error("expiry sweep failed", "quotesExpired", quotes, "offersExpired", offers, "error", err)
		return err
	}
	s.metrics.IncSuccess(jobExpirySweep)
	if quotes+offers > 0 {
		s.log.Info("expiry sweep completed", "quotesExpired", quotes, "offersExpired", offers)
	}
	return nil
}

func (s *ExpirySweeper) drain(ctx context.Context, entity string, e Expirer) (int, error) {
	if e == nil {
		return 0, nil
	}
	total := 0
	for i := 0; i < maxExpiryBatchesPerTick; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := e.ExpireOverdue(ctx, s.batch)
		total += n
		if err != nil {
			return total, fmt.Errorf("expire %ss: %w", entity, err)
		}
		if n < s.batch {
			return total, nil
		}
	}
	s.log.Warn("expiry sweep hit batch cap", "entity", entity, "expired", total)
	return total, nil
}
