package scheduler

import (
	"context"
	"fmt"
	"time"

	"flyttbas_backend/platform/config"
	"flyttbas_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

const defaultExpirySweepSchedule = "@every 5m"

// SweepEnqueuer queues expiry sweeps for the worker.
type SweepEnqueuer interface {
	EnqueueExpirySweep(ctx context.Context, payload ExpirySweepPayload, window time.Duration) error
}

// Cron fires periodic lifecycle jobs. It only enqueues; the worker does the work.
type Cron struct {
	cron     *cron.Cron
	enqueuer SweepEnqueuer
	batch    int
	window   time.Duration
	now      func() time.Time
	log      *logger.Logger
}

func NewCron(cfg config.SchedulerConfig, enqueuer SweepEnqueuer, log *logger.Logger) (*Cron, error) {
	schedule := cfg.GetExpirySweepSchedule()
	if schedule == "" {
		schedule = defaultExpirySweepSchedule
	}

	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse expiry sweep schedule %q: %w", schedule, err)
	}

	c := &Cron{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		enqueuer: enqueuer,
		batch:    cfg.GetExpirySweepBatchSize(),
		window:   uniqueWindow(sched),
		now:      time.Now,
		log:      log,
	}
	c.cron.Schedule(sched, cron.FuncJob(func() { c.tick(context.Background()) }))
	return c, nil
}

// Run starts the cron loop and blocks until ctx is done.
func (c *Cron) Run(ctx context.Context) {
	c.cron.Start()
	c.log.Info("cron started", "entries", len(c.cron.Entries()))
	<-ctx.Done()
	<-c.cron.Stop().Done()
	c.log.Info("cron stopped")
}

func (c *Cron) tick(ctx context.Context) {
	payload := ExpirySweepPayload{ScheduledAt: c.now().UTC(), BatchSize: c.batch}
	if err := c.enqueuer.EnqueueExpirySweep(ctx, payload, c.window); err != nil {
		c.log.Error("enqueue expiry sweep failed", "error", err)
	}
}

// uniqueWindow is slightly shorter than the schedule's period so that one
// tick per period survives deduplication.
func uniqueWindow(s cron.Schedule) time.Duration {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := s.Next(base)
	period := s.Next(first).Sub(first)
	if window := period - time.Second; window >= time.Second {
		return window
	}
	return 0
}
