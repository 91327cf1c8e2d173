package scheduler

import (
	"context"
	"fmt"
	"time"

	"flyttbas_backend/internal/notification/outbox"
	"flyttbas_backend/platform/config"
	"flyttbas_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	defaultOutboxPollInterval = 2 * time.Second
	outboxClaimBatch          = 50
)

// OutboxClaimer is the outbox persistence the dispatcher drives.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// NotificationOutboxDispatcher moves due outbox rows onto the asynq queue.
type NotificationOutboxDispatcher struct {
	client   Enqueuer
	closer   interface{ Close() error }
	queue    string
	repo     OutboxClaimer
	interval time.Duration
	log      *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, repo OutboxClaimer, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	d := newDispatcher(client, queueName(cfg), repo, cfg.GetOutboxPollInterval(), log)
	d.closer = client
	return d, nil
}

func newDispatcher(client Enqueuer, queue string, repo OutboxClaimer, interval time.Duration, log *logger.Logger) *NotificationOutboxDispatcher {
	if interval <= 0 {
		interval = defaultOutboxPollInterval
	}
	return &NotificationOutboxDispatcher{
		client:   client,
		queue:    queue,
		repo:     repo,
		interval: interval,
		log:      log,
	}
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatch(ctx)
	}
}

// dispatch claims one batch and enqueues it. Rows that fail to enqueue go
// back to pending for the next tick.
func (d *NotificationOutboxDispatcher) dispatch(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, outboxClaimBatch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: rec.ID.String()})
		if err == nil {
			_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
		}
		if err != nil {
			msg := err.Error()
			if markErr := d.repo.MarkPending(ctx, rec.ID, &msg); markErr != nil {
				d.log.Error("outbox release failed", "outboxId", rec.ID, "error", markErr)
			}
			continue
		}
		enqueued++
	}
	return enqueued
}
