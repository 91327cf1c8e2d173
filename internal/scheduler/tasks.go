package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskExpirySweep = "lifecycle.expiry.sweep"

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

// ExpirySweepPayload carries the tick that produced the sweep.
type ExpirySweepPayload struct {
	ScheduledAt time.Time `json:"scheduledAt"`
	BatchSize   int       `json:"batchSize"`
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewExpirySweepTask(payload ExpirySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpirySweep, data), nil
}

func ParseExpirySweepPayload(task *asynq.Task) (ExpirySweepPayload, error) {
	var payload ExpirySweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExpirySweepPayload{}, err
	}
	return payload, nil
}
