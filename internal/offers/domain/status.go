// Package domain holds the offer and job state machines and RUT pricing.
package domain

import "flyttbas_backend/platform/apperr"

// Status is the bidding state of an offer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusWithdrawn Status = "withdrawn"
)

// ParseStatus validates an offer status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired, StatusWithdrawn:
		return Status(s), nil
	default:
		return "", apperr.Validationf("unknown offer status %q", s)
	}
}

// JobStatus is the execution state of an approved offer.
type JobStatus string

const (
	JobConfirmed  JobStatus = "confirmed"
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

var jobOrder = []JobStatus{JobConfirmed, JobScheduled, JobInProgress, JobCompleted, JobCancelled}

// ParseJobStatus validates a job status string.
func ParseJobStatus(s string) (JobStatus, error) {
	for _, st := range jobOrder {
		if string(st) == s {
			return st, nil
		}
	}
	return "", apperr.Validationf("unknown job status %q", s)
}

// IsTerminal reports whether the job can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobCancelled
}
