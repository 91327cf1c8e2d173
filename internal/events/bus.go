package events

import (
	platformevents "flyttbas_backend/platform/events"
	"flyttbas_backend/platform/logger"
)

// InMemoryBus is the bus both binaries run: the API publishes lifecycle
// events to it and the scheduler publishes NotificationOutboxDue.
type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

var _ Bus = (*InMemoryBus)(nil)
