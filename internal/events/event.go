// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"flyttbas_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// MoveSummary carries the human-facing facts of a move used in notifications.
type MoveSummary struct {
	FromAddress    string    `json:"fromAddress"`
	FromPostalCode string    `json:"fromPostalCode"`
	ToAddress      string    `json:"toAddress"`
	ToPostalCode   string    `json:"toPostalCode"`
	MoveDate       time.Time `json:"moveDate"`
}

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteCreated is published when a customer submits a move request.
type QuoteCreated struct {
	BaseEvent
	QuoteID       uuid.UUID  `json:"quoteId"`
	CustomerID    *uuid.UUID `json:"customerId,omitempty"`
	CustomerEmail string     `json:"customerEmail"`
	FromPostal    string     `json:"fromPostalCode"`
}

func (e QuoteCreated) EventName() string { return "quotes.quote.created" }

// QuoteStatusChanged is published after any committed quote transition.
type QuoteStatusChanged struct {
	BaseEvent
	QuoteID   uuid.UUID `json:"quoteId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Manual    bool      `json:"manual"`
}

func (e QuoteStatusChanged) EventName() string { return "quotes.quote.status_changed" }

// QuoteExpired is published once per quote when the expiry write wins.
type QuoteExpired struct {
	BaseEvent
	QuoteID uuid.UUID `json:"quoteId"`
}

func (e QuoteExpired) EventName() string { return "quotes.quote.expired" }

// =============================================================================
// Offer Domain Events
// =============================================================================

// OfferSubmitted is published when a partner bids on a quote.
type OfferSubmitted struct {
	BaseEvent
	OfferID       uuid.UUID   `json:"offerId"`
	QuoteID       uuid.UUID   `json:"quoteId"`
	PartnerID     uuid.UUID   `json:"partnerId"`
	CompanyName   string      `json:"companyName"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	TotalPrice    int64       `json:"totalPrice"`
	RUTDeduction  int64       `json:"rutDeduction"`
	AvailableDate time.Time   `json:"availableDate"`
	ValidUntil    time.Time   `json:"validUntil"`
	Move          MoveSummary `json:"move"`
}

func (e OfferSubmitted) EventName() string { return "offers.offer.submitted" }

// OfferApproved is published when the customer (or an admin) accepts an offer.
type OfferApproved struct {
	BaseEvent
	OfferID   uuid.UUID `json:"offerId"`
	QuoteID   uuid.UUID `json:"quoteId"`
	PartnerID uuid.UUID `json:"partnerId"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e OfferApproved) EventName() string { return "offers.offer.approved" }

// OfferRejected is published when an offer is declined.
type OfferRejected struct {
	BaseEvent
	OfferID   uuid.UUID `json:"offerId"`
	QuoteID   uuid.UUID `json:"quoteId"`
	PartnerID uuid.UUID `json:"partnerId"`
	Reason    string    `json:"reason,omitempty"`
}

func (e OfferRejected) EventName() string { return "offers.offer.rejected" }

// OfferExpired is published when a pending offer passes valid_until.
type OfferExpired struct {
	BaseEvent
	OfferID   uuid.UUID `json:"offerId"`
	QuoteID   uuid.UUID `json:"quoteId"`
	PartnerID uuid.UUID `json:"partnerId"`
}

func (e OfferExpired) EventName() string { return "offers.offer.expired" }

// JobStatusChanged is published on every job transition of an approved offer.
type JobStatusChanged struct {
	BaseEvent
	OfferID       uuid.UUID   `json:"offerId"`
	QuoteID       uuid.UUID   `json:"quoteId"`
	PartnerID     uuid.UUID   `json:"partnerId"`
	CompanyName   string      `json:"companyName"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	OldStatus     string      `json:"oldStatus"`
	NewStatus     string      `json:"newStatus"`
	Notes         string      `json:"notes,omitempty"`
	Move          MoveSummary `json:"move"`
}

func (e JobStatusChanged) EventName() string { return "offers.job.status_changed" }

// =============================================================================
// Commission Domain Events
// =============================================================================

// CommissionFeeRecorded is published when a completed job produces its ledger line.
type CommissionFeeRecorded struct {
	BaseEvent
	FeeID      uuid.UUID `json:"feeId"`
	OfferID    uuid.UUID `json:"offerId"`
	PartnerID  uuid.UUID `json:"partnerId"`
	OrderValue int64     `json:"orderValue"`
	FeeAmount  int64     `json:"feeAmount"`
}

func (e CommissionFeeRecorded) EventName() string { return "commission.fee.recorded" }

// =============================================================================
// Partner Domain Events
// =============================================================================

// PartnerApplicationReceived is published when a moving company applies.
type PartnerApplicationReceived struct {
	BaseEvent
	PartnerID    uuid.UUID `json:"partnerId"`
	CompanyName  string    `json:"companyName"`
	OrgNumber    string    `json:"orgNumber"`
	ContactName  string    `json:"contactName"`
	ContactEmail string    `json:"contactEmail"`
}

func (e PartnerApplicationReceived) EventName() string {
	return "partners.application.received"
}

// PartnerStatusChanged is published when an administrator reviews a partner.
type PartnerStatusChanged struct {
	BaseEvent
	PartnerID    uuid.UUID `json:"partnerId"`
	CompanyName  string    `json:"companyName"`
	ContactName  string    `json:"contactName"`
	ContactEmail string    `json:"contactEmail"`
	OldStatus    string    `json:"oldStatus"`
	NewStatus    string    `json:"newStatus"`
	Note         string    `json:"note,omitempty"`
	ReviewedBy   uuid.UUID `json:"reviewedBy"`
}

func (e PartnerStatusChanged) EventName() string { return "partners.partner.status_changed" }

// =============================================================================
// Notification Outbox Events
// =============================================================================

// NotificationOutboxDue is published by the worker when an outbox row's run_at has passed.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
