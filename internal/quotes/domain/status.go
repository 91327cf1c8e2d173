// Package domain holds the quote state machine.
package domain

import "flyttbas_backend/platform/apperr"

// Status is the lifecycle state of a quote request.
type Status string

const (
	StatusPending        Status = "pending"
	StatusOffersReceived Status = "offers_received"
	StatusOfferApproved  Status = "offer_approved"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
)

var allStatuses = []Status{
	StatusPending, StatusOffersReceived, StatusOfferApproved,
	StatusCompleted, StatusCancelled, StatusExpired,
}

// transitions lists the automatic and actor-driven moves. Administrator
// corrections go through ValidateOverride instead.
var transitions = map[Status][]Status{
	StatusPending:        {StatusOffersReceived, StatusOfferApproved, StatusCancelled, StatusExpired},
	StatusOffersReceived: {StatusOfferApproved, StatusCancelled, StatusExpired},
	StatusOfferApproved:  {StatusCompleted, StatusCancelled},
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", apperr.Validationf("unknown quote status %q", s)
}

// IsTerminal reports whether no further lifecycle transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

// IsOpen reports whether the quote still accepts offers.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusOffersReceived
}

// CanTransition reports whether from → to is in the lifecycle table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every state from which to is reachable.
func SourcesFor(to Status) []Status {
	var out []Status
	for _, from := range allStatuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// ValidateTransition returns a Validation error for moves outside the table.
func ValidateTransition(from, to Status) error {
	if from == to {
		return apperr.Validationf("quote is already %s", to)
	}
	if !CanTransition(from, to) {
		return apperr.Validationf("quote cannot move from %s to %s", from, to)
	}
	return nil
}

// ValidateOverride checks an administrator correction. Any status may be
// written except that offer_approved requires an approved offer when strict
// is set.
func ValidateOverride(to Status, hasApprovedOffer, strict bool) error {
	if to == StatusOfferApproved && !hasApprovedOffer && strict {
		return apperr.Validation("quote has no approved offer").
			WithDetails(map[string]string{"status": string(to)})
	}
	return nil
}
