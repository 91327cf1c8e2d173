package domain

import (
	"testing"

	"flyttbas_backend/platform/apperr"
)

func TestLifecycleTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusOffersReceived},
		{StatusOffersReceived, StatusOfferApproved},
		{StatusOfferApproved, StatusCompleted},
		{StatusPending, StatusCancelled},
		{StatusOffersReceived, StatusCancelled},
		{StatusOfferApproved, StatusCancelled},
		{StatusPending, StatusExpired},
		{StatusOffersReceived, StatusExpired},
	}
	for _, tc := range allowed {
		if err := ValidateTransition(tc.from, tc.to); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusOfferApproved, StatusExpired},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusExpired, StatusOffersReceived},
		{StatusPending, StatusCompleted},
		{StatusPending, StatusPending},
	}
	for _, tc := range denied {
		if err := ValidateTransition(tc.from, tc.to); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s -> %s should be rejected, got %v", tc.from, tc.to, err)
		}
	}
}

func TestSourcesForCancelled(t *testing.T) {
	got := SourcesFor(StatusCancelled)
	if len(got) != 3 {
		t.Fatalf("expected three non-terminal sources, got %v", got)
	}
	for _, s := range got {
		if s.IsTerminal() {
			t.Fatalf("terminal state %s listed as source", s)
		}
	}
}

func TestValidateOverride(t *testing.T) {
	if err := ValidateOverride(StatusOfferApproved, false, true); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected strict override to reject, got %v", err)
	}
	if err := ValidateOverride(StatusOfferApproved, false, false); err != nil {
		t.Fatalf("lenient override should pass: %v", err)
	}
	if err := ValidateOverride(StatusOfferApproved, true, true); err != nil {
		t.Fatalf("override with approved offer should pass: %v", err)
	}
	if err := ValidateOverride(StatusCancelled, false, true); err != nil {
		t.Fatalf("cancel override should pass: %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("offers_received"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseStatus("archived"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
