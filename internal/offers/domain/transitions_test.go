package domain

import (
	"strings"
	"testing"

	"flyttbas_backend/platform/apperr"
)

func TestFreePolicyAllowsAnyMoveButNotFromTerminal(t *testing.T) {
	p := FreePolicy()

	if err := p.Validate(JobConfirmed, JobInProgress); err != nil {
		t.Fatalf("expected skip ahead to be allowed: %v", err)
	}
	if err := p.Validate(JobInProgress, JobScheduled); err != nil {
		t.Fatalf("expected backwards move to be allowed: %v", err)
	}
	if err := p.Validate(JobCompleted, JobInProgress); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected completed to be terminal, got %v", err)
	}
	if err := p.Validate(JobCancelled, JobConfirmed); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected cancelled to be terminal, got %v", err)
	}
	if err := p.Validate(JobScheduled, JobScheduled); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected same-state move to be rejected, got %v", err)
	}
}

func TestStrictPolicyIsForwardOnly(t *testing.T) {
	p := StrictPolicy()

	if err := p.Validate(JobScheduled, JobInProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Validate(JobInProgress, JobScheduled); err == nil {
		t.Fatal("expected backwards move to be rejected")
	}
	if err := p.Validate(JobConfirmed, JobCancelled); err != nil {
		t.Fatalf("expected cancellation to be allowed: %v", err)
	}
}

func TestLoadTransitionPolicyFromYAML(t *testing.T) {
	doc := `
transitions:
  confirmed: [scheduled, cancelled]
  scheduled: [in_progress, cancelled]
  in_progress: [completed]
`
	p, err := LoadTransitionPolicy(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Validate(JobConfirmed, JobScheduled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Validate(JobConfirmed, JobCompleted); err == nil {
		t.Fatal("expected move outside the table to be rejected")
	}
}

func TestLoadTransitionPolicyRejectsTerminalSources(t *testing.T) {
	doc := "transitions:\n  completed: [confirmed]\n"
	if _, err := LoadTransitionPolicy(strings.NewReader(doc)); err == nil {
		t.Fatal("expected terminal source to be rejected")
	}
	if _, err := LoadTransitionPolicy(strings.NewReader("transitions:\n  confirmed: [shipped]\n")); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestNewTransitionPolicyModes(t *testing.T) {
	if _, err := NewTransitionPolicy("sideways", ""); err == nil {
		t.Fatal("expected unknown mode to fail")
	}
	p, err := NewTransitionPolicy(ModeStrict, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Validate(JobCompleted, JobCancelled); err == nil {
		t.Fatal("expected terminal job to stay terminal")
	}
}
