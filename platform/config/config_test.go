package config

import (
	"testing"
	"time"
)

func TestLoadAppliesMarketplaceDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/flyttbas")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("EMAIL_ENABLED", "false")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GetRUTCap() != 75000 {
		t.Fatalf("expected RUT cap 75000, got %d", cfg.GetRUTCap())
	}
	if cfg.GetRUTShare() != "0.5" {
		t.Fatalf("expected RUT share 0.5, got %s", cfg.GetRUTShare())
	}
	if cfg.GetDefaultMaxDriveDistanceKm() != 50 {
		t.Fatalf("expected 50 km default, got %d", cfg.GetDefaultMaxDriveDistanceKm())
	}
	if cfg.GetCommissionDefaultRate() != "7" || cfg.GetCommissionDefaultType() != "percentage" {
		t.Fatalf("unexpected commission default %s/%s", cfg.GetCommissionDefaultRate(), cfg.GetCommissionDefaultType())
	}
	if cfg.GetJobTransitionMode() != "free" {
		t.Fatalf("expected free job transitions by default, got %s", cfg.GetJobTransitionMode())
	}
	if !cfg.GetStrictOfferApprovedOverride() {
		t.Fatal("expected strict offer_approved override by default")
	}
	if cfg.GetQuoteTTL() != 30*24*time.Hour {
		t.Fatalf("unexpected quote ttl %s", cfg.GetQuoteTTL())
	}
	if cfg.GetEmailEnabled() {
		t.Fatal("expected email disabled without SMTP host")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadRejectsUnknownTransitionMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/flyttbas")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("EMAIL_ENABLED", "false")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	t.Setenv("JOB_TRANSITION_MODE", "sideways")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown JOB_TRANSITION_MODE")
	}
}
