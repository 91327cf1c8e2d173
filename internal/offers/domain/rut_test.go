package domain

import (
	"testing"

	"flyttbas_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

func testRules(t *testing.T) RUTRules {
	t.Helper()
	rules, err := NewRUTRules(75000, "0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rules
}

func TestDeriveRUT(t *testing.T) {
	rules := testRules(t)
	cases := []struct {
		name      string
		price     int64
		applyRUT  bool
		deduction int64
		total     int64
	}{
		{"half of a regular move", 10000, true, 5000, 5000},
		{"odd price floors the deduction", 10001, true, 5000, 5001},
		{"deduction capped", 200000, true, 75000, 125000},
		{"exactly at the cap", 150000, true, 75000, 75000},
		{"customer opts out", 10000, false, 0, 10000},
		{"one crown", 1, true, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := DeriveRUT(tc.price, tc.applyRUT, rules)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.RUTDeduction != tc.deduction || p.TotalPrice != tc.total {
				t.Fatalf("expected %d/%d, got %d/%d", tc.deduction, tc.total, p.RUTDeduction, p.TotalPrice)
			}
			if p.TotalPrice != p.PriceBeforeRUT-p.RUTDeduction {
				t.Fatal("total must equal price before RUT minus deduction")
			}
			if p.RUTDeduction*2 > p.PriceBeforeRUT || p.RUTDeduction > rules.Cap {
				t.Fatalf("deduction %d breaks the share or cap", p.RUTDeduction)
			}
		})
	}
}

func TestDeriveRUTRejectsNonPositivePrice(t *testing.T) {
	for _, price := range []int64{0, -100} {
		if _, err := DeriveRUT(price, true, testRules(t)); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("price %d: expected validation error, got %v", price, err)
		}
	}
}

func TestNewRUTRulesBounds(t *testing.T) {
	if _, err := NewRUTRules(75000, "0.6"); err == nil {
		t.Fatal("expected share above one half to be rejected")
	}
	if _, err := NewRUTRules(-1, "0.5"); err == nil {
		t.Fatal("expected negative cap to be rejected")
	}
	rules, err := NewRUTRules(50000, "0.3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rules.Share.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("unexpected share %s", rules.Share)
	}
}
