package domain

import (
	"flyttbas_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

// maxRUTShare is the statutory upper bound on the deductible share.
var maxRUTShare = decimal.NewFromFloat(0.5)

// RUTRules are the tax-deduction parameters applied to household moves.
type RUTRules struct {
	Cap   int64
	Share decimal.Decimal
}

// NewRUTRules parses the configured share and validates both values.
func NewRUTRules(capAmount int64, share string) (RUTRules, error) {
	s, err := decimal.NewFromString(share)
	if err != nil {
		return RUTRules{}, apperr.Validationf("invalid RUT share %q", share)
	}
	if s.IsNegative() || s.GreaterThan(maxRUTShare) {
		return RUTRules{}, apperr.Validationf("RUT share %s must be between 0 and 0.5", s)
	}
	if capAmount < 0 {
		return RUTRules{}, apperr.Validation("RUT cap must not be negative")
	}
	return RUTRules{Cap: capAmount, Share: s}, nil
}

// Pricing is an offer's price split. TotalPrice is what the customer pays.
type Pricing struct {
	PriceBeforeRUT int64
	RUTDeduction   int64
	TotalPrice     int64
}

// DeriveRUT computes the deduction from the partner-entered pre-RUT price:
// floor(price * share) capped at the statutory maximum, or zero when the
// customer does not use RUT.
func DeriveRUT(priceBeforeRUT int64, applyRUT bool, rules RUTRules) (Pricing, error) {
	if priceBeforeRUT <= 0 {
		return Pricing{}, apperr.Validation("priceBeforeRut must be positive")
	}

	var deduction int64
	if applyRUT {
		deduction = decimal.NewFromInt(priceBeforeRUT).Mul(rules.Share).Floor().IntPart()
		if deduction > rules.Cap {
			deduction = rules.Cap
		}
	}
	return Pricing{
		PriceBeforeRUT: priceBeforeRUT,
		RUTDeduction:   deduction,
		TotalPrice:     priceBeforeRUT - deduction,
	}, nil
}
