// Package policy holds the pure commission rules: resolving the effective
// (rate, type) pair for a partner and computing the fee for an order value.
package policy

import (
	"fmt"

	"flyttbas_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

// Type is how a commission rate is applied.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

var hundred = decimal.NewFromInt(100)

// ParseType validates a commission type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypePercentage, TypeFixed:
		return Type(s), nil
	default:
		return "", apperr.Validationf("unknown commission type %q", s)
	}
}

// Defaults is the system-wide commission setting.
type Defaults struct {
	Rate decimal.Decimal
	Type Type
}

// Override is a partner's optional commission override. Nil fields fall back to Defaults.
type Override struct {
	Rate *decimal.Decimal
	Type *Type
}

// IsZero reports whether neither field is overridden.
func (o Override) IsZero() bool { return o.Rate == nil && o.Type == nil }

// Policy is the effective commission for one partner.
type Policy struct {
	Rate decimal.Decimal
	Type Type
}

// Fee is the computed commission on one order.
type Fee struct {
	OrderValue int64
	Amount     int64
	// Percentage is the applied rate for percentage fees and nil for fixed fees.
	Percentage *decimal.Decimal
}

// Resolve merges a partner override onto the system defaults field by field.
func Resolve(defaults Defaults, override Override) Policy {
	p := Policy{Rate: defaults.Rate, Type: defaults.Type}
	if override.Rate != nil {
		p.Rate = *override.Rate
	}
	if override.Type != nil {
		p.Type = *override.Type
	}
	return p
}

// Compute applies p to orderValue (the pre-RUT price). Percentage fees are
// rounded half-up to whole currency units.
func Compute(p Policy, orderValue int64) (Fee, error) {
	if orderValue < 0 {
		return Fee{}, apperr.Validation("order value must not be negative")
	}
	if p.Rate.IsNegative() {
		return Fee{}, apperr.Validation("commission rate must not be negative")
	}

	switch p.Type {
	case TypePercentage:
		amount := decimal.NewFromInt(orderValue).Mul(p.Rate).Div(hundred).Round(0)
		rate := p.Rate
		return Fee{OrderValue: orderValue, Amount: amount.IntPart(), Percentage: &rate}, nil
	case TypeFixed:
		return Fee{OrderValue: orderValue, Amount: p.Rate.Round(0).IntPart()}, nil
	default:
		return Fee{}, apperr.Validationf("unknown commission type %q", p.Type)
	}
}

// Bounds are the administrator-configurable limits on commission rates.
type Bounds struct {
	MinRate  decimal.Decimal
	MaxRate  decimal.Decimal
	MaxFixed decimal.Decimal
}

// Validate rejects a rate outside [MinRate, MaxRate] for percentage or
// [MinRate, MaxFixed] for fixed. Out-of-range input is never clamped.
func (b Bounds) Validate(t Type, rate decimal.Decimal) error {
	upper, err := b.upper(t)
	if err != nil {
		return err
	}

	if rate.LessThan(b.MinRate) || rate.GreaterThan(upper) {
		return apperr.Validationf("commission rate %s outside allowed range [%s, %s] for %s",
			rate.String(), b.MinRate.String(), upper.String(), t).
			WithDetails(map[string]string{"rate": rate.String(), "min": b.MinRate.String(), "max": upper.String()})
	}
	return nil
}

// Clamp pulls p's rate into the range for its type and reports whether it
// had to. A stored override can fall out of range when the defaults it
// resolves against change later.
func (b Bounds) Clamp(p Policy) (Policy, bool, error) {
	upper, err := b.upper(p.Type)
	if err != nil {
		return Policy{}, false, err
	}
	switch {
	case p.Rate.LessThan(b.MinRate):
		p.Rate = b.MinRate
	case p.Rate.GreaterThan(upper):
		p.Rate = upper
	default:
		return p, false, nil
	}
	return p, true, nil
}

func (b Bounds) upper(t Type) (decimal.Decimal, error) {
	switch t {
	case TypePercentage:
		return b.MaxRate, nil
	case TypeFixed:
		return b.MaxFixed, nil
	default:
		return decimal.Decimal{}, apperr.Validationf("unknown commission type %q", t)
	}
}

// Config is the subset of configuration the policy reads.
type Config interface {
	GetCommissionDefaultRate() string
	GetCommissionDefaultType() string
	GetCommissionMinRate() string
	GetCommissionMaxRate() string
	GetCommissionMaxFixed() string
}

// DefaultsFromConfig parses the configured fallback defaults.
func DefaultsFromConfig(cfg Config) (Defaults, error) {
	rate, err := decimal.NewFromString(cfg.GetCommissionDefaultRate())
	if err != nil {
		return Defaults{}, fmt.Errorf("parse commission default rate: %w", err)
	}
	t, err := ParseType(cfg.GetCommissionDefaultType())
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{Rate: rate, Type: t}, nil
}

// BoundsFromConfig parses the configured rate limits.
func BoundsFromConfig(cfg Config) (Bounds, error) {
	parse := func(name, raw string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse commission %s: %w", name, err)
		}
		return d, nil
	}

	minRate, err := parse("min rate", cfg.GetCommissionMinRate())
	if err != nil {
		return Bounds{}, err
	}
	maxRate, err := parse("max rate", cfg.GetCommissionMaxRate())
	if err != nil {
		return Bounds{}, err
	}
	maxFixed, err := parse("max fixed", cfg.GetCommissionMaxFixed())
	if err != nil {
		return Bounds{}, err
	}
	if maxRate.LessThan(minRate) || maxFixed.LessThan(minRate) {
		return Bounds{}, fmt.Errorf("commission bounds inverted: min %s, max %s, max fixed %s", minRate, maxRate, maxFixed)
	}
	return Bounds{MinRate: minRate, MaxRate: maxRate, MaxFixed: maxFixed}, nil
}
