package engine

import (
	"fmt"
	"math"
)

// premiumScale is the fixed-point denominator for seat-type premiums.
// A premium fraction of 0.5 (50 %) is stored as 5000 basis points, so
// every per-seat amount "base × (1 + premium)" is an exact integer of
// cents×10000 and no precision is lost before the final rounding step.
const premiumScale = 10000

// PricingRules maps seat-type tags to premium fractions. The zero rule
// set prices every seat at the show's base price. Rule sets are
// immutable after construction and safe for concurrent readers.
type PricingRules struct {
	premiums map[string]int64 // seat type -> premium in basis points
}

// NewPricingRules converts premium fractions into a rule set. A
// negative, NaN or infinite fraction is rejected with
// ErrInvalidPricingRule; 0.0 means "no premium". Fractions are rounded
// to the nearest basis point, which is finer than any realistic tariff.
func NewPricingRules(fractions map[string]float64) (*PricingRules, error) {
	p := &PricingRules{premiums: make(map[string]int64, len(fractions))}
	for seatType, f := range fractions {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: premium for %q is not a finite number", ErrInvalidPricingRule, seatType)
		}
		if f < 0 {
			return nil, fmt.Errorf("%w: negative premium %v for %q", ErrInvalidPricingRule, f, seatType)
		}
		p.premiums[seatType] = int64(math.Round(f * premiumScale))
	}
	return p, nil
}

// PricingRulesFromBasisPoints builds a rule set from premiums already
// expressed in basis points, as stored in the pricing_rules table.
// Negative premiums are rejected with ErrInvalidPricingRule.
func PricingRulesFromBasisPoints(premiums map[string]int64) (*PricingRules, error) {
	p := &PricingRules{premiums: make(map[string]int64, len(premiums))}
	for seatType, bps := range premiums {
		if bps < 0 {
			return nil, fmt.Errorf("%w: negative premium for %q", ErrInvalidPricingRule, seatType)
		}
		p.premiums[seatType] = bps
	}
	return p, nil
}

// Merge layers override rules on top of p and returns the combined set.
// Seat types present in overrides win; everything else falls through to
// p. Both inputs may be nil.
func (p *PricingRules) Merge(overrides *PricingRules) *PricingRules {
	out := &PricingRules{premiums: map[string]int64{}}
	if p != nil {
		for k, v := range p.premiums {
			out.premiums[k] = v
		}
	}
	if overrides != nil {
		for k, v := range overrides.premiums {
			out.premiums[k] = v
		}
	}
	return out
}

// Premium returns the premium for a seat type in basis points. Unknown
// seat types carry no premium.
func (p *PricingRules) Premium(seatType string) int64 {
	if p == nil {
		return 0
	}
	return p.premiums[seatType]
}

// PriceFor computes the total price in cents for the given seats at the
// given base price. Each seat contributes base × (1 + premium) exactly;
// the sum is rounded to whole cents half-up ONCE at the end. Rounding
// per seat would drift by up to half a cent per seat, which is the
// penny-drift bug this method exists to avoid.
func (p *PricingRules) PriceFor(basePriceCents int64, seats []Seat) int64 {
	var raw int64 // cents × premiumScale
	for _, s := range seats {
		raw += basePriceCents * (premiumScale + p.Premium(s.Type))
	}
	return (raw + premiumScale/2) / premiumScale
}
