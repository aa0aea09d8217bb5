package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPricingRulesRejectsBadPremiums(t *testing.T) {
	tests := []struct {
		name      string
		fractions map[string]float64
		wantErr   bool
	}{
		{"no rules", nil, false},
		{"zero premium", map[string]float64{"STANDARD": 0}, false},
		{"vip premium", map[string]float64{"VIP": 0.5}, false},
		{"negative premium", map[string]float64{"VIP": -0.1}, true},
		{"nan premium", map[string]float64{"VIP": math.NaN()}, true},
		{"inf premium", map[string]float64{"VIP": math.Inf(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPricingRules(tt.fractions)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPricingRule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPricingRulesFromBasisPoints(t *testing.T) {
	_, err := PricingRulesFromBasisPoints(map[string]int64{"VIP": -1})
	assert.ErrorIs(t, err, ErrInvalidPricingRule)

	p, err := PricingRulesFromBasisPoints(map[string]int64{"VIP": 5000})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), p.Premium("VIP"))
}

func TestPriceForTwoVIPSeats(t *testing.T) {
	// Base price 100.00, VIP premium 50 %: two VIP seats must price at
	// exactly 300.00.
	rules, err := NewPricingRules(map[string]float64{"VIP": 0.5})
	require.NoError(t, err)

	seats := []Seat{
		{ID: "A1", Type: "VIP"},
		{ID: "A2", Type: "VIP"},
	}
	assert.Equal(t, int64(30000), rules.PriceFor(10000, seats))
}

func TestPriceForRoundsOnceAtTheEnd(t *testing.T) {
	// Base 1.01, premium 50 %: each seat is worth 1.515, so per-seat
	// rounding would give 1.52 × 3 = 4.56. The correct total rounds the
	// exact sum 4.545 once, to 4.55.
	rules, err := NewPricingRules(map[string]float64{"VIP": 0.5})
	require.NoError(t, err)

	seats := []Seat{
		{ID: "A1", Type: "VIP"},
		{ID: "A2", Type: "VIP"},
		{ID: "A3", Type: "VIP"},
	}
	assert.Equal(t, int64(455), rules.PriceFor(101, seats))
}

func TestPriceForUnknownSeatTypeHasNoPremium(t *testing.T) {
	rules, err := NewPricingRules(map[string]float64{"VIP": 0.5})
	require.NoError(t, err)

	seats := []Seat{
		{ID: "A1", Type: "RECLINER"}, // not configured
		{ID: "A2", Type: "VIP"},
	}
	assert.Equal(t, int64(250), rules.PriceFor(100, seats))
}

func TestPriceForNilRules(t *testing.T) {
	var rules *PricingRules
	assert.Equal(t, int64(200), rules.PriceFor(100, []Seat{{ID: "A1"}, {ID: "A2"}}))
}

func TestMergeOverridesWin(t *testing.T) {
	defaults, err := NewPricingRules(map[string]float64{"VIP": 0.5, "SUPER_VIP": 1.0})
	require.NoError(t, err)
	overrides, err := NewPricingRules(map[string]float64{"VIP": 0.25})
	require.NoError(t, err)

	merged := defaults.Merge(overrides)
	assert.Equal(t, int64(2500), merged.Premium("VIP"))
	assert.Equal(t, int64(10000), merged.Premium("SUPER_VIP"))
	assert.Equal(t, int64(0), merged.Premium("STANDARD"))

	// Merging nil keeps the defaults.
	assert.Equal(t, int64(5000), defaults.Merge(nil).Premium("VIP"))
}
