// Package optimization computes target portfolio weights.
package optimization

import (
	"fmt"
	"math"
)

// Default tuning constants. They are empirical and kept configurable.
const (
	DefaultCorrelationThreshold    = 0.7
	DefaultCorrelationPenaltyScale = 0.3
	DefaultMaxCorrelationPenalty   = 0.5
	DefaultRiskParityBlend         = 0.5
	DefaultVolatility              = 0.2
)

// Constraints bound the optimizer output.
type Constraints struct {
	MinWeight float64 `json:"min_weight"`
	MaxWeight float64 `json:"max_weight"`
	MaxAssets int     `json:"max_assets"` // 0 means no limit
}

// DefaultConstraints allows any weight in [0, 1] across at most ten assets.
func DefaultConstraints() Constraints {
	return Constraints{MinWeight: 0, MaxWeight: 1, MaxAssets: 10}
}

// Validate rejects bounds that cannot describe a weight.
func (c Constraints) Validate() error {
	if math.IsNaN(c.MinWeight) || math.IsNaN(c.MaxWeight) {
		return fmt.Errorf("weight bounds must be numbers")
	}
	if c.MinWeight < 0 || c.MaxWeight > 1 {
		return fmt.Errorf("weight bounds must lie in [0, 1], got [%v, %v]", c.MinWeight, c.MaxWeight)
	}
	if c.MinWeight > c.MaxWeight {
		return fmt.Errorf("min weight %v exceeds max weight %v", c.MinWeight, c.MaxWeight)
	}
	if c.MaxAssets < 0 {
		return fmt.Errorf("max assets must be non-negative, got %d", c.MaxAssets)
	}
	return nil
}

// Feasible reports whether n weights can sum to 1 within the bounds.
func (c Constraints) Feasible(n int) bool {
	if n == 0 {
		return false
	}
	const eps = 1e-12
	return float64(n)*c.MinWeight <= 1+eps && float64(n)*c.MaxWeight >= 1-eps
}

// Tuning holds the diversification and risk-parity constants.
type Tuning struct {
	// CorrelationThreshold is the |correlation| above which a pair counts as correlated.
	CorrelationThreshold float64
	// CorrelationPenaltyScale multiplies the average correlation into a penalty.
	CorrelationPenaltyScale float64
	// MaxCorrelationPenalty caps the per-symbol penalty.
	MaxCorrelationPenalty float64
	// RiskParityBlend is the share of inverse-volatility weights in the final blend.
	RiskParityBlend float64
	// DefaultVolatility is assumed for assets with unknown volatility.
	DefaultVolatility float64
}

// DefaultTuning returns the standard constants.
func DefaultTuning() Tuning {
	return Tuning{
		CorrelationThreshold:    DefaultCorrelationThreshold,
		CorrelationPenaltyScale: DefaultCorrelationPenaltyScale,
		MaxCorrelationPenalty:   DefaultMaxCorrelationPenalty,
		RiskParityBlend:         DefaultRiskParityBlend,
		DefaultVolatility:       DefaultVolatility,
	}
}

// withDefaults fills unset or invalid fields from DefaultTuning.
func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.CorrelationThreshold <= 0 || t.CorrelationThreshold > 1 {
		t.CorrelationThreshold = d.CorrelationThreshold
	}
	if t.CorrelationPenaltyScale < 0 {
		t.CorrelationPenaltyScale = d.CorrelationPenaltyScale
	}
	if t.MaxCorrelationPenalty < 0 || t.MaxCorrelationPenalty > 1 {
		t.MaxCorrelationPenalty = d.MaxCorrelationPenalty
	}
	if t.RiskParityBlend < 0 || t.RiskParityBlend > 1 {
		t.RiskParityBlend = d.RiskParityBlend
	}
	if t.DefaultVolatility <= 0 {
		t.DefaultVolatility = d.DefaultVolatility
	}
	return t
}
