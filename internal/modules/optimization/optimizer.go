package optimization

import (
	"math"
	"sort"
	"sync"

	"github.com/aristath/conductor/internal/domain"
	"github.com/rs/zerolog"
)

// Request is the input of one optimization.
type Request struct {
	// ExpectedReturns per symbol. Used to break market-cap ties and to report the
	// expected portfolio return; symbols without an entry are assumed flat.
	ExpectedReturns map[string]float64
	// ReturnHistory per symbol feeds the correlation matrix for this call only.
	ReturnHistory map[string][]float64
	Constraints   Constraints
	// TargetReturn, when set, disables the risk-parity blend.
	TargetReturn *float64
}

// Optimizer holds the asset universe and computes target weights over it.
type Optimizer struct {
	mu     sync.RWMutex
	assets map[string]domain.Asset
	tuning Tuning
	log    zerolog.Logger
}

// NewOptimizer creates an optimizer with the given tuning constants.
func NewOptimizer(tuning Tuning, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		assets: make(map[string]domain.Asset),
		tuning: tuning.withDefaults(),
		log:    log.With().Str("component", "optimizer").Logger(),
	}
}

// Tuning returns the effective tuning constants.
func (o *Optimizer) Tuning() Tuning {
	return o.tuning
}

// UpsertAssets adds or replaces assets by symbol. Assets are never removed.
func (o *Optimizer) UpsertAssets(assets []domain.Asset) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range assets {
		if a.Symbol == "" {
			continue
		}
		o.assets[a.Symbol] = a
	}
}

// Asset returns the asset registered under symbol.
func (o *Optimizer) Asset(symbol string) (domain.Asset, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.assets[symbol]
	return a, ok
}

// Assets returns the universe sorted by symbol.
func (o *Optimizer) Assets() []domain.Asset {
	o.mu.RLock()
	out := make([]domain.Asset, 0, len(o.assets))
	for _, a := range o.assets {
		out = append(out, a)
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Optimize computes target weights for the universe. It never fails: an empty
// universe yields no allocations and missing data falls back to defaults.
//
// Steps:
//  1. select up to MaxAssets symbols by market cap and weight them equally
//  2. penalise symbols highly correlated with the rest of the selection
//  3. blend with inverse-volatility weights unless a target return is given
//
// Every step renormalises within [MinWeight, MaxWeight].
func (o *Optimizer) Optimize(req Request) []domain.Allocation {
	c := req.Constraints
	if err := c.Validate(); err != nil {
		o.log.Warn().Err(err).Msg("Invalid constraints, using defaults")
		c = DefaultConstraints()
	}

	selected := o.selectAssets(req.ExpectedReturns, c.MaxAssets)
	if len(selected) == 0 {
		return []domain.Allocation{}
	}
	if !c.Feasible(len(selected)) {
		o.log.Warn().
			Int("assets", len(selected)).
			Float64("min_weight", c.MinWeight).
			Float64("max_weight", c.MaxWeight).
			Msg("Weight bounds cannot sum to 1 for this selection, bounds will be relaxed")
	}

	symbols := make([]string, len(selected))
	for i, a := range selected {
		symbols[i] = a.Symbol
	}

	equal := make([]float64, len(selected))
	for i := range equal {
		equal[i] = 1 / float64(len(selected))
	}
	weights, _ := normalizeWithBounds(equal, c)

	corr := BuildCorrelationMatrix(symbols, req.ReturnHistory)
	if corr.Len() >= 2 {
		weights, _ = normalizeWithBounds(o.diversify(symbols, weights, corr), c)
	}

	if req.TargetReturn == nil {
		weights, _ = normalizeWithBounds(o.blendRiskParity(selected, weights), c)
	}

	allocations := make([]domain.Allocation, len(selected))
	expected := 0.0
	for i, a := range selected {
		allocations[i] = domain.Allocation{Symbol: a.Symbol, TargetWeight: weights[i]}
		expected += weights[i] * req.ExpectedReturns[a.Symbol]
	}

	ev := o.log.Debug().
		Int("assets", len(allocations)).
		Bool("diversified", corr.Len() >= 2).
		Bool("risk_parity", req.TargetReturn == nil).
		Float64("expected_return", expected)
	if req.TargetReturn != nil {
		ev = ev.Float64("target_return", *req.TargetReturn)
	}
	ev.Msg("Optimization complete")

	return allocations
}

// selectAssets returns up to maxAssets assets ordered by market cap, then
// expected return, then symbol.
func (o *Optimizer) selectAssets(expected map[string]float64, maxAssets int) []domain.Asset {
	assets := o.Assets()
	sort.SliceStable(assets, func(i, j int) bool {
		a, b := assets[i], assets[j]
		if ca, cb := capOrZero(a.MarketCap), capOrZero(b.MarketCap); ca != cb {
			return ca > cb
		}
		if ea, eb := expected[a.Symbol], expected[b.Symbol]; ea != eb {
			return ea > eb
		}
		return a.Symbol < b.Symbol
	})
	if maxAssets > 0 && len(assets) > maxAssets {
		assets = assets[:maxAssets]
	}
	return assets
}

// diversify shrinks the weight of each symbol by its average absolute
// correlation with strongly correlated peers.
func (o *Optimizer) diversify(symbols []string, weights []float64, corr CorrelationMatrix) []float64 {
	t := o.tuning
	out := make([]float64, len(weights))
	for i, a := range symbols {
		correlated, count := 0.0, 0
		for j, b := range symbols {
			if i == j {
				continue
			}
			if c := math.Abs(corr.Get(a, b)); c > t.CorrelationThreshold {
				correlated += c
				count++
			}
		}
		penalty := 0.0
		if count > 0 {
			penalty = math.Min(t.MaxCorrelationPenalty, correlated/float64(count)*t.CorrelationPenaltyScale)
		}
		out[i] = weights[i] * (1 - penalty)
	}
	return out
}

// blendRiskParity mixes weights with normalised inverse-volatility weights.
func (o *Optimizer) blendRiskParity(assets []domain.Asset, weights []float64) []float64 {
	t := o.tuning
	inv := make([]float64, len(assets))
	for i, a := range assets {
		vol := a.Volatility
		if vol <= 0 || math.IsNaN(vol) || math.IsInf(vol, 0) {
			vol = t.DefaultVolatility
		}
		inv[i] = 1 / vol
	}
	parity := normalize(inv)

	out := make([]float64, len(weights))
	for i := range weights {
		out[i] = (1-t.RiskParityBlend)*weights[i] + t.RiskParityBlend*parity[i]
	}
	return out
}

func capOrZero(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
