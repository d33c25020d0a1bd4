package optimization

import (
	"sort"

	"github.com/aristath/conductor/internal/domain"
)

// Rebalance prices targets and holdings against the universe and returns the
// per-symbol delta. Held symbols without a target are sold down to zero.
// A symbol with no known price has zero value and zero target amount.
func (o *Optimizer) Rebalance(targets []domain.Allocation, holdings map[string]float64, portfolioValue float64) []domain.Allocation {
	out := make([]domain.Allocation, 0, len(targets)+len(holdings))
	seen := make(map[string]bool, len(targets))

	for _, t := range targets {
		seen[t.Symbol] = true
		out = append(out, o.price(t.Symbol, t.TargetWeight, holdings[t.Symbol], portfolioValue))
	}

	extra := make([]string, 0)
	for symbol, qty := range holdings {
		if !seen[symbol] && qty != 0 {
			extra = append(extra, symbol)
		}
	}
	sort.Strings(extra)
	for _, symbol := range extra {
		out = append(out, o.price(symbol, 0, holdings[symbol], portfolioValue))
	}

	return out
}

func (o *Optimizer) price(symbol string, targetWeight, holding, portfolioValue float64) domain.Allocation {
	a := domain.Allocation{
		Symbol:        symbol,
		TargetWeight:  targetWeight,
		CurrentAmount: holding,
	}

	asset, _ := o.Asset(symbol)
	price := asset.Price
	if price <= 0 {
		price = 0
	}

	currentValue := holding * price
	if portfolioValue > 0 {
		a.CurrentWeight = currentValue / portfolioValue
	}

	targetValue := targetWeight * portfolioValue
	if price > 0 {
		a.TargetAmount = targetValue / price
	}
	a.RebalanceAmount = a.TargetAmount - a.CurrentAmount
	return a
}

// PortfolioValue sums holdings at universe prices.
func (o *Optimizer) PortfolioValue(holdings map[string]float64) float64 {
	total := 0.0
	for symbol, qty := range holdings {
		if a, ok := o.Asset(symbol); ok && a.Price > 0 {
			total += qty * a.Price
		}
	}
	return total
}
