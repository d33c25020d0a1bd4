// Package routing selects the best execution venue for an order.
package routing

import (
	"math"
	"sort"

	"github.com/aristath/conductor/internal/domain"
)

// Weights are the composite score coefficients.
type Weights struct {
	Price     float64
	Liquidity float64
	Fee       float64
	Latency   float64
}

// DefaultWeights favour price, then liquidity, fee and latency.
var DefaultWeights = Weights{Price: 0.4, Liquidity: 0.3, Fee: 0.2, Latency: 0.1}

// latencyScale is the latency in milliseconds at which the latency score halves.
const latencyScale = 100.0

// VenueQuote pairs a venue with the quote it returned.
type VenueQuote struct {
	Venue string
	Quote domain.VenueQuote
}

// ScoredQuote is a quote with its component and composite scores.
type ScoredQuote struct {
	VenueQuote
	PriceScore     float64
	LiquidityScore float64
	FeeScore       float64
	LatencyScore   float64
	Score          float64
}

// usable reports whether a quote can be scored.
func usable(q domain.VenueQuote) bool {
	return q.Price > 0 && !math.IsInf(q.Price, 0) && !math.IsNaN(q.Price) && q.AvailableAmount > 0
}

// ScoreQuotes scores every usable quote and returns them best first.
// The price score is relative to the best quoted price, so it is 1 for the
// cheapest venue on a buy and for the richest venue on a sell.
func ScoreQuotes(side domain.Side, amount float64, quotes []VenueQuote, w Weights) []ScoredQuote {
	valid := make([]VenueQuote, 0, len(quotes))
	for _, q := range quotes {
		if usable(q.Quote) {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	best := valid[0].Quote.Price
	for _, q := range valid[1:] {
		if side.IsBuy() {
			best = math.Min(best, q.Quote.Price)
		} else {
			best = math.Max(best, q.Quote.Price)
		}
	}

	scored := make([]ScoredQuote, len(valid))
	for i, q := range valid {
		s := ScoredQuote{VenueQuote: q}

		if side.IsBuy() {
			s.PriceScore = best / q.Quote.Price
		} else {
			s.PriceScore = q.Quote.Price / best
		}

		if amount > 0 {
			s.LiquidityScore = math.Min(q.Quote.AvailableAmount/amount, 1)
		} else {
			s.LiquidityScore = 1
		}

		s.FeeScore = 1 / (1 + math.Max(q.Quote.Fee, 0))

		latencyMs := float64(q.Quote.Latency.Microseconds()) / 1000
		s.LatencyScore = 1 / (1 + math.Max(latencyMs, 0)/latencyScale)

		s.Score = w.Price*s.PriceScore +
			w.Liquidity*s.LiquidityScore +
			w.Fee*s.FeeScore +
			w.Latency*s.LatencyScore
		scored[i] = s
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
