package analytics

import (
	"math"
	"sort"

	"github.com/aristath/conductor/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ComputeTradeMetrics reduces the trade ledger. A trade with zero P&L counts
// toward the total but is neither a win nor a loss.
func ComputeTradeMetrics(trades []domain.TradeRecord) TradeMetrics {
	m := TradeMetrics{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return m
	}

	var grossWin, grossLoss float64
	best, worst := 0, 0
	for i, t := range trades {
		m.TotalPnL += t.PnL
		m.TotalFees += t.Fees

		switch {
		case t.PnL > 0:
			m.WinningTrades++
			grossWin += t.PnL
		case t.PnL < 0:
			m.LosingTrades++
			grossLoss += t.PnL
		}

		if t.PnL > trades[best].PnL {
			best = i
		}
		if t.PnL < trades[worst].PnL {
			worst = i
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AverageWin = grossWin / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = grossLoss / float64(m.LosingTrades)
		m.ProfitFactor = grossWin / math.Abs(grossLoss)
	}

	b, w := trades[best], trades[worst]
	m.BestTrade, m.WorstTrade = &b, &w
	return m
}

// ComputeDistribution buckets trade P&L into n equal-width buckets spanning
// the observed range. Identical P&L values collapse into one bucket.
func ComputeDistribution(trades []domain.TradeRecord, n int) []HistogramBucket {
	if len(trades) == 0 || n <= 0 {
		return []HistogramBucket{}
	}

	pnl := make([]float64, len(trades))
	for i, t := range trades {
		pnl[i] = t.PnL
	}
	sort.Float64s(pnl)

	lo, hi := pnl[0], pnl[len(pnl)-1]
	if lo == hi {
		return []HistogramBucket{{Low: lo, High: hi, Count: len(pnl)}}
	}

	dividers := make([]float64, n+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram needs the top divider strictly above the largest value.
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, pnl, nil)

	buckets := make([]HistogramBucket, n)
	for i := range buckets {
		buckets[i] = HistogramBucket{Low: dividers[i], High: dividers[i+1], Count: int(counts[i])}
	}
	return buckets
}
