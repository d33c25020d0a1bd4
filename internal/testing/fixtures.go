package testing

import (
	"time"

	"github.com/aristath/conductor/internal/domain"
)

// FixtureEpoch is the reference start time used by fixtures.
var FixtureEpoch = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

// NewAssetFixtures returns a small asset universe ordered by market cap
func NewAssetFixtures() []domain.Asset {
	return []domain.Asset{
		{
			Symbol:     "BTC",
			Price:      60000,
			MarketCap:  1_200_000_000_000,
			Volume24h:  30_000_000_000,
			Volatility: 0.60,
			Beta:       1.0,
		},
		{
			Symbol:     "ETH",
			Price:      3000,
			MarketCap:  360_000_000_000,
			Volume24h:  15_000_000_000,
			Volatility: 0.75,
			Beta:       1.2,
		},
		{
			Symbol:     "SOL",
			Price:      150,
			MarketCap:  70_000_000_000,
			Volume24h:  3_000_000_000,
			Volatility: 0.95,
			Beta:       1.5,
		},
		{
			Symbol:    "ADA",
			Price:     0.45,
			MarketCap: 16_000_000_000,
			Volume24h: 400_000_000,
			// Volatility unknown
			Beta: 1.3,
		},
	}
}

// NewPriceMap returns symbol -> price for assets
func NewPriceMap(assets []domain.Asset) map[string]float64 {
	prices := make(map[string]float64, len(assets))
	for _, a := range assets {
		prices[a.Symbol] = a.Price
	}
	return prices
}

// NewDailySnapshots builds one snapshot per day starting at FixtureEpoch
func NewDailySnapshots(values ...float64) []domain.PerformanceSnapshot {
	snapshots := make([]domain.PerformanceSnapshot, len(values))
	for i, v := range values {
		snapshots[i] = domain.PerformanceSnapshot{
			Timestamp: FixtureEpoch.AddDate(0, 0, i),
			Value:     v,
		}
	}
	return snapshots
}

// NewTradeFixtures returns three winning trades and two losing ones
func NewTradeFixtures() []domain.TradeRecord {
	day := 24 * time.Hour
	return []domain.TradeRecord{
		domain.NewTradeRecord("BTC", domain.SideBuy, FixtureEpoch, FixtureEpoch.Add(day), 100, 110, 1, 0),
		domain.NewTradeRecord("ETH", domain.SideBuy, FixtureEpoch, FixtureEpoch.Add(2*day), 50, 45, 2, 0),
		domain.NewTradeRecord("SOL", domain.SideSell, FixtureEpoch, FixtureEpoch.Add(3*day), 20, 18, 10, 0),
		domain.NewTradeRecord("BTC", domain.SideBuy, FixtureEpoch.Add(day), FixtureEpoch.Add(4*day), 110, 115, 2, 0),
		domain.NewTradeRecord("ADA", domain.SideBuy, FixtureEpoch, FixtureEpoch.Add(5*day), 1, 0.8, 100, 0),
	}
}

// NewReturnSeries builds a deterministic return series of length n with the given drift and swing
func NewReturnSeries(n int, drift, swing float64, phase int) []float64 {
	out := make([]float64, n)
	for i := range out {
		sign := 1.0
		if (i+phase)%2 == 1 {
			sign = -1.0
		}
		out[i] = drift + sign*swing*float64((i+phase)%3+1)/3
	}
	return out
}
