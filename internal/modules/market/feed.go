// Package market builds per-cycle market snapshots from price history.
package market

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/internal/work"
	"github.com/aristath/conductor/pkg/formulas"
	"github.com/rs/zerolog"
)

// DefaultEMALength is the EMA window applied to daily returns.
const DefaultEMALength = 20

// PriceHistoryProvider returns a symbol's price history, oldest first.
type PriceHistoryProvider interface {
	History(ctx context.Context, symbol string) ([]float64, error)
}

// HistoricalFeed derives volatility and expected returns from price history.
// It implements domain.MarketFeed.
type HistoricalFeed struct {
	provider  PriceHistoryProvider
	universe  []domain.Asset
	emaLength int
	clock     work.Clock
	log       zerolog.Logger
}

// NewHistoricalFeed creates a feed over universe. The static fields of each
// asset (market cap, volume, beta) are carried into every snapshot.
func NewHistoricalFeed(provider PriceHistoryProvider, universe []domain.Asset, clock work.Clock, log zerolog.Logger) *HistoricalFeed {
	if clock == nil {
		clock = work.SystemClock{}
	}
	return &HistoricalFeed{
		provider:  provider,
		universe:  append([]domain.Asset(nil), universe...),
		emaLength: DefaultEMALength,
		clock:     clock,
		log:       log.With().Str("component", "market_feed").Logger(),
	}
}

// SetEMALength changes the expected-return smoothing window.
func (f *HistoricalFeed) SetEMALength(n int) {
	if n > 0 {
		f.emaLength = n
	}
}

// Snapshot reads history for every symbol. A symbol whose history cannot be
// read is left out of the snapshot; the call fails only when every symbol does.
func (f *HistoricalFeed) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	snap := domain.MarketSnapshot{
		Assets:          make([]domain.Asset, 0, len(f.universe)),
		ExpectedReturns: make(map[string]float64, len(f.universe)),
		ReturnHistory:   make(map[string][]float64, len(f.universe)),
		TakenAt:         f.clock.Now(),
	}

	var lastErr error
	for _, tmpl := range f.universe {
		if err := ctx.Err(); err != nil {
			return domain.MarketSnapshot{}, err
		}

		prices, err := f.provider.History(ctx, tmpl.Symbol)
		if err != nil {
			lastErr = err
			f.log.Warn().Err(err).Str("symbol", tmpl.Symbol).Msg("Failed to load price history")
			continue
		}
		if len(prices) == 0 {
			f.log.Warn().Str("symbol", tmpl.Symbol).Msg("Empty price history")
			continue
		}

		returns := formulas.CalculateReturns(prices)
		asset := tmpl
		asset.Price = prices[len(prices)-1]
		asset.Volatility = formulas.AnnualizedVolatility(returns)

		expected := 0.0
		if len(returns) > 0 {
			expected = formulas.CalculateEMA(returns, f.emaLength) * formulas.TradingDaysPerYear
		}
		if math.IsNaN(expected) || math.IsInf(expected, 0) {
			expected = 0
		}

		snap.Assets = append(snap.Assets, asset)
		snap.ExpectedReturns[tmpl.Symbol] = expected
		snap.ReturnHistory[tmpl.Symbol] = returns
	}

	if len(snap.Assets) == 0 && len(f.universe) > 0 {
		if lastErr == nil {
			lastErr = errors.New("empty price history")
		}
		return domain.MarketSnapshot{}, fmt.Errorf("no market data for any of %d symbols: %w", len(f.universe), lastErr)
	}

	f.log.Debug().Int("assets", len(snap.Assets)).Msg("Market snapshot built")
	return snap, nil
}
