package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/internal/modules/analytics"
	"github.com/aristath/conductor/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// PortfolioManager is the part of portfolio.Manager a rebalance cycle drives.
type PortfolioManager interface {
	UpdateMarket(snapshot domain.MarketSnapshot)
	UpdatePortfolioValue(value float64) analytics.Metrics
	Rebalance(ctx context.Context, holdings map[string]float64, useAdvancedOrders bool) (*portfolio.RebalanceResult, error)
}

// Account reports what the portfolio currently holds.
type Account interface {
	Holdings() map[string]float64
	Value(prices map[string]float64) float64
}

// RebalanceJob runs one rebalance cycle: refresh market data, mark the
// account to market, then rebalance against current holdings.
type RebalanceJob struct {
	log         zerolog.Logger
	feed        domain.MarketFeed
	manager     PortfolioManager
	account     Account
	useAdvanced bool
	timeout     time.Duration
	beforeCycle func()
}

// RebalanceJobConfig holds configuration for the rebalance job
type RebalanceJobConfig struct {
	Log               zerolog.Logger
	Feed              domain.MarketFeed
	Manager           PortfolioManager
	Account           Account
	UseAdvancedOrders bool
	// Timeout bounds one cycle. 0 means no bound beyond the scheduler's context.
	Timeout time.Duration
	// BeforeCycle runs first on every cycle, e.g. to advance a simulated market.
	BeforeCycle func()
}

// NewRebalanceJob creates a new rebalance job
func NewRebalanceJob(cfg RebalanceJobConfig) *RebalanceJob {
	return &RebalanceJob{
		log:         cfg.Log.With().Str("job", "rebalance").Logger(),
		feed:        cfg.Feed,
		manager:     cfg.Manager,
		account:     cfg.Account,
		useAdvanced: cfg.UseAdvancedOrders,
		timeout:     cfg.Timeout,
		beforeCycle: cfg.BeforeCycle,
	}
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "rebalance"
}

// Run executes one rebalance cycle
func (j *RebalanceJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	if j.beforeCycle != nil {
		j.beforeCycle()
	}

	snap, err := j.feed.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load market snapshot: %w", err)
	}
	j.manager.UpdateMarket(snap)

	prices := make(map[string]float64, len(snap.Assets))
	for _, a := range snap.Assets {
		prices[a.Symbol] = a.Price
	}
	value := j.account.Value(prices)
	metrics := j.manager.UpdatePortfolioValue(value)

	result, err := j.manager.Rebalance(ctx, j.account.Holdings(), j.useAdvanced)
	if err != nil {
		return fmt.Errorf("failed to rebalance: %w", err)
	}

	j.log.Info().
		Float64("portfolio_value", value).
		Float64("total_return", metrics.TotalReturn).
		Float64("max_drawdown", metrics.MaxDrawdown).
		Int("orders", len(result.OrderIDs)).
		Int("rejected", len(result.Rejected)).
		Dur("duration", time.Since(start)).
		Msg("Rebalance cycle finished")

	return nil
}
