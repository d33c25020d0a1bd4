package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/internal/modules/execution"
	"github.com/aristath/conductor/internal/modules/optimization"
	testingpkg "github.com/aristath/conductor/internal/testing"
	"github.com/aristath/conductor/internal/work"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	clock     *work.ManualClock
	scheduler *work.Scheduler
	placer    *testingpkg.MockOrderPlacer
	manager   *Manager
}

func testThresholds() Thresholds {
	return Thresholds{
		Dust:            1e-6,
		SmallNotional:   1000,
		LargeNotional:   5000,
		TWAPDuration:    time.Minute,
		TWAPIntervals:   2,
		IcebergSlices:   4,
		IcebergInterval: 10 * time.Second,
		MaxLegRetries:   1,
	}
}

func testAssets() []domain.Asset {
	return []domain.Asset{
		{Symbol: "A", Price: 100, MarketCap: 1000, Volatility: 0.2},
		{Symbol: "B", Price: 100, MarketCap: 1000, Volatility: 0.2},
		{Symbol: "C", Price: 100, MarketCap: 1000, Volatility: 0.2},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := work.NewManualClock(testingpkg.FixtureEpoch)
	scheduler := work.NewScheduler(clock, zerolog.Nop())
	placer := testingpkg.NewMockOrderPlacer(100)
	prices := testingpkg.NewMockPriceSource(map[string]float64{"A": 100, "B": 100, "C": 100})

	m, err := NewManager(Options{
		Tuning:     optimization.DefaultTuning(),
		Thresholds: testThresholds(),
		Seed:       1,
	}, Dependencies{Placer: placer, Prices: prices, Scheduler: scheduler}, zerolog.Nop())
	require.NoError(t, err)
	return &harness{clock: clock, scheduler: scheduler, placer: placer, manager: m}
}

func (h *harness) init(t *testing.T) {
	t.Helper()
	require.NoError(t, h.manager.Initialize(testAssets(), optimization.Constraints{MinWeight: 0, MaxWeight: 1, MaxAssets: 3}, 30000))
}

func (h *harness) step(d time.Duration) {
	h.clock.Advance(d)
	h.scheduler.RunDue(context.Background())
}

func TestManager_NotInitialized(t *testing.T) {
	h := newHarness(t)

	_, err := h.manager.Rebalance(context.Background(), nil, false)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = h.manager.GetPortfolioStatus()
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestManager_InitializeValidation(t *testing.T) {
	h := newHarness(t)

	err := h.manager.Initialize(testAssets(), optimization.Constraints{MinWeight: 0.6, MaxWeight: 0.5}, 1000)
	assert.Error(t, err)

	err = h.manager.Initialize(testAssets(), optimization.DefaultConstraints(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestManager_Initialize(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	targets := h.manager.Targets()
	require.Len(t, targets, 3)
	for _, a := range targets {
		assert.InDelta(t, 1.0/3, a.TargetWeight, 1e-9)
	}

	st, err := h.manager.GetPortfolioStatus()
	require.NoError(t, err)
	assert.Equal(t, 30000.0, st.Value)
	require.Len(t, st.Allocations, 3)
	assert.InDelta(t, 100.0, st.Allocations[0].TargetAmount, 1e-9)
	assert.Len(t, h.manager.Analytics().Snapshots(), 1)
}

func TestManager_RebalanceMarketOnly(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	res, err := h.manager.Rebalance(context.Background(), map[string]float64{}, false)
	require.NoError(t, err)

	require.Len(t, res.OrderIDs, 3)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, 3, h.placer.Calls())
	for _, leg := range res.Orders {
		assert.Equal(t, execution.AlgorithmMarket, leg.Algorithm)
		assert.Equal(t, domain.SideBuy, leg.Side)
		assert.InDelta(t, 100.0, leg.Amount, 1e-9)

		st, err := h.manager.OrderStatus(leg.OrderID)
		require.NoError(t, err)
		assert.Equal(t, execution.StatusCompleted, st.Status)
	}
}

func TestManager_RebalancePrunesFinishedOrders(t *testing.T) {
	clock := work.NewManualClock(testingpkg.FixtureEpoch)
	scheduler := work.NewScheduler(clock, zerolog.Nop())
	prices := testingpkg.NewMockPriceSource(map[string]float64{"A": 100, "B": 100, "C": 100})
	m, err := NewManager(Options{
		Tuning:         optimization.DefaultTuning(),
		Thresholds:     testThresholds(),
		OrderRetention: time.Hour,
	}, Dependencies{Placer: testingpkg.NewMockOrderPlacer(100), Prices: prices, Scheduler: scheduler}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Initialize(testAssets(), optimization.Constraints{MinWeight: 0, MaxWeight: 1, MaxAssets: 3}, 30000))

	_, err = m.Rebalance(context.Background(), map[string]float64{}, false)
	require.NoError(t, err)
	require.Len(t, m.Execution().Orders(), 3)

	clock.Advance(2 * time.Hour)
	res, err := m.Rebalance(context.Background(), map[string]float64{"A": 100, "B": 100, "C": 100}, false)
	require.NoError(t, err)
	assert.Empty(t, res.OrderIDs)
	assert.Empty(t, m.Execution().Orders())
}

func TestManager_RebalanceSelectsAlgorithmByNotional(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	holdings := map[string]float64{"A": 95, "B": 70, "C": 0}
	res, err := h.manager.Rebalance(context.Background(), holdings, true)
	require.NoError(t, err)
	require.Len(t, res.Orders, 3)

	bySymbol := make(map[string]LegOrder)
	for _, leg := range res.Orders {
		bySymbol[leg.Symbol] = leg
	}
	assert.Equal(t, execution.AlgorithmMarket, bySymbol["A"].Algorithm, "500 notional is below small")
	assert.Equal(t, execution.AlgorithmTWAP, bySymbol["B"].Algorithm, "3000 notional is between small and large")
	assert.Equal(t, execution.AlgorithmIceberg, bySymbol["C"].Algorithm, "10000 notional is above large")

	// Drive the paced orders to completion.
	h.step(0)
	for i := 0; i < 6; i++ {
		h.step(10 * time.Second)
	}

	twap, err := h.manager.OrderStatus(bySymbol["B"].OrderID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCompleted, twap.Status)
	assert.Equal(t, 2, twap.SlicesTotal)

	iceberg, err := h.manager.OrderStatus(bySymbol["C"].OrderID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCompleted, iceberg.Status)
	assert.Equal(t, 4, iceberg.SlicesTotal)
	assert.InDelta(t, 100.0, iceberg.ExecutedAmount, 1e-9)
}

func TestManager_RebalanceSkipsDustAndInFlight(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	holdings := map[string]float64{"A": 100, "B": 100, "C": 0}
	res, err := h.manager.Rebalance(context.Background(), holdings, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, res.Skipped)
	require.Len(t, res.OrderIDs, 1)

	// The iceberg for C has not run yet, so the next cycle must not duplicate it.
	res, err = h.manager.Rebalance(context.Background(), holdings, true)
	require.NoError(t, err)
	assert.Empty(t, res.OrderIDs)
	assert.Contains(t, res.Skipped, "C")
}

func TestManager_RejectedLegsRetryThenAbandon(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	h.placer.SetError(domain.ErrNoLiquidity)

	res, err := h.manager.Rebalance(context.Background(), nil, false)
	require.NoError(t, err)
	require.Len(t, res.Rejected, 3)
	assert.Empty(t, res.Abandoned)
	assert.Equal(t, 1, res.Rejected[0].Attempts)
	assert.Contains(t, res.Rejected[0].LastError, "no liquidity")
	assert.Len(t, h.manager.PendingLegs(), 3)

	// Failed market orders are still queryable.
	require.Len(t, res.OrderIDs, 3)
	st, err := h.manager.OrderStatus(res.OrderIDs[0])
	require.NoError(t, err)
	assert.Equal(t, execution.StatusFailed, st.Status)

	res, err = h.manager.Rebalance(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Empty(t, res.Rejected)
	require.Len(t, res.Abandoned, 3)
	assert.Equal(t, 2, res.Abandoned[0].Attempts)
	assert.Empty(t, h.manager.PendingLegs())
}

func TestManager_RetrySucceedsAndClearsPending(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	h.placer.FailOnCall(1, domain.ErrNoLiquidity)

	res, err := h.manager.Rebalance(context.Background(), nil, false)
	require.NoError(t, err)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "A", res.Rejected[0].Symbol)

	holdings := map[string]float64{"B": 100, "C": 100}
	res, err = h.manager.Rebalance(context.Background(), holdings, false)
	require.NoError(t, err)
	assert.Empty(t, res.Rejected)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, "A", res.Orders[0].Symbol)
	assert.Empty(t, h.manager.PendingLegs())
}

func TestManager_FailedPacedOrderBecomesPendingLeg(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	h.placer.FailOnCall(2, testingpkg.ErrMockFailure)

	holdings := map[string]float64{"A": 100, "B": 100}
	res, err := h.manager.Rebalance(context.Background(), holdings, true)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, execution.AlgorithmIceberg, res.Orders[0].Algorithm)

	h.step(0)
	h.step(10 * time.Second)

	st, err := h.manager.OrderStatus(res.Orders[0].OrderID)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusFailed, st.Status)

	pending := h.manager.PendingLegs()
	require.Len(t, pending, 1)
	assert.Equal(t, "C", pending[0].Symbol)
	assert.InDelta(t, 75.0, pending[0].Amount, 1e-9)

	// The failed order is no longer in flight, so the next cycle trades C again.
	holdings["C"] = 25
	res, err = h.manager.Rebalance(context.Background(), holdings, true)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, "C", res.Orders[0].Symbol)
	assert.Equal(t, execution.AlgorithmIceberg, res.Orders[0].Algorithm)
	assert.Empty(t, h.manager.PendingLegs())
}

func TestManager_CancelOrder(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	res, err := h.manager.Rebalance(context.Background(), map[string]float64{"A": 100, "B": 100}, true)
	require.NoError(t, err)
	require.Len(t, res.OrderIDs, 1)

	require.NoError(t, h.manager.CancelOrder(res.OrderIDs[0]))
	assert.ErrorIs(t, h.manager.CancelOrder(res.OrderIDs[0]), domain.ErrOrderNotActive)
	assert.ErrorIs(t, h.manager.CancelOrder("missing"), domain.ErrOrderNotFound)

	h.step(0)
	assert.Equal(t, 0, h.placer.Calls())
}

func TestManager_ValueAndPerformance(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	h.clock.Advance(24 * time.Hour)
	metrics := h.manager.UpdatePortfolioValue(33000)
	assert.InDelta(t, 0.1, metrics.TotalReturn, 1e-12)

	h.clock.Advance(24 * time.Hour)
	h.manager.UpdatePortfolioValue(29700)

	st, err := h.manager.GetPortfolioStatus()
	require.NoError(t, err)
	assert.Equal(t, 29700.0, st.Value)
	assert.InDelta(t, 0.1, st.MaxDrawdown, 1e-12)

	entry := testingpkg.FixtureEpoch
	tr := h.manager.RecordTrade("A", domain.SideBuy, entry, entry.Add(time.Hour), 100, 110, 2, 1)
	assert.InDelta(t, 19.0, tr.PnL, 1e-12)
	h.manager.RecordTrade("B", domain.SideSell, entry, entry.Add(time.Hour), 100, 110, 1, 0)

	report := h.manager.GeneratePerformanceReport()
	assert.Equal(t, 2, report.Trades.TotalTrades)
	assert.Equal(t, 1, report.Trades.WinningTrades)
	assert.Equal(t, 3, report.Metrics.Observations)
	assert.NotEmpty(t, report.DrawdownPeriods)
}

func TestManager_UpdateMarketFeedsOptimizer(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	h.manager.UpdateMarket(domain.MarketSnapshot{
		Assets: []domain.Asset{
			{Symbol: "A", Price: 100, MarketCap: 1000, Volatility: 0.1},
			{Symbol: "B", Price: 100, MarketCap: 1000, Volatility: 0.2},
			{Symbol: "C", Price: 100, MarketCap: 1000, Volatility: 0.2},
		},
		ExpectedReturns: map[string]float64{"A": 0.1},
	})
	h.manager.SetExpectedReturns(map[string]float64{"B": 0.05})

	_, err := h.manager.Rebalance(context.Background(), map[string]float64{"A": 100, "B": 100, "C": 100}, false)
	require.NoError(t, err)

	weights := make(map[string]float64)
	for _, a := range h.manager.Targets() {
		weights[a.Symbol] = a.TargetWeight
	}
	assert.Greater(t, weights["A"], weights["B"], "lower volatility gets a larger risk-parity share")
	assert.InDelta(t, weights["B"], weights["C"], 1e-12)
}

func TestIcebergSliceSize(t *testing.T) {
	tests := []struct {
		total    float64
		slices   int
		expected float64
	}{
		{100, 4, 25},
		{1, 3, 0.33333334},
		{5, 1, 5},
		{5, 0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, icebergSliceSize(tt.total, tt.slices))
	}

	amounts, err := execution.SplitIceberg(1, icebergSliceSize(1, 3))
	require.NoError(t, err)
	assert.Len(t, amounts, 3)
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.LargeNotional = bad.SmallNotional - 1
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.TWAPIntervals = 0
	assert.Error(t, bad.Validate())

	_, err := NewManager(Options{Thresholds: bad}, Dependencies{}, zerolog.Nop())
	assert.Error(t, err)
}
