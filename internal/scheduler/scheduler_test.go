package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/internal/modules/analytics"
	"github.com/aristath/conductor/internal/modules/portfolio"
	testingpkg "github.com/aristath/conductor/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock portfolio manager
type MockPortfolioManager struct {
	mock.Mock
}

func (m *MockPortfolioManager) UpdateMarket(snapshot domain.MarketSnapshot) {
	m.Called(snapshot)
}

func (m *MockPortfolioManager) UpdatePortfolioValue(value float64) analytics.Metrics {
	args := m.Called(value)
	return args.Get(0).(analytics.Metrics)
}

func (m *MockPortfolioManager) Rebalance(ctx context.Context, holdings map[string]float64, useAdvancedOrders bool) (*portfolio.RebalanceResult, error) {
	args := m.Called(holdings, useAdvancedOrders)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portfolio.RebalanceResult), args.Error(1)
}

// Mock account
type MockAccount struct {
	mock.Mock
}

func (m *MockAccount) Holdings() map[string]float64 {
	args := m.Called()
	return args.Get(0).(map[string]float64)
}

func (m *MockAccount) Value(prices map[string]float64) float64 {
	args := m.Called(prices)
	return args.Get(0).(float64)
}

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJobValidatesSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	assert.NoError(t, s.AddJob("@every 1m", job))
	assert.NoError(t, s.AddJob("0 */5 * * * *", job))
	assert.Error(t, s.AddJob("not a schedule", job))
	assert.Equal(t, 2, s.Entries())
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond,
		"a failing job keeps its schedule")
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.RunNow(context.Background(), job))
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestRebalanceJob_Run(t *testing.T) {
	snap := domain.MarketSnapshot{
		Assets:  []domain.Asset{{Symbol: "BTC", Price: 100}, {Symbol: "ETH", Price: 10}},
		TakenAt: testingpkg.FixtureEpoch,
	}
	feed := testingpkg.NewMockMarketFeed(snap)
	holdings := map[string]float64{"BTC": 1}

	account := new(MockAccount)
	account.On("Value", map[string]float64{"BTC": 100, "ETH": 10}).Return(1100.0)
	account.On("Holdings").Return(holdings)

	manager := new(MockPortfolioManager)
	manager.On("UpdateMarket", snap).Return()
	manager.On("UpdatePortfolioValue", 1100.0).Return(analytics.Metrics{TotalReturn: 0.1})
	manager.On("Rebalance", holdings, true).Return(&portfolio.RebalanceResult{OrderIDs: []string{"x"}}, nil)

	ticks := 0
	job := NewRebalanceJob(RebalanceJobConfig{
		Log:               zerolog.Nop(),
		Feed:              feed,
		Manager:           manager,
		Account:           account,
		UseAdvancedOrders: true,
		Timeout:           time.Second,
		BeforeCycle:       func() { ticks++ },
	})

	assert.Equal(t, "rebalance", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, ticks)
	manager.AssertExpectations(t)
	account.AssertExpectations(t)
}

func TestRebalanceJob_FeedFailure(t *testing.T) {
	feed := testingpkg.NewMockMarketFeed(domain.MarketSnapshot{})
	feed.SetError(testingpkg.ErrMockFailure)
	manager := new(MockPortfolioManager)

	job := NewRebalanceJob(RebalanceJobConfig{Log: zerolog.Nop(), Feed: feed, Manager: manager, Account: new(MockAccount)})
	err := job.Run(context.Background())
	assert.ErrorIs(t, err, testingpkg.ErrMockFailure)
	manager.AssertNotCalled(t, "Rebalance", mock.Anything, mock.Anything)
}

func TestRebalanceJob_RebalanceFailure(t *testing.T) {
	feed := testingpkg.NewMockMarketFeed(domain.MarketSnapshot{})
	account := new(MockAccount)
	account.On("Value", map[string]float64{}).Return(0.0)
	account.On("Holdings").Return(map[string]float64{})

	manager := new(MockPortfolioManager)
	manager.On("UpdateMarket", mock.Anything).Return()
	manager.On("UpdatePortfolioValue", 0.0).Return(analytics.Metrics{})
	manager.On("Rebalance", map[string]float64{}, false).Return(nil, domain.ErrNotInitialized)

	job := NewRebalanceJob(RebalanceJobConfig{Log: zerolog.Nop(), Feed: feed, Manager: manager, Account: account})
	err := job.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}
