// Package portfolio orchestrates allocation, execution and performance tracking.
package portfolio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/internal/modules/analytics"
	"github.com/aristath/conductor/internal/modules/execution"
	"github.com/aristath/conductor/internal/modules/optimization"
	"github.com/aristath/conductor/internal/work"
	"github.com/rs/zerolog"
)

// Options configures a Manager.
type Options struct {
	Tuning           optimization.Tuning
	Thresholds       Thresholds
	RiskFreeRate     float64
	HistogramBuckets int
	// OrderRetention is how long finished orders stay queryable. 0 keeps them forever.
	OrderRetention time.Duration
	// Seed fixes the iceberg price perturbation. 0 leaves it time-seeded.
	Seed uint64
}

// Dependencies are the collaborators the Manager does not own.
type Dependencies struct {
	// Placer executes every order; in production this is the smart router.
	Placer    domain.OrderPlacer
	Prices    domain.PriceSource
	Scheduler *work.Scheduler
}

// Status is the aggregate portfolio view exposed to monitoring.
type Status struct {
	Allocations  []domain.Allocation `json:"allocations"`
	Value        float64             `json:"value"`
	Metrics      analytics.Metrics   `json:"metrics"`
	MaxDrawdown  float64             `json:"max_drawdown"`
	ActiveOrders int                 `json:"active_orders"`
	PendingLegs  []PendingLeg        `json:"pending_legs"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Manager owns one optimizer, one analytics service and one execution service,
// and runs one rebalance cycle at a time.
type Manager struct {
	optimizer  *optimization.Optimizer
	analytics  *analytics.Service
	execution  *execution.Service
	thresholds Thresholds
	retention  time.Duration
	clock      work.Clock
	log        zerolog.Logger

	cycleMu sync.Mutex

	mu          sync.RWMutex
	initialized bool
	constraints optimization.Constraints
	expected    map[string]float64
	history     map[string][]float64
	targets     []domain.Allocation
	allocations []domain.Allocation
	value       float64

	legsMu   sync.Mutex
	pending  map[string]*PendingLeg
	inflight map[string]string // symbol -> paced order ID
}

// NewManager wires a Manager and the components it owns.
func NewManager(opts Options, deps Dependencies, log zerolog.Logger) (*Manager, error) {
	if deps.Placer == nil || deps.Prices == nil || deps.Scheduler == nil {
		return nil, fmt.Errorf("placer, price source and scheduler are required")
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}

	exec := execution.NewService(deps.Placer, deps.Prices, deps.Scheduler, log)
	if opts.Seed != 0 {
		exec.SetSeed(opts.Seed)
	}
	stats := analytics.NewService(opts.RiskFreeRate, log)
	if opts.HistogramBuckets > 0 {
		stats.SetHistogramBuckets(opts.HistogramBuckets)
	}

	m := &Manager{
		optimizer:   optimization.NewOptimizer(opts.Tuning, log),
		analytics:   stats,
		execution:   exec,
		thresholds:  opts.Thresholds,
		retention:   opts.OrderRetention,
		clock:       deps.Scheduler.Clock(),
		log:         log.With().Str("service", "portfolio").Logger(),
		constraints: optimization.DefaultConstraints(),
		expected:    make(map[string]float64),
		history:     make(map[string][]float64),
		pending:     make(map[string]*PendingLeg),
		inflight:    make(map[string]string),
	}
	exec.OnTerminal(m.onOrderTerminal)
	return m, nil
}

// Optimizer returns the owned optimizer.
func (m *Manager) Optimizer() *optimization.Optimizer { return m.optimizer }

// Analytics returns the owned analytics service.
func (m *Manager) Analytics() *analytics.Service { return m.analytics }

// Execution returns the owned execution service.
func (m *Manager) Execution() *execution.Service { return m.execution }

// Initialize registers the universe, computes the first target allocation and
// seeds the value series with initialValue.
func (m *Manager) Initialize(assets []domain.Asset, constraints optimization.Constraints, initialValue float64) error {
	if err := constraints.Validate(); err != nil {
		return fmt.Errorf("invalid constraints: %w", err)
	}
	if initialValue <= 0 || math.IsNaN(initialValue) || math.IsInf(initialValue, 0) {
		return fmt.Errorf("%w: initial value %v", domain.ErrInvalidAmount, initialValue)
	}

	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.optimizer.UpsertAssets(assets)

	m.mu.Lock()
	m.constraints = constraints
	m.value = initialValue
	m.initialized = true
	req := m.requestLocked()
	m.mu.Unlock()

	targets := m.optimizer.Optimize(req)

	m.mu.Lock()
	m.targets = targets
	m.allocations = m.optimizer.Rebalance(targets, nil, initialValue)
	m.mu.Unlock()

	m.analytics.AddSnapshot(domain.PerformanceSnapshot{Timestamp: m.clock.Now(), Value: initialValue})

	m.log.Info().
		Int("assets", len(assets)).
		Int("targets", len(targets)).
		Float64("initial_value", initialValue).
		Msg("Portfolio initialized")
	return nil
}

// UpdateMarket upserts the snapshot's assets and replaces the expected returns
// and return history used by the next optimization.
func (m *Manager) UpdateMarket(snapshot domain.MarketSnapshot) {
	m.optimizer.UpsertAssets(snapshot.Assets)

	m.mu.Lock()
	defer m.mu.Unlock()
	if snapshot.ExpectedReturns != nil {
		m.expected = copyFloats(snapshot.ExpectedReturns)
	}
	if snapshot.ReturnHistory != nil {
		m.history = make(map[string][]float64, len(snapshot.ReturnHistory))
		for s, h := range snapshot.ReturnHistory {
			m.history[s] = append([]float64(nil), h...)
		}
	}
}

// SetExpectedReturns merges per-symbol expected returns into the next optimization.
func (m *Manager) SetExpectedReturns(expected map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s, r := range expected {
		m.expected[s] = r
	}
}

// RecordTrade appends a closed trade to the ledger.
func (m *Manager) RecordTrade(symbol string, side domain.Side, entryTime, exitTime time.Time, entryPrice, exitPrice, quantity, fees float64) domain.TradeRecord {
	tr := domain.NewTradeRecord(symbol, side, entryTime, exitTime, entryPrice, exitPrice, quantity, fees)
	m.analytics.AddTrade(tr)
	return tr
}

// UpdatePortfolioValue appends a valuation and returns the refreshed metrics.
func (m *Manager) UpdatePortfolioValue(value float64) analytics.Metrics {
	m.mu.Lock()
	m.value = value
	m.mu.Unlock()

	m.analytics.AddSnapshot(domain.PerformanceSnapshot{Timestamp: m.clock.Now(), Value: value})
	return m.analytics.Metrics()
}

// GetPortfolioStatus aggregates allocations, value and risk for monitoring.
func (m *Manager) GetPortfolioStatus() (Status, error) {
	m.mu.RLock()
	if !m.initialized {
		m.mu.RUnlock()
		return Status{}, domain.ErrNotInitialized
	}
	allocations := append([]domain.Allocation(nil), m.allocations...)
	value := m.value
	m.mu.RUnlock()

	metrics := m.analytics.Metrics()
	return Status{
		Allocations:  allocations,
		Value:        value,
		Metrics:      metrics,
		MaxDrawdown:  metrics.MaxDrawdown,
		ActiveOrders: m.execution.ActiveCount(),
		PendingLegs:  m.PendingLegs(),
		UpdatedAt:    m.clock.Now(),
	}, nil
}

// GeneratePerformanceReport returns metrics, drawdown periods and the trade distribution.
func (m *Manager) GeneratePerformanceReport() analytics.Report {
	return m.analytics.Report(m.clock.Now())
}

// OrderStatus returns an execution order's state.
func (m *Manager) OrderStatus(orderID string) (execution.OrderStatus, error) {
	return m.execution.Status(orderID)
}

// CancelOrder cancels an active execution order.
func (m *Manager) CancelOrder(orderID string) error {
	return m.execution.Cancel(orderID)
}

// Targets returns the most recent target allocation.
func (m *Manager) Targets() []domain.Allocation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Allocation(nil), m.targets...)
}

// Value returns the last recorded portfolio value.
func (m *Manager) Value() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

func (m *Manager) requestLocked() optimization.Request {
	return optimization.Request{
		ExpectedReturns: copyFloats(m.expected),
		ReturnHistory:   m.history,
		Constraints:     m.constraints,
	}
}

func copyFloats(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
