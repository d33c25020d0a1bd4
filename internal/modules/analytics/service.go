package analytics

import (
	"sync"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/pkg/formulas"
	"github.com/rs/zerolog"
)

// DefaultHistogramBuckets is the number of buckets in the trade P&L distribution.
const DefaultHistogramBuckets = 10

const hoursPerYear = 24 * 365.25

// Service holds the append-only value series and trade ledger.
// Readers take a copy under the lock and compute without holding it.
type Service struct {
	mu           sync.RWMutex
	snapshots    []domain.PerformanceSnapshot
	trades       []domain.TradeRecord
	riskFreeRate float64
	buckets      int
	log          zerolog.Logger
}

// NewService creates an analytics service.
func NewService(riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		snapshots:    make([]domain.PerformanceSnapshot, 0),
		trades:       make([]domain.TradeRecord, 0),
		riskFreeRate: riskFreeRate,
		buckets:      DefaultHistogramBuckets,
		log:          log.With().Str("service", "analytics").Logger(),
	}
}

// SetHistogramBuckets changes the number of distribution buckets.
func (s *Service) SetHistogramBuckets(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.buckets = n
	s.mu.Unlock()
}

// AddSnapshot appends a point to the value series.
func (s *Service) AddSnapshot(snapshot domain.PerformanceSnapshot) {
	s.mu.Lock()
	s.snapshots = append(s.snapshots, snapshot)
	s.mu.Unlock()
}

// AddTrade appends a closed trade to the ledger.
func (s *Service) AddTrade(trade domain.TradeRecord) {
	s.mu.Lock()
	s.trades = append(s.trades, trade)
	s.mu.Unlock()

	s.log.Debug().
		Str("symbol", trade.Symbol).
		Str("side", string(trade.Side)).
		Float64("pnl", trade.PnL).
		Msg("Trade recorded")
}

// Snapshots returns a copy of the value series.
func (s *Service) Snapshots() []domain.PerformanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PerformanceSnapshot(nil), s.snapshots...)
}

// Trades returns a copy of the trade ledger.
func (s *Service) Trades() []domain.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TradeRecord(nil), s.trades...)
}

// Metrics computes return and risk statistics over the value series.
// Fewer than two snapshots yield zeroed metrics.
func (s *Service) Metrics() Metrics {
	return ComputeMetrics(s.Snapshots(), s.riskFreeRate)
}

// DrawdownPeriods segments the value series into drawdown runs.
func (s *Service) DrawdownPeriods() []domain.DrawdownPeriod {
	return ComputeDrawdownPeriods(s.Snapshots())
}

// TradeMetrics summarises the trade ledger.
func (s *Service) TradeMetrics() TradeMetrics {
	return ComputeTradeMetrics(s.Trades())
}

// Distribution buckets trade P&L into a histogram.
func (s *Service) Distribution() []HistogramBucket {
	s.mu.RLock()
	buckets := s.buckets
	s.mu.RUnlock()
	return ComputeDistribution(s.Trades(), buckets)
}

// Report computes every statistic at once.
func (s *Service) Report(now time.Time) Report {
	snapshots := s.Snapshots()
	trades := s.Trades()

	s.mu.RLock()
	buckets := s.buckets
	s.mu.RUnlock()

	return Report{
		GeneratedAt:     now,
		Metrics:         ComputeMetrics(snapshots, s.riskFreeRate),
		Trades:          ComputeTradeMetrics(trades),
		DrawdownPeriods: ComputeDrawdownPeriods(snapshots),
		Distribution:    ComputeDistribution(trades, buckets),
	}
}

// ComputeMetrics reduces a value series to Metrics.
func ComputeMetrics(snapshots []domain.PerformanceSnapshot, riskFreeRate float64) Metrics {
	m := Metrics{Observations: len(snapshots)}
	if len(snapshots) < 2 {
		return m
	}

	values := valuesOf(snapshots)
	first, last := snapshots[0], snapshots[len(snapshots)-1]
	m.Start, m.End = first.Timestamp, last.Timestamp
	m.StartValue, m.EndValue = first.Value, last.Value

	years := last.Timestamp.Sub(first.Timestamp).Hours() / hoursPerYear
	returns := formulas.CalculateReturns(values)

	m.TotalReturn = formulas.TotalReturn(first.Value, last.Value)
	m.AnnualizedReturn = formulas.AnnualizedReturn(m.TotalReturn, years)
	m.Volatility = formulas.AnnualizedVolatility(returns)
	m.DownsideDev = formulas.DownsideDeviation(returns)
	m.MaxDrawdown = formulas.CalculateMaxDrawdown(values)
	m.CurrentDrawdown = formulas.CalculateCurrentDrawdown(values)

	m.SharpeRatio = formulas.SharpeRatio(m.AnnualizedReturn, riskFreeRate, m.Volatility)
	m.SortinoRatio = formulas.SortinoRatio(m.AnnualizedReturn, riskFreeRate, m.DownsideDev)
	m.CalmarRatio = formulas.CalmarRatio(m.AnnualizedReturn, m.MaxDrawdown)
	return m
}

// ComputeDrawdownPeriods maps drawdown runs of the value series onto timestamps.
func ComputeDrawdownPeriods(snapshots []domain.PerformanceSnapshot) []domain.DrawdownPeriod {
	runs := formulas.CalculateDrawdownRuns(valuesOf(snapshots))
	periods := make([]domain.DrawdownPeriod, 0, len(runs))
	for _, r := range runs {
		start := snapshots[r.StartIndex].Timestamp
		end := snapshots[r.EndIndex].Timestamp
		periods = append(periods, domain.DrawdownPeriod{
			Start:     start,
			End:       end,
			Duration:  end.Sub(start),
			Drawdown:  r.Magnitude,
			Recovery:  r.Recovery,
			Recovered: r.Closed,
		})
	}
	return periods
}

func valuesOf(snapshots []domain.PerformanceSnapshot) []float64 {
	values := make([]float64, len(snapshots))
	for i, s := range snapshots {
		values[i] = s.Value
	}
	return values
}
